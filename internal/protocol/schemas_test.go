package protocol_test

import (
	"encoding/json"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	raw, err := protocol.Schema(name)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	s, err := jsonschema.CompileString(name, raw)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

// roundTrip marshals a Go message and decodes it generically, which is what
// the schema validator sees on the wire.
func roundTrip(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestSchemas_ValidateSamples(t *testing.T) {
	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	validate(compile(t, "hello.schema.json"), roundTrip(t, protocol.HelloMsg{
		Type: protocol.TypeHello, ProtocolVersion: protocol.Version, PlayerID: "A",
	}))
	validate(compile(t, "welcome.schema.json"), roundTrip(t, protocol.WelcomeMsg{
		Type: protocol.TypeWelcome, ProtocolVersion: protocol.Version,
		SessionID: "s1", PlayerID: "A", GameID: "g1", Version: 3,
	}))
	act := compile(t, "act.schema.json")
	validate(act, roundTrip(t, protocol.ActMsg{
		Type: protocol.TypeAct, ProtocolVersion: protocol.Version, ID: "1",
		Action: protocol.Action{Kind: protocol.ActBuildRoad, Edge: protocol.Int(0)},
	}))
	validate(act, roundTrip(t, protocol.ActMsg{
		Type: protocol.TypeAct, ProtocolVersion: protocol.Version, ID: "2",
		Action: protocol.Action{Kind: protocol.ActOfferTrade, Give: map[string]int{"ORE": 1}, Want: map[string]int{"WOOL": 2}},
	}))
	validate(compile(t, "result.schema.json"), roundTrip(t, protocol.ResultMsg{
		Type: protocol.TypeResult, ProtocolVersion: protocol.Version, Ref: "1",
		Code: protocol.ErrNotYourTurn, Message: "not your turn", Version: 7,
	}))
	validate(compile(t, "update.schema.json"), roundTrip(t, protocol.UpdateMsg{
		Type: protocol.TypeUpdate, ProtocolVersion: protocol.Version, Version: 8,
		Phase: "main", Turn: 2, Holder: "B",
		Events: []protocol.Event{{"type": "ROLLED", "player": "B", "total": 8}},
	}))
}

func TestSchemas_RejectBadSamples(t *testing.T) {
	act := compile(t, "act.schema.json")
	var bad any
	_ = json.Unmarshal([]byte(`{"type":"ACT","protocol_version":"1.0","id":"1","action":{"kind":"TIMEOUT"}}`), &bad)
	if err := act.Validate(bad); err == nil {
		t.Fatalf("host-only action must not validate as a client ACT")
	}
	_ = json.Unmarshal([]byte(`{"type":"ACT","protocol_version":"1.0","id":"1","action":{"kind":"DISCARD","resources":{"GOLD":1}}}`), &bad)
	if err := act.Validate(bad); err == nil {
		t.Fatalf("unknown resource must not validate")
	}
}
