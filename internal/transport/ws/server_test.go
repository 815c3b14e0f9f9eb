package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/board"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/host"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/tuning"
)

type testEnv struct {
	srv  *Server
	http *httptest.Server
	host *host.Host
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	b, err := board.New(board.StandardLayout())
	require.NoError(t, err)
	g, err := game.New(game.Options{
		ID:       "ws1",
		Settings: tuning.Defaults(),
		Board:    b,
		Seats:    []game.Seat{{ID: "A"}, {ID: "B"}, {ID: "C"}},
	})
	require.NoError(t, err)

	quiet := log.New(io.Discard, "", 0)
	h := host.New(g, host.Config{Layout: board.StandardLayout(), Logger: quiet})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = h.Run(ctx)
		close(done)
	}()

	s := NewServer(h, quiet)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-done
	})
	return &testEnv{srv: s, http: ts, host: h}
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.http.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

// readType reads until a message of type typ arrives.
func readType(t *testing.T, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, b, err := conn.ReadMessage()
		require.NoError(t, err)
		var m map[string]any
		require.NoError(t, json.Unmarshal(b, &m))
		if m["type"] == typ {
			return m
		}
	}
}

func hello(player, token string) protocol.HelloMsg {
	h := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, PlayerID: player}
	if token != "" {
		h.Auth = &protocol.HelloAuth{Token: token}
	}
	return h
}

func join(t *testing.T, e *testEnv, player, token string) (*websocket.Conn, string) {
	t.Helper()
	conn := e.dial(t)
	send(t, conn, hello(player, token))
	w := readType(t, conn, protocol.TypeWelcome)
	require.Equal(t, player, w["player_id"])
	require.Equal(t, "ws1", w["game_id"])
	readType(t, conn, protocol.TypeSnapshot)
	return conn, w["session_id"].(string)
}

func act(id string, a protocol.Action) protocol.ActMsg {
	return protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, ID: id, Action: a}
}

func requireClosed(t *testing.T, conn *websocket.Conn, code int) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		if code != 0 {
			require.True(t, websocket.IsCloseError(err, code), "got %v", err)
		}
		return
	}
}

func TestHandshake_WelcomeSnapshotAndConnectedUpdate(t *testing.T) {
	e := newEnv(t)
	conn, token := join(t, e, "A", "")
	require.NotEmpty(t, token)

	up := readType(t, conn, protocol.TypeUpdate)
	require.EqualValues(t, 1, up["version"])
	evs := up["events"].([]any)
	require.Equal(t, "CONNECTION", evs[0].(map[string]any)["type"])
}

func TestHandshake_Rejections(t *testing.T) {
	e := newEnv(t)

	conn := e.dial(t)
	send(t, conn, act("1", protocol.Action{Kind: protocol.ActRoll}))
	requireClosed(t, conn, websocket.ClosePolicyViolation)

	conn = e.dial(t)
	send(t, conn, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: "0.1", PlayerID: "A"})
	requireClosed(t, conn, websocket.ClosePolicyViolation)

	conn = e.dial(t)
	send(t, conn, hello("Z", ""))
	requireClosed(t, conn, websocket.ClosePolicyViolation)
}

func TestAct_ResultAndUpdate(t *testing.T) {
	e := newEnv(t)
	a, _ := join(t, e, "A", "")
	b, _ := join(t, e, "B", "")

	send(t, a, act("s1", protocol.Action{Kind: protocol.ActBuildSettlement, Vertex: protocol.Int(0)}))
	res := readType(t, a, protocol.TypeResult)
	require.Equal(t, "s1", res["ref"])
	require.Equal(t, true, res["ok"])
	v := res["version"].(float64)

	// B sees the same version as an UPDATE.
	for {
		up := readType(t, b, protocol.TypeUpdate)
		if up["version"].(float64) == v {
			require.Equal(t, game.SetupRoad1.String(), up["phase"])
			break
		}
	}

	send(t, b, act("s2", protocol.Action{Kind: protocol.ActBuildRoad, Edge: protocol.Int(0)}))
	res = readType(t, b, protocol.TypeResult)
	require.Equal(t, false, res["ok"])
	require.Equal(t, protocol.ErrNotYourTurn, res["code"])
	require.Equal(t, v, res["version"])
}

func TestAct_SchemaAndVersionChecks(t *testing.T) {
	e := newEnv(t)
	a, _ := join(t, e, "A", "")

	send(t, a, act("t", protocol.Action{Kind: protocol.ActTimeout}))
	res := readType(t, a, protocol.TypeResult)
	require.Equal(t, protocol.ErrProtoBadRequest, res["code"])

	bad := act("v", protocol.Action{Kind: protocol.ActRoll})
	bad.ProtocolVersion = "9"
	send(t, a, bad)
	res = readType(t, a, protocol.TypeResult)
	require.Equal(t, "v", res["ref"])
	require.Equal(t, protocol.ErrProtoBadRequest, res["code"])
	require.EqualValues(t, 1, e.host.Version())
}

func TestAct_RateLimited(t *testing.T) {
	e := newEnv(t)
	e.srv.SetRateLimit(0, 1)
	a, _ := join(t, e, "A", "")

	send(t, a, act("1", protocol.Action{Kind: protocol.ActRoll}))
	res := readType(t, a, protocol.TypeResult)
	require.Equal(t, protocol.ErrIllegalPhase, res["code"])

	send(t, a, act("2", protocol.Action{Kind: protocol.ActRoll}))
	res = readType(t, a, protocol.TypeResult)
	require.Equal(t, "2", res["ref"])
	require.Equal(t, protocol.ErrRateLimit, res["code"])
}

func TestResync_SendsSnapshot(t *testing.T) {
	e := newEnv(t)
	a, _ := join(t, e, "A", "")
	readType(t, a, protocol.TypeUpdate)

	send(t, a, protocol.ResyncMsg{Type: protocol.TypeResync, ProtocolVersion: protocol.Version})
	snap := readType(t, a, protocol.TypeSnapshot)
	require.EqualValues(t, 1, snap["version"])
	st := snap["state"].(map[string]any)
	require.Equal(t, "ws1", st["game_id"])
	require.Nil(t, st["rng"])
}

func TestReconnect_RequiresToken(t *testing.T) {
	e := newEnv(t)
	first, token := join(t, e, "A", "")

	thief := e.dial(t)
	send(t, thief, hello("A", ""))
	requireClosed(t, thief, websocket.ClosePolicyViolation)

	second, again := join(t, e, "A", token)
	require.Equal(t, token, again)
	requireClosed(t, first, 0)

	// The replaced connection must not mark A disconnected.
	time.Sleep(50 * time.Millisecond)
	st, err := e.host.View(context.Background(), "A")
	require.NoError(t, err)
	require.True(t, st.Players[0].Connected)

	require.NoError(t, second.Close())
	require.Eventually(t, func() bool {
		st, err := e.host.View(context.Background(), "A")
		return err == nil && !st.Players[0].Connected
	}, 3*time.Second, 10*time.Millisecond)
}
