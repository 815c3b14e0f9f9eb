package game

import "github.com/coleschaffer/OpenCatan-sub003/internal/protocol"

// Delta is the outcome of one accepted action.
type Delta struct {
	Version uint64           `json:"version"`
	Phase   string           `json:"phase"`
	Turn    int              `json:"turn"`
	Holder  PlayerID         `json:"holder,omitempty"`
	Events  []protocol.Event `json:"events"`
}

// Spectator is the viewer id of someone watching without a seat. It sees
// only public events; seat ids may not take it.
const Spectator PlayerID = "*"

// For returns the delta as viewer may see it. Events addressed to other
// players are dropped, as are redacted copies the viewer also gets in full.
// The empty viewer is the host and sees everything.
func (d Delta) For(viewer PlayerID) Delta {
	out := d
	out.Events = make([]protocol.Event, 0, len(d.Events))
	for _, ev := range d.Events {
		to, private := ev["to"].([]PlayerID)
		except, _ := ev["except"].([]PlayerID)
		if viewer != "" {
			if private && !contains(to, viewer) {
				continue
			}
			if contains(except, viewer) {
				continue
			}
		}
		cp := make(protocol.Event, len(ev))
		for k, v := range ev {
			if k == "to" || k == "except" {
				continue
			}
			cp[k] = v
		}
		out.Events = append(out.Events, cp)
	}
	return out
}

func contains(ids []PlayerID, p PlayerID) bool {
	for _, id := range ids {
		if id == p {
			return true
		}
	}
	return false
}
