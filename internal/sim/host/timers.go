package host

import (
	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game"
)

// fireTimers turns elapsed deadlines into TIMEOUT and EXPIRE_OFFER actions.
// Each deadline fires at most once; if the engine rejects the synthetic
// action it is not retried.
func (h *Host) fireTimers() {
	if halted, _ := h.g.Halted(); halted || h.g.Phase() == game.Ended {
		return
	}
	now := h.clock.Now().UnixMilli()

	if secs := h.g.Settings().TurnTimerSeconds; secs > 0 {
		t := h.g.Turn()
		key := timerKey{turn: t.Number, phase: h.g.Phase().String(), phaseAt: t.PhaseAt}
		start := t.PhaseAt
		if start < h.startedAt {
			// Phases that began before this process started (a fresh game or a
			// resumed snapshot) get a full timer from startup.
			start = h.startedAt
		}
		if now >= start+int64(secs)*1000 && key != h.lastTimer {
			h.lastTimer = key
			h.apply("", protocol.Action{Kind: protocol.ActTimeout, Turn: key.turn, Phase: key.phase})
		}
	}

	live := map[string]bool{}
	for _, o := range h.g.PendingOffers() {
		live[o.ID] = true
		if o.ExpiresAt <= 0 || now < o.ExpiresAt || h.expiring[o.ID] {
			continue
		}
		h.expiring[o.ID] = true
		h.apply("", protocol.Action{Kind: protocol.ActExpireOffer, OfferID: o.ID})
	}
	for id := range h.expiring {
		if !live[id] {
			delete(h.expiring, id)
		}
	}
}
