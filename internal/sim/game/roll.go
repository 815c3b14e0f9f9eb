package game

import (
	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/ledger"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/robber"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"
)

// Event die faces. Three of six faces are ships.
var eventFaces = [6]string{"SHIP", "SHIP", "SHIP", "BLUE", "GREEN", "YELLOW"}

func (g *Game) handleRoll(actor PlayerID) *Rejection {
	d1, d2 := g.rollDice()
	if d1 < 1 || d1 > 6 || d2 < 1 || d2 > 6 {
		return reject(protocol.ErrInternal, "dice out of range: %d,%d", d1, d2)
	}
	total := d1 + d2
	g.turn.Rolled = true
	g.turn.Dice = [2]int{d1, d2}
	ev := protocol.Event{"type": "ROLLED", "player": actor, "dice": []int{d1, d2}, "total": total}

	barbarians := false
	if g.settings.EventDie {
		face := eventFaces[g.rng.IntN(len(eventFaces))]
		ev["event_die"] = face
		if face == "SHIP" {
			g.barbarian++
			if g.barbarian >= g.settings.BarbarianTrack {
				g.barbarian = 0
				barbarians = true
			}
			ev["barbarian"] = g.barbarian
		}
	}
	g.emit(ev)

	if total != 7 {
		g.produce(total)
	}
	if total == 7 || barbarians {
		if barbarians {
			g.emit(protocol.Event{"type": "BARBARIANS_ARRIVED"})
		}
		g.robberEvent()
		return nil
	}
	g.enter(Main)
	return nil
}

// produce pays out every hex numbered total that the robber is not on. A
// resource the bank cannot fully cover goes to nobody, unless only one player
// is owed it, in which case they get what is left.
func (g *Game) produce(total int) {
	owed := map[PlayerID]model.ResourceSet{}
	var demand model.ResourceSet
	for _, h := range g.board.Hexes {
		if h.Number != total || h.ID == g.robber || !h.Produces() {
			continue
		}
		for _, v := range h.Vertices {
			bl, ok := g.occ.Buildings[v]
			if !ok {
				continue
			}
			s := owed[bl.Owner]
			s[h.Resource] += bl.Yield()
			owed[bl.Owner] = s
			demand[h.Resource] += bl.Yield()
		}
	}
	for _, r := range model.Resources {
		if demand[r] <= g.bank[r] {
			continue
		}
		var claimants []PlayerID
		for p, s := range owed {
			if s[r] > 0 {
				claimants = append(claimants, p)
			}
		}
		if len(claimants) == 1 {
			s := owed[claimants[0]]
			s[r] = g.bank[r]
			owed[claimants[0]] = s
		} else {
			for p, s := range owed {
				s[r] = 0
				owed[p] = s
			}
		}
		g.emit(protocol.Event{"type": "BANK_SHORTAGE", "resource": r.String(), "demand": demand[r], "available": g.bank[r]})
	}
	for _, p := range g.order {
		got, ok := owed[p]
		if !ok || got.IsZero() {
			continue
		}
		if err := ledger.Grant(&g.bank, &g.players[p].Hand, got); err != nil {
			g.violation = "production: " + err.Error()
			return
		}
		g.emit(protocol.Event{"type": "PRODUCED", "player": p, "resources": got.Map()})
	}
}

// robberEvent flags every player over the discard limit. With nobody flagged
// the holder moves the robber straight away.
func (g *Game) robberEvent() {
	for _, p := range g.order {
		if n := robber.DiscardAmount(g.players[p].Hand.Total(), g.settings.DiscardLimit); n > 0 {
			g.discards[p] = n
			g.emit(protocol.Event{"type": "DISCARD_REQUIRED", "player": p, "count": n})
		}
	}
	if len(g.discards) > 0 {
		g.enter(Discard)
		return
	}
	g.enter(RobberMove)
}
