package game

import (
	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/ledger"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/robber"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"
)

func (g *Game) handleDiscard(actor PlayerID, a protocol.Action) *Rejection {
	need, ok := g.discards[actor]
	if !ok {
		return reject(protocol.ErrNotYourTurn, "%s has nothing to discard", actor)
	}
	sel, err := model.ResourceSetFromMap(a.Resources)
	if err != nil {
		return reject(protocol.ErrBadRequest, "%v", err)
	}
	pl := g.player(actor)
	if err := robber.CheckDiscard(pl.Hand, sel, need); err != nil {
		return rejectErr(err)
	}
	g.discard(pl, sel)
	return nil
}

func (g *Game) discard(pl *Player, sel model.ResourceSet) {
	if err := ledger.Pay(&pl.Hand, &g.bank, sel); err != nil {
		g.violation = "discard: " + err.Error()
		return
	}
	delete(g.discards, pl.ID)
	g.emit(protocol.Event{"type": "DISCARDED", "player": pl.ID, "resources": sel.Map()})
	if len(g.discards) == 0 {
		g.enter(RobberMove)
	}
}

func (g *Game) friendly() robber.Friendly {
	return robber.Friendly{
		Enabled:  g.settings.FriendlyRobber,
		LowVP:    g.settings.FriendlyRobberVP,
		PublicVP: func(p PlayerID) int { return g.tally(p).Public() },
	}
}

func (g *Game) handleMoveRobber(actor PlayerID, a protocol.Action) *Rejection {
	if a.Hex == nil {
		return reject(protocol.ErrBadRequest, "hex is required")
	}
	if err := robber.CheckDestination(g.board, g.occ, g.robber, *a.Hex, actor, g.friendly()); err != nil {
		return rejectErr(err)
	}
	g.moveRobber(actor, *a.Hex)
	return nil
}

func (g *Game) moveRobber(actor PlayerID, hex int) {
	g.robber = hex
	victims := robber.Victims(g.board, g.occ, hex, actor, g.handSize)
	g.emit(protocol.Event{"type": "ROBBER_MOVED", "player": actor, "hex": hex, "victims": victims})
	if len(victims) > 0 {
		g.enter(RobberSteal)
		return
	}
	g.enter(Main)
}

func (g *Game) handleSteal(actor PlayerID, a protocol.Action) *Rejection {
	victims := robber.Victims(g.board, g.occ, g.robber, actor, g.handSize)
	for _, v := range victims {
		if v == a.Victim {
			g.steal(actor, v)
			return nil
		}
	}
	return rejectErr(robber.ErrBadVictim)
}

func (g *Game) steal(actor, victim PlayerID) {
	thief, vic := g.player(actor), g.player(victim)
	r, ok := robber.Steal(vic.Hand, g.rng)
	if !ok {
		g.violation = "steal from empty hand"
		return
	}
	if err := ledger.Swap(&vic.Hand, &thief.Hand, model.Single(r, 1), model.ResourceSet{}); err != nil {
		g.violation = "steal: " + err.Error()
		return
	}
	g.emitSplit(
		protocol.Event{"type": "STOLE", "player": actor, "victim": victim},
		protocol.Event{"type": "STOLE", "player": actor, "victim": victim, "resource": r.String()},
		actor, victim,
	)
	g.enter(Main)
}
