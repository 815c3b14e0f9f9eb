package game

import (
	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/ledger"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/robber"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"
)

func (g *Game) handleEndTurn(actor PlayerID) *Rejection {
	if len(g.discards) > 0 {
		return reject(protocol.ErrIllegalPhase, "discards are still pending")
	}
	g.endTurn(actor)
	return nil
}

// endTurn passes the turn. Per-turn flags are cleared here and nowhere else.
func (g *Game) endTurn(actor PlayerID) {
	g.expireAllOffers()
	next := g.nextHolder(actor)
	g.emit(protocol.Event{"type": "TURN_ENDED", "player": actor, "next": next})
	g.turn = Turn{Number: g.turn.Number + 1, Holder: next}
	g.enter(Roll)
}

// handleTimeout resolves whatever the current phase is waiting for with the
// first legal choice. A timeout for an earlier turn or phase is stale.
func (g *Game) handleTimeout(a protocol.Action) *Rejection {
	if a.Turn != g.turn.Number || (a.Phase != "" && a.Phase != g.phase.String()) {
		return reject(protocol.ErrStale, "timeout for turn %d %s, now turn %d %s", a.Turn, a.Phase, g.turn.Number, g.phase)
	}
	holder := g.turn.Holder
	g.emit(protocol.Event{"type": "TIMEOUT", "player": holder, "phase": g.phase.String()})

	switch g.phase {
	case SetupSettlement1, SetupSettlement2:
		legal := ledger.LegalSettlements(g.board, g.occ, holder, true)
		if len(legal) == 0 {
			return reject(protocol.ErrInternal, "no legal setup vertex")
		}
		return g.handleBuildSettlement(holder, protocol.Action{Kind: protocol.ActBuildSettlement, Vertex: protocol.Int(legal[0])})
	case SetupRoad1, SetupRoad2:
		legal := ledger.LegalRoads(g.board, g.occ, holder, g.setupVertex)
		if len(legal) == 0 {
			return reject(protocol.ErrInternal, "no legal setup edge")
		}
		return g.handleBuildRoad(holder, protocol.Action{Kind: protocol.ActBuildRoad, Edge: protocol.Int(legal[0])})
	case Roll:
		return g.handleRoll(holder)
	case Main:
		g.endTurn(holder)
	case Discard:
		for _, p := range g.order {
			if n, ok := g.discards[p]; ok {
				pl := g.player(p)
				g.discard(pl, robber.AutoDiscard(pl.Hand, n))
			}
		}
	case RobberMove:
		dest := robber.Destinations(g.board, g.occ, g.robber, holder, g.friendly())
		g.moveRobber(holder, dest[0])
	case RobberSteal:
		victims := robber.Victims(g.board, g.occ, g.robber, holder, g.handSize)
		if len(victims) == 0 {
			g.enter(Main)
			return nil
		}
		g.steal(holder, victims[0])
	case RoadBuilding:
		return g.handleFinishRoads(holder)
	case YearOfPlenty:
		g.takeFromBank(holder, firstAvailable(g.bank, g.yearOfPlentyCount()))
	case Monopoly:
		g.monopolize(holder, g.richestResource(holder))
	default:
		return reject(protocol.ErrIllegalPhase, "nothing to time out in %s", g.phase)
	}
	return nil
}

// firstAvailable takes n cards from the bank, lowest resource first.
func firstAvailable(bank model.ResourceSet, n int) model.ResourceSet {
	var out model.ResourceSet
	for r := range bank {
		for bank[r]-out[r] > 0 && out.Total() < n {
			out[r]++
		}
	}
	return out
}

// richestResource is the resource the other players hold most of.
func (g *Game) richestResource(actor PlayerID) model.Resource {
	var held model.ResourceSet
	for _, p := range g.order {
		if p != actor {
			held = held.Add(g.players[p].Hand)
		}
	}
	best := model.Brick
	for _, r := range model.Resources {
		if held[r] > held[best] {
			best = r
		}
	}
	return best
}

func (g *Game) handleSetConnected(a protocol.Action) *Rejection {
	pl := g.player(a.Player)
	if pl == nil {
		return reject(protocol.ErrBadRequest, "unknown player %q", a.Player)
	}
	pl.Connected = a.Connected
	g.emit(protocol.Event{"type": "CONNECTION", "player": pl.ID, "connected": a.Connected})
	return nil
}
