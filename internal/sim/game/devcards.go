package game

import (
	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/devcards"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/ledger"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"
)

func (g *Game) handleBuyDevCard(actor PlayerID) *Rejection {
	pl := g.player(actor)
	if err := ledger.CheckBuild(pl.Hand, pl.Pieces, model.DevCard); err != nil {
		return rejectErr(err)
	}
	if len(g.deck) == 0 {
		return rejectErr(devcards.ErrDeckEmpty)
	}
	if err := ledger.Pay(&pl.Hand, &g.bank, ledger.Cost(model.DevCard)); err != nil {
		return rejectErr(err)
	}
	card, _ := devcards.Draw(&g.deck)
	pl.Cards = append(pl.Cards, model.HeldCard{Type: card})
	if g.turn.Bought == nil {
		g.turn.Bought = map[model.DevCardType]int{}
	}
	g.turn.Bought[card]++
	g.emitSplit(
		protocol.Event{"type": "DEV_CARD_BOUGHT", "player": actor, "deck_left": len(g.deck)},
		protocol.Event{"type": "DEV_CARD_BOUGHT", "player": actor, "deck_left": len(g.deck), "card": string(card)},
		actor,
	)
	return nil
}

func (g *Game) handlePlayDevCard(actor PlayerID, a protocol.Action) *Rejection {
	card := model.DevCardType(a.Card)
	pl := g.player(actor)
	if err := devcards.Playable(pl.Cards, card, g.turn.Bought[card], g.turn.CardPlayed); err != nil {
		return rejectErr(err)
	}
	devcards.MarkPlayed(pl.Cards, card)
	g.turn.CardPlayed = true
	g.emit(protocol.Event{"type": "DEV_CARD_PLAYED", "player": actor, "card": string(card)})

	switch card {
	case model.Knight:
		pl.Knights++
		g.enter(RobberMove)
	case model.RoadBuilding:
		g.roadsLeft = min(2, pl.Pieces.Roads)
		if g.roadsLeft > 0 && g.canPlaceFreeRoad(pl) {
			g.enter(RoadBuilding)
		} else {
			g.roadsLeft = 0
		}
	case model.YearOfPlenty:
		if g.bank.Total() > 0 {
			g.enter(YearOfPlenty)
		}
	case model.Monopoly:
		g.enter(Monopoly)
	}
	return nil
}

// yearOfPlentyCount is how many cards year-of-plenty takes: two, or what
// the bank has left.
func (g *Game) yearOfPlentyCount() int { return min(2, g.bank.Total()) }

func (g *Game) handlePickResources(actor PlayerID, a protocol.Action) *Rejection {
	pick, err := model.ResourceSetFromMap(a.Resources)
	if err != nil {
		return reject(protocol.ErrBadRequest, "%v", err)
	}
	if !pick.NonNegative() || pick.Total() != g.yearOfPlentyCount() {
		return reject(protocol.ErrBadRequest, "pick exactly %d resources", g.yearOfPlentyCount())
	}
	if !g.bank.Covers(pick) {
		return rejectErr(ledger.ErrBankInsufficient)
	}
	g.takeFromBank(actor, pick)
	return nil
}

func (g *Game) takeFromBank(actor PlayerID, pick model.ResourceSet) {
	if err := ledger.Grant(&g.bank, &g.player(actor).Hand, pick); err != nil {
		g.violation = "year of plenty: " + err.Error()
		return
	}
	g.emit(protocol.Event{"type": "YEAR_OF_PLENTY", "player": actor, "resources": pick.Map()})
	g.enter(Main)
}

func (g *Game) handlePickMonopoly(actor PlayerID, a protocol.Action) *Rejection {
	r, err := model.ParseResource(a.Resource)
	if err != nil || !r.Valid() {
		return reject(protocol.ErrBadRequest, "resource is required")
	}
	g.monopolize(actor, r)
	return nil
}

func (g *Game) monopolize(actor PlayerID, r model.Resource) {
	taker := g.player(actor)
	taken := map[string]int{}
	for _, p := range g.order {
		if p == actor {
			continue
		}
		victim := g.players[p]
		if n := victim.Hand[r]; n > 0 {
			victim.Hand[r] = 0
			taker.Hand[r] += n
			taken[p] = n
		}
	}
	g.emit(protocol.Event{"type": "MONOPOLY", "player": actor, "resource": r.String(), "taken": taken})
	g.enter(Main)
}

func (g *Game) handleFinishRoads(actor PlayerID) *Rejection {
	g.roadsLeft = 0
	g.emit(protocol.Event{"type": "ROAD_BUILDING_DONE", "player": actor})
	g.enter(Main)
	return nil
}
