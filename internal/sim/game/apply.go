package game

import (
	"fmt"
	"sort"

	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"
)

// Apply is the single mutation entry point. An accepted action bumps the
// version by exactly one and returns the delta; a rejected one leaves the
// game untouched. The actor is empty for host-issued actions.
func (g *Game) Apply(actor PlayerID, a protocol.Action) (Delta, *Rejection) {
	if g.halted != "" {
		return Delta{}, reject(protocol.ErrHalted, "game halted: %s", g.halted)
	}
	if a.IsSystem() {
		if actor != "" {
			return Delta{}, reject(protocol.ErrBadRequest, "%s is host-only", a.Kind)
		}
	} else if g.players[actor] == nil {
		return Delta{}, reject(protocol.ErrBadRequest, "unknown player %q", actor)
	}
	if !knownKind(a.Kind) {
		return Delta{}, reject(protocol.ErrBadRequest, "unknown action %q", a.Kind)
	}
	if !Legal(g.phase, a.Kind) {
		return Delta{}, reject(protocol.ErrIllegalPhase, "%s not allowed in %s", a.Kind, g.phase)
	}
	if holderOnly[a.Kind] && actor != g.turn.Holder {
		return Delta{}, reject(protocol.ErrNotYourTurn, "%s is %s's turn", g.phase, g.turn.Holder)
	}

	g.now = a.At
	g.events = nil
	g.violation = ""
	prevPhase, prevTurn := g.phase, g.turn.Number

	if rej := g.dispatch(actor, a); rej != nil {
		g.events = nil
		return Delta{}, rej
	}

	g.version++
	g.refreshScores()
	if g.phase != prevPhase || g.turn.Number != prevTurn {
		g.turn.PhaseAt = a.At
	}
	if g.violation == "" {
		g.violation = g.checkInvariants()
	}
	if g.violation != "" {
		g.halted = g.violation
		g.emit(protocol.Event{"type": "HALTED", "reason": g.violation})
	}

	d := Delta{
		Version: g.version,
		Phase:   g.phase.String(),
		Turn:    g.turn.Number,
		Holder:  g.turn.Holder,
		Events:  g.events,
	}
	g.events = nil
	return d, nil
}

func knownKind(kind string) bool {
	if holderOnly[kind] {
		return true
	}
	switch kind {
	case protocol.ActDiscard, protocol.ActAcceptTrade, protocol.ActDeclineTrade,
		protocol.ActCounterTrade, protocol.ActWithdrawTrade,
		protocol.ActTimeout, protocol.ActExpireOffer, protocol.ActSetConnected:
		return true
	}
	return false
}

func (g *Game) dispatch(actor PlayerID, a protocol.Action) *Rejection {
	switch a.Kind {
	case protocol.ActBuildSettlement:
		return g.handleBuildSettlement(actor, a)
	case protocol.ActBuildRoad:
		return g.handleBuildRoad(actor, a)
	case protocol.ActBuildCity:
		return g.handleBuildCity(actor, a)
	case protocol.ActRoll:
		return g.handleRoll(actor)
	case protocol.ActBuyDevCard:
		return g.handleBuyDevCard(actor)
	case protocol.ActPlayDevCard:
		return g.handlePlayDevCard(actor, a)
	case protocol.ActPickResources:
		return g.handlePickResources(actor, a)
	case protocol.ActPickMonopoly:
		return g.handlePickMonopoly(actor, a)
	case protocol.ActFinishRoads:
		return g.handleFinishRoads(actor)
	case protocol.ActDiscard:
		return g.handleDiscard(actor, a)
	case protocol.ActMoveRobber:
		return g.handleMoveRobber(actor, a)
	case protocol.ActSteal:
		return g.handleSteal(actor, a)
	case protocol.ActBankTrade:
		return g.handleBankTrade(actor, a)
	case protocol.ActOfferTrade:
		return g.handleOfferTrade(actor, a)
	case protocol.ActAcceptTrade:
		return g.handleAcceptTrade(actor, a)
	case protocol.ActDeclineTrade:
		return g.handleDeclineTrade(actor, a)
	case protocol.ActCounterTrade:
		return g.handleCounterTrade(actor, a)
	case protocol.ActWithdrawTrade:
		return g.handleWithdrawTrade(actor, a)
	case protocol.ActEndTurn:
		return g.handleEndTurn(actor)
	case protocol.ActTimeout:
		return g.handleTimeout(a)
	case protocol.ActExpireOffer:
		return g.handleExpireOffer(a)
	case protocol.ActSetConnected:
		return g.handleSetConnected(a)
	}
	return reject(protocol.ErrBadRequest, "unknown action %q", a.Kind)
}

// enter moves the machine to phase p. Changes missing from the transition
// table are recorded as a violation and halt the game after this action.
func (g *Game) enter(p Phase) {
	if !canTransition(g.phase, p) {
		if g.violation == "" {
			g.violation = fmt.Sprintf("illegal transition %s -> %s", g.phase, p)
		}
		return
	}
	if g.phase != p {
		g.emit(protocol.Event{"type": "PHASE", "from": g.phase.String(), "to": p.String()})
	}
	g.phase = p
}

func (g *Game) emit(ev protocol.Event) { g.events = append(g.events, ev) }

// emitSplit emits a detailed event to a few players and a redacted copy to
// everyone else.
func (g *Game) emitSplit(public, private protocol.Event, to ...PlayerID) {
	ids := append([]PlayerID(nil), to...)
	public["except"] = ids
	private["to"] = ids
	g.emit(public)
	g.emit(private)
}

// checkInvariants verifies resource, piece and card conservation, and that
// the random source can still be captured.
func (g *Game) checkInvariants() string {
	sum := g.bank
	if !g.bank.NonNegative() {
		return fmt.Sprintf("bank went negative: %v", g.bank)
	}
	cards := len(g.deck)
	built := map[PlayerID]*model.Pieces{}
	for _, p := range g.order {
		built[p] = &model.Pieces{}
	}
	for _, bl := range g.occ.Buildings {
		built[bl.Owner].Adjust(bl.Kind, 1)
	}
	for _, owner := range g.occ.Roads {
		built[owner].Roads++
	}
	start := g.settings.Pieces
	for _, id := range g.order {
		pl := g.players[id]
		if !pl.Hand.NonNegative() {
			return fmt.Sprintf("player %s hand went negative: %v", id, pl.Hand)
		}
		sum = sum.Add(pl.Hand)
		cards += len(pl.Cards)
		b := built[id]
		if pl.Pieces.Roads+b.Roads != start.Roads ||
			pl.Pieces.Settlements+b.Settlements != start.Settlements ||
			pl.Pieces.Cities+b.Cities != start.Cities {
			return fmt.Sprintf("player %s pieces not conserved: remaining %+v built %+v", id, pl.Pieces, *b)
		}
	}
	if sum != g.supply {
		return fmt.Sprintf("resources not conserved: bank+hands %v != supply %v", sum, g.supply)
	}
	if cards != g.settings.DevDeck.Total() {
		return fmt.Sprintf("development cards not conserved: %d != %d", cards, g.settings.DevDeck.Total())
	}
	if _, err := g.rngState(); err != nil {
		return err.Error()
	}
	return ""
}

func (g *Game) offerIDs() []string {
	ids := make([]string, 0, len(g.offers))
	for id := range g.offers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (g *Game) player(p PlayerID) *Player { return g.players[p] }

// nextHolder is the seat after p in turn order, wrapping.
func (g *Game) nextHolder(p PlayerID) PlayerID {
	for i, id := range g.order {
		if id == p {
			return g.order[(i+1)%len(g.order)]
		}
	}
	return g.order[0]
}
