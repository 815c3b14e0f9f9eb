package game

import (
	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/ledger"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/trade"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"
)

func tradeSides(a protocol.Action) (give, want model.ResourceSet, rej *Rejection) {
	give, err := model.ResourceSetFromMap(a.Give)
	if err != nil {
		return give, want, reject(protocol.ErrBadRequest, "give: %v", err)
	}
	want, err = model.ResourceSetFromMap(a.Want)
	if err != nil {
		return give, want, reject(protocol.ErrBadRequest, "want: %v", err)
	}
	return give, want, nil
}

func (g *Game) handleBankTrade(actor PlayerID, a protocol.Action) *Rejection {
	give, want, rej := tradeSides(a)
	if rej != nil {
		return rej
	}
	rates := trade.Rates(g.board, g.occ, actor)
	if err := trade.CheckBankTrade(give, want, rates); err != nil {
		return rejectErr(err)
	}
	pl := g.player(actor)
	if !pl.Hand.Covers(give) {
		return rejectErr(ledger.ErrInsufficientResources)
	}
	if !g.bank.Covers(want) {
		return rejectErr(ledger.ErrBankInsufficient)
	}
	if err := ledger.Swap(&pl.Hand, &g.bank, give, want); err != nil {
		return rejectErr(err)
	}
	g.emit(protocol.Event{"type": "BANK_TRADE", "player": actor, "give": give.Map(), "want": want.Map()})
	return nil
}

func (g *Game) offerExpiry() int64 {
	if g.settings.TradeOfferTimeoutSeconds <= 0 {
		return 0
	}
	return g.now + int64(g.settings.TradeOfferTimeoutSeconds)*1000
}

func (g *Game) newOfferID() string {
	g.offerSeq++
	return trade.OfferID(g.offerSeq)
}

func (g *Game) handleOfferTrade(actor PlayerID, a protocol.Action) *Rejection {
	give, want, rej := tradeSides(a)
	if rej != nil {
		return rej
	}
	if err := trade.CheckOffer(give, want); err != nil {
		return rejectErr(err)
	}
	if a.To != "" && (a.To == actor || g.players[a.To] == nil) {
		return reject(protocol.ErrBadRequest, "bad trade target %q", a.To)
	}
	if !g.player(actor).Hand.Covers(give) {
		return rejectErr(ledger.ErrInsufficientResources)
	}
	o := &trade.Offer{
		ID:        g.newOfferID(),
		From:      actor,
		To:        a.To,
		Give:      give,
		Want:      want,
		CreatedAt: g.now,
		ExpiresAt: g.offerExpiry(),
		Status:    trade.Pending,
	}
	g.offers[o.ID] = o
	g.emitOffer(o)
	return nil
}

func (g *Game) emitOffer(o *trade.Offer) {
	ev := protocol.Event{
		"type":     "TRADE_OFFERED",
		"offer_id": o.ID,
		"from":     o.From,
		"give":     o.Give.Map(),
		"want":     o.Want.Map(),
	}
	if o.To != "" {
		ev["to_player"] = o.To
	}
	if o.Parent != "" {
		ev["parent"] = o.Parent
	}
	if o.ExpiresAt > 0 {
		ev["expires_at"] = o.ExpiresAt
	}
	g.emit(ev)
}

// liveOffer looks up an offer that can still be answered at the current time.
func (g *Game) liveOffer(id string) (*trade.Offer, *Rejection) {
	o, ok := g.offers[id]
	if !ok || o.Status != trade.Pending || (o.ExpiresAt > 0 && g.now >= o.ExpiresAt) {
		return nil, reject(protocol.ErrOfferExpiredOrResolved, "offer %q is no longer open", id)
	}
	return o, nil
}

func (g *Game) closeOffer(o *trade.Offer, status trade.Status, by PlayerID) {
	o.Status = status
	delete(g.offers, o.ID)
	ev := protocol.Event{"type": "TRADE_CLOSED", "offer_id": o.ID, "status": string(status)}
	if by != "" {
		ev["by"] = by
	}
	g.emit(ev)
}

func (g *Game) handleAcceptTrade(actor PlayerID, a protocol.Action) *Rejection {
	o, rej := g.liveOffer(a.OfferID)
	if rej != nil {
		return rej
	}
	if err := o.CheckRespond(actor, g.order); err != nil {
		return rejectErr(err)
	}
	from, to := g.player(o.From), g.player(actor)
	if err := ledger.Swap(&from.Hand, &to.Hand, o.Give, o.Want); err != nil {
		return rejectErr(err)
	}
	g.emit(protocol.Event{
		"type": "TRADE_DONE", "offer_id": o.ID, "from": o.From, "with": actor,
		"give": o.Give.Map(), "want": o.Want.Map(),
	})
	g.closeOffer(o, trade.Accepted, actor)
	return nil
}

func (g *Game) handleDeclineTrade(actor PlayerID, a protocol.Action) *Rejection {
	o, rej := g.liveOffer(a.OfferID)
	if rej != nil {
		return rej
	}
	if err := o.CheckRespond(actor, g.order); err != nil {
		return rejectErr(err)
	}
	o.Respond(actor, g.order, false)
	g.emit(protocol.Event{"type": "TRADE_DECLINED", "offer_id": o.ID, "by": actor})
	if o.Status != trade.Pending {
		g.closeOffer(o, o.Status, "")
	}
	return nil
}

func (g *Game) handleCounterTrade(actor PlayerID, a protocol.Action) *Rejection {
	o, rej := g.liveOffer(a.OfferID)
	if rej != nil {
		return rej
	}
	if err := o.CheckRespond(actor, g.order); err != nil {
		return rejectErr(err)
	}
	give, want, rej := tradeSides(a)
	if rej != nil {
		return rej
	}
	if err := trade.CheckOffer(give, want); err != nil {
		return rejectErr(err)
	}
	if !g.player(actor).Hand.Covers(give) {
		return rejectErr(ledger.ErrInsufficientResources)
	}
	c := o.Counter(g.newOfferID(), actor, give, want, g.now, g.offerExpiry())
	o.Respond(actor, g.order, true)
	g.offers[c.ID] = c
	g.emitOffer(c)
	if o.Status != trade.Pending {
		g.closeOffer(o, o.Status, "")
	}
	return nil
}

func (g *Game) handleWithdrawTrade(actor PlayerID, a protocol.Action) *Rejection {
	o, ok := g.offers[a.OfferID]
	if !ok || o.Status != trade.Pending {
		return reject(protocol.ErrOfferExpiredOrResolved, "offer %q is no longer open", a.OfferID)
	}
	if o.From != actor {
		return reject(protocol.ErrNotYourTurn, "only %s can withdraw %s", o.From, o.ID)
	}
	g.closeOffer(o, trade.Withdrawn, actor)
	return nil
}

func (g *Game) handleExpireOffer(a protocol.Action) *Rejection {
	o, ok := g.offers[a.OfferID]
	if !ok || o.Status != trade.Pending {
		return reject(protocol.ErrOfferExpiredOrResolved, "offer %q is no longer open", a.OfferID)
	}
	if o.ExpiresAt == 0 || a.At < o.ExpiresAt {
		return reject(protocol.ErrBadRequest, "offer %s is not due until %d", o.ID, o.ExpiresAt)
	}
	g.closeOffer(o, trade.Expired, "")
	return nil
}

// expireAllOffers closes every open offer; offers never outlive the turn.
func (g *Game) expireAllOffers() {
	for _, id := range g.offerIDs() {
		g.closeOffer(g.offers[id], trade.Expired, "")
	}
}
