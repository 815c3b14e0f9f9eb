package trade

import (
	"sort"

	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"
)

type Status string

const (
	Pending   Status = "pending"
	Accepted  Status = "accepted"
	Declined  Status = "declined"
	Expired   Status = "expired"
	Countered Status = "countered"
	Withdrawn Status = "withdrawn"
)

// Offer is a player-to-player proposal. Give and Want are from the point of
// view of From.
type Offer struct {
	ID        string            `json:"id"`
	From      model.PlayerID    `json:"from"`
	To        model.PlayerID    `json:"to,omitempty"` // empty: open to all
	Give      model.ResourceSet `json:"give"`
	Want      model.ResourceSet `json:"want"`
	CreatedAt int64             `json:"created_at"`
	ExpiresAt int64             `json:"expires_at,omitempty"` // 0: until end of turn
	Status    Status            `json:"status"`
	Parent    string            `json:"parent,omitempty"`
	// Responded lists recipients who declined or countered.
	Responded []model.PlayerID `json:"responded,omitempty"`
	Counters  int              `json:"counters,omitempty"`
}

// Recipients lists who may answer the offer, in seat order.
func (o *Offer) Recipients(order []model.PlayerID) []model.PlayerID {
	if o.To != "" {
		return []model.PlayerID{o.To}
	}
	out := make([]model.PlayerID, 0, len(order))
	for _, p := range order {
		if p != o.From {
			out = append(out, p)
		}
	}
	return out
}

func (o *Offer) responded(p model.PlayerID) bool {
	i := sort.SearchStrings(o.Responded, p)
	return i < len(o.Responded) && o.Responded[i] == p
}

// CheckRespond validates that p may accept, decline or counter the offer.
func (o *Offer) CheckRespond(p model.PlayerID, order []model.PlayerID) error {
	if o.Status != Pending {
		return ErrNotPending
	}
	if p == o.From || o.responded(p) {
		return ErrNotRecipient
	}
	for _, r := range o.Recipients(order) {
		if r == p {
			return nil
		}
	}
	return ErrNotRecipient
}

// Respond records a decline (or counter) by p. When every recipient has
// responded the offer is closed: countered if anyone countered, else declined.
func (o *Offer) Respond(p model.PlayerID, order []model.PlayerID, counter bool) {
	if !o.responded(p) {
		o.Responded = append(o.Responded, p)
		sort.Strings(o.Responded)
	}
	if counter {
		o.Counters++
	}
	for _, r := range o.Recipients(order) {
		if !o.responded(r) {
			return
		}
	}
	if o.Counters > 0 {
		o.Status = Countered
	} else {
		o.Status = Declined
	}
}

// Counter builds the counter-offer p makes to o. give and want are from p's
// point of view; the counter is addressed to the original offerer.
func (o *Offer) Counter(id string, p model.PlayerID, give, want model.ResourceSet, at, expiresAt int64) *Offer {
	return &Offer{
		ID:        id,
		From:      p,
		To:        o.From,
		Give:      give,
		Want:      want,
		CreatedAt: at,
		ExpiresAt: expiresAt,
		Status:    Pending,
		Parent:    o.ID,
	}
}
