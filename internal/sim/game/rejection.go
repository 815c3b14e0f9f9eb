package game

import (
	"errors"
	"fmt"

	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/devcards"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/ledger"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/robber"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/trade"
)

// Rejection is a refused action. A rejected action never mutates the game.
type Rejection struct {
	Reason  string `json:"code"`
	Message string `json:"message,omitempty"`
}

func (r *Rejection) Error() string {
	if r.Message == "" {
		return r.Reason
	}
	return r.Reason + ": " + r.Message
}

// Is matches on Reason, so errors.Is(rej, game.ErrNotYourTurn) works.
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	return ok && t.Reason == r.Reason
}

var (
	ErrBadRequest             = &Rejection{Reason: protocol.ErrBadRequest}
	ErrIllegalPhase           = &Rejection{Reason: protocol.ErrIllegalPhase}
	ErrNotYourTurn            = &Rejection{Reason: protocol.ErrNotYourTurn}
	ErrInsufficientResources  = &Rejection{Reason: protocol.ErrInsufficientResources}
	ErrNoPiecesRemaining      = &Rejection{Reason: protocol.ErrNoPiecesRemaining}
	ErrIllegalPlacement       = &Rejection{Reason: protocol.ErrIllegalPlacement}
	ErrCardNotPlayable        = &Rejection{Reason: protocol.ErrCardNotPlayable}
	ErrOfferExpiredOrResolved = &Rejection{Reason: protocol.ErrOfferExpiredOrResolved}
	ErrBankInsufficient       = &Rejection{Reason: protocol.ErrBankInsufficient}
	ErrStale                  = &Rejection{Reason: protocol.ErrStale}
	ErrHalted                 = &Rejection{Reason: protocol.ErrHalted}
)

func reject(reason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// rejectErr maps a feature-package error to its wire reason.
func rejectErr(err error) *Rejection {
	reason := protocol.ErrBadRequest
	switch {
	case errors.Is(err, ledger.ErrInsufficientResources), errors.Is(err, robber.ErrDiscardExceedsHand):
		reason = protocol.ErrInsufficientResources
	case errors.Is(err, ledger.ErrNoPiecesRemaining):
		reason = protocol.ErrNoPiecesRemaining
	case errors.Is(err, ledger.ErrBankInsufficient), errors.Is(err, devcards.ErrDeckEmpty):
		reason = protocol.ErrBankInsufficient
	case errors.Is(err, ledger.ErrIllegalPlacement), errors.Is(err, robber.ErrBadDestination):
		reason = protocol.ErrIllegalPlacement
	case errors.Is(err, devcards.ErrCardNotPlayable):
		reason = protocol.ErrCardNotPlayable
	case errors.Is(err, trade.ErrNotPending):
		reason = protocol.ErrOfferExpiredOrResolved
	case errors.Is(err, trade.ErrNotRecipient):
		reason = protocol.ErrNotYourTurn
	}
	return &Rejection{Reason: reason, Message: err.Error()}
}
