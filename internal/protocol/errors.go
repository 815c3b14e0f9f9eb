package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrRateLimit       = "E_RATE_LIMIT"
	ErrStale           = "E_STALE"
	ErrInternal        = "E_INTERNAL"

	// Rule layer.
	ErrBadRequest             = "E_BAD_REQUEST"
	ErrIllegalPhase           = "E_ILLEGAL_PHASE"
	ErrNotYourTurn            = "E_NOT_YOUR_TURN"
	ErrInsufficientResources  = "E_INSUFFICIENT_RESOURCES"
	ErrNoPiecesRemaining      = "E_NO_PIECES_REMAINING"
	ErrIllegalPlacement       = "E_ILLEGAL_PLACEMENT"
	ErrCardNotPlayable        = "E_CARD_NOT_PLAYABLE"
	ErrOfferExpiredOrResolved = "E_OFFER_EXPIRED_OR_RESOLVED"
	ErrBankInsufficient       = "E_BANK_INSUFFICIENT"
	ErrHalted                 = "E_HALTED"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:        {},
	ErrRateLimit:              {},
	ErrStale:                  {},
	ErrInternal:               {},
	ErrBadRequest:             {},
	ErrIllegalPhase:           {},
	ErrNotYourTurn:            {},
	ErrInsufficientResources:  {},
	ErrNoPiecesRemaining:      {},
	ErrIllegalPlacement:       {},
	ErrCardNotPlayable:        {},
	ErrOfferExpiredOrResolved: {},
	ErrBankInsufficient:       {},
	ErrHalted:                 {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
