package protocol

import "testing"

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrRateLimit,
		ErrStale,
		ErrInternal,
		ErrBadRequest,
		ErrIllegalPhase,
		ErrNotYourTurn,
		ErrInsufficientResources,
		ErrNoPiecesRemaining,
		ErrIllegalPlacement,
		ErrCardNotPlayable,
		ErrOfferExpiredOrResolved,
		ErrBankInsufficient,
		ErrHalted,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestAction_IsSystem(t *testing.T) {
	if !(Action{Kind: ActTimeout}).IsSystem() || !(Action{Kind: ActExpireOffer}).IsSystem() {
		t.Fatalf("timer actions must be host-only")
	}
	if (Action{Kind: ActEndTurn}).IsSystem() {
		t.Fatalf("END_TURN is a player action")
	}
}
