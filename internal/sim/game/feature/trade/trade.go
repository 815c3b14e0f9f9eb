package trade

import (
	"errors"
	"fmt"

	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/board"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"
)

var (
	ErrBadTrade     = errors.New("malformed trade")
	ErrNotRecipient = errors.New("not a recipient of this offer")
	ErrNotPending   = errors.New("offer expired or resolved")
)

const DefaultRate = 4

// OfferID formats the n-th offer id of a game.
func OfferID(n uint64) string {
	return fmt.Sprintf("TR%06d", n)
}

// BankRate is the best bank rate p gets for giving r: 4:1 by default, 3:1
// with a generic port, 2:1 with the port for r. Ports count when p has a
// building on either of their vertices.
func BankRate(b *board.Board, occ model.Occupancy, p model.PlayerID, r model.Resource) int {
	rate := DefaultRate
	for _, port := range b.Ports {
		owned := false
		for _, v := range port.Vertices {
			if bl, ok := occ.Buildings[v]; ok && bl.Owner == p {
				owned = true
			}
		}
		if !owned {
			continue
		}
		if (port.Generic() || port.Resource == r) && port.Ratio < rate {
			rate = port.Ratio
		}
	}
	return rate
}

// Rates returns BankRate for every resource.
func Rates(b *board.Board, occ model.Occupancy, p model.PlayerID) model.ResourceSet {
	var out model.ResourceSet
	for _, r := range model.Resources {
		out[r] = BankRate(b, occ, p, r)
	}
	return out
}

// CheckBankTrade validates that give pays for want at the given rates:
// every given pile is a whole multiple of its rate and the multiples sum to
// the number of cards wanted.
func CheckBankTrade(give, want, rates model.ResourceSet) error {
	if err := checkSides(give, want); err != nil {
		return err
	}
	lots := 0
	for r, n := range give {
		if n == 0 {
			continue
		}
		if n%rates[r] != 0 {
			return fmt.Errorf("%w: %s must be given in multiples of %d", ErrBadTrade, model.Resource(r), rates[r])
		}
		lots += n / rates[r]
	}
	if lots != want.Total() {
		return fmt.Errorf("%w: give pays for %d cards, want asks for %d", ErrBadTrade, lots, want.Total())
	}
	return nil
}

func checkSides(give, want model.ResourceSet) error {
	if !give.NonNegative() || !want.NonNegative() {
		return fmt.Errorf("%w: negative amount", ErrBadTrade)
	}
	if give.IsZero() || want.IsZero() {
		return fmt.Errorf("%w: both sides must be non-empty", ErrBadTrade)
	}
	for r := range give {
		if give[r] > 0 && want[r] > 0 {
			return fmt.Errorf("%w: %s on both sides", ErrBadTrade, model.Resource(r))
		}
	}
	return nil
}

// CheckOffer validates the two sides of a player offer.
func CheckOffer(give, want model.ResourceSet) error { return checkSides(give, want) }
