package ledger

import (
	"errors"

	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"
)

var (
	ErrInsufficientResources = errors.New("insufficient resources")
	ErrNoPiecesRemaining     = errors.New("no pieces remaining")
	ErrBankInsufficient      = errors.New("bank cannot cover")
	ErrIllegalPlacement      = errors.New("illegal placement")
)

var costs = map[model.BuildKind]model.ResourceSet{
	model.Road:       {model.Brick: 1, model.Lumber: 1},
	model.Settlement: {model.Brick: 1, model.Lumber: 1, model.Wool: 1, model.Grain: 1},
	model.City:       {model.Grain: 2, model.Ore: 3},
	model.DevCard:    {model.Wool: 1, model.Grain: 1, model.Ore: 1},
}

// Cost returns the fixed price of a build kind.
func Cost(k model.BuildKind) model.ResourceSet { return costs[k] }

func CanAfford(hand model.ResourceSet, k model.BuildKind) bool {
	c, ok := costs[k]
	return ok && hand.Covers(c)
}

// HasPieceAvailable reports whether the remaining-piece counter for k is
// nonzero. Development cards have no piece counter.
func HasPieceAvailable(remaining model.Pieces, k model.BuildKind) bool {
	if k == model.DevCard {
		return true
	}
	return remaining.Of(k) > 0
}

// CheckBuild runs the piece and affordability checks in the order players see
// them reported.
func CheckBuild(hand model.ResourceSet, remaining model.Pieces, k model.BuildKind) error {
	if !HasPieceAvailable(remaining, k) {
		return ErrNoPiecesRemaining
	}
	if !CanAfford(hand, k) {
		return ErrInsufficientResources
	}
	return nil
}

// Pay moves amount from a hand into the bank. Nothing moves on error.
func Pay(hand, bank *model.ResourceSet, amount model.ResourceSet) error {
	if !amount.NonNegative() || !hand.Covers(amount) {
		return ErrInsufficientResources
	}
	*hand = hand.Sub(amount)
	*bank = bank.Add(amount)
	return nil
}

// Grant moves amount from the bank into a hand. Nothing moves on error.
func Grant(bank, hand *model.ResourceSet, amount model.ResourceSet) error {
	if !amount.NonNegative() || !bank.Covers(amount) {
		return ErrBankInsufficient
	}
	*bank = bank.Sub(amount)
	*hand = hand.Add(amount)
	return nil
}

// Swap exchanges give (a -> b) against take (b -> a) atomically.
func Swap(a, b *model.ResourceSet, give, take model.ResourceSet) error {
	if !give.NonNegative() || !take.NonNegative() || !a.Covers(give) || !b.Covers(take) {
		return ErrInsufficientResources
	}
	*a = a.Sub(give).Add(take)
	*b = b.Sub(take).Add(give)
	return nil
}
