package devcards

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"
)

var (
	ErrCardNotPlayable = errors.New("card not playable")
	ErrDeckEmpty       = errors.New("development deck is empty")
)

// NewDeck builds the deck from a composition and shuffles it once.
func NewDeck(counts map[model.DevCardType]int, rng *rand.Rand) []model.DevCardType {
	var deck []model.DevCardType
	for _, t := range model.DevCardTypes {
		for i := 0; i < counts[t]; i++ {
			deck = append(deck, t)
		}
	}
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck
}

// Draw removes the top card. The deck is drawn without replacement.
func Draw(deck *[]model.DevCardType) (model.DevCardType, error) {
	d := *deck
	if len(d) == 0 {
		return "", ErrDeckEmpty
	}
	top := d[0]
	*deck = d[1:]
	return top, nil
}

// Unplayed counts unplayed cards of a type in a hand.
func Unplayed(hand []model.HeldCard, t model.DevCardType) int {
	n := 0
	for _, c := range hand {
		if c.Type == t && !c.Played {
			n++
		}
	}
	return n
}

// Playable reports whether the holder may play a card of type t now.
// bought is how many cards of type t the holder bought this turn.
func Playable(hand []model.HeldCard, t model.DevCardType, bought int, playedThisTurn bool) error {
	switch {
	case !t.Valid():
		return fmt.Errorf("%w: unknown card %q", ErrCardNotPlayable, t)
	case t == model.VictoryPoint:
		return fmt.Errorf("%w: victory point cards are never played", ErrCardNotPlayable)
	case playedThisTurn:
		return fmt.Errorf("%w: a card was already played this turn", ErrCardNotPlayable)
	}
	n := Unplayed(hand, t)
	if n == 0 {
		return fmt.Errorf("%w: no unplayed %s card", ErrCardNotPlayable, t)
	}
	if n-bought <= 0 {
		return fmt.Errorf("%w: %s was bought this turn", ErrCardNotPlayable, t)
	}
	return nil
}

// MarkPlayed flags the first unplayed card of type t as played.
func MarkPlayed(hand []model.HeldCard, t model.DevCardType) bool {
	for i := range hand {
		if hand[i].Type == t && !hand[i].Played {
			hand[i].Played = true
			return true
		}
	}
	return false
}

// HiddenVP counts victory-point cards in a hand.
func HiddenVP(hand []model.HeldCard) int { return Unplayed(hand, model.VictoryPoint) }
