package robber

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/board"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"
)

var (
	ErrWrongDiscardCount  = errors.New("wrong discard count")
	ErrDiscardExceedsHand = errors.New("discard exceeds hand")
	ErrBadDestination     = errors.New("invalid robber destination")
	ErrBadVictim          = errors.New("invalid steal victim")
)

// DiscardAmount is how many cards a hand of total must give up when the
// robber event fires. Zero means the player is not flagged.
func DiscardAmount(total, limit int) int {
	if total <= limit {
		return 0
	}
	return total / 2
}

// CheckDiscard validates a discard selection against the hand.
func CheckDiscard(hand, sel model.ResourceSet, required int) error {
	if !sel.NonNegative() {
		return fmt.Errorf("%w: negative count", ErrWrongDiscardCount)
	}
	if !hand.Covers(sel) {
		return ErrDiscardExceedsHand
	}
	if sel.Total() != required {
		return fmt.Errorf("%w: discard exactly %d, got %d", ErrWrongDiscardCount, required, sel.Total())
	}
	return nil
}

// AutoDiscard picks n cards, one at a time from the largest pile (lowest
// resource index on ties).
func AutoDiscard(hand model.ResourceSet, n int) model.ResourceSet {
	var out model.ResourceSet
	left := hand
	for i := 0; i < n; i++ {
		best := -1
		for r := range left {
			if left[r] > 0 && (best < 0 || left[r] > left[best]) {
				best = r
			}
		}
		if best < 0 {
			break
		}
		left[best]--
		out[best]++
	}
	return out
}

// ownersAround returns the distinct owners of buildings on the hex's corners.
func ownersAround(b *board.Board, occ model.Occupancy, hex int) []model.PlayerID {
	seen := map[model.PlayerID]bool{}
	var out []model.PlayerID
	for _, v := range b.Hexes[hex].Vertices {
		if bl, ok := occ.Buildings[v]; ok && !seen[bl.Owner] {
			seen[bl.Owner] = true
			out = append(out, bl.Owner)
		}
	}
	sort.Strings(out)
	return out
}

// Friendly configures the friendly-robber restriction.
type Friendly struct {
	Enabled bool
	LowVP   int
	// PublicVP returns a player's visible victory points.
	PublicVP func(model.PlayerID) int
}

func (f Friendly) protected(b *board.Board, occ model.Occupancy, hex int, actor model.PlayerID) bool {
	if !f.Enabled || f.PublicVP == nil {
		return false
	}
	others := 0
	for _, p := range ownersAround(b, occ, hex) {
		if p == actor {
			continue
		}
		others++
		if f.PublicVP(p) > f.LowVP {
			return false
		}
	}
	return others > 0
}

// Destinations lists hexes the robber may move to, in id order. Under the
// friendly rule, hexes touching only low-VP opponents are excluded unless no
// other hex qualifies.
func Destinations(b *board.Board, occ model.Occupancy, current int, actor model.PlayerID, f Friendly) []int {
	var all, allowed []int
	for h := range b.Hexes {
		if h == current {
			continue
		}
		all = append(all, h)
		if !f.protected(b, occ, h, actor) {
			allowed = append(allowed, h)
		}
	}
	if len(allowed) == 0 {
		return all
	}
	return allowed
}

func CheckDestination(b *board.Board, occ model.Occupancy, current, hex int, actor model.PlayerID, f Friendly) error {
	if !b.ValidHex(hex) {
		return fmt.Errorf("%w: unknown hex %d", ErrBadDestination, hex)
	}
	for _, h := range Destinations(b, occ, current, actor, f) {
		if h == hex {
			return nil
		}
	}
	if hex == current {
		return fmt.Errorf("%w: the robber is already there", ErrBadDestination)
	}
	return fmt.Errorf("%w: hex %d is protected", ErrBadDestination, hex)
}

// Victims lists players the actor may steal from at hex: they own a building
// on the hex and hold at least one card.
func Victims(b *board.Board, occ model.Occupancy, hex int, actor model.PlayerID, handSize func(model.PlayerID) int) []model.PlayerID {
	var out []model.PlayerID
	for _, p := range ownersAround(b, occ, hex) {
		if p != actor && handSize(p) > 0 {
			out = append(out, p)
		}
	}
	return out
}

// Steal draws one card from hand uniformly at random, weighted by count.
func Steal(hand model.ResourceSet, rng *rand.Rand) (model.Resource, bool) {
	total := hand.Total()
	if total <= 0 {
		return model.NoResource, false
	}
	k := rng.IntN(total)
	for r, n := range hand {
		if k < n {
			return model.Resource(r), true
		}
		k -= n
	}
	return model.NoResource, false
}
