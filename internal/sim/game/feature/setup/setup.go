package setup

import "github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"

// Step is what the current placement puts down.
type Step int

const (
	PlaceSettlement Step = iota
	PlaceRoad
)

// Sequencer walks the two-round snake draft: each seat places a settlement
// then a road, forward through the order in round 1 and backward in round 2.
type Sequencer struct {
	Order []model.PlayerID `json:"order"`
	// Index is the 0-based placement index, two placements per seat per round.
	Index int `json:"index"`
}

func New(order []model.PlayerID) Sequencer {
	return Sequencer{Order: append([]model.PlayerID(nil), order...)}
}

// Len is the total number of placements.
func (s Sequencer) Len() int { return 4 * len(s.Order) }

func (s Sequencer) Done() bool { return s.Index >= s.Len() }

func (s Sequencer) slot() int { return s.Index / 2 }

// Round is 1 or 2 while placements remain.
func (s Sequencer) Round() int {
	if s.slot() < len(s.Order) {
		return 1
	}
	return 2
}

// Player is the seat that places next; empty once done.
func (s Sequencer) Player() model.PlayerID {
	if s.Done() {
		return ""
	}
	n, k := len(s.Order), s.slot()
	if k < n {
		return s.Order[k]
	}
	return s.Order[2*n-1-k]
}

func (s Sequencer) Step() Step {
	if s.Index%2 == 0 {
		return PlaceSettlement
	}
	return PlaceRoad
}

func (s *Sequencer) Advance() {
	if !s.Done() {
		s.Index++
	}
}

// SnakeOrder lists the seat of every settlement placement.
func SnakeOrder(order []model.PlayerID) []model.PlayerID {
	s := New(order)
	var out []model.PlayerID
	for ; !s.Done(); s.Advance() {
		if s.Step() == PlaceSettlement {
			out = append(out, s.Player())
		}
	}
	return out
}
