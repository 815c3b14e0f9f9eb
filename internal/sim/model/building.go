package model

// Building is a settlement or city standing on a vertex.
type Building struct {
	Owner PlayerID  `json:"owner"`
	Kind  BuildKind `json:"kind"`
}

// VP is the building's victory-point value.
func (b Building) VP() int {
	if b.Kind == City {
		return 2
	}
	return 1
}

// Yield is how many resource cards the building collects per producing hex.
func (b Building) Yield() int { return b.VP() }

// Occupancy is the set of pieces on the board.
type Occupancy struct {
	Buildings map[int]Building // vertex id -> building
	Roads     map[int]PlayerID // edge id -> owner
}

func NewOccupancy() Occupancy {
	return Occupancy{Buildings: map[int]Building{}, Roads: map[int]PlayerID{}}
}
