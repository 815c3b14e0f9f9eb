package scoring

import (
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/board"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"
)

// AchievementVP is what longest road and largest army are each worth.
const AchievementVP = 2

// LongestRoad is the length of p's longest trail: a path that uses each road
// once and does not pass through a vertex holding an opponent's building.
func LongestRoad(b *board.Board, occ model.Occupancy, p model.PlayerID) int {
	used := map[int]bool{}
	best := 0
	var walk func(v int, start bool) int
	walk = func(v int, start bool) int {
		if !start {
			if bl, ok := occ.Buildings[v]; ok && bl.Owner != p {
				return 0
			}
		}
		longest := 0
		for _, e := range b.Vertices[v].Edges {
			if used[e] || occ.Roads[e] != p {
				continue
			}
			used[e] = true
			if n := 1 + walk(b.Edges[e].Other(v), false); n > longest {
				longest = n
			}
			used[e] = false
		}
		return longest
	}
	for v := range b.Vertices {
		if n := walk(v, true); n > best {
			best = n
		}
	}
	return best
}

// Award decides the holder of an achievement from per-player scores. The
// current holder keeps it unless someone strictly beats them or they drop
// below min; a tie for the lead among non-holders leaves it unclaimed.
func Award(scores map[model.PlayerID]int, holder model.PlayerID, min int) model.PlayerID {
	top, leaders := 0, []model.PlayerID(nil)
	for p, n := range scores {
		switch {
		case n > top:
			top, leaders = n, []model.PlayerID{p}
		case n == top:
			leaders = append(leaders, p)
		}
	}
	if top < min {
		return ""
	}
	for _, p := range leaders {
		if p == holder {
			return holder
		}
	}
	if len(leaders) == 1 {
		return leaders[0]
	}
	return ""
}

// Tally is one player's victory points split by source.
type Tally struct {
	Buildings   int `json:"buildings"`
	LongestRoad int `json:"longest_road"`
	LargestArmy int `json:"largest_army"`
	Hidden      int `json:"hidden"`
}

// Public is what the other players can see.
func (t Tally) Public() int { return t.Buildings + t.LongestRoad + t.LargestArmy }

// Total counts hidden victory-point cards too; it drives the win check.
func (t Tally) Total() int { return t.Public() + t.Hidden }

// BuildingVP sums p's settlement and city points.
func BuildingVP(occ model.Occupancy, p model.PlayerID) int {
	vp := 0
	for _, bl := range occ.Buildings {
		if bl.Owner == p {
			vp += bl.VP()
		}
	}
	return vp
}
