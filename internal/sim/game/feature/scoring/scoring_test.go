package scoring

import (
	"testing"

	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/board"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"
)

// ring lays A's roads along the first n sides of a hex.
func ring(t *testing.T, n int) (*board.Board, model.Occupancy, [6]int) {
	t.Helper()
	b, err := board.New(board.StandardLayout())
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	occ := model.NewOccupancy()
	vs := b.Hexes[b.Desert].Vertices
	for i := 0; i < n; i++ {
		e, ok := b.EdgeBetween(vs[i], vs[(i+1)%6])
		if !ok {
			t.Fatalf("missing edge %d", i)
		}
		occ.Roads[e] = "A"
	}
	return b, occ, vs
}

func TestLongestRoad_Chain(t *testing.T) {
	b, occ, _ := ring(t, 5)
	if n := LongestRoad(b, occ, "A"); n != 5 {
		t.Fatalf("chain length=%d", n)
	}
	if n := LongestRoad(b, occ, "B"); n != 0 {
		t.Fatalf("B has no roads, got %d", n)
	}
}

func TestLongestRoad_Loop(t *testing.T) {
	b, occ, _ := ring(t, 6)
	if n := LongestRoad(b, occ, "A"); n != 6 {
		t.Fatalf("loop length=%d", n)
	}
}

func TestLongestRoad_CutByOpponent(t *testing.T) {
	b, occ, vs := ring(t, 5)
	occ.Buildings[vs[2]] = model.Building{Owner: "B", Kind: model.Settlement}
	if n := LongestRoad(b, occ, "A"); n != 3 {
		t.Fatalf("cut chain length=%d", n)
	}
	occ.Buildings[vs[2]] = model.Building{Owner: "A", Kind: model.Settlement}
	if n := LongestRoad(b, occ, "A"); n != 5 {
		t.Fatalf("own building does not cut, got %d", n)
	}
}

func TestAward(t *testing.T) {
	cases := []struct {
		name   string
		scores map[model.PlayerID]int
		holder model.PlayerID
		want   model.PlayerID
	}{
		{"below minimum", map[model.PlayerID]int{"A": 4, "B": 2}, "", ""},
		{"first to reach", map[model.PlayerID]int{"A": 5, "B": 2}, "", "A"},
		{"tie keeps holder", map[model.PlayerID]int{"A": 5, "B": 5}, "A", "A"},
		{"strictly more takes", map[model.PlayerID]int{"A": 5, "B": 6}, "A", "B"},
		{"holder broken, tie among others", map[model.PlayerID]int{"A": 3, "B": 6, "C": 6}, "A", ""},
		{"holder broken below min", map[model.PlayerID]int{"A": 4, "B": 2}, "A", ""},
		{"tie without holder", map[model.PlayerID]int{"A": 5, "B": 5}, "", ""},
	}
	for _, tc := range cases {
		if got := Award(tc.scores, tc.holder, 5); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestTallyAndBuildingVP(t *testing.T) {
	occ := model.NewOccupancy()
	occ.Buildings[1] = model.Building{Owner: "A", Kind: model.Settlement}
	occ.Buildings[9] = model.Building{Owner: "A", Kind: model.City}
	occ.Buildings[20] = model.Building{Owner: "B", Kind: model.City}
	tl := Tally{Buildings: BuildingVP(occ, "A"), LongestRoad: AchievementVP, Hidden: 1}
	if tl.Buildings != 3 || tl.Public() != 5 || tl.Total() != 6 {
		t.Fatalf("tally=%+v public=%d total=%d", tl, tl.Public(), tl.Total())
	}
}
