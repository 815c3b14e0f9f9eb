package main

import (
	"testing"

	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/board"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/tuning"
)

func newGame(t *testing.T) (*board.Board, *game.Game) {
	t.Helper()
	b, err := board.New(board.StandardLayout())
	if err != nil {
		t.Fatal(err)
	}
	g, err := game.New(game.Options{ID: "bot", Settings: tuning.Defaults(), Board: b, Seats: []game.Seat{{ID: "A"}, {ID: "B"}, {ID: "C"}}})
	if err != nil {
		t.Fatal(err)
	}
	return b, g
}

// TestDecide_PlaysThroughSetup drives all three seats with the bot strategy
// until the first roll.
func TestDecide_PlaysThroughSetup(t *testing.T) {
	b, g := newGame(t)
	for step := 0; step < 200 && g.Phase().IsSetup(); step++ {
		me := g.Turn().Holder
		accepted := false
		for probe := 0; probe < len(b.Vertices); probe++ {
			a, ok := decide(b, g.View(me), me, probe)
			if !ok {
				t.Fatalf("no move for %s in %s", me, g.Phase())
			}
			if _, rej := g.Apply(me, a); rej == nil {
				accepted = true
				break
			}
		}
		if !accepted {
			t.Fatalf("every candidate rejected for %s in %s", me, g.Phase())
		}
	}
	if g.Phase() != game.Roll {
		t.Fatalf("phase=%s after setup", g.Phase())
	}
	a, ok := decide(b, g.View(g.Turn().Holder), g.Turn().Holder, 0)
	if !ok || a.Kind != protocol.ActRoll {
		t.Fatalf("holder action=%+v ok=%v", a, ok)
	}
	other := g.Order()[1]
	if _, ok := decide(b, g.View(other), other, 0); ok {
		t.Fatalf("non-holder should wait")
	}
}

func TestRankedVertices_BestFirst(t *testing.T) {
	b, _ := newGame(t)
	vs := rankedVertices(b)
	if len(vs) != len(b.Vertices) {
		t.Fatalf("len=%d", len(vs))
	}
	score := func(v int) int {
		n := 0
		for _, h := range b.Vertices[v].Hexes {
			if b.Hexes[h].Produces() {
				n += pips(b.Hexes[h].Number)
			}
		}
		return n
	}
	for i := 1; i < len(vs); i++ {
		if score(vs[i-1]) < score(vs[i]) {
			t.Fatalf("not sorted at %d", i)
		}
	}
}

func TestLargestPiles(t *testing.T) {
	hand := model.ResourceSet{4, 1, 0, 3, 0}
	got := largestPiles(hand, 3)
	if got["BRICK"] != 2 || got["GRAIN"] != 1 || len(got) != 2 {
		t.Fatalf("got %v", got)
	}
	if got := largestPiles(model.ResourceSet{1, 0, 0, 0, 0}, 3); got["BRICK"] != 1 || len(got) != 1 {
		t.Fatalf("short hand got %v", got)
	}
}

func TestPips(t *testing.T) {
	for n, want := range map[int]int{2: 1, 6: 5, 7: 0, 8: 5, 12: 1, 0: 0} {
		if got := pips(n); got != want {
			t.Fatalf("pips(%d)=%d want %d", n, got, want)
		}
	}
}
