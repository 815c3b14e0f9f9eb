package game

import (
	"errors"
	"testing"

	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/board"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/ledger"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/tuning"
)

var fourSeats = []Seat{{ID: "A", Color: "red"}, {ID: "B", Color: "blue"}, {ID: "C", Color: "white"}, {ID: "D", Color: "orange"}}

type diceQueue struct{ rolls [][2]int }

func (q *diceQueue) next() (int, int) {
	if len(q.rolls) == 0 {
		return 2, 3
	}
	r := q.rolls[0]
	q.rolls = q.rolls[1:]
	return r[0], r[1]
}

func (q *diceQueue) push(d1, d2 int) { q.rolls = append(q.rolls, [2]int{d1, d2}) }

func newTestGame(t *testing.T, mutate func(*tuning.Settings)) (*Game, *diceQueue) {
	t.Helper()
	b, err := board.New(board.StandardLayout())
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	s := tuning.Defaults()
	s.Seed = 42
	if mutate != nil {
		mutate(&s)
	}
	q := &diceQueue{}
	g, err := New(Options{ID: "g1", Settings: s, Board: b, Seats: fourSeats, Dice: q.next})
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	return g, q
}

func mustApply(t *testing.T, g *Game, p PlayerID, a protocol.Action) Delta {
	t.Helper()
	d, rej := g.Apply(p, a)
	if rej != nil {
		t.Fatalf("%s %s rejected: %v", p, a.Kind, rej)
	}
	return d
}

func mustReject(t *testing.T, g *Game, p PlayerID, a protocol.Action, want *Rejection) {
	t.Helper()
	before, digest := g.Version(), g.Digest()
	_, rej := g.Apply(p, a)
	if rej == nil {
		t.Fatalf("%s %s accepted, want %s", p, a.Kind, want.Reason)
	}
	if !errors.Is(rej, want) {
		t.Fatalf("%s %s: got %v, want %s", p, a.Kind, rej, want.Reason)
	}
	if g.Version() != before || g.Digest() != digest {
		t.Fatalf("rejected %s mutated the game", a.Kind)
	}
}

func touches(b *board.Board, v, number int) bool {
	for _, h := range b.Vertices[v].Hexes {
		if b.Hexes[h].Number == number {
			return true
		}
	}
	return false
}

// playSetup runs the snake draft. pick chooses each settlement from the legal
// vertices; nil takes the first one that touches no hex numbered 8.
func playSetup(t *testing.T, g *Game, pick func(p PlayerID, round int, legal []int) int) {
	t.Helper()
	if pick == nil {
		pick = func(_ PlayerID, _ int, legal []int) int {
			for _, v := range legal {
				if !touches(g.board, v, 8) {
					return v
				}
			}
			return legal[0]
		}
	}
	for g.phase.IsSetup() {
		p := g.turn.Holder
		legal := ledger.LegalSettlements(g.board, g.occ, p, true)
		v := pick(p, g.setup.Round(), legal)
		mustApply(t, g, p, protocol.Action{Kind: protocol.ActBuildSettlement, Vertex: protocol.Int(v)})
		edges := ledger.LegalRoads(g.board, g.occ, p, v)
		mustApply(t, g, p, protocol.Action{Kind: protocol.ActBuildRoad, Edge: protocol.Int(edges[0])})
	}
}

// give moves cards from the bank into a hand so conservation holds.
func give(t *testing.T, g *Game, p PlayerID, s model.ResourceSet) {
	t.Helper()
	if err := ledger.Grant(&g.bank, &g.players[p].Hand, s); err != nil {
		t.Fatalf("give %s %v: %v", p, s, err)
	}
}

// emptyHand returns every card of p to the bank.
func emptyHand(t *testing.T, g *Game, p PlayerID) {
	t.Helper()
	pl := g.players[p]
	if err := ledger.Pay(&pl.Hand, &g.bank, pl.Hand); err != nil {
		t.Fatalf("empty hand: %v", err)
	}
}

// giveCard moves the first card of type c from the deck into p's hand, as if
// bought on an earlier turn.
func giveCard(t *testing.T, g *Game, p PlayerID, c model.DevCardType) {
	t.Helper()
	for i, d := range g.deck {
		if d == c {
			g.deck = append(g.deck[:i:i], g.deck[i+1:]...)
			g.players[p].Cards = append(g.players[p].Cards, model.HeldCard{Type: c})
			return
		}
	}
	t.Fatalf("no %s left in deck", c)
}

// deckTop moves a card of type c to the top of the deck.
func deckTop(t *testing.T, g *Game, c model.DevCardType) {
	t.Helper()
	for i, d := range g.deck {
		if d == c {
			g.deck[0], g.deck[i] = g.deck[i], g.deck[0]
			return
		}
	}
	t.Fatalf("no %s in deck", c)
}

func events(d Delta, typ string) []protocol.Event {
	var out []protocol.Event
	for _, ev := range d.Events {
		if ev["type"] == typ {
			out = append(out, ev)
		}
	}
	return out
}

func TestNew_Validates(t *testing.T) {
	b, _ := board.New(board.StandardLayout())
	if _, err := New(Options{Settings: tuning.Defaults(), Board: b, Seats: fourSeats[:1]}); err == nil {
		t.Fatalf("one player must be rejected")
	}
	if _, err := New(Options{Settings: tuning.Defaults(), Board: b, Seats: []Seat{{ID: "A"}, {ID: "A"}}}); err == nil {
		t.Fatalf("duplicate ids must be rejected")
	}
	if _, err := New(Options{Settings: tuning.Defaults(), Board: b, Seats: []Seat{{ID: "A"}, {ID: Spectator}}}); err == nil {
		t.Fatalf("the spectator id must be rejected as a seat")
	}
	if _, err := New(Options{Settings: tuning.Defaults(), Seats: fourSeats}); err == nil {
		t.Fatalf("missing board must be rejected")
	}
}

func TestNew_InitialState(t *testing.T) {
	g, _ := newTestGame(t, nil)
	if g.Phase() != SetupSettlement1 || g.Holder() != "A" || g.Version() != 0 {
		t.Fatalf("phase=%s holder=%s version=%d", g.Phase(), g.Holder(), g.Version())
	}
	if g.Robber() != g.board.Desert {
		t.Fatalf("robber starts on %d, desert is %d", g.Robber(), g.board.Desert)
	}
	if g.Bank() != (model.ResourceSet{19, 19, 19, 19, 19}) || len(g.deck) != 25 {
		t.Fatalf("bank=%v deck=%d", g.Bank(), len(g.deck))
	}
}

func TestSetup_SnakeOrder(t *testing.T) {
	g, _ := newTestGame(t, nil)
	var placed []PlayerID
	var roads []PlayerID
	for g.phase.IsSetup() {
		p := g.turn.Holder
		v := ledger.LegalSettlements(g.board, g.occ, p, true)[0]
		d := mustApply(t, g, p, protocol.Action{Kind: protocol.ActBuildSettlement, Vertex: protocol.Int(v)})
		for _, ev := range events(d, "BUILT") {
			placed = append(placed, ev["player"].(string))
		}
		e := ledger.LegalRoads(g.board, g.occ, p, v)[0]
		d = mustApply(t, g, p, protocol.Action{Kind: protocol.ActBuildRoad, Edge: protocol.Int(e)})
		for _, ev := range events(d, "BUILT") {
			roads = append(roads, ev["player"].(string))
		}
	}
	want := []PlayerID{"A", "B", "C", "D", "D", "C", "B", "A"}
	for i := range want {
		if placed[i] != want[i] || roads[i] != want[i] {
			t.Fatalf("placement %d: settlement by %s road by %s, want %s", i, placed[i], roads[i], want[i])
		}
	}
	if g.Phase() != Roll || g.Holder() != "A" {
		t.Fatalf("after setup phase=%s holder=%s", g.Phase(), g.Holder())
	}
	for _, p := range g.order {
		pl := g.players[p]
		if pl.Pieces.Settlements != 3 || pl.Pieces.Roads != 13 || pl.Pieces.Cities != 4 {
			t.Fatalf("%s pieces=%+v", p, pl.Pieces)
		}
	}
	if g.Version() != 16 {
		t.Fatalf("version=%d after 16 placements", g.Version())
	}
}

func TestSetup_SecondSettlementGrantsResources(t *testing.T) {
	g, _ := newTestGame(t, nil)
	var second = map[PlayerID]int{}
	playSetup(t, g, func(p PlayerID, round int, legal []int) int {
		v := legal[len(legal)/2]
		if round == 2 {
			second[p] = v
		}
		return v
	})
	for _, p := range g.order {
		want := 0
		for _, h := range g.board.Vertices[second[p]].Hexes {
			if g.board.Hexes[h].Produces() {
				want++
			}
		}
		if got := g.Hand(p).Total(); got != want {
			t.Fatalf("%s: starting hand %d cards, want %d", p, got, want)
		}
	}
}

func TestSetup_Rejections(t *testing.T) {
	g, _ := newTestGame(t, nil)
	v := ledger.LegalSettlements(g.board, g.occ, "A", true)[0]
	mustReject(t, g, "B", protocol.Action{Kind: protocol.ActBuildSettlement, Vertex: protocol.Int(v)}, ErrNotYourTurn)
	mustReject(t, g, "A", protocol.Action{Kind: protocol.ActRoll}, ErrIllegalPhase)
	mustReject(t, g, "A", protocol.Action{Kind: protocol.ActBuildSettlement}, ErrBadRequest)
	mustReject(t, g, "Z", protocol.Action{Kind: protocol.ActBuildSettlement, Vertex: protocol.Int(v)}, ErrBadRequest)
	mustReject(t, g, "A", protocol.Action{Kind: protocol.ActTimeout}, ErrBadRequest)
	mustReject(t, g, "A", protocol.Action{Kind: "FLY"}, ErrBadRequest)

	mustApply(t, g, "A", protocol.Action{Kind: protocol.ActBuildSettlement, Vertex: protocol.Int(v)})
	n := g.board.Vertices[v].Neighbors[0]
	far := -1
	for _, e := range g.board.Vertices[n].Edges {
		ed := g.board.Edges[e]
		if ed.A != v && ed.B != v {
			far = e
		}
	}
	mustReject(t, g, "A", protocol.Action{Kind: protocol.ActBuildRoad, Edge: protocol.Int(far)}, ErrIllegalPlacement)
}

func TestSetConnected_BumpsVersion(t *testing.T) {
	g, _ := newTestGame(t, nil)
	d := mustApply(t, g, "", protocol.Action{Kind: protocol.ActSetConnected, Player: "C", Connected: true})
	if d.Version != 1 || !g.players["C"].Connected {
		t.Fatalf("version=%d connected=%v", d.Version, g.players["C"].Connected)
	}
}
