package game

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/scoring"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/setup"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/trade"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"
)

// State is a complete, serializable copy of a game. Snapshot fills every
// field; View blanks what the viewer may not see.
type State struct {
	GameID  string `json:"game_id"`
	Version uint64 `json:"version"`
	Phase   string `json:"phase"`
	Turn    Turn   `json:"turn"`

	Players []PlayerState     `json:"players"`
	Bank    model.ResourceSet `json:"bank"`
	Supply  model.ResourceSet `json:"supply"`

	DeckCount int                 `json:"deck_count"`
	Deck      []model.DevCardType `json:"deck,omitempty"`

	Robber    int              `json:"robber"`
	Buildings []PlacedBuilding `json:"buildings"`
	Roads     []PlacedRoad     `json:"roads"`

	Offers   []trade.Offer `json:"offers"`
	OfferSeq uint64        `json:"offer_seq"`

	Setup       setup.Sequencer  `json:"setup"`
	SetupVertex int              `json:"setup_vertex"`
	Discards    map[PlayerID]int `json:"discards,omitempty"`
	RoadsLeft   int              `json:"roads_left,omitempty"`
	Barbarian   int              `json:"barbarian,omitempty"`

	LongestRoad PlayerID `json:"longest_road,omitempty"`
	LargestArmy PlayerID `json:"largest_army,omitempty"`
	Winner      PlayerID `json:"winner,omitempty"`
	Halted      string   `json:"halted,omitempty"`

	// RNG is the marshalled random source; only in authoritative snapshots.
	RNG []byte `json:"rng,omitempty"`
}

type PlayerState struct {
	ID         PlayerID          `json:"id"`
	Color      string            `json:"color"`
	Connected  bool              `json:"connected"`
	Hand       model.ResourceSet `json:"hand"`
	HandCount  int               `json:"hand_count"`
	Pieces     model.Pieces      `json:"pieces"`
	Cards      []model.HeldCard  `json:"cards,omitempty"`
	CardCount  int               `json:"card_count"`
	Knights    int               `json:"knights"`
	RoadLength int               `json:"road_length"`
	VP         scoring.Tally     `json:"vp"`
}

type PlacedBuilding struct {
	Vertex int             `json:"vertex"`
	Owner  PlayerID        `json:"owner"`
	Kind   model.BuildKind `json:"kind"`
}

type PlacedRoad struct {
	Edge  int      `json:"edge"`
	Owner PlayerID `json:"owner"`
}

// Snapshot is the full authoritative state.
func (g *Game) Snapshot() State {
	st := State{
		GameID:      g.id,
		Version:     g.version,
		Phase:       g.phase.String(),
		Turn:        g.turn,
		Bank:        g.bank,
		Supply:      g.supply,
		DeckCount:   len(g.deck),
		Deck:        append([]model.DevCardType(nil), g.deck...),
		Robber:      g.robber,
		OfferSeq:    g.offerSeq,
		Setup:       setup.Sequencer{Order: append([]PlayerID(nil), g.setup.Order...), Index: g.setup.Index},
		SetupVertex: g.setupVertex,
		RoadsLeft:   g.roadsLeft,
		Barbarian:   g.barbarian,
		LongestRoad: g.longestRoad,
		LargestArmy: g.largestArmy,
		Winner:      g.winner,
		Halted:      g.halted,
	}
	if g.turn.Bought != nil {
		st.Turn.Bought = make(map[model.DevCardType]int, len(g.turn.Bought))
		for k, v := range g.turn.Bought {
			st.Turn.Bought[k] = v
		}
	}
	if len(g.discards) > 0 {
		st.Discards = g.PendingDiscards()
	}
	for _, id := range g.order {
		pl := g.players[id]
		st.Players = append(st.Players, PlayerState{
			ID:         pl.ID,
			Color:      pl.Color,
			Connected:  pl.Connected,
			Hand:       pl.Hand,
			HandCount:  pl.Hand.Total(),
			Pieces:     pl.Pieces,
			Cards:      append([]model.HeldCard(nil), pl.Cards...),
			CardCount:  len(pl.Cards),
			Knights:    pl.Knights,
			RoadLength: pl.RoadLength,
			VP:         g.tally(id),
		})
	}
	for _, v := range sortedKeys(g.occ.Buildings) {
		bl := g.occ.Buildings[v]
		st.Buildings = append(st.Buildings, PlacedBuilding{Vertex: v, Owner: bl.Owner, Kind: bl.Kind})
	}
	for _, e := range sortedKeys(g.occ.Roads) {
		st.Roads = append(st.Roads, PlacedRoad{Edge: e, Owner: g.occ.Roads[e]})
	}
	for _, id := range g.offerIDs() {
		o := *g.offers[id]
		o.Responded = append([]PlayerID(nil), o.Responded...)
		st.Offers = append(st.Offers, o)
	}
	rng, err := g.rngState()
	if err != nil && st.Halted == "" {
		st.Halted = err.Error()
	}
	st.RNG = rng
	return st
}

// rngState is the marshalled random source. A snapshot without it cannot be
// restored, so a failure is reported rather than left out.
func (g *Game) rngState() ([]byte, error) {
	b, err := g.pcg.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("rng state: %w", err)
	}
	return b, nil
}

// View is the state as one player may see it: other players' hands, cards,
// and hidden victory points are reduced to counts, and the deck order and
// random source are withheld. Once the game has ended every card is shown.
func (g *Game) View(viewer PlayerID) State {
	st := g.Snapshot()
	st.Deck = nil
	st.RNG = nil
	if st.Turn.Holder != viewer {
		st.Turn.Bought = nil
	}
	if g.phase == Ended {
		return st
	}
	for i := range st.Players {
		ps := &st.Players[i]
		if ps.ID == viewer {
			continue
		}
		ps.Hand = model.ResourceSet{}
		ps.VP.Hidden = 0
		var played []model.HeldCard
		for _, c := range ps.Cards {
			if c.Played {
				played = append(played, c)
			}
		}
		ps.Cards = played
	}
	return st
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Restore rebuilds a game from a snapshot. opts supplies the board, settings
// and dice; seats come from the snapshot.
func Restore(opts Options, st State) (*Game, error) {
	if opts.Board == nil {
		return nil, fmt.Errorf("game: board is required")
	}
	phase, err := ParsePhase(st.Phase)
	if err != nil {
		return nil, fmt.Errorf("game: restore: %w", err)
	}
	if opts.ID == "" {
		opts.ID = st.GameID
	}
	g := newShell(opts)
	g.version = st.Version
	g.phase = phase
	g.turn = st.Turn
	g.bank = st.Bank
	if !st.Supply.IsZero() {
		g.supply = st.Supply
	}
	g.deck = append([]model.DevCardType(nil), st.Deck...)
	g.robber = st.Robber
	g.offerSeq = st.OfferSeq
	g.setup = setup.Sequencer{Order: append([]PlayerID(nil), st.Setup.Order...), Index: st.Setup.Index}
	g.setupVertex = st.SetupVertex
	g.roadsLeft = st.RoadsLeft
	g.barbarian = st.Barbarian
	g.longestRoad = st.LongestRoad
	g.largestArmy = st.LargestArmy
	g.winner = st.Winner
	g.halted = st.Halted
	for p, n := range st.Discards {
		g.discards[p] = n
	}
	for _, ps := range st.Players {
		g.order = append(g.order, ps.ID)
		g.players[ps.ID] = &Player{
			ID:         ps.ID,
			Color:      ps.Color,
			Connected:  ps.Connected,
			Hand:       ps.Hand,
			Pieces:     ps.Pieces,
			Cards:      append([]model.HeldCard(nil), ps.Cards...),
			Knights:    ps.Knights,
			RoadLength: ps.RoadLength,
		}
	}
	if len(g.order) < 2 {
		return nil, fmt.Errorf("game: restore: snapshot has %d players", len(g.order))
	}
	for _, b := range st.Buildings {
		if !g.board.ValidVertex(b.Vertex) || g.players[b.Owner] == nil {
			return nil, fmt.Errorf("game: restore: bad building at vertex %d", b.Vertex)
		}
		g.occ.Buildings[b.Vertex] = model.Building{Owner: b.Owner, Kind: b.Kind}
	}
	for _, r := range st.Roads {
		if !g.board.ValidEdge(r.Edge) || g.players[r.Owner] == nil {
			return nil, fmt.Errorf("game: restore: bad road on edge %d", r.Edge)
		}
		g.occ.Roads[r.Edge] = r.Owner
	}
	for i := range st.Offers {
		o := st.Offers[i]
		g.offers[o.ID] = &o
	}
	if len(st.RNG) == 0 {
		return nil, fmt.Errorf("game: restore: snapshot has no rng state")
	}
	g.pcg = rand.NewPCG(0, 0)
	if err := g.pcg.UnmarshalBinary(st.RNG); err != nil {
		return nil, fmt.Errorf("game: restore rng: %w", err)
	}
	g.rng = rand.New(g.pcg)
	if msg := g.checkInvariants(); msg != "" && g.halted == "" {
		return nil, fmt.Errorf("game: restore: %s", msg)
	}
	return g, nil
}
