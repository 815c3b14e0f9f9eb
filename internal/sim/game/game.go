package game

import (
	"fmt"
	"math/rand/v2"

	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/board"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/devcards"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/setup"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/trade"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/tuning"
)

type PlayerID = model.PlayerID

// Seat is one player as configured by the lobby. Seats are listed in turn order.
type Seat struct {
	ID    PlayerID `json:"id" yaml:"id"`
	Color string   `json:"color" yaml:"color"`
}

type Options struct {
	ID       string
	Settings tuning.Settings
	Board    *board.Board
	Seats    []Seat

	// Dice overrides the two six-sided dice. Nil uses the game's seeded source.
	Dice func() (int, int)
}

type Player struct {
	ID        PlayerID
	Color     string
	Connected bool
	Hand      model.ResourceSet
	// Pieces counts pieces still in the player's supply.
	Pieces     model.Pieces
	Cards      []model.HeldCard
	Knights    int
	RoadLength int
}

// Turn is the per-turn record. Everything but Number, Holder and PhaseAt is
// cleared when the turn passes.
type Turn struct {
	Number     int                       `json:"number"`
	Holder     PlayerID                  `json:"holder"`
	Rolled     bool                      `json:"rolled"`
	Dice       [2]int                    `json:"dice"`
	CardPlayed bool                      `json:"card_played"`
	Bought     map[model.DevCardType]int `json:"bought,omitempty"`
	// PhaseAt is when the current phase (or turn) began, unix ms.
	PhaseAt int64 `json:"phase_at"`
}

// Game is the authoritative state of one match. It is not safe for
// concurrent use: callers serialize Apply through a single loop.
type Game struct {
	id       string
	settings tuning.Settings
	board    *board.Board

	order   []PlayerID
	players map[PlayerID]*Player

	supply model.ResourceSet
	bank   model.ResourceSet
	deck   []model.DevCardType
	occ    model.Occupancy
	robber int

	phase       Phase
	turn        Turn
	setup       setup.Sequencer
	setupVertex int
	discards    map[PlayerID]int
	roadsLeft   int

	offers   map[string]*trade.Offer
	offerSeq uint64

	longestRoad PlayerID
	largestArmy PlayerID
	winner      PlayerID
	barbarian   int

	version uint64
	halted  string

	pcg  *rand.PCG
	rng  *rand.Rand
	dice func() (int, int)

	// Scratch state for the action being applied.
	now       int64
	events    []protocol.Event
	violation string
}

func New(opts Options) (*Game, error) {
	if opts.Board == nil {
		return nil, fmt.Errorf("game: board is required")
	}
	if err := opts.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("game: %w", err)
	}
	if len(opts.Seats) < 2 {
		return nil, fmt.Errorf("game: need at least 2 players, got %d", len(opts.Seats))
	}
	g := newShell(opts)
	for _, s := range opts.Seats {
		if s.ID == "" {
			return nil, fmt.Errorf("game: empty player id")
		}
		if s.ID == Spectator {
			return nil, fmt.Errorf("game: player id %q is reserved", s.ID)
		}
		if _, dup := g.players[s.ID]; dup {
			return nil, fmt.Errorf("game: duplicate player %q", s.ID)
		}
		g.order = append(g.order, s.ID)
		g.players[s.ID] = &Player{ID: s.ID, Color: s.Color, Pieces: opts.Settings.Pieces}
	}

	seed := uint64(opts.Settings.Seed)
	g.pcg = rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	g.rng = rand.New(g.pcg)

	g.bank = g.supply
	g.deck = devcards.NewDeck(opts.Settings.DevDeck.Counts(), g.rng)
	g.robber = opts.Board.Desert
	g.setup = setup.New(g.order)
	g.phase = SetupSettlement1
	g.turn = Turn{Holder: g.setup.Player()}
	return g, nil
}

func newShell(opts Options) *Game {
	return &Game{
		id:          opts.ID,
		settings:    opts.Settings,
		board:       opts.Board,
		players:     map[PlayerID]*Player{},
		supply:      opts.Settings.BankSupply.Set(),
		occ:         model.NewOccupancy(),
		setupVertex: -1,
		discards:    map[PlayerID]int{},
		offers:      map[string]*trade.Offer{},
		dice:        opts.Dice,
	}
}

func (g *Game) ID() string                { return g.id }
func (g *Game) Version() uint64           { return g.version }
func (g *Game) Phase() Phase              { return g.phase }
func (g *Game) Turn() Turn                { return g.turn }
func (g *Game) Holder() PlayerID          { return g.turn.Holder }
func (g *Game) Order() []PlayerID         { return append([]PlayerID(nil), g.order...) }
func (g *Game) Board() *board.Board       { return g.board }
func (g *Game) Settings() tuning.Settings { return g.settings }
func (g *Game) Winner() PlayerID          { return g.winner }
func (g *Game) Bank() model.ResourceSet   { return g.bank }
func (g *Game) Robber() int               { return g.robber }

// Halted reports whether an invariant violation stopped the game, with the
// diagnostic.
func (g *Game) Halted() (bool, string) { return g.halted != "", g.halted }

// Hand returns a copy of a player's resources.
func (g *Game) Hand(p PlayerID) model.ResourceSet {
	if pl := g.players[p]; pl != nil {
		return pl.Hand
	}
	return model.ResourceSet{}
}

// PendingDiscards returns how many cards each flagged player still owes.
func (g *Game) PendingDiscards() map[PlayerID]int {
	out := make(map[PlayerID]int, len(g.discards))
	for p, n := range g.discards {
		out[p] = n
	}
	return out
}

// PendingOffers returns copies of the open trade offers in id order.
func (g *Game) PendingOffers() []trade.Offer {
	ids := g.offerIDs()
	out := make([]trade.Offer, 0, len(ids))
	for _, id := range ids {
		out = append(out, *g.offers[id])
	}
	return out
}

func (g *Game) rollDice() (int, int) {
	if g.dice != nil {
		return g.dice()
	}
	return 1 + g.rng.IntN(6), 1 + g.rng.IntN(6)
}

func (g *Game) handSize(p PlayerID) int {
	if pl := g.players[p]; pl != nil {
		return pl.Hand.Total()
	}
	return 0
}
