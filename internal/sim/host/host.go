package host

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coleschaffer/OpenCatan-sub003/internal/persistence/snapshot"
	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/board"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game"
)

// ErrStopped is returned to callers once the loop has exited.
var ErrStopped = errors.New("host stopped")

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type Config struct {
	// SnapshotEvery emits a snapshot every N versions. 0 disables periodic
	// snapshots; the final one on game end is always sent.
	SnapshotEvery uint64
	// TimerInterval is how often turn and offer timers are checked.
	TimerInterval time.Duration
	// SubscriberBuffer is the per-subscriber queue length. A subscriber that
	// falls this far behind is dropped.
	SubscriberBuffer int

	Layout board.Layout
	Clock  Clock
	Logger *log.Logger
}

type ActionLogger interface {
	WriteAction(entry ActionLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// ActionLogEntry is one accepted action. Replaying the entries of a game in
// version order from a snapshot reproduces every Digest.
type ActionLogEntry struct {
	GameID  string          `json:"game_id"`
	Version uint64          `json:"version"`
	Actor   string          `json:"actor,omitempty"`
	Action  protocol.Action `json:"action"`
	Digest  string          `json:"digest"`
}

// AuditEntry records every submission outcome, rejections included.
type AuditEntry struct {
	At      int64  `json:"at"`
	GameID  string `json:"game_id"`
	Version uint64 `json:"version"`
	Actor   string `json:"actor,omitempty"`
	Kind    string `json:"kind"`
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Result answers one submission. Delta is already filtered for the submitter.
type Result struct {
	Version   uint64
	Delta     game.Delta
	Rejection *game.Rejection
}

func (r Result) OK() bool { return r.Rejection == nil }

type submission struct {
	actor  game.PlayerID
	action protocol.Action
	resp   chan Result
}

type query struct {
	fn   func(*game.Game)
	done chan struct{}
}

type snapshotReq struct {
	resp chan snapshot.GameSnapshot
}

// Host owns one game and is its only writer. Submissions from any goroutine
// are funnelled through the inbox and applied one at a time by Run.
type Host struct {
	cfg   Config
	g     *game.Game
	log   *log.Logger
	clock Clock

	inbox       chan submission
	queries     chan query
	snapReqs    chan snapshotReq
	subscribe   chan subscribeReq
	unsubscribe chan *Subscription
	stop        chan struct{}
	stopOnce    sync.Once
	done        chan struct{}

	actionLogger ActionLogger
	auditLogger  AuditLogger
	snapshotSink chan<- snapshot.GameSnapshot

	// Loop-owned.
	subs       map[uint64]*Subscription
	nextSub    uint64
	startedAt  int64
	lastTimer  timerKey
	expiring   map[string]bool
	lastSnap   uint64
	haltLogged bool

	version atomic.Uint64
	phase   atomic.Value // string
}

type timerKey struct {
	turn    int
	phase   string
	phaseAt int64
}

func New(g *game.Game, cfg Config) *Host {
	if cfg.TimerInterval <= 0 {
		cfg.TimerInterval = 250 * time.Millisecond
	}
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = 256
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	h := &Host{
		cfg:         cfg,
		g:           g,
		log:         logger,
		clock:       cfg.Clock,
		inbox:       make(chan submission, 1024),
		queries:     make(chan query, 64),
		snapReqs:    make(chan snapshotReq, 8),
		subscribe:   make(chan subscribeReq, 64),
		unsubscribe: make(chan *Subscription, 64),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		subs:        map[uint64]*Subscription{},
		expiring:    map[string]bool{},
		lastSnap:    g.Version(),
	}
	h.version.Store(g.Version())
	h.phase.Store(g.Phase().String())
	return h
}

func (h *Host) SetActionLogger(l ActionLogger)                   { h.actionLogger = l }
func (h *Host) SetAuditLogger(l AuditLogger)                     { h.auditLogger = l }
func (h *Host) SetSnapshotSink(ch chan<- snapshot.GameSnapshot) { h.snapshotSink = ch }

func (h *Host) GameID() string { return h.g.ID() }

// Version is the last accepted version. Safe from any goroutine.
func (h *Host) Version() uint64 { return h.version.Load() }

// Phase is the current phase name. Safe from any goroutine.
func (h *Host) Phase() string { return h.phase.Load().(string) }

func (h *Host) Run(ctx context.Context) error {
	defer h.shutdown()
	h.startedAt = h.clock.Now().UnixMilli()

	ticker := time.NewTicker(h.cfg.TimerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.stop:
			return nil
		case sub := <-h.inbox:
			sub.resp <- h.apply(sub.actor, sub.action)
		case q := <-h.queries:
			q.fn(h.g)
			close(q.done)
		case req := <-h.snapReqs:
			req.resp <- snapshot.Capture(h.g, h.cfg.Layout)
		case req := <-h.subscribe:
			h.addSubscriber(req)
		case s := <-h.unsubscribe:
			h.removeSubscriber(s)
		case <-ticker.C:
			h.fireTimers()
		}
	}
}

func (h *Host) Stop() { h.stopOnce.Do(func() { close(h.stop) }) }

func (h *Host) shutdown() {
	for id, s := range h.subs {
		delete(h.subs, id)
		close(s.ch)
	}
	close(h.done)
}

// Submit queues an action from a player and waits for its result. Host-only
// kinds are rejected by the engine when actor is non-empty.
func (h *Host) Submit(ctx context.Context, actor game.PlayerID, a protocol.Action) (Result, error) {
	if actor == "" {
		return Result{Version: h.Version(), Rejection: &game.Rejection{Reason: protocol.ErrBadRequest, Message: "missing player"}}, nil
	}
	return h.submit(ctx, actor, a)
}

// SetConnected records a player's connection state as a host action.
func (h *Host) SetConnected(ctx context.Context, player game.PlayerID, connected bool) (Result, error) {
	return h.submit(ctx, "", protocol.Action{Kind: protocol.ActSetConnected, Player: player, Connected: connected})
}

func (h *Host) submit(ctx context.Context, actor game.PlayerID, a protocol.Action) (Result, error) {
	resp := make(chan Result, 1)
	select {
	case h.inbox <- submission{actor: actor, action: a, resp: resp}:
	case <-h.done:
		return Result{}, ErrStopped
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	select {
	case r := <-resp:
		return r, nil
	case <-h.done:
		return Result{}, ErrStopped
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Query runs fn on the loop goroutine, so fn may read the game freely. fn
// must not keep references to the game or mutate it.
func (h *Host) Query(ctx context.Context, fn func(g *game.Game)) error {
	q := query{fn: fn, done: make(chan struct{})}
	select {
	case h.queries <- q:
	case <-h.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-q.done:
		return nil
	case <-h.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View returns the state as viewer may see it.
func (h *Host) View(ctx context.Context, viewer game.PlayerID) (game.State, error) {
	var st game.State
	err := h.Query(ctx, func(g *game.Game) { st = g.View(viewer) })
	return st, err
}

// RequestSnapshot captures the full authoritative state. It is safe to call
// from other goroutines (e.g. HTTP handlers).
func (h *Host) RequestSnapshot(ctx context.Context) (snapshot.GameSnapshot, error) {
	req := snapshotReq{resp: make(chan snapshot.GameSnapshot, 1)}
	select {
	case h.snapReqs <- req:
	case <-h.done:
		return snapshot.GameSnapshot{}, ErrStopped
	case <-ctx.Done():
		return snapshot.GameSnapshot{}, ctx.Err()
	}
	select {
	case s := <-req.resp:
		return s, nil
	case <-h.done:
		return snapshot.GameSnapshot{}, ErrStopped
	case <-ctx.Done():
		return snapshot.GameSnapshot{}, ctx.Err()
	}
}

func (h *Host) apply(actor game.PlayerID, a protocol.Action) Result {
	a.At = h.clock.Now().UnixMilli()
	d, rej := h.g.Apply(actor, a)
	h.audit(actor, a, rej)
	if rej != nil {
		return Result{Version: h.g.Version(), Rejection: rej}
	}

	h.version.Store(d.Version)
	h.phase.Store(d.Phase)
	if h.actionLogger != nil {
		entry := ActionLogEntry{GameID: h.g.ID(), Version: d.Version, Actor: actor, Action: a, Digest: h.g.Digest()}
		if err := h.actionLogger.WriteAction(entry); err != nil {
			h.log.Printf("action log: version=%d: %v", d.Version, err)
		}
	}
	if halted, why := h.g.Halted(); halted && !h.haltLogged {
		h.haltLogged = true
		h.log.Printf("game %s halted at version %d: %s", h.g.ID(), d.Version, why)
	}

	h.publish(d)
	h.maybeSnapshot()
	return Result{Version: d.Version, Delta: d.For(actor)}
}

func (h *Host) audit(actor game.PlayerID, a protocol.Action, rej *game.Rejection) {
	if h.auditLogger == nil {
		return
	}
	e := AuditEntry{
		At:      a.At,
		GameID:  h.g.ID(),
		Version: h.g.Version(),
		Actor:   actor,
		Kind:    a.Kind,
		OK:      rej == nil,
	}
	if rej != nil {
		e.Code, e.Message = rej.Reason, rej.Message
	}
	if err := h.auditLogger.WriteAudit(e); err != nil {
		h.log.Printf("audit log: %v", err)
	}
}

func (h *Host) maybeSnapshot() {
	if h.snapshotSink == nil {
		return
	}
	v := h.g.Version()
	ended := h.g.Phase() == game.Ended
	halted, _ := h.g.Halted()
	periodic := h.cfg.SnapshotEvery > 0 && v-h.lastSnap >= h.cfg.SnapshotEvery
	if !periodic && !ended && !halted {
		return
	}
	if (ended || halted) && v == h.lastSnap {
		return
	}
	snap := snapshot.Capture(h.g, h.cfg.Layout)
	select {
	case h.snapshotSink <- snap:
		h.lastSnap = v
	default:
		h.log.Printf("snapshot sink full; skipped version %d", v)
	}
}
