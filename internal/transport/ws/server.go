package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/time/rate"

	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/host"
)

// GameHost is the part of *host.Host the transport needs.
type GameHost interface {
	GameID() string
	Submit(ctx context.Context, actor game.PlayerID, a protocol.Action) (host.Result, error)
	SetConnected(ctx context.Context, player game.PlayerID, connected bool) (host.Result, error)
	Subscribe(ctx context.Context, viewer game.PlayerID) (*host.Subscription, game.State, error)
	View(ctx context.Context, viewer game.PlayerID) (game.State, error)
}

type Server struct {
	host GameHost
	log  *log.Logger

	upgrader  websocket.Upgrader
	actSchema *jsonschema.Schema

	actRate  rate.Limit
	actBurst int

	mu       sync.Mutex
	sessions map[game.PlayerID]*session
	nextGen  uint64
}

// session is a claimed seat. The token lets the same player reconnect and
// replace a stale connection; gen identifies the connection holding it.
type session struct {
	token  string
	gen    uint64
	cancel context.CancelFunc
}

func NewServer(h GameHost, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	raw, err := protocol.Schema("act.schema.json")
	if err != nil {
		panic(err)
	}
	s := &Server{
		host: h,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		actSchema: jsonschema.MustCompileString("act.schema.json", raw),
		actRate:   rate.Limit(10),
		actBurst:  20,
		sessions:  map[game.PlayerID]*session{},
	}
	return s
}

// SetRateLimit sets the per-connection ACT budget.
func (s *Server) SetRateLimit(r rate.Limit, burst int) {
	s.actRate, s.actBurst = r, burst
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		// A reconnect with the same token cancels ctx; that must unblock reads.
		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		defer stop()

		player, sess := s.handshake(conn, cancel)
		if player == "" {
			return
		}
		s.log.Printf("%s connected (session %s)", player, sess.token)
		defer func() {
			if !s.release(player, sess.gen) {
				s.log.Printf("%s connection replaced", player)
				return
			}
			s.log.Printf("%s disconnected", player)
			cctx, ccancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer ccancel()
			_, _ = s.host.SetConnected(cctx, player, false)
		}()

		sub, st, err := s.host.Subscribe(ctx, player)
		if err != nil {
			closeWith(conn, websocket.CloseTryAgainLater, "game unavailable")
			return
		}
		welcome := protocol.WelcomeMsg{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			SessionID:       sess.token,
			PlayerID:        player,
			GameID:          s.host.GameID(),
			Version:         st.Version,
		}
		if writeJSON(conn, welcome) != nil || writeJSON(conn, snapshotMsg(st)) != nil {
			sub.Close()
			return
		}
		if _, err := s.host.SetConnected(ctx, player, true); err != nil {
			sub.Close()
			return
		}

		out := make(chan any, 16)
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			s.writeLoop(ctx, cancel, conn, player, sub, out)
		}()

		s.readLoop(ctx, conn, player, out)
		cancel()
		<-writerDone
	}
}

// writeLoop is the connection's only writer after the handshake.
func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, player game.PlayerID, sub *host.Subscription, out <-chan any) {
	defer func() { sub.Close() }()
	for {
		select {
		case <-ctx.Done():
			return
		case v := <-out:
			if err := writeJSON(conn, v); err != nil {
				cancel()
				return
			}
		case d, ok := <-sub.C:
			if !ok {
				// Dropped for falling behind: start over from a fresh view.
				next, st, err := s.host.Subscribe(ctx, player)
				if err != nil {
					cancel()
					return
				}
				sub = next
				if err := writeJSON(conn, snapshotMsg(st)); err != nil {
					cancel()
					return
				}
				continue
			}
			if err := writeJSON(conn, updateMsg(d)); err != nil {
				cancel()
				return
			}
		}
	}
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, player game.PlayerID, out chan<- any) {
	limiter := rate.NewLimiter(s.actRate, s.actBurst)
	send := func(v any) bool {
		select {
		case out <- v:
			return true
		case <-ctx.Done():
			return false
		}
	}
	for {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeAct:
			if !send(s.handleAct(ctx, limiter, player, msg)) {
				return
			}
		case protocol.TypeResync:
			st, err := s.host.View(ctx, player)
			if err != nil {
				return
			}
			if !send(snapshotMsg(st)) {
				return
			}
		}
	}
}

func (s *Server) handleAct(ctx context.Context, limiter *rate.Limiter, player game.PlayerID, msg []byte) protocol.ResultMsg {
	var act protocol.ActMsg
	_ = json.Unmarshal(msg, &act)
	res := protocol.ResultMsg{Type: protocol.TypeResult, ProtocolVersion: protocol.Version, Ref: act.ID}

	if !limiter.Allow() {
		res.Code, res.Message = protocol.ErrRateLimit, "too many actions"
		return res
	}
	if act.ProtocolVersion != protocol.Version {
		res.Code, res.Message = protocol.ErrProtoBadRequest, "bad protocol_version"
		return res
	}
	var doc any
	if err := json.Unmarshal(msg, &doc); err != nil {
		res.Code, res.Message = protocol.ErrProtoBadRequest, err.Error()
		return res
	}
	if err := s.actSchema.Validate(doc); err != nil {
		res.Code, res.Message = protocol.ErrProtoBadRequest, err.Error()
		return res
	}

	r, err := s.host.Submit(ctx, player, act.Action)
	if err != nil {
		res.Code, res.Message = protocol.ErrInternal, err.Error()
		return res
	}
	res.Version = r.Version
	if r.Rejection != nil {
		res.Code, res.Message = r.Rejection.Reason, r.Rejection.Message
		return res
	}
	res.OK = true
	return res
}

func (s *Server) handshake(conn *websocket.Conn, cancel context.CancelFunc) (game.PlayerID, session) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", session{}
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, websocket.ClosePolicyViolation, "expected HELLO")
		return "", session{}
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, websocket.ClosePolicyViolation, "bad HELLO")
		return "", session{}
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, websocket.ClosePolicyViolation, "bad protocol_version")
		return "", session{}
	}
	if hello.GameID != "" && hello.GameID != s.host.GameID() {
		closeWith(conn, websocket.ClosePolicyViolation, "unknown game")
		return "", session{}
	}
	player := strings.TrimSpace(hello.PlayerID)
	if !s.isSeated(player) {
		closeWith(conn, websocket.ClosePolicyViolation, "unknown player")
		return "", session{}
	}
	presented := ""
	if hello.Auth != nil {
		presented = strings.TrimSpace(hello.Auth.Token)
	}
	sess, err := s.claim(player, presented, cancel)
	if err != nil {
		closeWith(conn, websocket.ClosePolicyViolation, err.Error())
		return "", session{}
	}
	return player, sess
}

func (s *Server) isSeated(player game.PlayerID) bool {
	if player == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	seated := false
	st, err := s.host.View(ctx, "")
	if err != nil {
		return false
	}
	for _, p := range st.Players {
		if p.ID == player {
			seated = true
		}
	}
	return seated
}

var errSeatTaken = errors.New("seat taken")

// claim binds player to this connection. A player who already holds a seat
// must present its token; the older connection is then closed.
func (s *Server) claim(player game.PlayerID, presented string, cancel context.CancelFunc) (session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextGen++
	cur, ok := s.sessions[player]
	if ok {
		if presented != cur.token {
			return session{}, errSeatTaken
		}
		if cur.cancel != nil {
			cur.cancel()
		}
	} else {
		cur = &session{token: uuid.NewString()}
		s.sessions[player] = cur
	}
	cur.gen, cur.cancel = s.nextGen, cancel
	return *cur, nil
}

// release forgets the connection if it still holds the seat and reports
// whether it did. The token survives so the player can reconnect.
func (s *Server) release(player game.PlayerID, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sessions[player]
	if !ok || cur.gen != gen {
		return false
	}
	cur.gen, cur.cancel = 0, nil
	return true
}

func snapshotMsg(st game.State) protocol.SnapshotMsg {
	return protocol.SnapshotMsg{Type: protocol.TypeSnapshot, ProtocolVersion: protocol.Version, Version: st.Version, State: st}
}

func updateMsg(d game.Delta) protocol.UpdateMsg {
	return protocol.UpdateMsg{
		Type:            protocol.TypeUpdate,
		ProtocolVersion: protocol.Version,
		Version:         d.Version,
		Phase:           d.Phase,
		Turn:            d.Turn,
		Holder:          d.Holder,
		Events:          d.Events,
	}
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
