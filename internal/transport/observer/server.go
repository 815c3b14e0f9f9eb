package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/coleschaffer/OpenCatan-sub003/internal/observerproto"
	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/host"
)

// GameHost is the part of *host.Host an observer needs.
type GameHost interface {
	GameID() string
	Query(ctx context.Context, fn func(g *game.Game)) error
	Subscribe(ctx context.Context, viewer game.PlayerID) (*host.Subscription, game.State, error)
}

// Server streams the public view of a game to spectators. Observers never
// submit actions and see no private hand contents.
type Server struct {
	host GameHost
	log  *log.Logger

	// LoopbackOnly rejects non-local observers.
	LoopbackOnly bool

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	active   atomic.Int64
}

func NewServer(h GameHost, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		host:         h,
		log:          logger,
		LoopbackOnly: true,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Active is the number of connected observers.
func (s *Server) Active() int64 { return s.active.Load() }

func (s *Server) allowed(r *http.Request) bool {
	return !s.LoopbackOnly || isLoopbackRemote(r.RemoteAddr)
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			GameProtocol:    protocol.Version,
			GameID:          s.host.GameID(),
		}
		err := s.host.Query(r.Context(), func(g *game.Game) {
			resp.Version = g.Version()
			resp.Phase = g.Phase().String()
			resp.Board = g.Board()
			for _, p := range g.Snapshot().Players {
				resp.Seats = append(resp.Seats, observerproto.Seat{PlayerID: p.ID, Color: p.Color})
			}
		})
		if err != nil {
			http.Error(rw, "game unavailable", http.StatusServiceUnavailable)
			return
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if !isSubscribe(msg) {
			closeWith(conn, websocket.ClosePolicyViolation, "expected SUBSCRIBE")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sub, st, err := s.host.Subscribe(ctx, game.Spectator)
		if err != nil {
			closeWith(conn, websocket.CloseTryAgainLater, "game unavailable")
			return
		}
		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		s.active.Add(1)
		defer s.active.Add(-1)
		s.log.Printf("observer %s joined at version %d", sid, st.Version)

		if err := writeJSON(conn, snapshotMsg(st)); err != nil {
			sub.Close()
			return
		}

		resync := make(chan struct{}, 1)
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			s.writeLoop(ctx, cancel, conn, sub, resync)
		}()

		// Reader loop: a repeated SUBSCRIBE asks for a fresh snapshot.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if !isSubscribe(msg) {
				continue
			}
			select {
			case resync <- struct{}{}:
			default:
			}
		}

		cancel()
		closeWith(conn, websocket.CloseNormalClosure, "bye")
		<-writerDone
		s.log.Printf("observer %s left", sid)
	}
}

func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sub *host.Subscription, resync <-chan struct{}) {
	defer func() { sub.Close() }()
	restart := func() bool {
		sub.Close()
		next, st, err := s.host.Subscribe(ctx, game.Spectator)
		if err != nil {
			return false
		}
		sub = next
		return writeJSON(conn, snapshotMsg(st)) == nil
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-resync:
			if !restart() {
				cancel()
				return
			}
		case d, ok := <-sub.C:
			if !ok {
				// Fell behind and was dropped.
				if !restart() {
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

func isSubscribe(msg []byte) bool {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return false
	}
	return sub.Type == observerproto.TypeSubscribe && sub.ProtocolVersion == observerproto.Version
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

func isLoopbackRemote(remoteAddr string) bool {
	name := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		name = h
	}
	name = strings.TrimPrefix(name, "[")
	name = strings.TrimSuffix(name, "]")
	ip := net.ParseIP(name)
	return ip != nil && ip.IsLoopback()
}
