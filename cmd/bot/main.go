package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/board"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game"
)

// snapshotEnvelope is a SNAPSHOT with its state decoded.
type snapshotEnvelope struct {
	Version uint64     `json:"version"`
	State   game.State `json:"state"`
}

func main() {
	var (
		url        = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		player     = flag.String("player", "A", "seat to play")
		gameID     = flag.String("game", "", "game id (optional)")
		token      = flag.String("token", "", "session token from an earlier connection (optional)")
		layoutPath = flag.String("layout", "", "layout.yaml the server uses (default: standard board)")
		think      = flag.Duration("think", 300*time.Millisecond, "pause before each action")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	layout, err := board.LoadLayout(*layoutPath)
	if err != nil {
		logger.Fatalf("layout: %v", err)
	}
	b, err := board.New(layout)
	if err != nil {
		logger.Fatalf("board: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerID:        *player,
		GameID:          *gameID,
	}
	if *token != "" {
		hello.Auth = &protocol.HelloAuth{Token: *token}
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	bot := &botState{conn: conn, log: logger, board: b, me: *player, think: *think}
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME player=%s game=%s version=%d token=%s", w.PlayerID, w.GameID, w.Version, w.SessionID)

		case protocol.TypeSnapshot:
			var s snapshotEnvelope
			if err := json.Unmarshal(msg, &s); err != nil {
				logger.Printf("bad SNAPSHOT: %v", err)
				continue
			}
			if done := bot.onSnapshot(s.State); done {
				return
			}

		case protocol.TypeUpdate:
			bot.resync()

		case protocol.TypeResult:
			var r protocol.ResultMsg
			if err := json.Unmarshal(msg, &r); err != nil {
				continue
			}
			bot.onResult(r)
		}
	}
}

type botState struct {
	conn  *websocket.Conn
	log   *log.Logger
	board *board.Board
	me    string
	think time.Duration

	seq          int
	pendingAct   bool
	awaitingSnap bool

	// position identifies the decision point; probe resets when it changes.
	position string
	probe    int
}

func (s *botState) resync() {
	if s.pendingAct || s.awaitingSnap {
		return
	}
	s.awaitingSnap = true
	_ = s.conn.WriteJSON(protocol.ResyncMsg{Type: protocol.TypeResync, ProtocolVersion: protocol.Version})
}

func (s *botState) onSnapshot(st game.State) bool {
	s.awaitingSnap = false
	if st.Phase == game.Ended.String() {
		s.log.Printf("game over at version %d, winner=%s", st.Version, st.Winner)
		return true
	}
	pos := fmt.Sprintf("%s/%d/%s", st.Phase, st.Turn.Number, st.Turn.Holder)
	if pos != s.position {
		s.position, s.probe = pos, 0
	}
	a, ok := decide(s.board, st, s.me, s.probe)
	if !ok {
		return false
	}
	time.Sleep(s.think)
	s.seq++
	s.pendingAct = true
	act := protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		ID:              fmt.Sprintf("%s_%d", s.me, s.seq),
		Action:          a,
	}
	if err := s.conn.WriteJSON(act); err != nil {
		s.log.Printf("send ACT: %v", err)
	}
	return false
}

func (s *botState) onResult(r protocol.ResultMsg) {
	s.pendingAct = false
	switch {
	case r.OK:
		s.probe = 0
	case r.Code == protocol.ErrRateLimit:
		time.Sleep(time.Second)
	default:
		s.log.Printf("%s rejected: %s %s", r.Ref, r.Code, r.Message)
		s.probe++
	}
	s.resync()
}
