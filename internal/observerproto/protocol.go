package observerproto

import "github.com/coleschaffer/OpenCatan-sub003/internal/sim/board"

const Version = "0.1"

const (
	TypeSubscribe = "SUBSCRIBE"
)

// Client -> Server. Must be the first message on the observer socket.
// Sending it again later asks for a fresh SNAPSHOT.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

// BootstrapResponse is served over HTTP before an observer connects, so a
// client can draw the board before the first SNAPSHOT arrives.
type BootstrapResponse struct {
	ProtocolVersion string       `json:"protocol_version"`
	GameProtocol    string       `json:"game_protocol"`
	GameID          string       `json:"game_id"`
	Version         uint64       `json:"version"`
	Phase           string       `json:"phase"`
	Seats           []Seat       `json:"seats"`
	Board           *board.Board `json:"board"`
}

type Seat struct {
	PlayerID string `json:"player_id"`
	Color    string `json:"color,omitempty"`
}
