package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	PlayerID        string     `json:"player_id"`
	GameID          string     `json:"game_id,omitempty"`
	Auth            *HelloAuth `json:"auth,omitempty"`
}

type HelloAuth struct {
	// Token is the session token from a previous WELCOME; it lets a client
	// reclaim its seat after a reconnect.
	Token string `json:"token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	PlayerID        string `json:"player_id"`
	GameID          string `json:"game_id"`
	Version         uint64 `json:"version"`
}

// ACT (client -> server): one action per message.
type ActMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Action          Action `json:"action"`
}

// RESULT (server -> client) answers exactly one ACT.
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Ref             string `json:"ref"`
	OK              bool   `json:"ok"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	Version         uint64 `json:"version"`
}

// UPDATE (server -> client) carries one accepted mutation as seen by the
// receiving player. Versions are consecutive; a gap means the client
// should send RESYNC.
type UpdateMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Version         uint64  `json:"version"`
	Phase           string  `json:"phase"`
	Turn            int     `json:"turn"`
	Holder          string  `json:"holder,omitempty"`
	Events          []Event `json:"events"`
}

// RESYNC (client -> server)
type ResyncMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	HaveVersion     uint64 `json:"have_version"`
}

// SNAPSHOT (server -> client): the full state as visible to the receiver.
type SnapshotMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Version         uint64 `json:"version"`
	State           any    `json:"state"`
}

type Event map[string]interface{}
