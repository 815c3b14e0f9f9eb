package protocol

// Action kinds.
const (
	ActBuildSettlement = "BUILD_SETTLEMENT"
	ActBuildRoad       = "BUILD_ROAD"
	ActBuildCity       = "BUILD_CITY"
	ActRoll            = "ROLL"
	ActBuyDevCard      = "BUY_DEV_CARD"
	ActPlayDevCard     = "PLAY_DEV_CARD"
	ActPickResources   = "PICK_RESOURCES"
	ActPickMonopoly    = "PICK_MONOPOLY"
	ActFinishRoads     = "FINISH_ROAD_BUILDING"
	ActDiscard         = "DISCARD"
	ActMoveRobber      = "MOVE_ROBBER"
	ActSteal           = "STEAL"
	ActBankTrade       = "BANK_TRADE"
	ActOfferTrade      = "OFFER_TRADE"
	ActAcceptTrade     = "ACCEPT_TRADE"
	ActDeclineTrade    = "DECLINE_TRADE"
	ActCounterTrade    = "COUNTER_TRADE"
	ActWithdrawTrade   = "WITHDRAW_TRADE"
	ActEndTurn         = "END_TURN"

	// Host-only actions. Clients may not submit these.
	ActTimeout      = "TIMEOUT"
	ActExpireOffer  = "EXPIRE_OFFER"
	ActSetConnected = "SET_CONNECTED"
)

// Action is the typed payload of every mutation request. Only the fields
// relevant to Kind are read.
type Action struct {
	Kind string `json:"kind"`

	Vertex *int `json:"vertex,omitempty"`
	Edge   *int `json:"edge,omitempty"`
	Hex    *int `json:"hex,omitempty"`

	Card     string `json:"card,omitempty"`
	Resource string `json:"resource,omitempty"`
	// Resources is the DISCARD selection or the PICK_RESOURCES choice.
	Resources map[string]int `json:"resources,omitempty"`

	Give    map[string]int `json:"give,omitempty"`
	Want    map[string]int `json:"want,omitempty"`
	To      string         `json:"to,omitempty"`
	OfferID string         `json:"offer_id,omitempty"`
	Victim  string         `json:"victim,omitempty"`

	// Host-only fields.
	Turn      int    `json:"turn,omitempty"`
	Phase     string `json:"phase,omitempty"`
	Player    string `json:"player,omitempty"`
	Connected bool   `json:"connected,omitempty"`

	// At is the acceptance time in unix milliseconds, stamped by the host.
	At int64 `json:"at,omitempty"`
}

// IsSystem reports whether only the host may submit the action.
func (a Action) IsSystem() bool {
	switch a.Kind {
	case ActTimeout, ActExpireOffer, ActSetConnected:
		return true
	}
	return false
}

// Int returns a pointer to v, for building Actions in code.
func Int(v int) *int { return &v }
