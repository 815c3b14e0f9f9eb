package game

import (
	"fmt"

	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
)

// Phase is the closed set of states of the turn machine.
type Phase uint8

const (
	SetupSettlement1 Phase = iota
	SetupRoad1
	SetupSettlement2
	SetupRoad2
	Roll
	Main
	Discard
	RobberMove
	RobberSteal
	RoadBuilding
	YearOfPlenty
	Monopoly
	Ended
)

var phaseNames = [...]string{
	SetupSettlement1: "setup-settlement-1",
	SetupRoad1:       "setup-road-1",
	SetupSettlement2: "setup-settlement-2",
	SetupRoad2:       "setup-road-2",
	Roll:             "roll",
	Main:             "main",
	Discard:          "discard",
	RobberMove:       "robber-move",
	RobberSteal:      "robber-steal",
	RoadBuilding:     "road-building",
	YearOfPlenty:     "year-of-plenty",
	Monopoly:         "monopoly",
	Ended:            "ended",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", p)
}

func ParsePhase(s string) (Phase, error) {
	for i, n := range phaseNames {
		if n == s {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

func (p Phase) IsSetup() bool { return p <= SetupRoad2 }

// transitions is the complete table of allowed phase changes. Any other
// change is an internal invariant violation.
var transitions = map[Phase][]Phase{
	SetupSettlement1: {SetupRoad1},
	SetupRoad1:       {SetupSettlement1, SetupSettlement2},
	SetupSettlement2: {SetupRoad2},
	SetupRoad2:       {SetupSettlement2, Roll},
	Roll:             {Main, Discard, RobberMove, Ended},
	Main:             {Roll, RobberMove, RoadBuilding, YearOfPlenty, Monopoly, Ended},
	Discard:          {RobberMove, Ended},
	RobberMove:       {RobberSteal, Main, Ended},
	RobberSteal:      {Main, Ended},
	RoadBuilding:     {Main, Ended},
	YearOfPlenty:     {Main, Ended},
	Monopoly:         {Main, Ended},
	Ended:            nil,
}

func canTransition(from, to Phase) bool {
	if from == to {
		return true
	}
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// Host-issued actions are accepted in every phase; the handlers decide what
// they mean there.
var systemActions = []string{protocol.ActTimeout, protocol.ActExpireOffer, protocol.ActSetConnected}

var phaseActions = map[Phase][]string{
	SetupSettlement1: {protocol.ActBuildSettlement},
	SetupRoad1:       {protocol.ActBuildRoad},
	SetupSettlement2: {protocol.ActBuildSettlement},
	SetupRoad2:       {protocol.ActBuildRoad},
	Roll:             {protocol.ActRoll},
	Main: {
		protocol.ActBuildSettlement, protocol.ActBuildRoad, protocol.ActBuildCity,
		protocol.ActBuyDevCard, protocol.ActPlayDevCard,
		protocol.ActBankTrade, protocol.ActOfferTrade, protocol.ActAcceptTrade,
		protocol.ActDeclineTrade, protocol.ActCounterTrade, protocol.ActWithdrawTrade,
		protocol.ActEndTurn,
	},
	Discard:      {protocol.ActDiscard},
	RobberMove:   {protocol.ActMoveRobber},
	RobberSteal:  {protocol.ActSteal},
	RoadBuilding: {protocol.ActBuildRoad, protocol.ActFinishRoads},
	YearOfPlenty: {protocol.ActPickResources},
	Monopoly:     {protocol.ActPickMonopoly},
	Ended:        nil,
}

// Legal is the legal-action predicate for a phase, ignoring who acts.
func Legal(p Phase, kind string) bool {
	for _, k := range systemActions {
		if k == kind {
			return p != Ended || kind == protocol.ActSetConnected
		}
	}
	for _, k := range phaseActions[p] {
		if k == kind {
			return true
		}
	}
	return false
}

// holderOnly lists the actions only the turn holder may take.
var holderOnly = map[string]bool{
	protocol.ActBuildSettlement: true,
	protocol.ActBuildRoad:       true,
	protocol.ActBuildCity:       true,
	protocol.ActRoll:            true,
	protocol.ActBuyDevCard:      true,
	protocol.ActPlayDevCard:     true,
	protocol.ActPickResources:   true,
	protocol.ActPickMonopoly:    true,
	protocol.ActFinishRoads:     true,
	protocol.ActMoveRobber:      true,
	protocol.ActSteal:           true,
	protocol.ActBankTrade:       true,
	protocol.ActOfferTrade:      true,
	protocol.ActEndTurn:         true,
}
