package model

// PlayerID identifies a seated player. The empty id is reserved for the host itself.
type PlayerID = string

// BuildKind names something a player can pay the bank for.
type BuildKind string

const (
	Road       BuildKind = "ROAD"
	Settlement BuildKind = "SETTLEMENT"
	City       BuildKind = "CITY"
	DevCard    BuildKind = "DEV_CARD"
)

// Pieces counts a player's remaining (or built) pieces per piece kind.
type Pieces struct {
	Roads       int `json:"roads" yaml:"roads"`
	Settlements int `json:"settlements" yaml:"settlements"`
	Cities      int `json:"cities" yaml:"cities"`
}

// Of returns the count for a board piece kind; DEV_CARD and unknown kinds return 0.
func (p Pieces) Of(k BuildKind) int {
	switch k {
	case Road:
		return p.Roads
	case Settlement:
		return p.Settlements
	case City:
		return p.Cities
	}
	return 0
}

func (p *Pieces) Adjust(k BuildKind, delta int) {
	switch k {
	case Road:
		p.Roads += delta
	case Settlement:
		p.Settlements += delta
	case City:
		p.Cities += delta
	}
}

// DevCardType is a development card kind.
type DevCardType string

const (
	Knight       DevCardType = "KNIGHT"
	VictoryPoint DevCardType = "VICTORY_POINT"
	RoadBuilding DevCardType = "ROAD_BUILDING"
	YearOfPlenty DevCardType = "YEAR_OF_PLENTY"
	Monopoly     DevCardType = "MONOPOLY"
)

// DevCardTypes lists card kinds in canonical order.
var DevCardTypes = []DevCardType{Knight, VictoryPoint, RoadBuilding, YearOfPlenty, Monopoly}

func (t DevCardType) Valid() bool {
	for _, c := range DevCardTypes {
		if c == t {
			return true
		}
	}
	return false
}

// HeldCard is one development card in a player's hand.
type HeldCard struct {
	Type   DevCardType `json:"type"`
	Played bool        `json:"played"`
}
