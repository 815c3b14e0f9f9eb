package tuning

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"
)

// Settings are the fixed per-game rules supplied by the lobby at game start.
type Settings struct {
	VictoryPoints    int  `yaml:"victory_points"`
	DiscardLimit     int  `yaml:"discard_limit"`
	FriendlyRobber   bool `yaml:"friendly_robber"`
	FriendlyRobberVP int  `yaml:"friendly_robber_vp"`

	TurnTimerSeconds         int `yaml:"turn_timer_seconds"`
	TradeOfferTimeoutSeconds int `yaml:"trade_offer_timeout_seconds"`

	BankSupply BankSupply   `yaml:"bank_supply"`
	Pieces     model.Pieces `yaml:"pieces"`
	DevDeck    DevDeck      `yaml:"dev_deck"`

	LongestRoadMin int `yaml:"longest_road_min"`
	LargestArmyMin int `yaml:"largest_army_min"`

	EventDie       bool `yaml:"event_die"`
	BarbarianTrack int  `yaml:"barbarian_track"`

	Seed int64 `yaml:"seed"`
}

type BankSupply struct {
	Brick  int `yaml:"brick"`
	Lumber int `yaml:"lumber"`
	Wool   int `yaml:"wool"`
	Grain  int `yaml:"grain"`
	Ore    int `yaml:"ore"`
}

func (b BankSupply) Set() model.ResourceSet {
	return model.ResourceSet{b.Brick, b.Lumber, b.Wool, b.Grain, b.Ore}
}

type DevDeck struct {
	Knight       int `yaml:"knight"`
	VictoryPoint int `yaml:"victory_point"`
	RoadBuilding int `yaml:"road_building"`
	YearOfPlenty int `yaml:"year_of_plenty"`
	Monopoly     int `yaml:"monopoly"`
}

// Counts returns the deck composition keyed by card type.
func (d DevDeck) Counts() map[model.DevCardType]int {
	return map[model.DevCardType]int{
		model.Knight:       d.Knight,
		model.VictoryPoint: d.VictoryPoint,
		model.RoadBuilding: d.RoadBuilding,
		model.YearOfPlenty: d.YearOfPlenty,
		model.Monopoly:     d.Monopoly,
	}
}

func (d DevDeck) Total() int {
	return d.Knight + d.VictoryPoint + d.RoadBuilding + d.YearOfPlenty + d.Monopoly
}

// Defaults is the base-game ruleset.
func Defaults() Settings {
	return Settings{
		VictoryPoints:            10,
		DiscardLimit:             7,
		FriendlyRobber:           false,
		FriendlyRobberVP:         2,
		TurnTimerSeconds:         0,
		TradeOfferTimeoutSeconds: 30,
		BankSupply:               BankSupply{Brick: 19, Lumber: 19, Wool: 19, Grain: 19, Ore: 19},
		Pieces:                   model.Pieces{Roads: 15, Settlements: 5, Cities: 4},
		DevDeck:                  DevDeck{Knight: 14, VictoryPoint: 5, RoadBuilding: 2, YearOfPlenty: 2, Monopoly: 2},
		LongestRoadMin:           5,
		LargestArmyMin:           3,
		EventDie:                 false,
		BarbarianTrack:           7,
		Seed:                     1,
	}
}

// Load reads settings from a YAML file. Fields missing from the file keep
// their default value; an empty path returns Defaults.
func Load(path string) (Settings, error) {
	s := Defaults()
	if strings.TrimSpace(path) == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("tuning.yaml: %w", err)
	}
	return s, nil
}

func (s Settings) Validate() error {
	switch {
	case s.VictoryPoints < 3:
		return fmt.Errorf("victory_points must be >= 3")
	case s.DiscardLimit < 1:
		return fmt.Errorf("discard_limit must be >= 1")
	case s.FriendlyRobberVP < 0:
		return fmt.Errorf("friendly_robber_vp must be >= 0")
	case s.TurnTimerSeconds < 0:
		return fmt.Errorf("turn_timer_seconds must be >= 0")
	case s.TradeOfferTimeoutSeconds < 0:
		return fmt.Errorf("trade_offer_timeout_seconds must be >= 0")
	case !s.BankSupply.Set().NonNegative():
		return fmt.Errorf("bank_supply must be non-negative")
	case s.Pieces.Roads < 2 || s.Pieces.Settlements < 2 || s.Pieces.Cities < 0:
		return fmt.Errorf("pieces must allow the two setup rounds")
	case s.LongestRoadMin < 1:
		return fmt.Errorf("longest_road_min must be >= 1")
	case s.LargestArmyMin < 1:
		return fmt.Errorf("largest_army_min must be >= 1")
	case s.EventDie && s.BarbarianTrack < 1:
		return fmt.Errorf("barbarian_track must be >= 1 with event_die")
	}
	for t, n := range s.DevDeck.Counts() {
		if n < 0 {
			return fmt.Errorf("dev_deck: %s count must be >= 0", t)
		}
	}
	return nil
}
