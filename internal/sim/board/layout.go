package board

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Layout is the terrain and port assignment supplied by the lobby. Generating
// it is somebody else's job; the engine only validates and indexes it.
type Layout struct {
	Hexes []HexSpec  `yaml:"hexes" json:"hexes"`
	Ports []PortSpec `yaml:"ports" json:"ports"`
}

type HexSpec struct {
	Q        int    `yaml:"q" json:"q"`
	R        int    `yaml:"r" json:"r"`
	Resource string `yaml:"resource" json:"resource"` // empty or DESERT for no resource
	Number   int    `yaml:"number,omitempty" json:"number,omitempty"`
}

// PortSpec places a port on side Side (0..5, clockwise from north-east) of hex Q,R.
type PortSpec struct {
	Q        int    `yaml:"q" json:"q"`
	R        int    `yaml:"r" json:"r"`
	Side     int    `yaml:"side" json:"side"`
	Resource string `yaml:"resource,omitempty" json:"resource,omitempty"` // empty for 3:1
}

func LoadLayout(path string) (Layout, error) {
	var l Layout
	if strings.TrimSpace(path) == "" {
		return StandardLayout(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return l, err
	}
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return l, fmt.Errorf("layout.yaml: %w", err)
	}
	return l, nil
}

// StandardLayout is the fixed 19-hex beginner board with nine ports.
func StandardLayout() Layout {
	return Layout{
		Hexes: []HexSpec{
			{Q: 0, R: -2, Resource: "ORE", Number: 10},
			{Q: 1, R: -2, Resource: "WOOL", Number: 2},
			{Q: 2, R: -2, Resource: "LUMBER", Number: 9},

			{Q: -1, R: -1, Resource: "GRAIN", Number: 12},
			{Q: 0, R: -1, Resource: "BRICK", Number: 6},
			{Q: 1, R: -1, Resource: "WOOL", Number: 4},
			{Q: 2, R: -1, Resource: "BRICK", Number: 10},

			{Q: -2, R: 0, Resource: "GRAIN", Number: 9},
			{Q: -1, R: 0, Resource: "LUMBER", Number: 11},
			{Q: 0, R: 0, Resource: "DESERT"},
			{Q: 1, R: 0, Resource: "LUMBER", Number: 3},
			{Q: 2, R: 0, Resource: "ORE", Number: 8},

			{Q: -2, R: 1, Resource: "LUMBER", Number: 8},
			{Q: -1, R: 1, Resource: "ORE", Number: 3},
			{Q: 0, R: 1, Resource: "GRAIN", Number: 4},
			{Q: 1, R: 1, Resource: "WOOL", Number: 5},

			{Q: -2, R: 2, Resource: "BRICK", Number: 5},
			{Q: -1, R: 2, Resource: "GRAIN", Number: 6},
			{Q: 0, R: 2, Resource: "WOOL", Number: 11},
		},
		Ports: []PortSpec{
			{Q: 0, R: -2, Side: 5},
			{Q: 1, R: -2, Side: 0, Resource: "WOOL"},
			{Q: 2, R: -1, Side: 0},
			{Q: 2, R: 0, Side: 1},
			{Q: 1, R: 1, Side: 2, Resource: "BRICK"},
			{Q: -1, R: 2, Side: 2, Resource: "LUMBER"},
			{Q: -2, R: 2, Side: 3},
			{Q: -2, R: 1, Side: 4, Resource: "GRAIN"},
			{Q: -1, R: -1, Side: 5, Resource: "ORE"},
		},
	}
}
