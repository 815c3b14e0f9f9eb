package board

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"
)

func TestStandardLayout_Topology(t *testing.T) {
	b, err := New(StandardLayout())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if len(b.Hexes) != 19 || len(b.Vertices) != 54 || len(b.Edges) != 72 || len(b.Ports) != 9 {
		t.Fatalf("unexpected sizes hexes=%d vertices=%d edges=%d ports=%d", len(b.Hexes), len(b.Vertices), len(b.Edges), len(b.Ports))
	}
	if b.Hexes[b.Desert].Resource != model.NoResource {
		t.Fatalf("desert hex %d produces %v", b.Desert, b.Hexes[b.Desert].Resource)
	}
	for _, v := range b.Vertices {
		if n := len(v.Neighbors); n < 2 || n > 3 {
			t.Fatalf("vertex %d has %d neighbors", v.ID, n)
		}
		if len(v.Neighbors) != len(v.Edges) {
			t.Fatalf("vertex %d: neighbors/edges mismatch", v.ID)
		}
		if n := len(v.Hexes); n < 1 || n > 3 {
			t.Fatalf("vertex %d touches %d hexes", v.ID, n)
		}
	}
	for _, h := range b.Hexes {
		seen := map[int]bool{}
		for k, v := range h.Vertices {
			if seen[v] {
				t.Fatalf("hex %d repeats vertex %d", h.ID, v)
			}
			seen[v] = true
			if _, ok := b.EdgeBetween(v, h.Vertices[(k+1)%6]); !ok {
				t.Fatalf("hex %d: corners %d,%d not joined", h.ID, k, (k+1)%6)
			}
		}
	}
}

func TestPorts_RatioAndVertices(t *testing.T) {
	b, err := New(StandardLayout())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	generic, specific := 0, 0
	for _, p := range b.Ports {
		if p.Generic() {
			generic++
			if p.Ratio != 3 {
				t.Fatalf("generic port ratio %d", p.Ratio)
			}
		} else {
			specific++
			if p.Ratio != 2 {
				t.Fatalf("specific port ratio %d", p.Ratio)
			}
		}
		for _, v := range p.Vertices {
			if b.Vertices[v].Port != p.ID {
				t.Fatalf("vertex %d not linked to port %d", v, p.ID)
			}
		}
	}
	if generic != 4 || specific != 5 {
		t.Fatalf("generic=%d specific=%d", generic, specific)
	}
}

func TestNew_RejectsBadLayouts(t *testing.T) {
	cases := []struct {
		name string
		l    Layout
	}{
		{"empty", Layout{}},
		{"no desert", Layout{Hexes: []HexSpec{{Q: 0, R: 0, Resource: "ORE", Number: 8}}}},
		{"two deserts", Layout{Hexes: []HexSpec{{Q: 0, R: 0}, {Q: 1, R: 0}}}},
		{"seven", Layout{Hexes: []HexSpec{{Q: 0, R: 0}, {Q: 1, R: 0, Resource: "ORE", Number: 7}}}},
		{"duplicate", Layout{Hexes: []HexSpec{{Q: 0, R: 0}, {Q: 0, R: 0, Resource: "ORE", Number: 8}}}},
		{"inland port", Layout{
			Hexes: []HexSpec{{Q: 0, R: 0}, {Q: 1, R: 0, Resource: "ORE", Number: 8}},
			Ports: []PortSpec{{Q: 0, R: 0, Side: 1}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.l); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadLayout_YAML(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "layout.yaml")
	raw := `
hexes:
  - {q: 0, r: 0, resource: DESERT}
  - {q: 1, r: 0, resource: ORE, number: 8}
  - {q: 0, r: 1, resource: wool, number: 5}
ports:
  - {q: 1, r: 0, side: 1, resource: ORE}
`
	if err := os.WriteFile(p, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	l, err := LoadLayout(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	b, err := New(l)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if len(b.Hexes) != 3 || b.Desert != 0 || len(b.Ports) != 1 {
		t.Fatalf("unexpected board: hexes=%d desert=%d ports=%d", len(b.Hexes), b.Desert, len(b.Ports))
	}
	if b.Hexes[2].Resource != model.Wool {
		t.Fatalf("expected wool, got %v", b.Hexes[2].Resource)
	}
}
