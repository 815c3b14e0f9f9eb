package board

import (
	"fmt"
	"sort"

	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"
)

// Axial is a pointy-top hex coordinate.
type Axial struct {
	Q int `json:"q" yaml:"q"`
	R int `json:"r" yaml:"r"`
}

// point is a corner on the integer lattice: hex (q,r) is centred at (2q+r, 3r).
type point struct{ X, Y int }

var cornerOffsets = [6]point{{0, -2}, {1, -1}, {1, 1}, {0, 2}, {-1, 1}, {-1, -1}}

// sideNeighbor[i] is the hex across side i (corner i to corner i+1).
var sideNeighbor = [6]Axial{{1, -1}, {1, 0}, {0, 1}, {-1, 1}, {-1, 0}, {0, -1}}

func center(a Axial) point { return point{X: 2*a.Q + a.R, Y: 3 * a.R} }

type Hex struct {
	ID       int            `json:"id"`
	Coord    Axial          `json:"coord"`
	Resource model.Resource `json:"resource"`
	Number   int            `json:"number,omitempty"`
	Vertices [6]int         `json:"vertices"`
}

// Produces reports whether the hex yields a resource on its number.
func (h Hex) Produces() bool { return h.Resource.Valid() && h.Number > 0 }

type Vertex struct {
	ID        int   `json:"id"`
	X         int   `json:"x"`
	Y         int   `json:"y"`
	Hexes     []int `json:"hexes"`
	Edges     []int `json:"edges"`
	Neighbors []int `json:"neighbors"`
	Port      int   `json:"port"` // -1 when none
}

type Edge struct {
	ID int `json:"id"`
	A  int `json:"a"`
	B  int `json:"b"`
}

// Other returns the endpoint of e that is not v.
func (e Edge) Other(v int) int {
	if e.A == v {
		return e.B
	}
	return e.A
}

// Port trades at Ratio:1. Resource is NoResource for a generic 3:1 port.
type Port struct {
	ID       int            `json:"id"`
	Resource model.Resource `json:"resource"`
	Ratio    int            `json:"ratio"`
	Hex      int            `json:"hex"`
	Side     int            `json:"side"`
	Vertices [2]int         `json:"vertices"`
}

func (p Port) Generic() bool { return !p.Resource.Valid() }

// Board is the immutable topology of one game: hexes, corners, sides and ports.
type Board struct {
	Hexes    []Hex    `json:"hexes"`
	Vertices []Vertex `json:"vertices"`
	Edges    []Edge   `json:"edges"`
	Ports    []Port   `json:"ports"`
	Desert   int      `json:"desert"`

	hexAt  map[Axial]int
	edgeOf map[[2]int]int
}

// New builds the topology for a layout and validates it.
func New(l Layout) (*Board, error) {
	if len(l.Hexes) == 0 {
		return nil, fmt.Errorf("board: layout has no hexes")
	}
	b := &Board{
		hexAt:  make(map[Axial]int, len(l.Hexes)),
		edgeOf: map[[2]int]int{},
		Desert: -1,
	}

	for i, hs := range l.Hexes {
		a := Axial{Q: hs.Q, R: hs.R}
		if _, dup := b.hexAt[a]; dup {
			return nil, fmt.Errorf("board: duplicate hex at %d,%d", a.Q, a.R)
		}
		res, err := model.ParseResource(hs.Resource)
		if err != nil {
			return nil, fmt.Errorf("board: hex %d,%d: %w", a.Q, a.R, err)
		}
		switch {
		case res.Valid() && (hs.Number < 2 || hs.Number > 12 || hs.Number == 7):
			return nil, fmt.Errorf("board: hex %d,%d: bad number %d", a.Q, a.R, hs.Number)
		case !res.Valid() && hs.Number != 0:
			return nil, fmt.Errorf("board: desert hex %d,%d must not carry a number", a.Q, a.R)
		}
		if !res.Valid() {
			if b.Desert >= 0 {
				return nil, fmt.Errorf("board: more than one desert hex")
			}
			b.Desert = i
		}
		b.hexAt[a] = i
		b.Hexes = append(b.Hexes, Hex{ID: i, Coord: a, Resource: res, Number: hs.Number})
	}
	if b.Desert < 0 {
		return nil, fmt.Errorf("board: layout has no desert hex for the robber")
	}

	// Corners in (Y,X) order give stable vertex ids.
	seen := map[point]bool{}
	var pts []point
	for _, h := range b.Hexes {
		c := center(h.Coord)
		for _, off := range cornerOffsets {
			p := point{X: c.X + off.X, Y: c.Y + off.Y}
			if !seen[p] {
				seen[p] = true
				pts = append(pts, p)
			}
		}
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].Y != pts[j].Y {
			return pts[i].Y < pts[j].Y
		}
		return pts[i].X < pts[j].X
	})
	vid := make(map[point]int, len(pts))
	for i, p := range pts {
		vid[p] = i
		b.Vertices = append(b.Vertices, Vertex{ID: i, X: p.X, Y: p.Y, Port: -1})
	}

	var pairs [][2]int
	for hi := range b.Hexes {
		h := &b.Hexes[hi]
		c := center(h.Coord)
		for k, off := range cornerOffsets {
			v := vid[point{X: c.X + off.X, Y: c.Y + off.Y}]
			h.Vertices[k] = v
			b.Vertices[v].Hexes = append(b.Vertices[v].Hexes, hi)
		}
		for k := 0; k < 6; k++ {
			key := edgeKey(h.Vertices[k], h.Vertices[(k+1)%6])
			if _, ok := b.edgeOf[key]; !ok {
				b.edgeOf[key] = -1
				pairs = append(pairs, key)
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	for i, key := range pairs {
		b.edgeOf[key] = i
		b.Edges = append(b.Edges, Edge{ID: i, A: key[0], B: key[1]})
		b.Vertices[key[0]].Edges = append(b.Vertices[key[0]].Edges, i)
		b.Vertices[key[1]].Edges = append(b.Vertices[key[1]].Edges, i)
		b.Vertices[key[0]].Neighbors = append(b.Vertices[key[0]].Neighbors, key[1])
		b.Vertices[key[1]].Neighbors = append(b.Vertices[key[1]].Neighbors, key[0])
	}
	for i := range b.Vertices {
		sort.Ints(b.Vertices[i].Hexes)
		sort.Ints(b.Vertices[i].Neighbors)
	}

	for i, ps := range l.Ports {
		if err := b.addPort(i, ps); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *Board) addPort(id int, ps PortSpec) error {
	a := Axial{Q: ps.Q, R: ps.R}
	hi, ok := b.hexAt[a]
	if !ok {
		return fmt.Errorf("board: port %d on unknown hex %d,%d", id, a.Q, a.R)
	}
	if ps.Side < 0 || ps.Side > 5 {
		return fmt.Errorf("board: port %d: side %d out of range", id, ps.Side)
	}
	n := sideNeighbor[ps.Side]
	if _, inner := b.hexAt[Axial{Q: a.Q + n.Q, R: a.R + n.R}]; inner {
		return fmt.Errorf("board: port %d is not on the coast", id)
	}
	res, err := model.ParseResource(ps.Resource)
	if err != nil {
		return fmt.Errorf("board: port %d: %w", id, err)
	}
	h := b.Hexes[hi]
	v1, v2 := h.Vertices[ps.Side], h.Vertices[(ps.Side+1)%6]
	if b.Vertices[v1].Port >= 0 || b.Vertices[v2].Port >= 0 {
		return fmt.Errorf("board: port %d overlaps another port", id)
	}
	ratio := 3
	if res.Valid() {
		ratio = 2
	}
	b.Ports = append(b.Ports, Port{ID: id, Resource: res, Ratio: ratio, Hex: hi, Side: ps.Side, Vertices: [2]int{v1, v2}})
	b.Vertices[v1].Port = id
	b.Vertices[v2].Port = id
	return nil
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// EdgeBetween returns the edge joining two vertices.
func (b *Board) EdgeBetween(v1, v2 int) (int, bool) {
	id, ok := b.edgeOf[edgeKey(v1, v2)]
	return id, ok && id >= 0
}

func (b *Board) HexAt(a Axial) (int, bool) {
	id, ok := b.hexAt[a]
	return id, ok
}

func (b *Board) ValidHex(id int) bool    { return id >= 0 && id < len(b.Hexes) }
func (b *Board) ValidVertex(id int) bool { return id >= 0 && id < len(b.Vertices) }
func (b *Board) ValidEdge(id int) bool   { return id >= 0 && id < len(b.Edges) }
