package ledger

import (
	"fmt"

	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/board"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"
)

// distanceOK is the distance rule: the vertex and all its neighbors are empty.
func distanceOK(b *board.Board, occ model.Occupancy, v int) bool {
	if _, taken := occ.Buildings[v]; taken {
		return false
	}
	for _, n := range b.Vertices[v].Neighbors {
		if _, taken := occ.Buildings[n]; taken {
			return false
		}
	}
	return true
}

func touchesOwnRoad(b *board.Board, occ model.Occupancy, p model.PlayerID, v int) bool {
	for _, e := range b.Vertices[v].Edges {
		if occ.Roads[e] == p {
			return true
		}
	}
	return false
}

// CheckSettlement validates a settlement on vertex v. During setup the road
// connection is not required.
func CheckSettlement(b *board.Board, occ model.Occupancy, p model.PlayerID, v int, setup bool) error {
	if !b.ValidVertex(v) {
		return fmt.Errorf("%w: unknown vertex %d", ErrIllegalPlacement, v)
	}
	if !distanceOK(b, occ, v) {
		return fmt.Errorf("%w: vertex %d violates the distance rule", ErrIllegalPlacement, v)
	}
	if !setup && !touchesOwnRoad(b, occ, p, v) {
		return fmt.Errorf("%w: vertex %d is not on your road network", ErrIllegalPlacement, v)
	}
	return nil
}

// CheckCity validates upgrading the player's own settlement on v.
func CheckCity(b *board.Board, occ model.Occupancy, p model.PlayerID, v int) error {
	if !b.ValidVertex(v) {
		return fmt.Errorf("%w: unknown vertex %d", ErrIllegalPlacement, v)
	}
	bl, ok := occ.Buildings[v]
	if !ok || bl.Owner != p || bl.Kind != model.Settlement {
		return fmt.Errorf("%w: no settlement of yours on vertex %d", ErrIllegalPlacement, v)
	}
	return nil
}

// CheckRoad validates a road on edge e. When anchor >= 0 (setup), the road
// must touch that vertex; otherwise it must connect to the player's network.
func CheckRoad(b *board.Board, occ model.Occupancy, p model.PlayerID, e int, anchor int) error {
	if !b.ValidEdge(e) {
		return fmt.Errorf("%w: unknown edge %d", ErrIllegalPlacement, e)
	}
	if _, taken := occ.Roads[e]; taken {
		return fmt.Errorf("%w: edge %d already has a road", ErrIllegalPlacement, e)
	}
	ed := b.Edges[e]
	if anchor >= 0 {
		if ed.A != anchor && ed.B != anchor {
			return fmt.Errorf("%w: road must touch the settlement just placed", ErrIllegalPlacement)
		}
		return nil
	}
	for _, v := range [2]int{ed.A, ed.B} {
		if bl, ok := occ.Buildings[v]; ok {
			if bl.Owner == p {
				return nil
			}
			// An opponent building cuts the network at this vertex.
			continue
		}
		for _, oe := range b.Vertices[v].Edges {
			if oe != e && occ.Roads[oe] == p {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: edge %d is not connected to your network", ErrIllegalPlacement, e)
}

// LegalSettlements lists vertices where p may place a settlement, in id order.
func LegalSettlements(b *board.Board, occ model.Occupancy, p model.PlayerID, setup bool) []int {
	var out []int
	for v := range b.Vertices {
		if CheckSettlement(b, occ, p, v, setup) == nil {
			out = append(out, v)
		}
	}
	return out
}

// LegalRoads lists edges where p may place a road, in id order.
func LegalRoads(b *board.Board, occ model.Occupancy, p model.PlayerID, anchor int) []int {
	var out []int
	for e := range b.Edges {
		if CheckRoad(b, occ, p, e, anchor) == nil {
			out = append(out, e)
		}
	}
	return out
}
