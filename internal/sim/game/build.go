package game

import (
	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/ledger"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/setup"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"
)

func (g *Game) handleBuildSettlement(actor PlayerID, a protocol.Action) *Rejection {
	if a.Vertex == nil {
		return reject(protocol.ErrBadRequest, "vertex is required")
	}
	v := *a.Vertex
	pl := g.player(actor)
	if g.phase.IsSetup() {
		if !ledger.HasPieceAvailable(pl.Pieces, model.Settlement) {
			return rejectErr(ledger.ErrNoPiecesRemaining)
		}
		if err := ledger.CheckSettlement(g.board, g.occ, actor, v, true); err != nil {
			return rejectErr(err)
		}
		g.placeSettlement(pl, v)
		g.setupVertex = v
		if g.setup.Round() == 2 {
			g.grantStartingResources(pl, v)
		}
		g.advanceSetup()
		return nil
	}

	if err := ledger.CheckBuild(pl.Hand, pl.Pieces, model.Settlement); err != nil {
		return rejectErr(err)
	}
	if err := ledger.CheckSettlement(g.board, g.occ, actor, v, false); err != nil {
		return rejectErr(err)
	}
	if err := ledger.Pay(&pl.Hand, &g.bank, ledger.Cost(model.Settlement)); err != nil {
		return rejectErr(err)
	}
	g.placeSettlement(pl, v)
	return nil
}

func (g *Game) placeSettlement(pl *Player, v int) {
	g.occ.Buildings[v] = model.Building{Owner: pl.ID, Kind: model.Settlement}
	pl.Pieces.Adjust(model.Settlement, -1)
	g.emit(protocol.Event{"type": "BUILT", "player": pl.ID, "kind": string(model.Settlement), "vertex": v})
}

// grantStartingResources pays one card per producing hex around a round-2
// settlement, as far as the bank allows.
func (g *Game) grantStartingResources(pl *Player, v int) {
	var got model.ResourceSet
	for _, h := range g.board.Vertices[v].Hexes {
		hex := g.board.Hexes[h]
		if hex.Produces() && g.bank[hex.Resource] > got[hex.Resource] {
			got[hex.Resource]++
		}
	}
	if got.IsZero() {
		return
	}
	if err := ledger.Grant(&g.bank, &pl.Hand, got); err != nil {
		g.violation = "starting resources: " + err.Error()
		return
	}
	g.emit(protocol.Event{"type": "PRODUCED", "player": pl.ID, "resources": got.Map(), "source": "setup"})
}

func (g *Game) handleBuildRoad(actor PlayerID, a protocol.Action) *Rejection {
	if a.Edge == nil {
		return reject(protocol.ErrBadRequest, "edge is required")
	}
	e := *a.Edge
	pl := g.player(actor)
	if !ledger.HasPieceAvailable(pl.Pieces, model.Road) {
		return rejectErr(ledger.ErrNoPiecesRemaining)
	}

	switch g.phase {
	case SetupRoad1, SetupRoad2:
		if err := ledger.CheckRoad(g.board, g.occ, actor, e, g.setupVertex); err != nil {
			return rejectErr(err)
		}
		g.placeRoad(pl, e)
		g.advanceSetup()
		return nil

	case RoadBuilding:
		if err := ledger.CheckRoad(g.board, g.occ, actor, e, -1); err != nil {
			return rejectErr(err)
		}
		g.placeRoad(pl, e)
		g.roadsLeft--
		if g.roadsLeft <= 0 || !g.canPlaceFreeRoad(pl) {
			g.roadsLeft = 0
			g.enter(Main)
		}
		return nil
	}

	if err := ledger.CheckBuild(pl.Hand, pl.Pieces, model.Road); err != nil {
		return rejectErr(err)
	}
	if err := ledger.CheckRoad(g.board, g.occ, actor, e, -1); err != nil {
		return rejectErr(err)
	}
	if err := ledger.Pay(&pl.Hand, &g.bank, ledger.Cost(model.Road)); err != nil {
		return rejectErr(err)
	}
	g.placeRoad(pl, e)
	return nil
}

func (g *Game) placeRoad(pl *Player, e int) {
	g.occ.Roads[e] = pl.ID
	pl.Pieces.Adjust(model.Road, -1)
	g.emit(protocol.Event{"type": "BUILT", "player": pl.ID, "kind": string(model.Road), "edge": e})
}

func (g *Game) canPlaceFreeRoad(pl *Player) bool {
	return pl.Pieces.Roads > 0 && len(ledger.LegalRoads(g.board, g.occ, pl.ID, -1)) > 0
}

func (g *Game) handleBuildCity(actor PlayerID, a protocol.Action) *Rejection {
	if a.Vertex == nil {
		return reject(protocol.ErrBadRequest, "vertex is required")
	}
	v := *a.Vertex
	pl := g.player(actor)
	if err := ledger.CheckBuild(pl.Hand, pl.Pieces, model.City); err != nil {
		return rejectErr(err)
	}
	if err := ledger.CheckCity(g.board, g.occ, actor, v); err != nil {
		return rejectErr(err)
	}
	if err := ledger.Pay(&pl.Hand, &g.bank, ledger.Cost(model.City)); err != nil {
		return rejectErr(err)
	}
	g.occ.Buildings[v] = model.Building{Owner: actor, Kind: model.City}
	pl.Pieces.Adjust(model.City, -1)
	pl.Pieces.Adjust(model.Settlement, 1)
	g.emit(protocol.Event{"type": "BUILT", "player": actor, "kind": string(model.City), "vertex": v})
	return nil
}

// advanceSetup moves the snake draft on by one placement and sets the phase
// and holder for the next one.
func (g *Game) advanceSetup() {
	prev := g.turn.Holder
	g.setup.Advance()
	if g.setup.Done() {
		g.setupVertex = -1
		g.enter(Roll)
		g.turn = Turn{Number: g.turn.Number + 1, Holder: g.order[0]}
		return
	}
	next := setupPhase(g.setup)
	g.enter(next)
	if p := g.setup.Player(); p != prev {
		g.turn = Turn{Number: g.turn.Number + 1, Holder: p}
	}
}

func setupPhase(s setup.Sequencer) Phase {
	switch {
	case s.Round() == 1 && s.Step() == setup.PlaceSettlement:
		return SetupSettlement1
	case s.Round() == 1:
		return SetupRoad1
	case s.Step() == setup.PlaceSettlement:
		return SetupSettlement2
	}
	return SetupRoad2
}
