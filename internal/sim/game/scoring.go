package game

import (
	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/devcards"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/scoring"
)

func (g *Game) tally(p PlayerID) scoring.Tally {
	t := scoring.Tally{Buildings: scoring.BuildingVP(g.occ, p)}
	if g.longestRoad == p {
		t.LongestRoad = scoring.AchievementVP
	}
	if g.largestArmy == p {
		t.LargestArmy = scoring.AchievementVP
	}
	if pl := g.players[p]; pl != nil {
		t.Hidden = devcards.HiddenVP(pl.Cards)
	}
	return t
}

// Tally returns a player's victory points by source, hidden cards included.
func (g *Game) Tally(p PlayerID) scoring.Tally { return g.tally(p) }

// refreshScores recomputes both achievements and runs the win check.
func (g *Game) refreshScores() {
	roads := make(map[PlayerID]int, len(g.order))
	army := make(map[PlayerID]int, len(g.order))
	for _, p := range g.order {
		pl := g.players[p]
		pl.RoadLength = scoring.LongestRoad(g.board, g.occ, p)
		roads[p] = pl.RoadLength
		army[p] = pl.Knights
	}
	if h := scoring.Award(roads, g.longestRoad, g.settings.LongestRoadMin); h != g.longestRoad {
		g.emit(protocol.Event{"type": "LONGEST_ROAD", "player": h, "previous": g.longestRoad, "length": roads[h]})
		g.longestRoad = h
	}
	if h := scoring.Award(army, g.largestArmy, g.settings.LargestArmyMin); h != g.largestArmy {
		g.emit(protocol.Event{"type": "LARGEST_ARMY", "player": h, "previous": g.largestArmy, "knights": army[h]})
		g.largestArmy = h
	}

	if g.phase.IsSetup() || g.phase == Ended {
		return
	}
	// The turn holder wins ties; otherwise the first seat in turn order.
	candidates := append([]PlayerID{g.turn.Holder}, g.order...)
	for _, p := range candidates {
		if g.tally(p).Total() >= g.settings.VictoryPoints {
			g.finish(p)
			return
		}
	}
}

// finish ends the game: offers expire and hidden victory points are revealed.
func (g *Game) finish(winner PlayerID) {
	g.winner = winner
	g.expireAllOffers()
	g.discards = map[PlayerID]int{}
	g.roadsLeft = 0
	revealed := map[string]int{}
	for _, p := range g.order {
		revealed[p] = g.tally(p).Hidden
	}
	g.enter(Ended)
	g.emit(protocol.Event{"type": "GAME_OVER", "winner": winner, "vp": g.tally(winner).Total(), "revealed": revealed})
}
