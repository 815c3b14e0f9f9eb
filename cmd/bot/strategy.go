package main

import (
	"sort"

	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/board"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"
)

// decide picks the bot's next action for the view st. probe counts how many
// candidates the server already rejected in this position; the bot then
// moves on to the next one. ok is false when there is nothing to do.
func decide(b *board.Board, st game.State, me string, probe int) (protocol.Action, bool) {
	phase, err := game.ParsePhase(st.Phase)
	if err != nil || phase == game.Ended {
		return protocol.Action{}, false
	}
	if phase == game.Discard {
		n := st.Discards[me]
		if n == 0 {
			return protocol.Action{}, false
		}
		return protocol.Action{Kind: protocol.ActDiscard, Resources: largestPiles(handOf(st, me), n)}, true
	}
	if st.Turn.Holder != me {
		return protocol.Action{}, false
	}

	switch phase {
	case game.SetupSettlement1, game.SetupSettlement2:
		vs := rankedVertices(b)
		if probe >= len(vs) {
			return protocol.Action{}, false
		}
		return protocol.Action{Kind: protocol.ActBuildSettlement, Vertex: protocol.Int(vs[probe])}, true

	case game.SetupRoad1, game.SetupRoad2:
		if !b.ValidVertex(st.SetupVertex) {
			return protocol.Action{}, false
		}
		es := b.Vertices[st.SetupVertex].Edges
		if probe >= len(es) {
			return protocol.Action{}, false
		}
		return protocol.Action{Kind: protocol.ActBuildRoad, Edge: protocol.Int(es[probe])}, true

	case game.Roll:
		return protocol.Action{Kind: protocol.ActRoll}, true

	case game.Main:
		return protocol.Action{Kind: protocol.ActEndTurn}, true

	case game.RobberMove:
		hs := robberTargets(b, st, me)
		if probe >= len(hs) {
			return protocol.Action{}, false
		}
		return protocol.Action{Kind: protocol.ActMoveRobber, Hex: protocol.Int(hs[probe])}, true

	case game.RobberSteal:
		vs := victims(b, st, me)
		if probe >= len(vs) {
			return protocol.Action{}, false
		}
		return protocol.Action{Kind: protocol.ActSteal, Victim: vs[probe]}, true

	case game.RoadBuilding:
		return protocol.Action{Kind: protocol.ActFinishRoads}, true

	case game.YearOfPlenty:
		// Take from the fullest bank piles; that pick can't be short.
		return protocol.Action{Kind: protocol.ActPickResources, Resources: largestPiles(st.Bank, min(2, st.Bank.Total()))}, true

	case game.Monopoly:
		return protocol.Action{Kind: protocol.ActPickMonopoly, Resource: model.Resource(probe % model.NumResources).String()}, true
	}
	return protocol.Action{}, false
}

func pips(n int) int {
	if n < 2 || n > 12 || n == 7 {
		return 0
	}
	if n < 7 {
		return n - 1
	}
	return 13 - n
}

// rankedVertices orders corners by the production odds of their hexes.
func rankedVertices(b *board.Board) []int {
	score := make([]int, len(b.Vertices))
	out := make([]int, len(b.Vertices))
	for i, v := range b.Vertices {
		out[i] = v.ID
		for _, h := range v.Hexes {
			if b.Hexes[h].Produces() {
				score[v.ID] += pips(b.Hexes[h].Number)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return score[out[i]] > score[out[j]] })
	return out
}

// robberTargets lists hexes other than the robber's, those touching an
// opponent first.
func robberTargets(b *board.Board, st game.State, me string) []int {
	var hit, rest []int
	for _, h := range b.Hexes {
		if h.ID == st.Robber {
			continue
		}
		if len(ownersOn(b, st, h.ID, me)) > 0 {
			hit = append(hit, h.ID)
		} else {
			rest = append(rest, h.ID)
		}
	}
	return append(hit, rest...)
}

func victims(b *board.Board, st game.State, me string) []string {
	var out []string
	for _, id := range ownersOn(b, st, st.Robber, me) {
		for _, p := range st.Players {
			if p.ID == id && p.HandCount > 0 {
				out = append(out, id)
			}
		}
	}
	return out
}

// ownersOn returns the opponents with a building on a corner of hex, in seat order.
func ownersOn(b *board.Board, st game.State, hex int, me string) []string {
	if !b.ValidHex(hex) {
		return nil
	}
	on := map[int]bool{}
	for _, v := range b.Hexes[hex].Vertices {
		on[v] = true
	}
	has := map[string]bool{}
	for _, bl := range st.Buildings {
		if on[bl.Vertex] && bl.Owner != me {
			has[bl.Owner] = true
		}
	}
	var out []string
	for _, p := range st.Players {
		if has[p.ID] {
			out = append(out, p.ID)
		}
	}
	return out
}

func handOf(st game.State, me string) model.ResourceSet {
	for _, p := range st.Players {
		if p.ID == me {
			return p.Hand
		}
	}
	return model.ResourceSet{}
}

// largestPiles selects n cards from hand, one at a time from the largest pile.
func largestPiles(hand model.ResourceSet, n int) map[string]int {
	out := map[string]int{}
	for ; n > 0; n-- {
		best := -1
		for r := 0; r < model.NumResources; r++ {
			if hand[r] > 0 && (best < 0 || hand[r] > hand[best]) {
				best = r
			}
		}
		if best < 0 {
			break
		}
		hand[best]--
		out[model.Resource(best).String()]++
	}
	return out
}
