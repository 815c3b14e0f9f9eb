package game

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sort"

	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/model"
)

func digestWriteU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hash.Hash, tmp *[8]byte, v int64) { digestWriteU64(h, tmp, uint64(v)) }

func digestWriteString(h hash.Hash, tmp *[8]byte, s string) {
	digestWriteU64(h, tmp, uint64(len(s)))
	h.Write([]byte(s))
}

func digestWriteSet(h hash.Hash, tmp *[8]byte, s model.ResourceSet) {
	for _, n := range s {
		digestWriteI64(h, tmp, int64(n))
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// Digest is a sha256 over the authoritative state in a fixed order. Two games
// with the same digest behave identically from here on.
func (g *Game) Digest() string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, g.version)
	digestWriteU64(h, &tmp, uint64(g.phase))
	digestWriteI64(h, &tmp, int64(g.turn.Number))
	digestWriteString(h, &tmp, g.turn.Holder)
	h.Write([]byte{boolByte(g.turn.Rolled), boolByte(g.turn.CardPlayed)})
	digestWriteI64(h, &tmp, int64(g.turn.Dice[0]))
	digestWriteI64(h, &tmp, int64(g.turn.Dice[1]))
	for _, t := range model.DevCardTypes {
		digestWriteI64(h, &tmp, int64(g.turn.Bought[t]))
	}
	digestWriteI64(h, &tmp, g.turn.PhaseAt)

	digestWriteSet(h, &tmp, g.bank)
	digestWriteI64(h, &tmp, int64(g.robber))
	digestWriteU64(h, &tmp, uint64(len(g.deck)))
	for _, c := range g.deck {
		digestWriteString(h, &tmp, string(c))
	}

	for _, id := range g.order {
		pl := g.players[id]
		digestWriteString(h, &tmp, id)
		h.Write([]byte{boolByte(pl.Connected)})
		digestWriteSet(h, &tmp, pl.Hand)
		digestWriteI64(h, &tmp, int64(pl.Pieces.Roads))
		digestWriteI64(h, &tmp, int64(pl.Pieces.Settlements))
		digestWriteI64(h, &tmp, int64(pl.Pieces.Cities))
		digestWriteI64(h, &tmp, int64(pl.Knights))
		digestWriteU64(h, &tmp, uint64(len(pl.Cards)))
		for _, c := range pl.Cards {
			digestWriteString(h, &tmp, string(c.Type))
			h.Write([]byte{boolByte(c.Played)})
		}
	}

	for _, v := range sortedKeys(g.occ.Buildings) {
		bl := g.occ.Buildings[v]
		digestWriteI64(h, &tmp, int64(v))
		digestWriteString(h, &tmp, bl.Owner)
		digestWriteString(h, &tmp, string(bl.Kind))
	}
	for _, e := range sortedKeys(g.occ.Roads) {
		digestWriteI64(h, &tmp, int64(e))
		digestWriteString(h, &tmp, g.occ.Roads[e])
	}

	digestWriteU64(h, &tmp, g.offerSeq)
	for _, id := range g.offerIDs() {
		o := g.offers[id]
		digestWriteString(h, &tmp, o.ID)
		digestWriteString(h, &tmp, o.From)
		digestWriteString(h, &tmp, o.To)
		digestWriteSet(h, &tmp, o.Give)
		digestWriteSet(h, &tmp, o.Want)
		digestWriteI64(h, &tmp, o.ExpiresAt)
		digestWriteString(h, &tmp, o.Parent)
		digestWriteI64(h, &tmp, int64(o.Counters))
		for _, p := range o.Responded {
			digestWriteString(h, &tmp, p)
		}
	}

	digestWriteI64(h, &tmp, int64(g.setup.Index))
	digestWriteI64(h, &tmp, int64(g.setupVertex))
	discarders := make([]string, 0, len(g.discards))
	for p := range g.discards {
		discarders = append(discarders, p)
	}
	sort.Strings(discarders)
	for _, p := range discarders {
		digestWriteString(h, &tmp, p)
		digestWriteI64(h, &tmp, int64(g.discards[p]))
	}
	digestWriteI64(h, &tmp, int64(g.roadsLeft))
	digestWriteI64(h, &tmp, int64(g.barbarian))
	digestWriteString(h, &tmp, g.longestRoad)
	digestWriteString(h, &tmp, g.largestArmy)
	digestWriteString(h, &tmp, g.winner)
	if b, err := g.rngState(); err == nil {
		h.Write(b)
	} else {
		digestWriteString(h, &tmp, err.Error())
	}
	return hex.EncodeToString(h.Sum(nil))
}
