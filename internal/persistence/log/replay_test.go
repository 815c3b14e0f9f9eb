package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/board"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/host"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/tuning"
)

func newGame(t *testing.T) *game.Game {
	t.Helper()
	b, err := board.New(board.StandardLayout())
	require.NoError(t, err)
	s := tuning.Defaults()
	s.Seed = 5
	g, err := game.New(game.Options{ID: "g", Settings: s, Board: b, Seats: []game.Seat{{ID: "A"}, {ID: "B"}, {ID: "C"}}})
	require.NoError(t, err)
	return g
}

func restoreAt(t *testing.T, st game.State) *game.Game {
	t.Helper()
	b, err := board.New(board.StandardLayout())
	require.NoError(t, err)
	s := tuning.Defaults()
	s.Seed = 5
	g, err := game.Restore(game.Options{ID: "g", Settings: s, Board: b}, st)
	require.NoError(t, err)
	return g
}

// logTimeouts plays n timeouts on g and logs each accepted one.
func logTimeouts(t *testing.T, g *game.Game, l *ActionLogger, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		a := protocol.Action{Kind: protocol.ActTimeout, Turn: g.Turn().Number, Phase: g.Phase().String(), At: int64(1000 + i)}
		d, rej := g.Apply("", a)
		if rej != nil {
			continue
		}
		require.NoError(t, l.WriteAction(host.ActionLogEntry{GameID: g.ID(), Version: d.Version, Action: a, Digest: g.Digest()}))
	}
}

func TestCatchUp_ReachesLoggedVersion(t *testing.T) {
	dir := t.TempDir()
	g := newGame(t)
	start := g.Snapshot()
	l := NewActionLogger(dir)
	logTimeouts(t, g, l, 30)
	require.NoError(t, l.Close())

	r := restoreAt(t, start)
	var seen []uint64
	n, err := CatchUp(r, dir, func(e host.ActionLogEntry) { seen = append(seen, e.Version) })
	require.NoError(t, err)
	require.Equal(t, int(g.Version()-start.Version), n)
	require.Equal(t, g.Version(), r.Version())
	require.Equal(t, g.Digest(), r.Digest())
	require.Equal(t, start.Version+1, seen[0])

	// Already current: nothing to do.
	n, err = CatchUp(r, dir, nil)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestCatchUp_FromMidpoint(t *testing.T) {
	dir := t.TempDir()
	g := newGame(t)
	l := NewActionLogger(dir)
	logTimeouts(t, g, l, 10)
	mid := g.Snapshot()
	logTimeouts(t, g, l, 10)
	require.NoError(t, l.Close())

	r := restoreAt(t, mid)
	n, err := CatchUp(r, dir, nil)
	require.NoError(t, err)
	require.Equal(t, int(g.Version()-mid.Version), n)
	require.Equal(t, g.Digest(), r.Digest())
}

func TestCatchUp_DetectsDivergence(t *testing.T) {
	dir := t.TempDir()
	g := newGame(t)
	start := g.Snapshot()
	l := NewActionLogger(dir)
	a := protocol.Action{Kind: protocol.ActTimeout, Turn: g.Turn().Number, Phase: g.Phase().String(), At: 1}
	d, rej := g.Apply("", a)
	require.Nil(t, rej)
	require.NoError(t, l.WriteAction(host.ActionLogEntry{GameID: "g", Version: d.Version, Action: a, Digest: "not-the-digest"}))
	require.NoError(t, l.Close())

	_, err := CatchUp(restoreAt(t, start), dir, nil)
	var div *DivergenceError
	require.True(t, errors.As(err, &div), "err=%v", err)
	require.Equal(t, start.Version+1, div.Version)
}

func TestCatchUp_GapIsAnError(t *testing.T) {
	dir := t.TempDir()
	g := newGame(t)
	l := NewActionLogger(dir)
	require.NoError(t, l.WriteAction(host.ActionLogEntry{GameID: "g", Version: g.Version() + 3, Action: protocol.Action{Kind: protocol.ActEndTurn}}))
	require.NoError(t, l.Close())

	_, err := CatchUp(g, dir, nil)
	require.Error(t, err)
}

func TestCatchUp_NoLogIsNotAnError(t *testing.T) {
	n, err := CatchUp(newGame(t), t.TempDir(), nil)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestCatchUpTo_StopsAtVersion(t *testing.T) {
	dir := t.TempDir()
	g := newGame(t)
	start := g.Snapshot()
	l := NewActionLogger(dir)
	logTimeouts(t, g, l, 12)
	require.NoError(t, l.Close())

	r := restoreAt(t, start)
	to := start.Version + 4
	n, err := CatchUpTo(r, dir, to, nil)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, to, r.Version())
}
