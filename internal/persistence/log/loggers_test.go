package log

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/host"
)

func TestActionLogger_RotatesHourlyAndScansInOrder(t *testing.T) {
	dir := t.TempDir()
	l := NewActionLogger(dir)
	clock := time.Date(2026, 3, 1, 9, 59, 0, 0, time.UTC)
	l.w.now = func() time.Time { return clock }

	for v := uint64(1); v <= 4; v++ {
		if v == 3 {
			clock = clock.Add(2 * time.Minute)
		}
		require.NoError(t, l.WriteAction(host.ActionLogEntry{
			GameID:  "g",
			Version: v,
			Actor:   "A",
			Action:  protocol.Action{Kind: protocol.ActBuildRoad, Edge: protocol.Int(int(v))},
			Digest:  "d",
		}))
	}
	require.NoError(t, l.Close())

	files, err := ListFiles(filepath.Join(dir, "actions"), "actions")
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, "actions-2026-03-01-09.jsonl.zst", filepath.Base(files[0]))
	require.Equal(t, "actions-2026-03-01-10.jsonl.zst", filepath.Base(files[1]))

	var got []uint64
	require.NoError(t, ScanActions(dir, func(e host.ActionLogEntry) error {
		require.Equal(t, int(e.Version), *e.Action.Edge)
		got = append(got, e.Version)
		return nil
	}))
	require.Equal(t, []uint64{1, 2, 3, 4}, got)
}

func TestActionLogger_AppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	for i := 1; i <= 2; i++ {
		l := NewActionLogger(dir)
		l.w.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
		require.NoError(t, l.WriteAction(host.ActionLogEntry{Version: uint64(i)}))
		require.NoError(t, l.Close())
	}
	var n int
	require.NoError(t, ScanActions(dir, func(host.ActionLogEntry) error { n++; return nil }))
	require.Equal(t, 2, n)
}

func TestScan_StopEarly(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir)
	for v := uint64(0); v < 5; v++ {
		require.NoError(t, l.WriteAudit(host.AuditEntry{Version: v, Kind: protocol.ActRoll, Code: protocol.ErrIllegalPhase}))
	}
	require.NoError(t, l.Close())

	var seen int
	require.NoError(t, ScanAudit(dir, func(e host.AuditEntry) error {
		seen++
		if seen == 2 {
			return ErrStop
		}
		return nil
	}))
	require.Equal(t, 2, seen)

	boom := errors.New("boom")
	require.ErrorIs(t, ScanAudit(dir, func(host.AuditEntry) error { return boom }), boom)
}

func TestScan_MissingDir(t *testing.T) {
	err := ScanActions(t.TempDir(), func(host.ActionLogEntry) error { return nil })
	require.Error(t, err)
}
