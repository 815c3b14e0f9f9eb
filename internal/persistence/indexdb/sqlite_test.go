package indexdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/coleschaffer/OpenCatan-sub003/internal/persistence/snapshot"
	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/board"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/host"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/tuning"
)

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqAction}

	_ = s.WriteAction(host.ActionLogEntry{Version: 2})
	_ = s.WriteAudit(host.AuditEntry{Version: 2})
	s.RecordSnapshot("/tmp/2.snap.zst", snapshot.GameSnapshot{})

	st := s.Stats()
	if st.DropActionTotal != 1 || st.DropAuditTotal != 1 || st.DropSnapshotTotal != 1 {
		t.Fatalf("drops=%+v", st)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_WriteThenQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "game.sqlite")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	seats := []game.Seat{{ID: "A", Color: "red"}, {ID: "B", Color: "blue"}}
	if err := idx.UpsertGame("g1", seats, tuning.Defaults(), board.StandardLayout()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	for v := uint64(1); v <= 3; v++ {
		actor := "A"
		if v == 2 {
			actor = "B"
		}
		_ = idx.WriteAction(host.ActionLogEntry{
			GameID: "g1", Version: v, Actor: actor, Digest: "d",
			Action: protocol.Action{Kind: protocol.ActBuildRoad, Edge: protocol.Int(int(v)), At: int64(v) * 100},
		})
	}
	_ = idx.WriteAudit(host.AuditEntry{GameID: "g1", Version: 3, Actor: "B", Kind: protocol.ActRoll, Code: protocol.ErrNotYourTurn})
	_ = idx.WriteAudit(host.AuditEntry{GameID: "g1", Version: 3, Actor: "A", Kind: protocol.ActEndTurn, OK: true})
	_ = idx.WriteAudit(host.AuditEntry{GameID: "g1", Version: 3, Actor: "C", Kind: protocol.ActRoll, Code: protocol.ErrBadRequest})
	idx.RecordSnapshot("/data/3.snap.zst", snapshot.GameSnapshot{
		Header: snapshot.Header{GameID: "g1", GameVersion: 3, Phase: "main", Digest: "d3"},
	})
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("reader: %v", err)
	}
	defer r.Close()
	ctx := context.Background()

	games, err := r.Games(ctx, 0)
	if err != nil || len(games) != 1 {
		t.Fatalf("games=%v err=%v", games, err)
	}
	if games[0].Version != 3 || games[0].Phase != "main" || games[0].SettingsDigest == "" {
		t.Fatalf("game row=%+v", games[0])
	}

	acts, err := r.Actions(ctx, "g1", 2, "", 0)
	if err != nil || len(acts) != 2 {
		t.Fatalf("actions=%v err=%v", acts, err)
	}
	if acts[0].Version != 2 || acts[0].Actor != "B" || *acts[0].Action.Edge != 2 || acts[0].At != 200 {
		t.Fatalf("first action=%+v", acts[0])
	}
	byA, err := r.Actions(ctx, "g1", 0, "A", 0)
	if err != nil || len(byA) != 2 {
		t.Fatalf("actions by A=%v err=%v", byA, err)
	}

	rej, err := r.Rejections(ctx, "g1", "", 0)
	if err != nil || len(rej) != 2 {
		t.Fatalf("rejections=%v err=%v", rej, err)
	}
	if rej[0].Seq != 2 || rej[0].Code != protocol.ErrBadRequest {
		t.Fatalf("newest rejection=%+v", rej[0])
	}
	counts, err := r.RejectionCounts(ctx, "g1")
	if err != nil || counts[protocol.ErrNotYourTurn] != 1 || counts[protocol.ErrBadRequest] != 1 {
		t.Fatalf("counts=%v err=%v", counts, err)
	}

	snaps, err := r.Snapshots(ctx, "g1", 0)
	if err != nil || len(snaps) != 1 || snaps[0].Path != "/data/3.snap.zst" {
		t.Fatalf("snapshots=%v err=%v", snaps, err)
	}
}

func TestSQLiteIndex_AuditSeqSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.sqlite")
	for i := 0; i < 2; i++ {
		idx, err := OpenSQLite(path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		_ = idx.WriteAudit(host.AuditEntry{GameID: "g", Kind: protocol.ActRoll, Code: protocol.ErrIllegalPhase})
		if err := idx.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("reader: %v", err)
	}
	defer r.Close()
	rej, err := r.Rejections(context.Background(), "g", protocol.ErrIllegalPhase, 10)
	if err != nil || len(rej) != 2 || rej[0].Seq != 1 {
		t.Fatalf("rejections=%v err=%v", rej, err)
	}
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Fatalf("expected error")
	}
}
