package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/coleschaffer/OpenCatan-sub003/internal/persistence/snapshot"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game/feature/scoring"
)

func TestArchiveFinishedGame_CopiesFinalSnapshot(t *testing.T) {
	gameDir := filepath.Join(t.TempDir(), "games", "g1")

	// Create a dummy snapshot file.
	src := filepath.Join(gameDir, "snapshots", "212.snap.zst")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatalf("mkdir snapshots: %v", err)
	}
	want := []byte("dummy")
	if err := os.WriteFile(src, want, 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	snap := snapshot.GameSnapshot{
		Header: snapshot.Header{Version: snapshot.FormatVersion, GameID: "g1", GameVersion: 212, Phase: game.Ended.String(), Digest: "d"},
		State: game.State{
			Winner: "B",
			Turn:   game.Turn{Number: 41},
			Players: []game.PlayerState{
				{ID: "A", VP: scoring.Tally{Buildings: 6}},
				{ID: "B", VP: scoring.Tally{Buildings: 7, LongestRoad: 2, Hidden: 1}},
			},
		},
	}

	archivedPath, ok, err := ArchiveFinishedGame(gameDir, src, snap)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if !ok {
		t.Fatalf("expected archived=true")
	}

	got, err := os.ReadFile(archivedPath)
	if err != nil {
		t.Fatalf("read archived: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("archived content mismatch: got=%q want=%q", string(got), string(want))
	}

	meta, err := ReadMeta(gameDir)
	if err != nil {
		t.Fatalf("meta: %v", err)
	}
	if meta.Winner != "B" || meta.Turns != 41 || meta.Snapshot != "212.snap.zst" || len(meta.Standings) != 2 || meta.Standings[1].VP != 10 {
		t.Fatalf("meta=%+v", meta)
	}
}

func TestArchiveFinishedGame_SkipsRunningGame(t *testing.T) {
	snap := snapshot.GameSnapshot{Header: snapshot.Header{Phase: game.Main.String()}}
	_, ok, err := ArchiveFinishedGame(t.TempDir(), "/nonexistent/1.snap.zst", snap)
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}

	snap.State.Halted = "bank went negative"
	if !Finished(snap) {
		t.Fatalf("halted game should count as finished")
	}
}
