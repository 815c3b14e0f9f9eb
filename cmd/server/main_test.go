package main

import (
	"io"
	"log"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	persistlog "github.com/coleschaffer/OpenCatan-sub003/internal/persistence/log"
	"github.com/coleschaffer/OpenCatan-sub003/internal/persistence/snapshot"
	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/host"
)

func TestParseSeats(t *testing.T) {
	seats, err := parseSeats(" A:red, B ,C:white,")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(seats) != 3 || seats[0].ID != "A" || seats[0].Color != "red" || seats[1].ID != "B" || seats[1].Color != "" {
		t.Fatalf("seats=%+v", seats)
	}
	for _, bad := range []string{"", ",", "A,A", ":red"} {
		if _, err := parseSeats(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestLatestSnapshot_PicksHighestVersion(t *testing.T) {
	dir := t.TempDir()
	snaps := filepath.Join(dir, "snapshots")
	if err := os.MkdirAll(snaps, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"9.snap.zst", "120.snap.zst", "30.snap.zst", "junk.snap.zst", "7.txt"} {
		if err := os.WriteFile(filepath.Join(snaps, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if got := latestSnapshot(dir); filepath.Base(got) != "120.snap.zst" {
		t.Fatalf("latest=%q", got)
	}
	if got := latestSnapshot(t.TempDir()); got != "" {
		t.Fatalf("empty dir latest=%q", got)
	}
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestOpenGame_ResumesFromSnapshotAndLog(t *testing.T) {
	dir := t.TempDir()
	src := gameSource{ID: "g1", Dir: dir, Seats: "A,B,C"}
	rt, err := openGame(src, quietLogger())
	if err != nil {
		t.Fatalf("fresh: %v", err)
	}
	g := rt.game
	actions := persistlog.NewActionLogger(dir)

	play := func(n int) {
		for i := 0; i < n; i++ {
			a := protocol.Action{Kind: protocol.ActTimeout, Turn: g.Turn().Number, Phase: g.Phase().String(), At: int64(i)}
			d, rej := g.Apply("", a)
			if rej != nil {
				continue
			}
			if err := actions.WriteAction(host.ActionLogEntry{GameID: "g1", Version: d.Version, Action: a, Digest: g.Digest()}); err != nil {
				t.Fatalf("log: %v", err)
			}
		}
	}
	play(8)
	snap := snapshot.Capture(g, rt.layout)
	path := filepath.Join(dir, "snapshots", snapshot.FileName(snap.Header.GameVersion))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	play(8)
	if err := actions.Close(); err != nil {
		t.Fatal(err)
	}

	src.SnapshotPath = latestSnapshot(dir)
	resumed, err := openGame(src, quietLogger())
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.game.Version() != g.Version() || resumed.game.Digest() != g.Digest() {
		t.Fatalf("resumed at %d, want %d (digest match=%v)", resumed.game.Version(), g.Version(), resumed.game.Digest() == g.Digest())
	}

	// Without a snapshot the log is replayed from the start.
	src.SnapshotPath = ""
	fresh, err := openGame(src, quietLogger())
	if err != nil {
		t.Fatalf("replay from start: %v", err)
	}
	if fresh.game.Digest() != g.Digest() {
		t.Fatalf("replay from start diverged")
	}

	src.ID = "other"
	src.SnapshotPath = path
	if _, err := openGame(src, quietLogger()); err == nil {
		t.Fatalf("expected game id mismatch")
	}
}

func TestMetricsHandler(t *testing.T) {
	rt, err := openGame(gameSource{ID: "m", Dir: t.TempDir(), Seats: "A,B"}, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	h := host.New(rt.game, host.Config{Logger: quietLogger()})

	rec := httptest.NewRecorder()
	metricsHandler(h, nil, fixedObservers(2))(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`opencatan_game_version{game="m"} 0`,
		`opencatan_game_phase{game="m",phase="` + rt.game.Phase().String() + `"} 1`,
		`opencatan_observers 2`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}

type fixedObservers int64

func (n fixedObservers) Active() int64 { return int64(n) }
