package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/coleschaffer/OpenCatan-sub003/internal/persistence/archive"
	"github.com/coleschaffer/OpenCatan-sub003/internal/persistence/indexdb"
	persistlog "github.com/coleschaffer/OpenCatan-sub003/internal/persistence/log"
	"github.com/coleschaffer/OpenCatan-sub003/internal/persistence/snapshot"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/board"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/host"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/tuning"
)

type gameSource struct {
	ID           string
	Dir          string
	SnapshotPath string
	TuningPath   string
	LayoutPath   string
	Seats        string
}

type gameRuntime struct {
	game   *game.Game
	layout board.Layout
}

// openGame builds a fresh game or resumes one from a snapshot, then applies
// any logged actions newer than that starting point.
func openGame(src gameSource, logger *log.Logger) (gameRuntime, error) {
	var rt gameRuntime
	if src.SnapshotPath != "" {
		snap, err := snapshot.ReadSnapshot(src.SnapshotPath)
		if err != nil {
			return rt, fmt.Errorf("read snapshot: %w", err)
		}
		if snap.Header.GameID != src.ID {
			return rt, fmt.Errorf("snapshot game id mismatch: flag=%s snap=%s", src.ID, snap.Header.GameID)
		}
		g, err := snap.Restore(nil)
		if err != nil {
			return rt, err
		}
		rt.game, rt.layout = g, snap.Layout
		logger.Printf("resumed from snapshot=%s version=%d", filepath.Base(src.SnapshotPath), g.Version())
	} else {
		settings, err := tuning.Load(src.TuningPath)
		if err != nil {
			return rt, fmt.Errorf("load tuning: %w", err)
		}
		layout, err := board.LoadLayout(src.LayoutPath)
		if err != nil {
			return rt, fmt.Errorf("load layout: %w", err)
		}
		b, err := board.New(layout)
		if err != nil {
			return rt, err
		}
		seats, err := parseSeats(src.Seats)
		if err != nil {
			return rt, err
		}
		g, err := game.New(game.Options{ID: src.ID, Settings: settings, Board: b, Seats: seats})
		if err != nil {
			return rt, err
		}
		rt.game, rt.layout = g, layout
	}

	n, err := persistlog.CatchUp(rt.game, src.Dir, nil)
	if err != nil {
		return rt, fmt.Errorf("catch up from action log: %w", err)
	}
	if n > 0 {
		logger.Printf("applied %d logged actions, now at version %d", n, rt.game.Version())
	}
	return rt, nil
}

// parseSeats reads "A:red,B:blue". The color may be omitted.
func parseSeats(s string) ([]game.Seat, error) {
	var out []game.Seat
	seen := map[string]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, color, _ := strings.Cut(part, ":")
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("seats: empty player id in %q", part)
		}
		if seen[id] {
			return nil, fmt.Errorf("seats: duplicate player %q", id)
		}
		seen[id] = true
		out = append(out, game.Seat{ID: id, Color: strings.TrimSpace(color)})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("seats: none given")
	}
	return out, nil
}

func seatsOf(g *game.Game) []game.Seat {
	st := g.Snapshot()
	out := make([]game.Seat, 0, len(st.Players))
	for _, p := range st.Players {
		out = append(out, game.Seat{ID: p.ID, Color: p.Color})
	}
	return out
}

func latestSnapshot(gameDir string) string {
	dir := filepath.Join(gameDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestVersion uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		v, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || v > bestVersion {
			bestVersion = v
			best = filepath.Join(dir, name)
		}
	}
	return best
}

// writeSnapshots persists snapshots handed over by the host until ctx ends.
func writeSnapshots(ctx context.Context, ch <-chan snapshot.GameSnapshot, gameDir string, idx *indexdb.SQLiteIndex, logger *log.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-ch:
			path := filepath.Join(gameDir, "snapshots", snapshot.FileName(snap.Header.GameVersion))
			if err := snapshot.WriteSnapshot(path, snap); err != nil {
				logger.Printf("snapshot write: %v", err)
				continue
			}
			if idx != nil {
				idx.RecordSnapshot(path, snap)
			}
			if archived, ok, err := archive.ArchiveFinishedGame(gameDir, path, snap); err != nil {
				logger.Printf("archive final snapshot: %v", err)
			} else if ok {
				logger.Printf("game %s finished at version %d; archived %s", snap.Header.GameID, snap.Header.GameVersion, archived)
			}
		}
	}
}

type actionFanout []host.ActionLogger

func (f actionFanout) WriteAction(entry host.ActionLogEntry) error {
	var first error
	for _, l := range f {
		if err := l.WriteAction(entry); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type auditFanout []host.AuditLogger

func (f auditFanout) WriteAudit(entry host.AuditEntry) error {
	var first error
	for _, l := range f {
		if err := l.WriteAudit(entry); err != nil && first == nil {
			first = err
		}
	}
	return first
}
