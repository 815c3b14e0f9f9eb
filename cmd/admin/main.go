package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/coleschaffer/OpenCatan-sub003/internal/persistence/archive"
	persistlog "github.com/coleschaffer/OpenCatan-sub003/internal/persistence/log"
	"github.com/coleschaffer/OpenCatan-sub003/internal/persistence/snapshot"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/host"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "rewind":
			rewindCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "snapshot-now":
			snapshotNowCmd(os.Args[2:])
			return
		case "inspect":
			inspectCmd(os.Args[2:])
			return
		case "audit":
			auditCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(filepath.Join(*dataDir, "games"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		line := e.Name()
		if p := latestSnapshot(filepath.Join(*dataDir, "games", e.Name())); p != "" {
			if h, err := snapshot.ReadHeader(p); err == nil {
				line += fmt.Sprintf("\tversion=%d\tphase=%s", h.GameVersion, h.Phase)
			}
		}
		if m, err := archive.ReadMeta(filepath.Join(*dataDir, "games", e.Name())); err == nil {
			line += fmt.Sprintf("\tfinished winner=%s turns=%d", m.Winner, m.Turns)
		}
		fmt.Println(line)
	}
}

// inspectCmd prints a snapshot header and a per-player summary.
func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	gameID := fs.String("game", "", "game id (uses its latest snapshot)")
	snapPath := fs.String("snapshot", "", "snapshot path (optional)")
	asJSON := fs.Bool("json", false, "print the whole snapshot as JSON")
	_ = fs.Parse(args)

	path := snapshotPathOrLatest(*snapPath, *dataDir, *gameID)
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	if *asJSON {
		printJSON(snap)
		return
	}
	st := snap.State
	fmt.Printf("snapshot=%s game=%s version=%d phase=%s turn=%d holder=%s digest=%s\n",
		filepath.Base(path), snap.Header.GameID, snap.Header.GameVersion, snap.Header.Phase, st.Turn.Number, st.Turn.Holder, snap.Header.Digest)
	fmt.Printf("bank=%v deck=%d robber=%d buildings=%d roads=%d offers=%d\n",
		st.Bank, st.DeckCount, st.Robber, len(st.Buildings), len(st.Roads), len(st.Offers))
	if st.Winner != "" {
		fmt.Printf("winner=%s\n", st.Winner)
	}
	if st.Halted != "" {
		fmt.Printf("halted=%s\n", st.Halted)
	}
	for _, p := range st.Players {
		fmt.Printf("  %-8s %-6s hand=%v cards=%d knights=%d road=%d vp=%d (+%d hidden) connected=%v\n",
			p.ID, p.Color, p.Hand, p.CardCount, p.Knights, p.RoadLength, p.VP.Public(), p.VP.Hidden, p.Connected)
	}
}

func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	gameID := fs.String("game", "", "game id (required)")
	actor := fs.String("actor", "", "actor filter (\"host\" for host actions)")
	onlyRejected := fs.Bool("rejected", false, "only rejected submissions")
	since := fs.Uint64("since_version", 0, "skip entries before this game version")
	_ = fs.Parse(args)

	if strings.TrimSpace(*gameID) == "" {
		fmt.Fprintln(os.Stderr, "missing -game")
		os.Exit(2)
	}
	want := strings.TrimSpace(*actor)
	if want == "host" {
		want = ""
	}
	n := 0
	err := persistlog.ScanAudit(filepath.Join(*dataDir, "games", *gameID), func(e host.AuditEntry) error {
		if e.Version < *since {
			return nil
		}
		if *actor != "" && e.Actor != want {
			return nil
		}
		if *onlyRejected && e.OK {
			return nil
		}
		n++
		printJSON(e)
		return nil
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "scan audit:", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "%d entries\n", n)
}

// rewindCmd writes a snapshot of the game as it was at an earlier version,
// built from an older snapshot plus the action log. Restarting the server
// with -snapshot pointing at it and a fresh data dir resumes from there.
func rewindCmd(args []string) {
	fs := flag.NewFlagSet("rewind", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	gameID := fs.String("game", "", "game id")
	snapPath := fs.String("snapshot", "", "snapshot to start from (optional; defaults to the newest one at or before -to_version)")
	toVersion := fs.Uint64("to_version", 0, "target version (required)")
	outPath := fs.String("out", "", "output snapshot path (optional)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*gameID) == "" {
		fmt.Fprintln(os.Stderr, "missing -game")
		os.Exit(2)
	}
	if *toVersion == 0 {
		fmt.Fprintln(os.Stderr, "missing -to_version")
		os.Exit(2)
	}
	gameDir := filepath.Join(*dataDir, "games", *gameID)

	from := strings.TrimSpace(*snapPath)
	if from == "" {
		from = snapshotAtOrBefore(gameDir, *toVersion)
	}
	if from == "" {
		fmt.Fprintln(os.Stderr, "no snapshot at or before the target version; provide -snapshot")
		os.Exit(2)
	}
	snap, err := snapshot.ReadSnapshot(from)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	if snap.Header.GameVersion > *toVersion {
		fmt.Fprintf(os.Stderr, "snapshot is at version %d, after the target\n", snap.Header.GameVersion)
		os.Exit(2)
	}
	g, err := snap.Restore(nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "restore:", err)
		os.Exit(1)
	}
	n, err := persistlog.CatchUpTo(g, gameDir, *toVersion, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	if g.Version() != *toVersion {
		fmt.Fprintf(os.Stderr, "action log ends at version %d\n", g.Version())
		os.Exit(1)
	}

	out := strings.TrimSpace(*outPath)
	if out == "" {
		out = filepath.Join(gameDir, "rewind", snapshot.FileName(g.Version()))
	}
	if err := snapshot.WriteSnapshot(out, snapshot.Capture(g, snap.Layout)); err != nil {
		fmt.Fprintln(os.Stderr, "write snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("rewind ok: from=%s version=%d applied=%d out=%s\n", filepath.Base(from), g.Version(), n, out)
}

func snapshotPathOrLatest(path, dataDir, gameID string) string {
	if p := strings.TrimSpace(path); p != "" {
		return p
	}
	if strings.TrimSpace(gameID) == "" {
		fmt.Fprintln(os.Stderr, "missing -game or -snapshot")
		os.Exit(2)
	}
	p := latestSnapshot(filepath.Join(dataDir, "games", gameID))
	if p == "" {
		fmt.Fprintln(os.Stderr, "no snapshot found")
		os.Exit(2)
	}
	return p
}

func latestSnapshot(gameDir string) string {
	return snapshotAtOrBefore(gameDir, 0)
}

// snapshotAtOrBefore returns the newest snapshot whose version is <= limit.
// A zero limit means no limit.
func snapshotAtOrBefore(gameDir string, limit uint64) string {
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
		if limit != 0 && v > limit {
			continue
		}
		if best == "" || v > bestVersion {
			bestVersion = v
			best = filepath.Join(dir, name)
		}
	}
	return best
}
