package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	persistlog "github.com/coleschaffer/OpenCatan-sub003/internal/persistence/log"
	"github.com/coleschaffer/OpenCatan-sub003/internal/persistence/snapshot"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/board"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/host"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/tuning"
)

func main() {
	var (
		snapPath  = flag.String("snapshot", "", "path to .snap.zst (empty: replay from a fresh game)")
		gameDir   = flag.String("game_dir", "", "game dir containing actions/actions-*.jsonl.zst (optional)")
		toVersion = flag.Uint64("to_version", 0, "stop after version (inclusive, optional)")
		verbose   = flag.Bool("v", false, "print every replayed version")

		// Fresh replays only; these must match what the server was started with.
		gameID     = flag.String("game", "", "game id (fresh replay)")
		seats      = flag.String("seats", "A:red,B:blue,C:white", "seat list as id:color (fresh replay)")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (fresh replay)")
		layoutPath = flag.String("layout", "", "path to layout.yaml (fresh replay)")
	)
	flag.Parse()

	var g *game.Game
	if *snapPath != "" {
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			fail("read snapshot", err)
		}
		fmt.Printf("snapshot v%d game=%s version=%d phase=%s players=%d buildings=%d roads=%d offers=%d\n",
			snap.Header.Version, snap.Header.GameID, snap.Header.GameVersion, snap.Header.Phase,
			len(snap.State.Players), len(snap.State.Buildings), len(snap.State.Roads), len(snap.State.Offers))
		g, err = snap.Restore(nil)
		if err != nil {
			fail("restore", err)
		}
		if *gameDir == "" {
			return
		}
	} else {
		if *gameDir == "" {
			fmt.Fprintln(os.Stderr, "need -snapshot or -game_dir")
			os.Exit(2)
		}
		var err error
		g, err = freshGame(*gameID, *gameDir, *seats, *tuningPath, *layoutPath)
		if err != nil {
			fail("fresh game", err)
		}
	}

	start := g.Version()
	n, err := persistlog.CatchUpTo(g, *gameDir, *toVersion, func(e host.ActionLogEntry) {
		if *verbose {
			actor := e.Actor
			if actor == "" {
				actor = "host"
			}
			fmt.Printf("v%d %s %s digest=%s\n", e.Version, actor, e.Action.Kind, e.Digest[:min(12, len(e.Digest))])
		}
	})
	var div *persistlog.DivergenceError
	if errors.As(err, &div) {
		fmt.Fprintf(os.Stderr, "replay diverged at version %d\n  want %s\n  got  %s\n", div.Version, div.Want, div.Got)
		os.Exit(1)
	}
	if err != nil {
		fail("replay", err)
	}
	winner := g.Winner()
	if winner == "" {
		winner = "-"
	}
	fmt.Printf("replay ok: checked=%d versions (from version %d to %d) phase=%s winner=%s\n", n, start, g.Version(), g.Phase(), winner)
}

// freshGame rebuilds the game the server would have started with. The game
// id defaults to the game dir name.
func freshGame(id, gameDir, seats, tuningPath, layoutPath string) (*game.Game, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = filepath.Base(filepath.Clean(gameDir))
	}
	settings, err := tuning.Load(tuningPath)
	if err != nil {
		return nil, err
	}
	layout, err := board.LoadLayout(layoutPath)
	if err != nil {
		return nil, err
	}
	b, err := board.New(layout)
	if err != nil {
		return nil, err
	}
	var ss []game.Seat
	for _, part := range strings.Split(seats, ",") {
		pid, color, _ := strings.Cut(strings.TrimSpace(part), ":")
		if pid = strings.TrimSpace(pid); pid != "" {
			ss = append(ss, game.Seat{ID: pid, Color: strings.TrimSpace(color)})
		}
	}
	return game.New(game.Options{ID: id, Settings: settings, Board: b, Seats: ss})
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}
