package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/coleschaffer/OpenCatan-sub003/internal/persistence/indexdb"
)

// dbCmd queries the sqlite read model: games, actions, rejections, counts
// or snapshots.
func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	gameID := fs.String("game", "", "game id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	fromVersion := fs.Uint64("from_version", 0, "actions: first version")
	actor := fs.String("actor", "", "actions: actor filter")
	code := fs.String("code", "", "rejections: reason code filter")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*gameID) == "" {
			fmt.Fprintln(os.Stderr, "missing -game or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "games", *gameID, "index", "game.sqlite")
	}
	if q != "games" && strings.TrimSpace(*gameID) == "" {
		fmt.Fprintln(os.Stderr, "missing -game")
		os.Exit(2)
	}

	r, err := indexdb.OpenReader(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer r.Close()
	ctx := context.Background()

	switch q {
	case "games":
		rows, err := r.Games(ctx, *limit)
		check("games", err)
		for _, g := range rows {
			g.Settings = nil
			printJSON(g)
		}

	case "actions":
		rows, err := r.Actions(ctx, *gameID, *fromVersion, *actor, *limit)
		check("actions", err)
		for _, a := range rows {
			printJSON(a)
		}

	case "rejections":
		rows, err := r.Rejections(ctx, *gameID, *code, *limit)
		check("rejections", err)
		for _, a := range rows {
			printJSON(a)
		}

	case "counts":
		counts, err := r.RejectionCounts(ctx, *gameID)
		check("counts", err)
		printJSON(counts)

	case "snapshots":
		rows, err := r.Snapshots(ctx, *gameID, *limit)
		check("snapshots", err)
		for _, s := range rows {
			printJSON(s)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(games|actions|rejections|counts|snapshots)")
		os.Exit(2)
	}
}

func check(what string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
		os.Exit(1)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
