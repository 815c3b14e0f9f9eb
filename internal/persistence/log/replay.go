package log

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/host"
)

// DivergenceError reports a replayed version whose digest differs from the
// one recorded when the action was first accepted.
type DivergenceError struct {
	Version uint64
	Want    string
	Got     string
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("replay diverged at version %d: want %s got %s", e.Version, e.Want, e.Got)
}

// CatchUp applies the logged actions newer than g's version, in order, and
// checks each recorded digest. onApplied may be nil. It returns the number of
// actions applied. A game directory without an action log is not an error.
func CatchUp(g *game.Game, gameDir string, onApplied func(host.ActionLogEntry)) (int, error) {
	return CatchUpTo(g, gameDir, 0, onApplied)
}

// CatchUpTo is CatchUp stopping after version toVersion. Zero means no limit.
func CatchUpTo(g *game.Game, gameDir string, toVersion uint64, onApplied func(host.ActionLogEntry)) (int, error) {
	if _, err := os.Stat(filepath.Join(gameDir, "actions")); errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	n := 0
	err := ScanActions(gameDir, func(e host.ActionLogEntry) error {
		if e.GameID != "" && e.GameID != g.ID() {
			return nil
		}
		if e.Version <= g.Version() {
			return nil
		}
		if toVersion != 0 && e.Version > toVersion {
			return ErrStop
		}
		if e.Version != g.Version()+1 {
			return fmt.Errorf("action log gap: have version %d, next entry is %d", g.Version(), e.Version)
		}
		if _, rej := g.Apply(e.Actor, e.Action); rej != nil {
			return fmt.Errorf("version %d: %s rejected on replay: %w", e.Version, e.Action.Kind, rej)
		}
		if e.Digest != "" {
			if got := g.Digest(); got != e.Digest {
				return &DivergenceError{Version: e.Version, Want: e.Digest, Got: got}
			}
		}
		n++
		if onApplied != nil {
			onApplied(e)
		}
		return nil
	})
	return n, err
}
