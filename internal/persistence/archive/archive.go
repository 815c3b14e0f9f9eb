package archive

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/coleschaffer/OpenCatan-sub003/internal/persistence/snapshot"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game"
)

type Standing struct {
	Player string `json:"player"`
	VP     int    `json:"vp"`
}

type GameArchiveMeta struct {
	GameID    string     `json:"game_id"`
	Version   uint64     `json:"version"`
	Phase     string     `json:"phase"`
	Winner    string     `json:"winner,omitempty"`
	Halted    string     `json:"halted,omitempty"`
	Turns     int        `json:"turns"`
	Standings []Standing `json:"standings"`
	Digest    string     `json:"digest"`
	Snapshot  string     `json:"snapshot"`
	CreatedAt string     `json:"created_at"`
}

// Finished reports whether snap is the last state of its game.
func Finished(snap snapshot.GameSnapshot) bool {
	return snap.Header.Phase == game.Ended.String() || snap.State.Halted != ""
}

// ArchiveFinishedGame copies the final snapshot of an ended or halted game
// into `gameDir/archive/` next to a meta.json summary. It returns
// (archivedPath, archived=true) when snap is such a snapshot.
func ArchiveFinishedGame(gameDir, snapshotPath string, snap snapshot.GameSnapshot) (archivedPath string, archived bool, err error) {
	if !Finished(snap) {
		return "", false, nil
	}
	archiveDir := filepath.Join(gameDir, "archive")
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, err
	}

	meta := GameArchiveMeta{
		GameID:    snap.Header.GameID,
		Version:   snap.Header.GameVersion,
		Phase:     snap.Header.Phase,
		Winner:    snap.State.Winner,
		Halted:    snap.State.Halted,
		Turns:     snap.State.Turn.Number,
		Digest:    snap.Header.Digest,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	for _, p := range snap.State.Players {
		meta.Standings = append(meta.Standings, Standing{Player: p.ID, VP: p.VP.Total()})
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}

	return dst, true, nil
}

// ReadMeta loads the summary written by ArchiveFinishedGame.
func ReadMeta(gameDir string) (GameArchiveMeta, error) {
	var m GameArchiveMeta
	b, err := os.ReadFile(filepath.Join(gameDir, "archive", "meta.json"))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(b, &m)
	return m, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
