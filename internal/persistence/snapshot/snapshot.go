package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/board"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/tuning"
)

// FormatVersion is bumped whenever GameSnapshot changes shape.
const FormatVersion = 1

type Header struct {
	Version     int    `json:"version"`
	GameID      string `json:"game_id"`
	GameVersion uint64 `json:"game_version"`
	Phase       string `json:"phase"`
	Digest      string `json:"digest"`
}

// GameSnapshot is everything needed to resume or replay a game: the settings
// and layout it was created with and its full authoritative state.
type GameSnapshot struct {
	Header   Header          `json:"header"`
	Settings tuning.Settings `json:"settings"`
	Layout   board.Layout    `json:"layout"`
	State    game.State      `json:"state"`
}

// Capture takes a snapshot of g. It must run on the goroutine that owns g.
func Capture(g *game.Game, layout board.Layout) GameSnapshot {
	st := g.Snapshot()
	return GameSnapshot{
		Header: Header{
			Version:     FormatVersion,
			GameID:      g.ID(),
			GameVersion: st.Version,
			Phase:       st.Phase,
			Digest:      g.Digest(),
		},
		Settings: g.Settings(),
		Layout:   layout,
		State:    st,
	}
}

// Restore rebuilds the game. dice may be nil.
func (s GameSnapshot) Restore(dice func() (int, int)) (*game.Game, error) {
	if s.Header.Version != FormatVersion {
		return nil, fmt.Errorf("snapshot: unsupported version %d", s.Header.Version)
	}
	b, err := board.New(s.Layout)
	if err != nil {
		return nil, fmt.Errorf("snapshot layout: %w", err)
	}
	g, err := game.Restore(game.Options{ID: s.Header.GameID, Settings: s.Settings, Board: b, Dice: dice}, s.State)
	if err != nil {
		return nil, err
	}
	if s.Header.Digest != "" && g.Digest() != s.Header.Digest {
		return nil, fmt.Errorf("snapshot: digest mismatch at version %d", s.Header.GameVersion)
	}
	return g, nil
}

// FileName is the on-disk name for a snapshot taken at a game version.
func FileName(version uint64) string { return fmt.Sprintf("%d.snap.zst", version) }

func WriteSnapshot(path string, snap GameSnapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 64*1024)
	defer bw.Flush()

	// A JSON header line lets tools identify the file without gob.
	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (GameSnapshot, error) {
	var snap GameSnapshot
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("snapshot header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// ReadHeader reads only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("snapshot header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("snapshot header: %w", err)
	}
	return h, nil
}
