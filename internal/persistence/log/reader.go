package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/host"
)

// ErrStop ends a scan early without error.
var ErrStop = errors.New("stop scan")

// ListFiles returns the <prefix>-*.jsonl.zst files in dir in write order.
func ListFiles(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix+"-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// ScanFile calls fn for each line of one compressed JSONL file.
func ScanFile(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		if err := fn(sc.Bytes()); err != nil {
			return err
		}
	}
	return sc.Err()
}

func scanDir(dir, prefix string, fn func(path string, line []byte) error) error {
	files, err := ListFiles(dir, prefix)
	if err != nil {
		return err
	}
	for _, path := range files {
		err := ScanFile(path, func(line []byte) error { return fn(path, line) })
		if errors.Is(err, ErrStop) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ScanActions decodes every action entry under gameDir/actions in order.
func ScanActions(gameDir string, fn func(host.ActionLogEntry) error) error {
	return scanDir(filepath.Join(gameDir, "actions"), "actions", func(path string, line []byte) error {
		var e host.ActionLogEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		return fn(e)
	})
}

// ScanAudit decodes every audit entry under gameDir/audit in order.
func ScanAudit(gameDir string, fn func(host.AuditEntry) error) error {
	return scanDir(filepath.Join(gameDir, "audit"), "audit", func(path string, line []byte) error {
		var e host.AuditEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		return fn(e)
	})
}
