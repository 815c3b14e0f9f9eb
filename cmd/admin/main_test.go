package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSnapshotAtOrBefore(t *testing.T) {
	dir := t.TempDir()
	snaps := filepath.Join(dir, "snapshots")
	if err := os.MkdirAll(snaps, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"10.snap.zst", "50.snap.zst", "100.snap.zst", "x.snap.zst"} {
		if err := os.WriteFile(filepath.Join(snaps, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cases := []struct {
		limit uint64
		want  string
	}{
		{0, "100.snap.zst"},
		{100, "100.snap.zst"},
		{99, "50.snap.zst"},
		{10, "10.snap.zst"},
		{9, ""},
	}
	for _, c := range cases {
		got := snapshotAtOrBefore(dir, c.limit)
		if got != "" {
			got = filepath.Base(got)
		}
		if got != c.want {
			t.Fatalf("limit=%d got %q want %q", c.limit, got, c.want)
		}
	}
}
