package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/coleschaffer/OpenCatan-sub003/internal/persistence/snapshot"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/board"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/host"
	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/tuning"
)

const schemaVersion = "1"

// SQLiteIndex is a queryable copy of the action log, the audit log and the
// snapshot list. Writes are queued and applied by one goroutine in batched
// transactions; the JSONL logs remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropAction   atomic.Uint64
	dropAudit    atomic.Uint64
	dropSnapshot atomic.Uint64
}

type Stats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
	DropActionTotal   uint64 `json:"drop_action_total"`
	DropAuditTotal    uint64 `json:"drop_audit_total"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
}

type reqKind int

const (
	reqAction reqKind = iota + 1
	reqAudit
	reqSnapshot
)

type req struct {
	kind reqKind

	action   host.ActionLogEntry
	audit    host.AuditEntry
	snapshot snapshotRow
}

type snapshotRow struct {
	GameID  string
	Version uint64
	Path    string
	Phase   string
	Digest  string
	Winner  string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS games (
			game_id TEXT PRIMARY KEY,
			seats_json TEXT NOT NULL,
			settings_json TEXT NOT NULL,
			settings_digest TEXT NOT NULL,
			layout_digest TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 0,
			phase TEXT NOT NULL DEFAULT '',
			winner TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS actions (
			game_id TEXT NOT NULL,
			version INTEGER NOT NULL,
			actor TEXT NOT NULL,
			kind TEXT NOT NULL,
			at INTEGER NOT NULL,
			digest TEXT NOT NULL,
			act_json TEXT NOT NULL,
			PRIMARY KEY (game_id, version)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_actions_actor ON actions(game_id, actor, version);`,
		`CREATE TABLE IF NOT EXISTS audits (
			game_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			version INTEGER NOT NULL,
			at INTEGER NOT NULL,
			actor TEXT NOT NULL,
			kind TEXT NOT NULL,
			ok INTEGER NOT NULL,
			code TEXT NOT NULL,
			message TEXT NOT NULL,
			PRIMARY KEY (game_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_rejected ON audits(game_id, ok, code);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			game_id TEXT NOT NULL,
			version INTEGER NOT NULL,
			path TEXT NOT NULL,
			phase TEXT NOT NULL,
			digest TEXT NOT NULL,
			PRIMARY KEY (game_id, version)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropActionTotal:   s.dropAction.Load(),
		DropAuditTotal:    s.dropAudit.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

func (s *SQLiteIndex) WriteAction(entry host.ActionLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAction, action: entry}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropAction.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteAudit(entry host.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
		s.dropAudit.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.GameSnapshot) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		GameID:  snap.Header.GameID,
		Version: snap.Header.GameVersion,
		Path:    path,
		Phase:   snap.Header.Phase,
		Digest:  snap.Header.Digest,
		Winner:  snap.State.Winner,
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// UpsertGame records the fixed configuration of a game. It writes
// synchronously so the row exists before any action is indexed.
func (s *SQLiteIndex) UpsertGame(id string, seats []game.Seat, settings tuning.Settings, layout board.Layout) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	seatsJSON, err := json.Marshal(seats)
	if err != nil {
		return err
	}
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	layoutJSON, err := json.Marshal(layout)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version',?)`, schemaVersion); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO games(game_id,seats_json,settings_json,settings_digest,layout_digest,created_at,updated_at)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(game_id) DO UPDATE SET seats_json=excluded.seats_json, settings_json=excluded.settings_json,
			settings_digest=excluded.settings_digest, layout_digest=excluded.layout_digest, updated_at=excluded.updated_at`,
		id, string(seatsJSON), string(settingsJSON), digestOf(settingsJSON), digestOf(layoutJSON), now, now,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func digestOf(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertAction, _ := s.db.Prepare(`INSERT OR REPLACE INTO actions(game_id,version,actor,kind,at,digest,act_json) VALUES(?,?,?,?,?,?,?)`)
	bumpGame, _ := s.db.Prepare(`UPDATE games SET version=MAX(version,?), updated_at=? WHERE game_id=?`)
	insertAudit, _ := s.db.Prepare(`INSERT OR REPLACE INTO audits(game_id,seq,version,at,actor,kind,ok,code,message) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(game_id,version,path,phase,digest) VALUES(?,?,?,?,?)`)
	markGame, _ := s.db.Prepare(`UPDATE games SET phase=?, winner=?, updated_at=? WHERE game_id=?`)
	defer func() {
		for _, st := range []*sql.Stmt{insertAction, bumpGame, insertAudit, insertSnapshot, markGame} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		// Audit rows are numbered per game in arrival order.
		auditSeq = map[string]int64{}
	)
	for _, row := range s.auditHeads() {
		auditSeq[row.game] = row.next
	}

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil {
			return true
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		now := time.Now().UTC().Format(time.RFC3339Nano)
		switch r.kind {
		case reqAction:
			a := r.action
			actJSON, _ := json.Marshal(a.Action)
			if !exec(insertAction, a.GameID, int64(a.Version), a.Actor, a.Action.Kind, a.Action.At, a.Digest, string(actJSON)) {
				continue
			}
			exec(bumpGame, int64(a.Version), now, a.GameID)

		case reqAudit:
			a := r.audit
			seq := auditSeq[a.GameID]
			auditSeq[a.GameID] = seq + 1
			ok := 0
			if a.OK {
				ok = 1
			}
			exec(insertAudit, a.GameID, seq, int64(a.Version), a.At, a.Actor, a.Kind, ok, a.Code, a.Message)

		case reqSnapshot:
			sn := r.snapshot
			if !exec(insertSnapshot, sn.GameID, int64(sn.Version), sn.Path, sn.Phase, sn.Digest) {
				continue
			}
			exec(markGame, sn.Phase, sn.Winner, now, sn.GameID)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}

type auditHead struct {
	game string
	next int64
}

// auditHeads continues audit numbering after a restart.
func (s *SQLiteIndex) auditHeads() []auditHead {
	rows, err := s.db.Query(`SELECT game_id, MAX(seq)+1 FROM audits GROUP BY game_id`)
	if err != nil {
		return nil
	}
	defer rows.Close()
	var out []auditHead
	for rows.Next() {
		var h auditHead
		if err := rows.Scan(&h.game, &h.next); err == nil {
			out = append(out, h)
		}
	}
	return out
}
