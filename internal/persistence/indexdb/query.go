package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/coleschaffer/OpenCatan-sub003/internal/protocol"
)

// Reader answers admin queries. It opens its own connection pool so queries
// never wait on the writer's batch transaction.
type Reader struct {
	db *sql.DB
}

func OpenReader(path string) (*Reader, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Reader{db: db}, nil
}

func (r *Reader) Close() error { return r.db.Close() }

type GameRow struct {
	GameID         string          `json:"game_id"`
	Seats          json.RawMessage `json:"seats"`
	Settings       json.RawMessage `json:"settings,omitempty"`
	SettingsDigest string          `json:"settings_digest"`
	LayoutDigest   string          `json:"layout_digest"`
	Version        uint64          `json:"version"`
	Phase          string          `json:"phase,omitempty"`
	Winner         string          `json:"winner,omitempty"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at"`
}

type ActionRow struct {
	GameID  string          `json:"game_id"`
	Version uint64          `json:"version"`
	Actor   string          `json:"actor,omitempty"`
	Kind    string          `json:"kind"`
	At      int64           `json:"at"`
	Digest  string          `json:"digest"`
	Action  protocol.Action `json:"action"`
}

type AuditRow struct {
	GameID  string `json:"game_id"`
	Seq     int64  `json:"seq"`
	Version uint64 `json:"version"`
	At      int64  `json:"at"`
	Actor   string `json:"actor,omitempty"`
	Kind    string `json:"kind"`
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type SnapshotRow struct {
	GameID  string `json:"game_id"`
	Version uint64 `json:"version"`
	Path    string `json:"path"`
	Phase   string `json:"phase"`
	Digest  string `json:"digest"`
}

func (r *Reader) Games(ctx context.Context, limit int) ([]GameRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT game_id,seats_json,settings_json,settings_digest,layout_digest,version,phase,winner,created_at,updated_at
		FROM games ORDER BY updated_at DESC LIMIT ?`, limitOr(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GameRow
	for rows.Next() {
		var g GameRow
		var seats, settings string
		if err := rows.Scan(&g.GameID, &seats, &settings, &g.SettingsDigest, &g.LayoutDigest, &g.Version, &g.Phase, &g.Winner, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		g.Seats, g.Settings = json.RawMessage(seats), json.RawMessage(settings)
		out = append(out, g)
	}
	return out, rows.Err()
}

// Actions lists accepted actions from fromVersion on, optionally by one actor.
func (r *Reader) Actions(ctx context.Context, gameID string, fromVersion uint64, actor string, limit int) ([]ActionRow, error) {
	q := `SELECT game_id,version,actor,kind,at,digest,act_json FROM actions WHERE game_id=? AND version>=?`
	args := []any{gameID, int64(fromVersion)}
	if actor != "" {
		q += ` AND actor=?`
		args = append(args, actor)
	}
	q += ` ORDER BY version LIMIT ?`
	args = append(args, limitOr(limit))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ActionRow
	for rows.Next() {
		var a ActionRow
		var raw string
		if err := rows.Scan(&a.GameID, &a.Version, &a.Actor, &a.Kind, &a.At, &a.Digest, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &a.Action); err != nil {
			return nil, fmt.Errorf("action %d: %w", a.Version, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Rejections lists refused submissions, newest first. An empty code matches
// every reason.
func (r *Reader) Rejections(ctx context.Context, gameID, code string, limit int) ([]AuditRow, error) {
	q := `SELECT game_id,seq,version,at,actor,kind,ok,code,message FROM audits WHERE game_id=? AND ok=0`
	args := []any{gameID}
	if code != "" {
		q += ` AND code=?`
		args = append(args, code)
	}
	q += ` ORDER BY seq DESC LIMIT ?`
	args = append(args, limitOr(limit))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditRow
	for rows.Next() {
		var a AuditRow
		var ok int
		if err := rows.Scan(&a.GameID, &a.Seq, &a.Version, &a.At, &a.Actor, &a.Kind, &ok, &a.Code, &a.Message); err != nil {
			return nil, err
		}
		a.OK = ok != 0
		out = append(out, a)
	}
	return out, rows.Err()
}

// RejectionCounts groups refused submissions by reason.
func (r *Reader) RejectionCounts(ctx context.Context, gameID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code, COUNT(*) FROM audits WHERE game_id=? AND ok=0 GROUP BY code`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var code string
		var n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, err
		}
		out[code] = n
	}
	return out, rows.Err()
}

func (r *Reader) Snapshots(ctx context.Context, gameID string, limit int) ([]SnapshotRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT game_id,version,path,phase,digest FROM snapshots WHERE game_id=? ORDER BY version DESC LIMIT ?`, gameID, limitOr(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SnapshotRow
	for rows.Next() {
		var s SnapshotRow
		if err := rows.Scan(&s.GameID, &s.Version, &s.Path, &s.Phase, &s.Digest); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func limitOr(n int) int {
	if n <= 0 {
		return 20
	}
	return n
}
