package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS command_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			command TEXT NOT NULL,
			run_ts TEXT NOT NULL DEFAULT (datetime('now'))
		);`,
		`CREATE INDEX IF NOT EXISTS idx_command_history_room
			ON command_history(room_id, id DESC);`,
		`CREATE TABLE IF NOT EXISTS lab_sessions (
			session_id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL,
			started_ts TEXT NOT NULL,
			stopped_ts TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS app_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) AppendHistory(ctx context.Context, entry HistoryEntry) error {
	command := strings.TrimSpace(entry.Command)
	if command == "" {
		return nil
	}
	ts := entry.RunTS
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO command_history(room_id, session_id, command, run_ts) VALUES(?,?,?,?)`,
		entry.RoomID,
		entry.SessionID,
		command,
		ts.UTC().Format(timeLayout),
	)
	return err
}

// RecentHistory returns up to limit commands for a room, newest first.
func (s *SQLiteStore) RecentHistory(ctx context.Context, roomID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, session_id, command, run_ts
		FROM command_history
		WHERE room_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []HistoryEntry
	for rows.Next() {
		var (
			entry HistoryEntry
			tsRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.RoomID, &entry.SessionID, &entry.Command, &tsRaw); err != nil {
			return nil, err
		}
		if t, err := time.Parse(timeLayout, tsRaw); err == nil {
			entry.RunTS = t
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) RecordSessionStart(ctx context.Context, sessionID, roomID string, at time.Time) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lab_sessions(session_id, room_id, started_ts)
		VALUES(?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			room_id = excluded.room_id,
			started_ts = excluded.started_ts,
			stopped_ts = ''
	`, sessionID, roomID, at.UTC().Format(timeLayout))
	return err
}

func (s *SQLiteStore) RecordSessionStop(ctx context.Context, sessionID string, at time.Time) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE lab_sessions SET stopped_ts = ? WHERE session_id = ?`,
		at.UTC().Format(timeLayout), sessionID)
	return err
}

// OpenSessions lists sessions this machine started and never saw stop. The
// app offers to stop them on the next launch.
func (s *SQLiteStore) OpenSessions(ctx context.Context) ([]SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, room_id, started_ts, stopped_ts
		FROM lab_sessions
		WHERE stopped_ts = ''
		ORDER BY started_ts DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SessionRecord
	for rows.Next() {
		var (
			rec        SessionRecord
			startedRaw string
			stoppedRaw string
		)
		if err := rows.Scan(&rec.SessionID, &rec.RoomID, &startedRaw, &stoppedRaw); err != nil {
			return nil, err
		}
		if t, err := time.Parse(timeLayout, startedRaw); err == nil {
			rec.StartedTS = t
		}
		if t, err := time.Parse(timeLayout, stoppedRaw); err == nil {
			rec.StoppedTS = t
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for key, value := range values {
		k := strings.TrimSpace(key)
		if k == "" {
			continue
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO app_settings(key, value) VALUES(?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, k, value); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteStore) LoadSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM app_settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const timeLayout = "2006-01-02T15:04:05Z07:00"
