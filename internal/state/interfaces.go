package state

import (
	"context"
	"time"
)

// HistoryEntry is one executed lab command, recorded for recall across runs.
type HistoryEntry struct {
	ID        int64
	RoomID    string
	SessionID string
	Command   string
	RunTS     time.Time
}

// SessionRecord tracks a lab session's lifetime on this machine. Stopped
// sessions keep their row so the dashboard can show recent activity.
type SessionRecord struct {
	SessionID string
	RoomID    string
	StartedTS time.Time
	StoppedTS time.Time
}

// Store is the local persistence surface. The app depends on this interface;
// SQLiteStore is the only implementation.
type Store interface {
	EnsureSchema(ctx context.Context) error
	AppendHistory(ctx context.Context, entry HistoryEntry) error
	RecentHistory(ctx context.Context, roomID string, limit int) ([]HistoryEntry, error)
	RecordSessionStart(ctx context.Context, sessionID, roomID string, at time.Time) error
	RecordSessionStop(ctx context.Context, sessionID string, at time.Time) error
	OpenSessions(ctx context.Context) ([]SessionRecord, error)
	SaveSettings(ctx context.Context, values map[string]string) error
	LoadSettings(ctx context.Context) (map[string]string, error)
	Close() error
}
