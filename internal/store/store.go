// Package store persists the project snapshot: the topic, the scene list
// without decoded audio, and the save time. One snapshot exists at a time;
// it is overwritten on every save, read once at startup to offer resumption,
// and deleted on explicit restart.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"reelforge/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshot (
	id       INTEGER PRIMARY KEY CHECK (id = 1),
	payload  BLOB NOT NULL,
	saved_at TEXT NOT NULL
);
`

// Store is a sqlite-backed snapshot store. A single connection is enough:
// every write already goes through the pipeline's save gate.
type Store struct {
	conn *sql.DB
}

// Open creates or opens the snapshot database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create snapshot schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Save overwrites the snapshot with the current scene list. The decoded
// audio buffer is excluded from the payload by the scene's own serialization.
func (s *Store) Save(ctx context.Context, topic string, scenes []*domain.Scene) error {
	snap := domain.Snapshot{
		Topic:   topic,
		Scenes:  scenes,
		SavedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO snapshot (id, payload, saved_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at`,
		payload, snap.SavedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Load reads the stored snapshot. The second return value reports whether
// one exists. Callers needing decoded audio re-derive it from the encoded
// bytes via media.Rehydrate.
func (s *Store) Load(ctx context.Context) (*domain.Snapshot, bool, error) {
	var payload []byte
	err := s.conn.QueryRowContext(ctx, "SELECT payload FROM snapshot WHERE id = 1").Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, true, nil
}

// Clear deletes the snapshot. Used on explicit restart.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM snapshot WHERE id = 1"); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}
