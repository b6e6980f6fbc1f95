// pkg/watermark/watermark.go
package watermark

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultKey is the settings key holding the last successful run time
const DefaultKey = "last_pluto_update"

// settingsDB is the slice of the sqlx handle the store needs
type settingsDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Store persists the incremental-run watermark in the single-row-per-key
// system_settings table. One timestamp per key, overwritten at the end of
// each successful run.
type Store struct {
	db     settingsDB
	logger *zap.Logger
	key    string
}

// NewStore creates a watermark store for the given settings key
func NewStore(db settingsDB, key string, logger *zap.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{
		db:     db,
		logger: logger.Named("watermark"),
		key:    key,
	}
}

// EnsureTable creates the system_settings table when it does not exist
// yet. The destination table itself is a migration concern; the settings
// table is small enough to bootstrap here.
func (s *Store) EnsureTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS system_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create system_settings table: %w", err)
	}
	return nil
}

// Read returns the persisted watermark. A missing key or a read error
// both default to the epoch: "load everything" is always the safe answer.
func (s *Store) Read(ctx context.Context) time.Time {
	var value string
	err := s.db.GetContext(ctx, &value,
		"SELECT value FROM system_settings WHERE key = $1", s.key)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Failed to read watermark, defaulting to epoch",
				zap.String("key", s.key),
				zap.Error(err))
		}
		return time.Unix(0, 0).UTC()
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		s.logger.Warn("Unparsable watermark value, defaulting to epoch",
			zap.String("key", s.key),
			zap.String("value", value),
			zap.Error(err))
		return time.Unix(0, 0).UTC()
	}

	return t
}

// Write overwrites the watermark. Failure is reported to the caller but
// is not fatal to an already-completed load: the data is durable, only
// the next run's incremental boundary is lost.
func (s *Store) Write(ctx context.Context, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, s.key, t.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("write watermark %s: %w", s.key, err)
	}

	s.logger.Info("Advanced watermark",
		zap.String("key", s.key),
		zap.Time("value", t))

	return nil
}
