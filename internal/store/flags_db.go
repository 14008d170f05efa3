// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/notewall/setupflow/internal/sqldb"
)

const setupCompleteKey = "setup_complete"

type (
	// SQLiteStore keeps the setup completion flag in the setup_flags table
	SQLiteStore struct {
		dbFilePath string
		newBackoff func() backoff.BackOff
	}
	StoreOpt func(*SQLiteStore)
)

// WithBackoff sets the retry policy used when a write still finds the
// database locked after the busy timeout.
func WithBackoff(newBackoff func() backoff.BackOff) StoreOpt {
	return func(s *SQLiteStore) {
		if newBackoff != nil {
			s.newBackoff = newBackoff
		}
	}
}

func NewSQLiteStore(dbFilePath string, options ...StoreOpt) *SQLiteStore {
	s := &SQLiteStore{
		dbFilePath: dbFilePath,
		newBackoff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(50*time.Millisecond),
				backoff.WithMaxInterval(500*time.Millisecond),
				backoff.WithMaxElapsedTime(5*time.Second),
			)
		},
	}
	for _, o := range options {
		o(s)
	}
	return s
}

func CreateFlagsTable(dbFilePath string) error {
	return sqldb.With(dbFilePath, func(db *sql.DB) error {
		_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS setup_flags(
	key TEXT PRIMARY KEY,
	value INTEGER NOT NULL CHECK (value IN (0,1)) DEFAULT 0,
	updated_at TEXT NOT NULL DEFAULT ""
);`)
		if err != nil {
			return fmt.Errorf("failed to create setup_flags table: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) SetComplete(ctx context.Context, complete bool) error {
	slog.Debug("saving setup completion flag", "complete", complete)
	return s.write(ctx,
		"INSERT INTO setup_flags (key, value, updated_at) VALUES (?,?,?) "+
			"ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;",
		setupCompleteKey, complete, time.Now().UTC().Format(time.RFC3339))
}

func (s *SQLiteStore) IsComplete(ctx context.Context) (bool, error) {
	complete, _, err := s.Completion(ctx)
	return complete, err
}

// Completion returns the flag along with the time it was last written. The
// time is zero if the flag was never written.
func (s *SQLiteStore) Completion(ctx context.Context) (bool, time.Time, error) {
	var complete bool
	var updatedAt string
	err := sqldb.With(s.dbFilePath, func(db *sql.DB) error {
		return db.QueryRowContext(ctx, "SELECT value, updated_at FROM setup_flags WHERE key = ?;", setupCompleteKey).
			Scan(&complete, &updatedAt)
	})
	if err == sql.ErrNoRows {
		return false, time.Time{}, nil
	} else if err != nil {
		return false, time.Time{}, fmt.Errorf("failed to select setup_flags: %w", err)
	}
	at, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		slog.Debug("invalid flag timestamp", "value", updatedAt, "error", err)
		at = time.Time{}
	}
	return complete, at, nil
}

// Clear forgets the completion flag so the next run starts from Initial
func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.write(ctx, "DELETE FROM setup_flags WHERE key = ?;", setupCompleteKey)
}

func (s *SQLiteStore) write(ctx context.Context, query string, args ...any) error {
	op := func() error {
		err := sqldb.With(s.dbFilePath, func(db *sql.DB) error {
			_, err := db.ExecContext(ctx, query, args...)
			return err
		})
		if err == nil {
			return nil
		}
		if sqldb.IsBusy(err) {
			slog.Debug("database is busy, retrying", "error", err)
			return err
		}
		return backoff.Permanent(fmt.Errorf("failed to update setup_flags: %w", err))
	}
	return backoff.Retry(op, backoff.WithContext(s.newBackoff(), ctx))
}
