// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package sqldb

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"
)

// BusyTimeoutMs is how long a connection waits for a lock held by another
// connection or process before failing with SQLITE_BUSY.
const BusyTimeoutMs = 5000

// DSN returns the data source name of the database at path. Every connection
// of the pool gets the busy timeout.
func DSN(path string) string {
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)", path, BusyTimeoutMs)
}

// Open opens the setup database. The returned handle must be released with
// Close.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func Close(db *sql.DB) {
	if closeErr := db.Close(); closeErr != nil {
		slog.Error("failed to close database", "error", closeErr)
	}
}

// With opens the database at path for the duration of f
func With(path string, f func(db *sql.DB) error) error {
	db, err := Open(path)
	if err != nil {
		return err
	}
	defer Close(db)
	return f(db)
}

// IsBusy reports whether err is a lock conflict that outlived the busy timeout
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
