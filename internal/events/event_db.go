// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package events

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/notewall/setupflow/internal/sqldb"
)

const createEventsTable = `
CREATE TABLE IF NOT EXISTS setup_events(
	id INTEGER PRIMARY KEY,
	json_string TEXT NOT NULL
);`

func CreateEventsTable(dbFilePath string) error {
	return sqldb.With(dbFilePath, func(db *sql.DB) error {
		if _, err := db.Exec(createEventsTable); err != nil {
			return fmt.Errorf("failed to create setup_events table: %w", err)
		}
		return nil
	})
}

// SaveEvent appends one transition to the journal. Writers queue on the
// database lock for up to sqldb.BusyTimeoutMs.
func SaveEvent(dbFilePath string, event *SetupEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event to JSON: %w", err)
	}
	return sqldb.With(dbFilePath, func(db *sql.DB) error {
		if _, err := db.Exec("INSERT INTO setup_events (json_string) VALUES (?);", string(eventJSON)); err != nil {
			return fmt.Errorf("failed to insert event into setup_events: %w", err)
		}
		return nil
	})
}

// DeleteEvents removes all events up to and including maxId, as returned by
// GetEvents.
func DeleteEvents(dbFilePath string, maxId int) error {
	return sqldb.With(dbFilePath, func(db *sql.DB) error {
		if _, err := db.Exec("DELETE FROM setup_events WHERE id <= ?;", maxId); err != nil {
			return fmt.Errorf("failed to delete events from setup_events: %w", err)
		}
		return nil
	})
}

// GetEvents returns the stored events in insertion order along with the
// highest row id, or -1 when there are none.
func GetEvents(dbFilePath string) ([]SetupEvent, int, error) {
	maxId := -1
	var eventsList []SetupEvent
	err := sqldb.With(dbFilePath, func(db *sql.DB) error {
		rows, err := db.Query("SELECT id, json_string FROM setup_events ORDER BY id;")
		if err != nil {
			return fmt.Errorf("failed to select events: %w", err)
		}
		defer func() {
			if closeErr := rows.Close(); closeErr != nil {
				slog.Error("failed to close rows", "error", closeErr)
			}
		}()

		for rows.Next() {
			var id int
			var eventData string
			if err := rows.Scan(&id, &eventData); err != nil {
				return fmt.Errorf("failed to scan event data: %w", err)
			}
			var event SetupEvent
			if err := json.Unmarshal([]byte(eventData), &event); err != nil {
				return fmt.Errorf("failed to unmarshal event %d: %w", id, err)
			}
			maxId = max(maxId, id)
			eventsList = append(eventsList, event)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating over rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, -1, err
	}
	return eventsList, maxId, nil
}
