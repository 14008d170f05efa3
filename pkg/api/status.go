// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"context"
	"fmt"
	"time"

	"github.com/notewall/setupflow/internal/db"
	"github.com/notewall/setupflow/internal/events"
	"github.com/notewall/setupflow/internal/store"
	"github.com/notewall/setupflow/pkg/config"
)

type (
	SetupStatus struct {
		Complete    bool               `json:"complete" yaml:"complete"`
		UpdatedAt   *time.Time         `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
		LastEvent   *events.SetupEvent `json:"last_event,omitempty" yaml:"last_event,omitempty"`
		EventsCount int                `json:"events_count" yaml:"events_count"`
	}
)

func Status(ctx context.Context, cfg *config.Config) (*SetupStatus, error) {
	if err := db.InitializeDatabase(cfg.GetDBPath()); err != nil {
		return nil, err
	}
	complete, updatedAt, err := store.NewSQLiteStore(cfg.GetDBPath()).Completion(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read completion flag: %w", err)
	}
	evts, _, err := events.GetEvents(cfg.GetDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read setup events: %w", err)
	}
	s := &SetupStatus{Complete: complete, EventsCount: len(evts)}
	if !updatedAt.IsZero() {
		s.UpdatedAt = &updatedAt
	}
	if len(evts) > 0 {
		s.LastEvent = &evts[len(evts)-1]
	}
	return s, nil
}

// Events returns the recorded transitions, oldest first
func Events(cfg *config.Config) ([]events.SetupEvent, error) {
	if err := db.InitializeDatabase(cfg.GetDBPath()); err != nil {
		return nil, err
	}
	evts, _, err := events.GetEvents(cfg.GetDBPath())
	return evts, err
}

// ClearEvents deletes the recorded transitions and returns how many were removed
func ClearEvents(cfg *config.Config) (int, error) {
	if err := db.InitializeDatabase(cfg.GetDBPath()); err != nil {
		return 0, err
	}
	evts, maxId, err := events.GetEvents(cfg.GetDBPath())
	if err != nil {
		return 0, err
	}
	if len(evts) == 0 {
		return 0, nil
	}
	return len(evts), events.DeleteEvents(cfg.GetDBPath(), maxId)
}

// Reset clears the persisted completion flag so the next session starts over
func Reset(ctx context.Context, cfg *config.Config) error {
	if err := db.InitializeDatabase(cfg.GetDBPath()); err != nil {
		return err
	}
	if err := store.NewSQLiteStore(cfg.GetDBPath()).Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear completion flag: %w", err)
	}
	return nil
}
