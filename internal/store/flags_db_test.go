// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "setup.db")
	require.NoError(t, CreateFlagsTable(dbPath))
	return NewSQLiteStore(dbPath)
}

func TestSQLiteStore_Completion(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	complete, at, err := s.Completion(ctx)
	require.NoError(t, err)
	assert.False(t, complete)
	assert.True(t, at.IsZero())

	before := time.Now().UTC().Add(-time.Second)
	require.NoError(t, s.SetComplete(ctx, true))
	complete, at, err = s.Completion(ctx)
	require.NoError(t, err)
	assert.True(t, complete)
	assert.True(t, at.After(before))

	// Upsert keeps a single row
	require.NoError(t, s.SetComplete(ctx, false))
	complete, err = s.IsComplete(ctx)
	require.NoError(t, err)
	assert.False(t, complete)

	require.NoError(t, s.SetComplete(ctx, true))
	require.NoError(t, s.Clear(ctx))
	complete, err = s.IsComplete(ctx)
	require.NoError(t, err)
	assert.False(t, complete)
}

func TestSQLiteStore_MissingTable(t *testing.T) {
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "empty.db"),
		WithBackoff(func() backoff.BackOff { return &backoff.StopBackOff{} }))
	_, err := s.IsComplete(context.Background())
	assert.Error(t, err)
	assert.Error(t, s.SetComplete(context.Background(), true))
}
