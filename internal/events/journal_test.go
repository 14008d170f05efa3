// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package events

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewall/setupflow/pkg/state"
	"github.com/notewall/setupflow/pkg/verify"
)

func TestJournal_Record(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "setup.db")
	require.NoError(t, CreateEventsTable(dbPath))

	j := NewJournal(dbPath)
	_, err := uuid.Parse(j.CorrelationId())
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	result := verify.NewResult([]verify.Check{{ID: "wallpaper-file"}, {ID: "shortcut-folder"}}, "")
	j.Record(state.Transition{
		From:   state.SetupState{Kind: state.Initial},
		To:     state.SetupState{Kind: state.ActionStarted},
		Reason: state.ReasonStart,
		At:     at,
	})
	j.Record(state.Transition{
		From:   state.SetupState{Kind: state.Verifying},
		To:     state.SetupState{Kind: state.VerificationFailed, Result: &result},
		Reason: state.ReasonResult,
		At:     at,
	})

	evts, maxId, err := GetEvents(dbPath)
	require.NoError(t, err)
	require.Len(t, evts, 2)
	assert.Equal(t, 2, maxId)

	assert.Equal(t, j.CorrelationId(), evts[0].CorrelationId)
	assert.Equal(t, state.ActionStarted, evts[0].Event.To)
	assert.Equal(t, state.ReasonStart, evts[0].Event.Reason)
	assert.Equal(t, "2026-03-01T10:00:00Z", evts[0].DeviceTime)
	assert.Empty(t, evts[0].Event.Missing)
	assert.Equal(t, []string{"wallpaper-file", "shortcut-folder"}, evts[1].Event.Missing)

	// Ids are monotonic within the same millisecond
	first, err := ulid.Parse(evts[0].Id)
	require.NoError(t, err)
	second, err := ulid.Parse(evts[1].Id)
	require.NoError(t, err)
	assert.Equal(t, -1, first.Compare(second))
	assert.Equal(t, ulid.Timestamp(at), first.Time())

	require.NoError(t, DeleteEvents(dbPath, 1))
	evts, maxId, err = GetEvents(dbPath)
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Equal(t, 2, maxId)
	assert.Equal(t, state.VerificationFailed, evts[0].Event.To)
}

func TestJournal_RecordWithoutTable(t *testing.T) {
	j := NewJournal(filepath.Join(t.TempDir(), "missing", "setup.db"))
	// Must not panic; the error is only logged
	j.Record(state.Transition{To: state.SetupState{Kind: state.Verifying}, At: time.Now()})
	_, _, err := GetEvents(filepath.Join(t.TempDir(), "missing", "setup.db"))
	assert.Error(t, err)
}
