// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package events

import (
	"log/slog"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/notewall/setupflow/pkg/state"
)

// Journal persists every state transition of one setup session
type Journal struct {
	dbFilePath    string
	correlationId string

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewJournal(dbFilePath string) *Journal {
	return &Journal{
		dbFilePath:    dbFilePath,
		correlationId: uuid.New().String(),
	}
}

func (j *Journal) CorrelationId() string {
	return j.correlationId
}

func (j *Journal) newId(t state.Transition) string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.entropy == nil {
		j.entropy = ulid.Monotonic(rand.New(rand.NewSource(t.At.UnixNano())), 0)
	}
	return ulid.MustNew(ulid.Timestamp(t.At), j.entropy).String()
}

// Record stores the transition; it has the state.Listener signature. A
// failing write is logged and never interrupts the flow.
func (j *Journal) Record(t state.Transition) {
	evt := NewEvent(j.newId(t), j.correlationId, t)
	if err := SaveEvent(j.dbFilePath, evt); err != nil {
		slog.Error("failed to record setup event", "to", t.To.Kind, "error", err)
	}
}
