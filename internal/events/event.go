// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package events

import (
	"time"

	"github.com/notewall/setupflow/pkg/state"
)

type (
	StateEvent struct {
		From    state.Kind   `json:"from" yaml:"from"`
		To      state.Kind   `json:"to" yaml:"to"`
		Reason  state.Reason `json:"reason" yaml:"reason"`
		Missing []string     `json:"missing,omitempty" yaml:"missing,omitempty"`
		Details string       `json:"details,omitempty" yaml:"details,omitempty"`
	}

	// SetupEvent is one journal row. Id is a ULID so rows sort by creation
	// time; CorrelationId ties together all events of one session.
	SetupEvent struct {
		Id            string     `json:"id" yaml:"id"`
		CorrelationId string     `json:"correlationId" yaml:"correlationId"`
		DeviceTime    string     `json:"deviceTime" yaml:"deviceTime"`
		Event         StateEvent `json:"event" yaml:"event"`
	}
)

func NewEvent(id, correlationId string, t state.Transition) *SetupEvent {
	evt := &SetupEvent{
		Id:            id,
		CorrelationId: correlationId,
		DeviceTime:    t.At.UTC().Format(time.RFC3339Nano),
		Event: StateEvent{
			From:   t.From.Kind,
			To:     t.To.Kind,
			Reason: t.Reason,
		},
	}
	if r := t.To.Result; r != nil {
		evt.Event.Missing = r.MissingIDs()
		evt.Event.Details = r.Error
	}
	return evt
}
