// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type (
	// EvaluateFunc reports whether a single setup condition currently holds.
	// Evaluators only read device, filesystem or configuration state.
	EvaluateFunc func(ctx context.Context) (bool, error)

	// Check is one independently testable condition that must hold for the
	// setup to count as complete.
	Check struct {
		ID          string       `json:"id" yaml:"id"`
		Name        string       `json:"name" yaml:"name"`
		Remediation string       `json:"remediation" yaml:"remediation"`
		Evaluate    EvaluateFunc `json:"-" yaml:"-"`
	}

	// Registry is the fixed, ordered list of checks a verification run evaluates.
	Registry struct {
		checks []Check
		index  map[string]int
	}
)

const (
	LaunchFailedID = "external-handler-launch"
)

var (
	ErrEmptyCheckID     = errors.New("check id must not be empty")
	ErrDuplicateCheckID = errors.New("duplicate check id")
	ErrNoEvaluator      = errors.New("check has no evaluator")
)

func NewRegistry(checks ...Check) (*Registry, error) {
	r := &Registry{
		checks: make([]Check, 0, len(checks)),
		index:  make(map[string]int, len(checks)),
	}
	for i, c := range checks {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			return nil, fmt.Errorf("check #%d: %w", i, ErrEmptyCheckID)
		}
		if _, exists := r.index[id]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateCheckID, id)
		}
		c.ID = id
		if c.Name == "" {
			c.Name = id
		}
		r.index[id] = len(r.checks)
		r.checks = append(r.checks, c)
	}
	return r, nil
}

// Checks returns a copy of the registered checks in registry order.
func (r *Registry) Checks() []Check {
	out := make([]Check, len(r.checks))
	copy(out, r.checks)
	return out
}

func (r *Registry) Len() int {
	return len(r.checks)
}

func (r *Registry) Get(id string) (Check, bool) {
	i, ok := r.index[id]
	if !ok {
		return Check{}, false
	}
	return r.checks[i], true
}

// LaunchFailed is the synthetic check reported when the external handler
// could not be opened at all.
func LaunchFailed(detail string) Check {
	remediation := "The automation app could not be opened. Make sure it is installed, then tap \"Open again\"."
	if detail = strings.TrimSpace(detail); detail != "" {
		remediation += " (" + detail + ")"
	}
	return Check{
		ID:          LaunchFailedID,
		Name:        "Open external handler",
		Remediation: remediation,
		Evaluate:    Static(false),
	}
}
