// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package verify

import (
	"fmt"
	"strings"
	"time"
)

// Result is the outcome of one verification run. A new Result is produced on
// every run and is never modified afterwards.
type Result struct {
	Verified  bool      `json:"verified" yaml:"verified"`
	Missing   []Check   `json:"missing" yaml:"missing"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at" yaml:"checked_at"`
}

// NewResult builds a Result out of the failed checks; Verified is true iff
// missing is empty.
func NewResult(missing []Check, rawErr string) Result {
	m := make([]Check, len(missing))
	copy(m, missing)
	return Result{
		Verified:  len(m) == 0,
		Missing:   m,
		Error:     rawErr,
		CheckedAt: time.Now(),
	}
}

func (r Result) MissingIDs() []string {
	ids := make([]string, 0, len(r.Missing))
	for _, c := range r.Missing {
		ids = append(ids, c.ID)
	}
	return ids
}

// Messages returns the remediation text of every failed check in order.
func (r Result) Messages() []string {
	msgs := make([]string, 0, len(r.Missing))
	for _, c := range r.Missing {
		msg := strings.TrimSpace(c.Remediation)
		if msg == "" {
			msg = c.Name
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

// PrimaryMessage is the message to surface first when the run failed.
func (r Result) PrimaryMessage() string {
	if r.Verified {
		return ""
	}
	if msgs := r.Messages(); len(msgs) > 0 {
		return msgs[0]
	}
	if r.Error != "" {
		return r.Error
	}
	return "setup could not be verified"
}

func (r Result) Summary() string {
	if r.Verified {
		return "all setup checks passed"
	}
	return fmt.Sprintf("%d setup check(s) failed: %s", len(r.Missing), strings.Join(r.MissingIDs(), ", "))
}
