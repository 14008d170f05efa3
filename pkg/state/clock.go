// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package state

import "time"

type (
	Timer interface {
		Stop() bool
	}

	// Clock schedules the fixed settle and display delays of the flow.
	Clock interface {
		Now() time.Time
		AfterFunc(d time.Duration, f func()) Timer
	}

	systemClock struct{}
)

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
