// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package state

import (
	"time"

	"github.com/notewall/setupflow/pkg/verify"
)

type (
	// Kind names a setup state
	Kind string

	// SetupState is the single active state of the setup flow. Result is only
	// set for VerificationFailed.
	SetupState struct {
		Kind   Kind
		Result *verify.Result
	}

	// Reason names the operation that caused a transition
	Reason string

	Transition struct {
		From   SetupState
		To     SetupState
		Reason Reason
		At     time.Time
	}

	// Listener is notified of every transition, in order, outside the
	// machine lock. It may call back into the machine.
	Listener func(Transition)
)

const (
	Initial            Kind = "Initial"
	ActionStarted      Kind = "ActionStarted"
	ReturnedFromAction Kind = "ReturnedFromAction"
	Verifying          Kind = "Verifying"
	Verified           Kind = "Verified"
	VerificationFailed Kind = "VerificationFailed"
	Complete           Kind = "Complete"
)

const (
	ReasonStart        Reason = "start"
	ReasonLaunchFailed Reason = "launch-failed"
	ReasonForeground   Reason = "foreground"
	ReasonAutoVerify   Reason = "auto-verify"
	ReasonVerify       Reason = "verify"
	ReasonRetry        Reason = "retry"
	ReasonReopen       Reason = "reopen"
	ReasonResult       Reason = "result"
	ReasonAutoComplete Reason = "auto-complete"
	ReasonReset        Reason = "reset"
)

func (s SetupState) String() string {
	if s.Kind == VerificationFailed && s.Result != nil {
		return string(s.Kind) + "(" + s.Result.Summary() + ")"
	}
	return string(s.Kind)
}

// IsTerminal reports whether the state waits for user input before anything
// else happens.
func (s SetupState) IsTerminal() bool {
	return s.Kind == Complete || s.Kind == VerificationFailed
}
