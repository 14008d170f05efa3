// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package state

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidTransition = errors.New("invalid setup state transition")

	validTransitions = map[Kind][]Kind{
		Initial:            {ActionStarted, Verifying, VerificationFailed},
		ActionStarted:      {ActionStarted, ReturnedFromAction, VerificationFailed, Verifying, Initial},
		ReturnedFromAction: {ActionStarted, Verifying, ReturnedFromAction, Initial},
		Verifying:          {Verified, VerificationFailed, Initial},
		Verified:           {Complete, Initial},
		VerificationFailed: {Verifying, ActionStarted, VerificationFailed, Initial},
		Complete:           {Verifying, ActionStarted, Initial},
	}
)

// CanTransition reports whether the edge from -> to is declared.
func CanTransition(from, to Kind) bool {
	for _, k := range validTransitions[from] {
		if k == to {
			return true
		}
	}
	return false
}

func validateTransition(from, to Kind) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: from %s to %s", ErrInvalidTransition, from, to)
	}
	return nil
}
