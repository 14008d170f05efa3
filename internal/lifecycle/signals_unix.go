// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

//go:build unix

package lifecycle

import (
	"os"

	"golang.org/x/sys/unix"
)

// SIGCONT arrives when a suspended session is resumed with fg; SIGUSR1 lets
// the external handler, or a user, report the return explicitly.
func foregroundSignals() []os.Signal {
	return []os.Signal{unix.SIGCONT, unix.SIGUSR1}
}
