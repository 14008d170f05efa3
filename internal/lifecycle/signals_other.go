// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

//go:build !unix

package lifecycle

import "os"

func foregroundSignals() []os.Signal {
	return nil
}
