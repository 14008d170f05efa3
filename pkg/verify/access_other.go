// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

//go:build !unix

package verify

import (
	"os"
)

func canWrite(_ string, info os.FileInfo) (bool, error) {
	return info.Mode().Perm()&0o200 != 0, nil
}
