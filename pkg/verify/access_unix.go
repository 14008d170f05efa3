// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

//go:build unix

package verify

import (
	"os"

	"golang.org/x/sys/unix"
)

func canWrite(path string, _ os.FileInfo) (bool, error) {
	if err := unix.Access(path, unix.W_OK|unix.X_OK); err != nil {
		if err == unix.EACCES || err == unix.EROFS || err == unix.EPERM {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
