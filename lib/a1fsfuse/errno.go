// Copyright 2026 The A1FS Authors
// SPDX-License-Identifier: Apache-2.0

package a1fsfuse

import (
	"syscall"

	"github.com/a1fs/a1fs/lib/a1fscore"
)

// toErrno recovers the syscall.Errno a core *a1fscore.Error carries.
// Any other error (there shouldn't be one) maps to EIO.
func toErrno(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	if coreErr, ok := err.(*a1fscore.Error); ok {
		return coreErr.Errno()
	}
	return syscall.EIO
}
