// Copyright (c) 2013-2014 Conformal Systems LLC.
// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build !windows && !plan9

package limits

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const (
	// fileLimitWant leaves room for the pebble backend, which keeps up to
	// 1024 table files open by default.
	fileLimitWant = 2048
	fileLimitMin  = 1024
)

// SetLimits raises the open file soft limit of the process so the database
// backends can keep their tables open.
func SetLimits() error {
	var rLimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rLimit); err != nil {
		return err
	}
	if rLimit.Cur >= fileLimitWant {
		return nil
	}
	if rLimit.Max < fileLimitMin {
		return fmt.Errorf("need at least %v file descriptors, hard "+
			"limit is %v", fileLimitMin, rLimit.Max)
	}

	rLimit.Cur = min(rLimit.Max, fileLimitWant)
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &rLimit); err != nil {
		// Fall back to the minimum.
		rLimit.Cur = fileLimitMin
		return unix.Setrlimit(unix.RLIMIT_NOFILE, &rLimit)
	}
	return nil
}
