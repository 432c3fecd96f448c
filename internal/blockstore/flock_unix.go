// Copyright (c) Elliot Nunn
// Licensed under the MIT license

//go:build unix

package blockstore

import (
	"fmt"
	"os"

	"github.com/cockroachdb/pebble/v2/vfs"
	"golang.org/x/sys/unix"
)

func tryLockExclusive(file vfs.File) (bool, error) {
	osFile, ok := file.(*os.File)
	if !ok {
		return false, nil
	}
	if err := unix.Flock(int(osFile.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return false, fmt.Errorf("blockstore: flock: %w", err)
	}
	return true, nil
}
