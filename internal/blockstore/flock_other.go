// Copyright (c) Elliot Nunn
// Licensed under the MIT license

//go:build !unix

package blockstore

import "github.com/cockroachdb/pebble/v2/vfs"

func tryLockExclusive(file vfs.File) (bool, error) {
	return false, nil
}
