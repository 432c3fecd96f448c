// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package extentkey derives a stable identity for a backing-store extent,
// used by garbage collection to recognise when two directory entries share
// the same payload (a link, spec.md §4.4) rather than happening to occupy
// equal-sized but distinct extents.
package extentkey

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Key is the identity of an extent: two descriptors whose Section encodes
// to the same Key are known to reference the same bytes.
type Key uint64

// Of returns the identity key for the extent at (offset, size). The nonce
// and mac are not part of the key: garbage collection compares extents by
// location, since every link to the same payload shares the same
// (offset, size) pair by construction (see [Directory.CreateLink]).
func Of(offset, size uint32) Key {
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], offset)
	binary.LittleEndian.PutUint32(buf[4:8], size)
	return Key(xxhash.Sum64(buf[:]))
}
