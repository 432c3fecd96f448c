// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package payloadcache caches decrypted section payloads keyed by their
// (offset, size) in the backing store, so that repeated reads of the same
// file or shared link do not pay for AES-GCM decryption every time.
// Payloads are decrypted whole (spec.md §1 Non-goals: no partial/streaming
// decryption), so unlike a block cache the unit cached here is an entire
// section.
package payloadcache

import (
	"hash/maphash"

	"github.com/dgryski/go-tinylfu"
)

var seed = maphash.MakeSeed()

// Key identifies a cached payload by its section's location in the backing
// store.
type Key struct {
	Offset uint32
	Size   uint32
}

func hashKey(k Key) uint64 { return maphash.Comparable(seed, k) }

// Cache is a bounded, decrypted-payload cache. The zero value is not
// usable; use [New].
type Cache struct {
	c *tinylfu.T[Key, []byte]
}

// New returns a Cache holding at most capacity payloads, admitting
// candidates over a window of capacity*10 samples (the ratio the teacher's
// own block cache uses).
func New(capacity int) *Cache {
	return &Cache{c: tinylfu.New[Key, []byte](capacity, capacity*10, hashKey, tinylfu.OnEvict(evict))}
}

// evict zeroes an evicted payload before it is dropped, since it held
// decrypted archive content.
func evict(_ Key, v []byte) {
	for i := range v {
		v[i] = 0
	}
}

// Get returns the cached payload for key, if present. The returned slice is
// shared with the cache and must not be mutated by the caller.
func (c *Cache) Get(key Key) ([]byte, bool) {
	return c.c.Get(key)
}

// Add inserts payload under key, possibly evicting another entry. Entries
// are never explicitly invalidated: a (offset, size) key is only ever
// associated with one payload for the lifetime of the backing store, since
// writes are append-only and garbage collection reassigns offsets rather
// than overwriting live ones in place.
func (c *Cache) Add(key Key, payload []byte) {
	c.c.Add(key, payload)
}
