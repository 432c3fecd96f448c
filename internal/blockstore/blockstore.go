// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package blockstore narrows the archive engine's storage needs down to the
// operations it actually uses (spec.md §9 "Backend abstraction"):
// positioned reads, positioned writes, high-water-mark append, and durable
// sync, plus the size and close housekeeping. A [Store] is the seam between the archive format and the bytes it
// lives in, the same role internal/singlefilefs played for the teacher's
// mounted filesystem.
package blockstore

import (
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble/v2/vfs"
)

// Store is the narrow capability an editor needs from its backing storage.
type Store interface {
	// ReadAt reads len(p) bytes starting at byte offset off.
	ReadAt(p []byte, off int64) (int, error)
	// WriteAt writes p at byte offset off, growing the store if the write
	// extends past its current end.
	WriteAt(p []byte, off int64) (int, error)
	// Append writes p at the current end of the store and returns the byte
	// offset it was written at.
	Append(p []byte) (int64, error)
	// Size returns the current length of the store in bytes.
	Size() int64
	// Sync flushes any buffered writes to durable storage.
	Sync() error
	// Close releases any resources held by the store.
	Close() error
}

// MemStore is an in-memory [Store] backed by a growable byte slice, used by
// the archive format's in-memory editor and by tests that want a backend
// with no real I/O.
type MemStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{}
}

func (m *MemStore) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if off < 0 || off > int64(len(m.data)) {
		return 0, fmt.Errorf("blockstore: read at %d out of range (size %d)", off, len(m.data))
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, fmt.Errorf("blockstore: short read at %d: got %d of %d bytes", off, n, len(p))
	}
	return n, nil
}

func (m *MemStore) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	end := off + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	return copy(m.data[off:end], p), nil
}

func (m *MemStore) Append(p []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	off := int64(len(m.data))
	m.data = append(m.data, p...)
	return off, nil
}

func (m *MemStore) Size() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.data))
}

func (m *MemStore) Sync() error { return nil }
func (m *MemStore) Close() error { return nil }

// FileStore is a [Store] backed by a real (or virtual, for testing) OS
// file, reached through pebble's vfs abstraction exactly the way the
// teacher's on-disk dependency uses it internally: so the archive format
// can be exercised against vfs.NewMem() in tests with no real disk I/O, and
// against the live filesystem in production via vfs.Default.
type FileStore struct {
	mu   sync.Mutex
	fs   vfs.FS
	file vfs.File
	size int64
}

// OpenFileStore opens (or creates, if create is true) path on fsys as a
// FileStore.
func OpenFileStore(fsys vfs.FS, path string, create bool) (*FileStore, error) {
	if fsys == nil {
		fsys = vfs.Default
	}
	var f vfs.File
	var err error
	if create {
		f, err = fsys.Create(path)
	} else {
		f, err = fsys.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("blockstore: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("blockstore: stat %s: %w", path, err)
	}
	return &FileStore{fs: fsys, file: f, size: info.Size()}, nil
}

// TryLockExclusive takes an advisory, non-blocking exclusive lock on the
// store's underlying OS file, if it is a real file rather than a test
// double (e.g. vfs.NewMem()). It reports whether a lock was actually taken;
// callers running against an in-memory vfs should treat false as
// unsupported, not as a failure to acquire. See flock_unix.go / flock_other.go.
func (f *FileStore) TryLockExclusive() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return tryLockExclusive(f.file)
}

func (f *FileStore) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.file.ReadAt(p, off)
	if err != nil {
		return n, fmt.Errorf("blockstore: read at %d: %w", off, err)
	}
	return n, nil
}

func (f *FileStore) WriteAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.file.WriteAt(p, off)
	if err != nil {
		return n, fmt.Errorf("blockstore: write at %d: %w", off, err)
	}
	if end := off + int64(n); end > f.size {
		f.size = end
	}
	return n, nil
}

func (f *FileStore) Append(p []byte) (int64, error) {
	f.mu.Lock()
	off := f.size
	f.mu.Unlock()
	n, err := f.WriteAt(p, off)
	if err != nil {
		return 0, err
	}
	_ = n
	return off, nil
}

func (f *FileStore) Size() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

func (f *FileStore) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Sync()
}

func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}
