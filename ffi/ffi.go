// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package ffi exposes PAKS's in-memory archive operations behind an
// opaque-handle surface suitable for a host embedder to drive directly,
// without linking paks's Go types into its own code.
//
// Grounded on original_source's wasm/src/lib.rs: key_parse, paks_open/
// paks_close, paks_ls's directories-first-then-name sort, and paks_read.
// spec.md §1 scopes only this surface, not a wasm or cgo build harness, so
// this package is an ordinary Go API a host links against rather than a
// fabricated wasm/cgo target.
package ffi

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/elliotnunn/paks"
)

// archive is the subset of [paks.MemoryReader] and [paks.MemoryEditor]
// this package needs: both already satisfy it.
type archive interface {
	Directory() *paks.Directory
	ReadFile(path string) ([]byte, error)
}

// Handle names an archive opened through this package. The zero Handle is
// never issued and is always invalid.
type Handle uint64

var (
	nextHandle atomic.Uint64
	registry   sync.Map // Handle -> archive
)

func register(a archive) Handle {
	h := Handle(nextHandle.Add(1))
	registry.Store(h, a)
	return h
}

func lookup(h Handle) (archive, error) {
	v, ok := registry.Load(h)
	if !ok {
		return nil, fmt.Errorf("ffi: unknown handle %d", h)
	}
	return v.(archive), nil
}

// KeyParse parses a hexadecimal string (up to 32 characters) as a PAKS key.
func KeyParse(hex string) (paks.Key, error) {
	return paks.ParseKey(hex)
}

// ArchiveNew creates a brand-new, empty in-memory archive sealed under key
// and returns a handle to it open for editing. rng overrides the default
// crypto/rand nonce source, for hosts that supply their own entropy (e.g. a
// wasm host's random_bytes import) — pass nil to keep the default.
func ArchiveNew(key paks.Key, rng paks.RandomSource) Handle {
	e := paks.NewMemoryEditor(key)
	if rng != nil {
		e.SetRandomSource(rng)
	}
	return register(e)
}

// ArchiveOpen parses data as a finished archive sealed under key and
// returns a handle to it open for reading.
func ArchiveOpen(data []byte, key paks.Key) (Handle, error) {
	r, err := paks.OpenMemory(data, key)
	if err != nil {
		return 0, err
	}
	return register(r), nil
}

// ArchiveClose discards the handle. Any edits made through a handle
// returned by [ArchiveNew] must be retrieved with [ArchiveFinish] first;
// ArchiveClose alone does not persist them anywhere.
func ArchiveClose(h Handle) {
	registry.Delete(h)
}

// ArchiveFinish seals the archive opened by [ArchiveNew] at h and returns
// its complete bytes. h is closed as a side effect, matching
// original_source's paks_close being called by the host right after it
// retrieves the finished bytes.
func ArchiveFinish(h Handle) ([]byte, error) {
	v, ok := registry.Load(h)
	if !ok {
		return nil, fmt.Errorf("ffi: unknown handle %d", h)
	}
	e, ok := v.(*paks.MemoryEditor)
	if !ok {
		return nil, fmt.Errorf("ffi: handle %d is not open for editing", h)
	}
	defer registry.Delete(h)
	return e.Finish()
}

// LsEntry is one node of the JSON tree [Ls] returns: a File has no
// Children, a Dir has no Size.
type LsEntry struct {
	Type     string    `json:"ty"`
	Name     string    `json:"name"`
	Size     uint32    `json:"size,omitempty"`
	Children []LsEntry `json:"children,omitempty"`
}

// Ls returns the archive's directory tree as the JSON-friendly shape
// original_source's paks_ls emits: each level sorted directories-first,
// then alphabetically within each kind (not the engine's own insertion
// order, which [paks.Directory.WriteTree] preserves instead).
func Ls(h Handle) (LsEntry, error) {
	a, err := lookup(h)
	if err != nil {
		return LsEntry{}, err
	}
	dir := a.Directory()
	children := lsChildren(dir, 0)
	return LsEntry{Type: "Dir", Name: "", Children: children}, nil
}

func lsChildren(dir *paks.Directory, parent int) []LsEntry {
	entries := dir.Entries()
	out := make([]LsEntry, 0)
	for i := parent + 1; i < subtreeEnd(entries, parent); {
		d := entries[i]
		name := string(d.Name())
		if d.IsDir() {
			out = append(out, LsEntry{Type: "Dir", Name: name, Children: lsChildren(dir, i)})
			i = subtreeEnd(entries, i)
		} else {
			out = append(out, LsEntry{Type: "File", Name: name, Size: d.ContentSize})
			i++
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.Type == "Dir") != (b.Type == "Dir") {
			return a.Type == "Dir"
		}
		return a.Name < b.Name
	})
	return out
}

func subtreeEnd(entries []paks.Descriptor, i int) int {
	if entries[i].IsFile() {
		return i + 1
	}
	return i + 1 + int(entries[i].ContentSize)
}

// Read returns the decrypted content of the file at path.
func Read(h Handle, path string) ([]byte, error) {
	a, err := lookup(h)
	if err != nil {
		return nil, err
	}
	return a.ReadFile(path)
}
