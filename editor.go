// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package paks

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/elliotnunn/paks/internal/blockstore"
	"github.com/elliotnunn/paks/internal/payloadcache"
)

// payloadCacheCapacity is the number of decrypted sections an editor keeps
// warm. Chosen the same way the teacher sizes its own block cache: a small
// constant, not derived from archive size.
const payloadCacheCapacity = 256

// editor is the shared core behind [MemoryEditor] and [FileEditor]: an
// append-only block pool plus a mutable [Directory]. Both backends embed
// one and differ only in what implements blockstore.Store and in how
// Finish durably commits. Mirrors the duplicated editor logic in
// original_source's memory and file_io editors, centralised here.
type editor struct {
	store    blockstore.Store
	dir      *Directory
	key      Key
	rng      RandomSource
	highMark uint32 // next free block offset
	cache    *payloadcache.Cache
	log      *slog.Logger
}

func newEditor(store blockstore.Store, key Key, dir *Directory, highMark uint32) *editor {
	return &editor{
		store:    store,
		dir:      dir,
		key:      key,
		rng:      CryptoRandSource,
		highMark: highMark,
		cache:    payloadcache.New(payloadCacheCapacity),
		log:      slog.Default(),
	}
}

// SetRandomSource overrides the editor's nonce source, for hosts embedding
// the engine behind their own entropy (spec.md §9 "Randomness").
func (e *editor) SetRandomSource(rng RandomSource) {
	e.rng = rng
}

// allocate reserves nBlocks blocks at the current high-water mark and
// returns their starting block offset, bumping the mark.
func (e *editor) allocate(nBlocks uint32) uint32 {
	off := e.highMark
	e.highMark += nBlocks
	return off
}

// writeExtent encrypts data under a freshly allocated extent and appends it
// to the store, returning the Section describing it. data is padded with
// zeros to a whole number of blocks before sealing, per spec.md §2: "every
// extent is an integral number of blocks; any final partial block is
// zero-padded before encryption."
func (e *editor) writeExtent(data []byte) (Section, error) {
	nBlocks := uint32(BlocksForBytes(len(data)))
	section, err := writeExtentTo(e.store, data, e.key, e.rng, e.allocate(nBlocks), nBlocks)
	if err != nil {
		return Section{}, wrapError(ErrKindIO, "", err)
	}
	e.cache.Add(payloadcache.Key{Offset: section.Offset, Size: section.Size}, bytes.Clone(data))
	return section, nil
}

// writeExtentTo seals data (zero-padded to a whole number of blocks) and
// appends it to store at the given offset/size, which the caller must have
// already reserved. It is the allocation-free core shared by
// editor.writeExtent and garbage collection's extent-by-extent rewrite.
func writeExtentTo(store blockstore.Store, data []byte, key Key, rng RandomSource, offset, nBlocks uint32) (Section, error) {
	padded := make([]byte, nBlocks*BlockSize)
	copy(padded, data)
	section := Section{Offset: offset, Size: nBlocks}
	if err := encryptSectionBuf(padded, &section, key, rng); err != nil {
		return Section{}, err
	}
	if _, err := store.Append(padded); err != nil {
		return Section{}, err
	}
	return section, nil
}

// readExtent decrypts the payload named by section, trusting contentSize
// (a separately stored, authenticated count) to trim the zero padding back
// off.
func (e *editor) readExtent(section Section, contentSize uint32) ([]byte, error) {
	if section.IsEmpty() {
		return nil, nil
	}
	cacheKey := payloadcache.Key{Offset: section.Offset, Size: section.Size}
	if cached, ok := e.cache.Get(cacheKey); ok && uint32(len(cached)) >= contentSize {
		out := make([]byte, contentSize)
		copy(out, cached)
		return out, nil
	}

	buf := make([]byte, section.Size*BlockSize)
	if _, err := e.store.ReadAt(buf, int64(section.Offset)*BlockSize); err != nil {
		return nil, wrapError(ErrKindIO, "", err)
	}
	if !decryptSection(buf, section, e.key) {
		return nil, newError(ErrKindInvalidData, "section failed to authenticate: wrong key or corrupt archive")
	}
	if contentSize > uint32(len(buf)) {
		return nil, newErrorf(ErrKindInvalidData, "content size %d exceeds section capacity %d", contentSize, len(buf))
	}
	e.cache.Add(cacheKey, bytes.Clone(buf[:contentSize]))
	return buf[:contentSize], nil
}

// CreateFile writes data as a new file at path.
func (e *editor) CreateFile(path string, data []byte) error {
	section, err := e.writeExtent(data)
	if err != nil {
		return errPath(err, path)
	}
	desc := NewFileDescriptor(nil)
	desc.Section = section
	desc.ContentSize = uint32(len(data))
	_, err = e.dir.Create(path, desc)
	return errPath(err, path)
}

// WriteFile replaces the content of the existing file at path, always
// allocating a fresh extent (spec.md §4.3: files are never overwritten
// in place).
func (e *editor) WriteFile(path string, data []byte) error {
	i := e.dir.Find(path)
	if i < 0 {
		return errPath(ErrNotExist, path)
	}
	if e.dir.entries[i].IsDir() {
		return errPath(ErrNotDir, path)
	}
	section, err := e.writeExtent(data)
	if err != nil {
		return errPath(err, path)
	}
	e.dir.entries[i].Section = section
	e.dir.entries[i].ContentSize = uint32(len(data))
	return nil
}

// ReadFile returns the decrypted content of the file at path.
func (e *editor) ReadFile(path string) ([]byte, error) {
	desc, ok := e.dir.FindDesc(path)
	if !ok {
		return nil, errPath(ErrNotExist, path)
	}
	if desc.IsDir() {
		return nil, errPath(ErrNotDir, path)
	}
	data, err := e.readExtent(desc.Section, desc.ContentSize)
	return data, errPath(err, path)
}

// CreateDir creates an empty directory at path.
func (e *editor) CreateDir(path string) error {
	_, err := e.dir.CreateDir(path)
	return errPath(err, path)
}

// Remove deletes the entry at path, whole subtree included.
func (e *editor) Remove(path string) error {
	return errPath(e.dir.Remove(path), path)
}

// Move renames or relocates the entry at srcPath to dstPath.
func (e *editor) Move(srcPath, dstPath string) error {
	return errPath(e.dir.MoveFile(srcPath, dstPath), srcPath)
}

// Link creates a new name for an existing file's content without copying
// it (spec.md §4.4).
func (e *editor) Link(path, existingPath string) error {
	_, err := e.dir.CreateLink(path, existingPath)
	return errPath(err, path)
}

// Directory exposes the editor's live directory tree for listing, walking,
// and pretty-printing.
func (e *editor) Directory() *Directory {
	return e.dir
}

// Fsck validates the current directory tree's structural invariants
// (spec.md §4.5) against this editor's own high-water mark.
func (e *editor) Fsck(log *strings.Builder) bool {
	return e.dir.Fsck(e.highMark, log)
}

// directoryExtent encodes the current directory tree into a flat buffer
// suitable for sealing as the archive's directory section.
func (e *editor) directoryExtent() []byte {
	entries := e.dir.Entries()
	buf := make([]byte, len(entries)*DescriptorSize)
	for i, d := range entries {
		PutDescriptor(buf[i*DescriptorSize:], d)
	}
	return buf
}
