// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package paks

import (
	"strings"

	"github.com/elliotnunn/paks/internal/blockstore"
)

// MemoryEditor builds a PAKS archive entirely in memory, for callers that
// want the finished bytes rather than a file on disk (spec.md §9, the
// in-memory backend). Its zero value is not usable; use [NewMemoryEditor].
type MemoryEditor struct {
	*editor
}

// NewMemoryEditor returns a MemoryEditor for a brand-new, empty archive
// sealed under key.
func NewMemoryEditor(key Key) *MemoryEditor {
	store := blockstore.NewMemStore()
	// Reserve the header's own blocks so the first real extent starts
	// after it.
	store.Append(make([]byte, HeaderSize))
	return &MemoryEditor{editor: newEditor(store, key, NewDirectory(), HeaderBlocks)}
}

// Finish seals the current directory tree and writes a fresh header
// pointing to it, then returns the complete archive bytes. The directory
// is always written before the header is overwritten, so a reader given
// the bytes either before or after Finish sees a self-consistent archive
// (spec.md §4.5's commit protocol, adapted to an in-memory sink with no
// crash to protect against but the same ordering for uniformity with
// [FileEditor.Finish]).
func (m *MemoryEditor) Finish() ([]byte, error) {
	dirBytes := m.editor.directoryExtent()
	dirSection, err := m.editor.writeExtent(dirBytes)
	if err != nil {
		return nil, err
	}

	info := InfoHeader{Version: FormatVersion, Directory: dirSection}
	header, err := sealHeader(info, m.editor.key, m.editor.rng)
	if err != nil {
		return nil, wrapError(ErrKindOther, "", err)
	}

	headerBuf := make([]byte, HeaderSize)
	PutHeader(headerBuf, header)
	if _, err := m.editor.store.WriteAt(headerBuf, 0); err != nil {
		return nil, wrapError(ErrKindIO, "", err)
	}

	out := make([]byte, m.editor.store.Size())
	if _, err := m.editor.store.ReadAt(out, 0); err != nil {
		return nil, wrapError(ErrKindIO, "", err)
	}
	return out, nil
}

// MemoryReader provides read-only access to an already-finished archive
// held entirely in memory.
type MemoryReader struct {
	dir   *Directory
	inner *editor
}

// OpenMemory parses data as a finished archive sealed under key.
func OpenMemory(data []byte, key Key) (*MemoryReader, error) {
	store := blockstore.NewMemStore()
	if _, err := store.Append(data); err != nil {
		return nil, wrapError(ErrKindIO, "", err)
	}

	dir, err := loadDirectory(store, key)
	if err != nil {
		return nil, err
	}

	return &MemoryReader{
		dir:   dir,
		inner: newEditor(store, key, dir, uint32(store.Size()/BlockSize)),
	}, nil
}

// ReadFile returns the decrypted content of the file at path.
func (r *MemoryReader) ReadFile(path string) ([]byte, error) {
	return r.inner.ReadFile(path)
}

// Directory exposes the archive's directory tree for listing.
func (r *MemoryReader) Directory() *Directory {
	return r.dir
}

// Fsck validates the archive's directory tree (spec.md §4.5).
func (r *MemoryReader) Fsck(log *strings.Builder) bool {
	return r.inner.Fsck(log)
}

// loadDirectory reads and decrypts the header at offset 0 of store, then
// the directory section it points to, returning the decoded tree.
func loadDirectory(store blockstore.Store, key Key) (*Directory, error) {
	headerBuf := make([]byte, HeaderSize)
	if _, err := store.ReadAt(headerBuf, 0); err != nil {
		return nil, wrapError(ErrKindIO, "", err)
	}
	header := GetHeader(headerBuf)

	info, ok := openHeader(header, key)
	if !ok {
		return nil, newError(ErrKindInvalidData, "header failed to authenticate: wrong key or corrupt archive")
	}
	if info.Version != FormatVersion {
		return nil, newErrorf(ErrKindInvalidData, "unsupported format version %d", info.Version)
	}

	section := info.Directory
	buf := make([]byte, section.Size*BlockSize)
	if _, err := store.ReadAt(buf, int64(section.Offset)*BlockSize); err != nil {
		return nil, wrapError(ErrKindIO, "", err)
	}
	if !decryptSection(buf, section, key) {
		return nil, newError(ErrKindInvalidData, "directory section failed to authenticate")
	}

	n := len(buf) / DescriptorSize
	entries := make([]Descriptor, 0, n)
	for i := 0; i < len(buf); i += DescriptorSize {
		if i+DescriptorSize > len(buf) {
			break
		}
		entries = append(entries, GetDescriptor(buf[i:i+DescriptorSize]))
	}
	if len(entries) == 0 {
		entries = []Descriptor{NewDirDescriptor(nil, 0)}
	}
	return directoryFromEntries(entries), nil
}
