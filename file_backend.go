// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package paks

import (
	"log/slog"
	"strings"

	"github.com/cockroachdb/pebble/v2/vfs"

	"github.com/elliotnunn/paks/internal/blockstore"
)

// FileEditor edits a PAKS archive stored in a real (or virtual, for
// testing) file, reached through a [vfs.FS] so the same code path runs
// against the live filesystem and against an in-memory double in tests.
// Its zero value is not usable; use [CreateFileArchive] or [OpenFileArchive].
type FileEditor struct {
	*editor
	fsys vfs.FS
	path string
}

// CreateFileArchive creates a brand-new archive at path on fsys (vfs.Default
// if nil), sealed under key, and returns an editor for it. An existing file
// at path is truncated, matching original_source's create_empty.
func CreateFileArchive(fsys vfs.FS, path string, key Key) (*FileEditor, error) {
	if fsys == nil {
		fsys = vfs.Default
	}
	store, err := blockstore.OpenFileStore(fsys, path, true)
	if err != nil {
		return nil, wrapError(ErrKindIO, path, err)
	}
	if locked, err := store.TryLockExclusive(); err != nil {
		store.Close()
		return nil, wrapError(ErrKindIO, path, err)
	} else if !locked {
		slog.Default().Debug("paks: advisory lock unavailable for backend", "path", path)
	}

	if _, err := store.Append(make([]byte, HeaderSize)); err != nil {
		store.Close()
		return nil, wrapError(ErrKindIO, path, err)
	}

	return &FileEditor{editor: newEditor(store, key, NewDirectory(), HeaderBlocks), fsys: fsys, path: path}, nil
}

// OpenFileArchive opens an existing archive at path on fsys for editing.
func OpenFileArchive(fsys vfs.FS, path string, key Key) (*FileEditor, error) {
	if fsys == nil {
		fsys = vfs.Default
	}
	store, err := blockstore.OpenFileStore(fsys, path, false)
	if err != nil {
		return nil, wrapError(ErrKindIO, path, err)
	}
	if locked, err := store.TryLockExclusive(); err != nil {
		store.Close()
		return nil, wrapError(ErrKindIO, path, err)
	} else if !locked {
		slog.Default().Debug("paks: advisory lock unavailable for backend", "path", path)
	}

	dir, err := loadDirectory(store, key)
	if err != nil {
		store.Close()
		return nil, errPath(err, path)
	}

	return &FileEditor{editor: newEditor(store, key, dir, uint32(store.Size()/BlockSize)), fsys: fsys, path: path}, nil
}

// Finish commits the current directory tree: it writes the new directory as
// a fresh append-only extent, fsyncs so that extent is durable, and only
// then overwrites the header to point at it. A crash at any point leaves
// either the old, still-consistent header in place, or the new one —
// never a header pointing at a directory that was never synced.
// (original_source's file_io editor: write directory, sync_data, then
// overwrite header.)
func (e *FileEditor) Finish() error {
	dirBytes := e.editor.directoryExtent()
	dirSection, err := e.editor.writeExtent(dirBytes)
	if err != nil {
		return err
	}
	if err := e.editor.store.Sync(); err != nil {
		return wrapError(ErrKindIO, "", err)
	}

	info := InfoHeader{Version: FormatVersion, Directory: dirSection}
	header, err := sealHeader(info, e.editor.key, e.editor.rng)
	if err != nil {
		return wrapError(ErrKindOther, "", err)
	}

	headerBuf := make([]byte, HeaderSize)
	PutHeader(headerBuf, header)
	if _, err := e.editor.store.WriteAt(headerBuf, 0); err != nil {
		return wrapError(ErrKindIO, "", err)
	}
	if err := e.editor.store.Sync(); err != nil {
		return wrapError(ErrKindIO, "", err)
	}
	return nil
}

// Close releases the underlying file without committing any pending
// changes. Callers that want their edits persisted must call Finish first.
func (e *FileEditor) Close() error {
	return e.editor.store.Close()
}

// FileReader provides read-only access to a finished archive on disk.
type FileReader struct {
	dir   *Directory
	inner *editor
}

// OpenReadOnly opens path on fsys for reading, without taking the
// exclusive advisory lock editors use (multiple concurrent readers are
// fine: archives are only ever mutated by one editor at a time).
func OpenReadOnly(fsys vfs.FS, path string, key Key) (*FileReader, error) {
	store, err := blockstore.OpenFileStore(fsys, path, false)
	if err != nil {
		return nil, wrapError(ErrKindIO, path, err)
	}
	dir, err := loadDirectory(store, key)
	if err != nil {
		store.Close()
		return nil, errPath(err, path)
	}
	return &FileReader{
		dir:   dir,
		inner: newEditor(store, key, dir, uint32(store.Size()/BlockSize)),
	}, nil
}

// ReadFile returns the decrypted content of the file at path.
func (r *FileReader) ReadFile(path string) ([]byte, error) {
	return r.inner.ReadFile(path)
}

// Directory exposes the archive's directory tree for listing.
func (r *FileReader) Directory() *Directory {
	return r.dir
}

// Fsck validates the archive's directory tree (spec.md §4.5).
func (r *FileReader) Fsck(log *strings.Builder) bool {
	return r.inner.Fsck(log)
}

// Close releases the underlying file.
func (r *FileReader) Close() error {
	return r.inner.store.Close()
}
