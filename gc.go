// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package paks

import (
	"fmt"

	"github.com/elliotnunn/paks/internal/blockstore"
	"github.com/elliotnunn/paks/internal/extentkey"
	"github.com/elliotnunn/paks/internal/payloadcache"
)

// compactInto rewrites every live file payload as the pre-order
// concatenation of its extent into newStore, decrypting each payload under
// the archive's key and re-sealing it at its new location (an extent's
// AEAD associated data is bound to its offset, so a move always requires a
// reseal, not a raw copy). Two descriptors that shared an extent before GC
// (a link, spec.md §4.4) are coalesced: the payload is written once and
// both descriptors are repointed at the single new Section. A file whose
// section ends past the high-water mark has its section and content size
// cleared (logged at Warn) instead of failing the collection.
//
// Grounded on original_source's memory/editor.rs gc, extended to coalesce
// links, which the original predates (see DESIGN.md).
func (e *editor) compactInto(newStore blockstore.Store) error {
	if _, err := newStore.Append(make([]byte, HeaderSize)); err != nil {
		return wrapError(ErrKindIO, "", err)
	}
	highMark := uint32(HeaderBlocks)

	oldEntries := e.dir.Entries()
	newEntries := make([]Descriptor, len(oldEntries))
	copy(newEntries, oldEntries)

	seen := make(map[extentkey.Key]Section)
	for i, d := range oldEntries {
		if !d.IsFile() || d.Section.IsEmpty() {
			continue
		}
		if uint64(d.Section.Offset)+uint64(d.Section.Size) > uint64(e.highMark) {
			e.log.Warn("paks: gc: clearing out-of-range section", "name", string(d.Name()), "offset", d.Section.Offset, "size", d.Section.Size)
			newEntries[i].Section = Section{}
			newEntries[i].ContentSize = 0
			continue
		}
		key := extentkey.Of(d.Section.Offset, d.Section.Size)
		if newSection, ok := seen[key]; ok {
			newEntries[i].Section = newSection
			continue
		}

		payload, err := e.readExtent(d.Section, d.ContentSize)
		if err != nil {
			return errPath(err, string(d.Name()))
		}
		nBlocks := uint32(BlocksForBytes(len(payload)))
		newSection, err := writeExtentTo(newStore, payload, e.key, e.rng, highMark, nBlocks)
		if err != nil {
			return wrapError(ErrKindIO, "", err)
		}
		highMark += nBlocks

		seen[key] = newSection
		newEntries[i].Section = newSection
	}

	oldStore := e.store
	e.store = newStore
	e.dir = directoryFromEntries(newEntries)
	e.highMark = highMark
	e.cache = payloadcache.New(payloadCacheCapacity)
	return oldStore.Close()
}

// GC rebuilds the archive's in-memory block pool, dropping every extent no
// longer reachable from the directory tree (deleted files, overwritten
// file versions) and coalescing links that share an extent. It does not
// shrink the returned archive on disk until Finish is called.
func (m *MemoryEditor) GC() error {
	return m.editor.compactInto(blockstore.NewMemStore())
}

// GC rebuilds the archive on disk: live extents are rewritten into a
// sibling temporary file, which is then renamed over the original. A crash
// mid-GC leaves the original file untouched, since the rename only happens
// after the rewrite is durably synced.
func (f *FileEditor) GC() error {
	tmpPath := f.path + ".gc-tmp"
	newStore, err := blockstore.OpenFileStore(f.fsys, tmpPath, true)
	if err != nil {
		return wrapError(ErrKindIO, tmpPath, err)
	}
	if err := f.editor.compactInto(newStore); err != nil {
		return err
	}
	if err := f.editor.store.Sync(); err != nil {
		return wrapError(ErrKindIO, tmpPath, err)
	}
	if err := f.fsys.Rename(tmpPath, f.path); err != nil {
		return wrapError(ErrKindIO, f.path, fmt.Errorf("rename GC output into place: %w", err))
	}
	return nil
}
