// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package paks

import (
	"iter"
	"slices"
	"strings"
)

// Directory is the live, in-memory form of an archive's directory section: a
// flat, pre-order linearisation of the tree. Index 0 is always the root, an
// implicit directory with an empty name. Every directory entry's
// ContentSize gives the number of descendants immediately following it in
// the slice, so a subtree is always a contiguous window [i+1, i+1+size).
type Directory struct {
	entries []Descriptor
}

// NewDirectory returns a Directory containing only the root.
func NewDirectory() *Directory {
	return &Directory{entries: []Descriptor{NewDirDescriptor(nil, 0)}}
}

// directoryFromEntries adopts entries (already in valid pre-order form,
// typically just decoded from an archive) as a Directory without copying.
func directoryFromEntries(entries []Descriptor) *Directory {
	return &Directory{entries: entries}
}

// Entries returns the flat pre-order slice backing dir. Callers must not
// retain or mutate it across calls that splice the tree.
func (dir *Directory) Entries() []Descriptor {
	return dir.entries
}

// Len returns the total number of entries, including the root.
func (dir *Directory) Len() int {
	return len(dir.entries)
}

// subtreeEnd returns the index one past the last descendant of the entry at
// i (which may itself be a file, in which case the "subtree" is just i+1).
func (dir *Directory) subtreeEnd(i int) int {
	if dir.entries[i].IsFile() {
		return i + 1
	}
	return i + 1 + int(dir.entries[i].ContentSize)
}

// childIndices yields the indices of the immediate children of the
// directory at parent.
func (dir *Directory) childIndices(parent int) iter.Seq[int] {
	return func(yield func(int) bool) {
		end := dir.subtreeEnd(parent)
		for i := parent + 1; i < end; {
			if !yield(i) {
				return
			}
			i = dir.subtreeEnd(i)
		}
	}
}

// splitPath breaks a slash-separated path into clean, non-empty segments.
// Both "/" and "\" are accepted as separators, matching the tolerance
// spec.md §7 requires of path arguments from the CLI and host bindings.
func splitPath(name string) []string {
	name = strings.ReplaceAll(name, `\`, "/")
	var segs []string
	for _, s := range strings.Split(name, "/") {
		if s != "" && s != "." {
			segs = append(segs, s)
		}
	}
	return segs
}

// Find returns the index of the entry named by path (relative to the
// root), or -1 if no such entry exists.
func (dir *Directory) Find(path string) int {
	at := 0
	for _, seg := range splitPath(path) {
		next := -1
		if dir.entries[at].IsDir() {
			for i := range dir.childIndices(at) {
				if string(dir.entries[i].Name()) == seg {
					next = i
					break
				}
			}
		}
		if next < 0 {
			return -1
		}
		at = next
	}
	return at
}

// FindDesc is a convenience wrapper around Find that also returns the
// descriptor itself.
func (dir *Directory) FindDesc(path string) (Descriptor, bool) {
	i := dir.Find(path)
	if i < 0 {
		return Descriptor{}, false
	}
	return dir.entries[i], true
}

// splice replaces the entries in [at, at+oldLen) with replacement, and adds
// delta to the ContentSize of every index in ancestors (which callers must
// compute, against the pre-splice tree, as the chain of directories that
// contain [at, at+oldLen) — see ancestorChain). It is the single primitive
// every tree mutation in this file is built from.
func (dir *Directory) splice(at, oldLen int, replacement []Descriptor, ancestors []int) {
	delta := len(replacement) - oldLen
	dir.entries = slices.Replace(dir.entries, at, at+oldLen, replacement...)
	if delta == 0 {
		return
	}
	for _, p := range ancestors {
		dir.entries[p].ContentSize = uint32(int(dir.entries[p].ContentSize) + delta)
	}
}

// ancestorChain returns the indices of every directory that contains the
// entry at i, from the root down to (but not including) i itself.
func (dir *Directory) ancestorChain(i int) []int {
	if i == 0 {
		return nil
	}
	var chain []int
	at := 0
	for at != i {
		chain = append(chain, at)
		next := -1
		for c := range dir.childIndices(at) {
			if c == i || dir.subtreeEnd(c) > i {
				next = c
				break
			}
		}
		if next < 0 {
			// i is not actually inside at's subtree; stop rather than loop.
			break
		}
		at = next
	}
	return chain
}

// insertionAncestors returns the chain of directories (root..parent
// inclusive) whose ContentSize must grow when a new entry is inserted as a
// child of parent.
func (dir *Directory) insertionAncestors(parent int) []int {
	return append(dir.ancestorChain(parent), parent)
}

// ErrNotDir is returned when a path operation expects a directory but finds
// a file.
var ErrNotDir = newError(ErrKindInvalidInput, "not a directory")

// ErrNotExist is returned when a path operation cannot find its target.
var ErrNotExist = newError(ErrKindNotFound, "no such file or directory")

// findChild returns the index of the child of parent named name, or -1.
func (dir *Directory) findChild(parent int, name string) int {
	for i := range dir.childIndices(parent) {
		if string(dir.entries[i].Name()) == name {
			return i
		}
	}
	return -1
}

// ensureParentPath walks every segment but the last of path, inserting a
// new (empty) directory descriptor for any segment that is missing, and
// failing with InvalidInput if an existing intermediate segment is a file
// (spec.md §4.2 "create": "if any intermediate path segment exists but is
// a file, the call fails with InvalidInput"). It returns the parent's index
// and the final segment's name, leaving the caller to resolve or insert
// that last segment itself.
func (dir *Directory) ensureParentPath(path string) (parent int, name string, err error) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return 0, "", newErrorf(ErrKindInvalidInput, "empty path")
	}
	at := 0
	for _, seg := range segs[:len(segs)-1] {
		if dir.entries[at].IsFile() {
			return 0, "", ErrNotDir
		}
		if !validateName([]byte(seg)) {
			return 0, "", newErrorf(ErrKindInvalidInput, "invalid name %q", seg)
		}
		child := dir.findChild(at, seg)
		if child < 0 {
			insertAt := dir.subtreeEnd(at)
			dir.splice(insertAt, 0, []Descriptor{NewDirDescriptor([]byte(seg), 0)}, dir.insertionAncestors(at))
			child = insertAt
		} else if dir.entries[child].IsFile() {
			return 0, "", newErrorf(ErrKindInvalidInput, "%q is a file, not a directory", seg)
		}
		at = child
	}
	return at, segs[len(segs)-1], nil
}

// ensurePath walks the whole of path, auto-creating any missing directory
// (including the final segment, as an empty placeholder directory) exactly
// as the original engine's unified "create" does (original_source's
// dir/tests.rs::test_create_simple: a freshly created leaf is itself a
// zero-sized directory descriptor until a caller overwrites its type).
// If the final segment already exists — file or directory — its index is
// returned unchanged, per spec.md §4.2's "returns the existing descriptor"
// rule for both cases.
func (dir *Directory) ensurePath(path string) (int, error) {
	parent, name, err := dir.ensureParentPath(path)
	if err != nil {
		return -1, err
	}
	if !validateName([]byte(name)) {
		return -1, newErrorf(ErrKindInvalidInput, "invalid name %q", name)
	}
	if child := dir.findChild(parent, name); child >= 0 {
		return child, nil
	}
	at := dir.subtreeEnd(parent)
	dir.splice(at, 0, []Descriptor{NewDirDescriptor([]byte(name), 0)}, dir.insertionAncestors(parent))
	return at, nil
}

// CreateDir creates an empty directory at path, auto-creating any missing
// parent directories. If path already exists as a directory its
// content_size is left untouched; if it exists as a file, CreateDir fails
// with InvalidInput.
func (dir *Directory) CreateDir(path string) (int, error) {
	i, err := dir.ensurePath(path)
	if err != nil {
		return -1, err
	}
	if dir.entries[i].IsFile() {
		return -1, newErrorf(ErrKindInvalidInput, "%q exists and is a file", path)
	}
	return i, nil
}

// Create inserts desc (already fully populated, e.g. by an editor that has
// just written its payload) at path, auto-creating any missing parent
// directories. If path already names an existing entry, that entry is
// overwritten with desc (spec.md §4.2: "if the final segment already
// exists..., returns the existing descriptor, callers then overwrite its
// content") — except overwriting a non-empty directory with a file is
// rejected, since the flat layout has no way to express an orphaned
// subtree window once the directory's own content_size is gone (see
// DESIGN.md for this resolved ambiguity).
func (dir *Directory) Create(path string, desc Descriptor) (int, error) {
	i, err := dir.ensurePath(path)
	if err != nil {
		return -1, err
	}
	if desc.IsFile() && dir.entries[i].IsDir() && dir.entries[i].ContentSize > 0 {
		return -1, newErrorf(ErrKindInvalidInput, "%q is a non-empty directory", path)
	}
	desc.SetName(dir.entries[i].Name())
	if desc.IsDir() {
		desc.ContentSize = dir.entries[i].ContentSize
	}
	dir.entries[i] = desc
	return i, nil
}

// CreateLink inserts a new directory entry named path whose Section and
// ContentSize are copied from an existing file elsewhere in the tree
// (spec.md §4.2 "create_link"): two descriptors referencing the same
// backing extent.
func (dir *Directory) CreateLink(path, existingPath string) (int, error) {
	src := dir.Find(existingPath)
	if src < 0 {
		return -1, ErrNotExist
	}
	if dir.entries[src].IsDir() {
		return -1, ErrNotDir
	}
	desc := dir.entries[src]
	return dir.Create(path, desc)
}

// Remove deletes the whole subtree rooted at path, file or directory,
// unconditionally (spec.md §4.2 "remove": no distinction is drawn between
// an empty and a non-empty directory).
func (dir *Directory) Remove(path string) error {
	i := dir.Find(path)
	if i < 0 {
		return ErrNotExist
	}
	if i == 0 {
		return newErrorf(ErrKindInvalidInput, "cannot remove root")
	}
	end := dir.subtreeEnd(i)
	dir.splice(i, end-i, nil, dir.ancestorChain(i))
	return nil
}

// MoveFile renames or relocates the entry at srcPath to dstPath, creating
// dstPath's parent chain if missing and replacing dstPath's current
// occupant (if any) with the moved subtree (spec.md §4.2: "if destination
// already exists it is replaced"). Moving a directory whose destination
// lies inside its own subtree is rejected.
func (dir *Directory) MoveFile(srcPath, dstPath string) error {
	if dir.Find(srcPath) < 0 {
		return ErrNotExist
	}

	segs := splitPath(dstPath)
	if len(segs) == 0 {
		return newErrorf(ErrKindInvalidInput, "empty path")
	}
	dstName := segs[len(segs)-1]
	if !validateName([]byte(dstName)) {
		return newErrorf(ErrKindInvalidInput, "invalid name %q", dstName)
	}
	dstParentPath := strings.Join(segs[:len(segs)-1], "/")

	// Auto-create dst's parent chain; this may shift src's index, so src
	// and dstParent are re-resolved by path (the only stable identifier)
	// after every mutation below.
	if _, _, err := dir.ensureParentPath(dstPath); err != nil {
		return err
	}

	src := dir.Find(srcPath)
	srcEnd := dir.subtreeEnd(src)
	dstParent := 0
	if dstParentPath != "" {
		dstParent = dir.Find(dstParentPath)
	}
	if dstParent >= src && dstParent < srcEnd {
		return newErrorf(ErrKindInvalidInput, "cannot move a directory inside itself")
	}

	if existing := dir.findChild(dstParent, dstName); existing >= 0 && existing != src {
		end := dir.subtreeEnd(existing)
		dir.splice(existing, end-existing, nil, dir.ancestorChain(existing))
		src = dir.Find(srcPath)
		srcEnd = dir.subtreeEnd(src)
		dstParent = 0
		if dstParentPath != "" {
			dstParent = dir.Find(dstParentPath)
		}
	}

	moved := slices.Clone(dir.entries[src:srcEnd])
	moved[0].SetName([]byte(dstName))

	dir.splice(src, srcEnd-src, nil, dir.ancestorChain(src))
	// dstParent's index may have shifted if the removal happened before it.
	if dstParent > src {
		dstParent -= srcEnd - src
	}
	at := dir.subtreeEnd(dstParent)
	dir.splice(at, 0, moved, dir.insertionAncestors(dstParent))
	return nil
}

// Walk yields every entry's full path (using "/" separators) and its
// descriptor, in pre-order.
func (dir *Directory) Walk() iter.Seq2[string, Descriptor] {
	return func(yield func(string, Descriptor) bool) {
		var walk func(i int, prefix string) bool
		walk = func(i int, prefix string) bool {
			name := prefix
			if i != 0 {
				if prefix != "" {
					name = prefix + "/" + string(dir.entries[i].Name())
				} else {
					name = string(dir.entries[i].Name())
				}
			}
			if i != 0 {
				if !yield(name, dir.entries[i]) {
					return false
				}
			}
			for c := range dir.childIndices(i) {
				if !walk(c, name) {
					return false
				}
			}
			return true
		}
		walk(0, "")
	}
}
