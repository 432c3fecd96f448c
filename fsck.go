// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package paks

import (
	"fmt"
	"strings"
)

// Fsck validates the structural invariants of dir's directory tree
// (spec.md §4.5), appending one human-readable line per problem found to
// log, and reports true iff it found none. highMark bounds where file
// payload extents are allowed to end — typically the editor's or reader's
// current high-water mark (original_source's pakscmd.rs::fsck passes
// reader.high_mark()). MAC correctness of individual payloads is not
// re-verified here: spec.md §4.5 defers that to the lazy check a normal
// read already performs.
func (dir *Directory) Fsck(highMark uint32, log *strings.Builder) bool {
	c := &fsckCheck{dir: dir, highMark: highMark, log: log, ok: true}
	if want := dir.Len() - 1; int(dir.entries[0].ContentSize) != want {
		c.fail("root: content_size %d does not match tree size %d", dir.entries[0].ContentSize, want)
	}
	// Index 0 is the implicit, unnamed root itself, not a sibling entry:
	// the top-level window to validate is its children.
	c.checkWindow(1, dir.Len(), "")
	return c.ok
}

type fsckCheck struct {
	dir      *Directory
	highMark uint32
	log      *strings.Builder
	ok       bool
}

func (c *fsckCheck) fail(format string, args ...any) {
	c.ok = false
	fmt.Fprintf(c.log, format+"\n", args...)
}

// checkWindow validates every sibling in [start, end) — the subtree window
// owned by the directory entry these siblings are children of ("" for the
// implicit root) — and recurses into any child directory's own window.
func (c *fsckCheck) checkWindow(start, end int, pathPrefix string) {
	seenNames := make(map[string]bool, end-start)
	i := start
	for i < end {
		d := c.dir.entries[i]
		name := string(d.Name())
		path := name
		if pathPrefix != "" {
			path = pathPrefix + "/" + name
		}

		if !validateName(d.Name()) {
			c.fail("%s: invalid name %q", path, name)
		}
		if seenNames[name] {
			c.fail("%s: duplicate sibling name %q", path, name)
		}
		seenNames[name] = true

		if d.IsDir() {
			childEnd := i + 1 + int(d.ContentSize)
			if childEnd > end {
				c.fail("%s: subtree window [%d,%d) escapes parent window [%d,%d)", path, i+1, childEnd, start, end)
				childEnd = end
			}
			c.checkWindow(i+1, childEnd, path)
			i = childEnd
			continue
		}

		// File descriptor: content_type not in {0,1} is still "file" per
		// spec.md §3; only bounds/size are checked here.
		if !d.Section.IsEmpty() {
			if d.Section.End() > c.highMark {
				c.fail("%s: section [%d,%d) exceeds high-water mark %d", path, d.Section.Offset, d.Section.End(), c.highMark)
			}
			if d.ContentSize > d.Section.Size*BlockSize {
				c.fail("%s: content_size %d exceeds section capacity %d bytes", path, d.ContentSize, d.Section.Size*BlockSize)
			}
		} else if d.ContentSize > 0 {
			c.fail("%s: content_size %d but section is empty", path, d.ContentSize)
		}
		i++
	}
}
