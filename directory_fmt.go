// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package paks

import (
	"fmt"
	"io"
)

// TreeStyle selects the glyph set used by [Directory.WriteTree].
type TreeStyle int

const (
	// TreeStyleASCII draws branches with plain ASCII (+- `- | `), matching
	// original_source's default DirFmt rendering.
	TreeStyleASCII TreeStyle = iota
	// TreeStyleUnicode draws the same shapes with box-drawing characters.
	TreeStyleUnicode
)

// treeGlyphs holds the characters display_children mixes per entry: the
// branch glyph for a non-last directory, a non-last file, a last
// directory, and a last file, plus the continuation glyphs used one level
// down. Unlike a conventional "tree" pretty-printer, PAKS's branch glyph
// depends on the entry's own type as well as its position — grounded on
// original_source's dir/tests.rs::test_to_string, the only surviving
// fixture for this format, reproduced exactly: a directory's branch always
// carries a dash ("+- ", "`- "), a file's never does ("|  ", "`  "), and
// only the last entry in a window ever uses the corner character "`"
// instead of the line character used by every entry before it.
type treeGlyphs struct {
	dirTee, fileTee, dirCorner, fileCorner string
	pipe, blank                            string
}

var (
	asciiGlyphs   = treeGlyphs{dirTee: "+- ", fileTee: "|  ", dirCorner: "`- ", fileCorner: "`  ", pipe: "|  ", blank: "   "}
	unicodeGlyphs = treeGlyphs{dirTee: "├─ ", fileTee: "│  ", dirCorner: "└─ ", fileCorner: "└  ", pipe: "│  ", blank: "   "}
)

// WriteTree writes an indented listing of dir to w, one entry per line, in
// the tree's own pre-order insertion order (spec.md §4.2: "the engine does
// not lexically sort" applies here too — display_children renders the
// directory exactly as stored, it does not re-sort it).
func (dir *Directory) WriteTree(w io.Writer, style TreeStyle) error {
	glyphs := asciiGlyphs
	if style == TreeStyleUnicode {
		glyphs = unicodeGlyphs
	}
	if _, err := fmt.Fprintln(w, "./"); err != nil {
		return err
	}
	return dir.writeChildren(w, 0, "", glyphs)
}

func (dir *Directory) writeChildren(w io.Writer, parent int, prefix string, glyphs treeGlyphs) error {
	children := make([]int, 0)
	for c := range dir.childIndices(parent) {
		children = append(children, c)
	}

	for i, c := range children {
		last := i == len(children)-1
		entry := dir.entries[c]

		var branch string
		switch {
		case last && entry.IsDir():
			branch = glyphs.dirCorner
		case last:
			branch = glyphs.fileCorner
		case entry.IsDir():
			branch = glyphs.dirTee
		default:
			branch = glyphs.fileTee
		}

		name := string(entry.Name())
		if entry.IsDir() {
			name += "/"
		}
		if _, err := fmt.Fprintln(w, prefix+branch+name); err != nil {
			return err
		}

		if entry.IsDir() {
			childPrefix := prefix + glyphs.pipe
			if last {
				childPrefix = prefix + glyphs.blank
			}
			hasChildren := false
			for range dir.childIndices(c) {
				hasChildren = true
				break
			}
			if err := dir.writeChildren(w, c, childPrefix, glyphs); err != nil {
				return err
			}
			if hasChildren {
				if _, err := fmt.Fprintln(w, childPrefix); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
