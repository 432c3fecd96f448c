// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package paks

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cockroachdb/pebble/v2/vfs"
)

func TestFileEditorRoundTrip(t *testing.T) {
	fsys := vfs.NewMem()
	key := testKey()

	edit, err := CreateFileArchive(fsys, "a.paks", key)
	if err != nil {
		t.Fatal(err)
	}
	if err := edit.CreateFile("hello.txt", []byte("hi there")); err != nil {
		t.Fatal(err)
	}
	if err := edit.Finish(); err != nil {
		t.Fatal(err)
	}
	if err := edit.Close(); err != nil {
		t.Fatal(err)
	}

	reader, err := OpenReadOnly(fsys, "a.paks", key)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	got, err := reader.ReadFile("hello.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("hi there")) {
		t.Fatalf("got %q", got)
	}
}

func TestFileEditorReopenForFurtherEdits(t *testing.T) {
	fsys := vfs.NewMem()
	key := testKey()

	edit, err := CreateFileArchive(fsys, "a.paks", key)
	if err != nil {
		t.Fatal(err)
	}
	edit.CreateFile("one.txt", []byte("1"))
	if err := edit.Finish(); err != nil {
		t.Fatal(err)
	}
	edit.Close()

	edit2, err := OpenFileArchive(fsys, "a.paks", key)
	if err != nil {
		t.Fatal(err)
	}
	edit2.CreateFile("two.txt", []byte("2"))
	if err := edit2.Finish(); err != nil {
		t.Fatal(err)
	}
	edit2.Close()

	reader, err := OpenReadOnly(fsys, "a.paks", key)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	for path, want := range map[string]string{"one.txt": "1", "two.txt": "2"} {
		got, err := reader.ReadFile(path)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if string(got) != want {
			t.Fatalf("%s: got %q want %q", path, got, want)
		}
	}
}

// TestFinishOrderingSurvivesUnsyncedCrash exercises spec.md §4.5's commit
// protocol: Finish writes and syncs the new directory extent *before*
// overwriting the header, so a reader of the bytes as they stood right
// before the final header write still sees the previous, fully valid
// archive.
func TestFinishOrderingSurvivesUnsyncedCrash(t *testing.T) {
	fsys := vfs.NewMem()
	key := testKey()

	edit, err := CreateFileArchive(fsys, "a.paks", key)
	if err != nil {
		t.Fatal(err)
	}
	edit.CreateFile("v1.txt", []byte("version one"))
	if err := edit.Finish(); err != nil {
		t.Fatal(err)
	}

	edit.CreateFile("v2.txt", []byte("version two, never committed"))
	dirBytes := edit.editor.directoryExtent()
	if _, err := edit.editor.writeExtent(dirBytes); err != nil {
		t.Fatal(err)
	}
	if err := edit.editor.store.Sync(); err != nil {
		t.Fatal(err)
	}
	// Deliberately stop short of overwriting the header, simulating a
	// crash between the directory sync and the header swap.
	edit.Close()

	snapshot, err := fsys.Open("a.paks")
	if err != nil {
		t.Fatal(err)
	}
	info, err := snapshot.Stat()
	if err != nil {
		t.Fatal(err)
	}
	crashed := make([]byte, info.Size())
	if _, err := snapshot.ReadAt(crashed, 0); err != nil {
		t.Fatal(err)
	}
	snapshot.Close()

	reader, err := OpenMemory(crashed, key)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reader.ReadFile("v2.txt"); err == nil {
		t.Fatal("the pre-crash snapshot must not see the uncommitted edit")
	}
	got, err := reader.ReadFile("v1.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "version one" {
		t.Fatalf("got %q", got)
	}
}

func TestFileEditorGC(t *testing.T) {
	fsys := vfs.NewMem()
	key := testKey()

	edit, err := CreateFileArchive(fsys, "a.paks", key)
	if err != nil {
		t.Fatal(err)
	}
	edit.CreateFile("big.bin", make([]byte, 4096))
	edit.Remove("big.bin")
	edit.CreateFile("keep.txt", []byte("keep me"))
	if err := edit.Finish(); err != nil {
		t.Fatal(err)
	}
	edit.Close()

	edit2, err := OpenFileArchive(fsys, "a.paks", key)
	if err != nil {
		t.Fatal(err)
	}
	if err := edit2.GC(); err != nil {
		t.Fatal(err)
	}
	if err := edit2.Finish(); err != nil {
		t.Fatal(err)
	}
	edit2.Close()

	reader, err := OpenReadOnly(fsys, "a.paks", key)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	got, err := reader.ReadFile("keep.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "keep me" {
		t.Fatalf("got %q", got)
	}
}

func TestFileReaderFsck(t *testing.T) {
	fsys := vfs.NewMem()
	key := testKey()

	edit, err := CreateFileArchive(fsys, "a.paks", key)
	if err != nil {
		t.Fatal(err)
	}
	edit.CreateDir("docs")
	edit.CreateFile("docs/a.txt", []byte("a"))
	if err := edit.Finish(); err != nil {
		t.Fatal(err)
	}
	edit.Close()

	reader, err := OpenReadOnly(fsys, "a.paks", key)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	var log strings.Builder
	if !reader.Fsck(&log) {
		t.Fatalf("expected a freshly finished archive to pass fsck, got: %s", log.String())
	}
}
