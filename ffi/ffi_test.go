// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package ffi

import (
	"testing"

	"github.com/elliotnunn/paks"
)

func TestKeyParse(t *testing.T) {
	key, err := KeyParse("0102030405060708090a0b0c0d0e0f10")
	if err != nil {
		t.Fatal(err)
	}
	want := paks.Key{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	if key != want {
		t.Fatalf("got %x, want %x", key, want)
	}
}

func TestArchiveNewFinishOpenRoundTrip(t *testing.T) {
	key, err := KeyParse("cafebabe")
	if err != nil {
		t.Fatal(err)
	}

	h := ArchiveNew(key, nil)
	defer ArchiveClose(h)

	a, err := lookup(h)
	if err != nil {
		t.Fatal(err)
	}
	editor := a.(*paks.MemoryEditor)
	if err := editor.CreateDir("docs"); err != nil {
		t.Fatal(err)
	}
	if err := editor.CreateFile("docs/readme.txt", []byte("hi")); err != nil {
		t.Fatal(err)
	}

	data, err := ArchiveFinish(h)
	if err != nil {
		t.Fatal(err)
	}

	h2, err := ArchiveOpen(data, key)
	if err != nil {
		t.Fatal(err)
	}
	defer ArchiveClose(h2)

	got, err := Read(h2, "docs/readme.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hi" {
		t.Fatalf("got %q", got)
	}
}

func TestLsSortsDirectoriesFirstThenByName(t *testing.T) {
	key, err := KeyParse("1")
	if err != nil {
		t.Fatal(err)
	}
	h := ArchiveNew(key, nil)
	defer ArchiveClose(h)

	a, _ := lookup(h)
	editor := a.(*paks.MemoryEditor)
	editor.CreateFile("zeta.txt", []byte("z"))
	editor.CreateDir("alpha")
	editor.CreateFile("beta.txt", []byte("b"))
	editor.CreateDir("gamma")

	tree, err := Ls(h)
	if err != nil {
		t.Fatal(err)
	}
	if len(tree.Children) != 4 {
		t.Fatalf("expected 4 children, got %d: %+v", len(tree.Children), tree.Children)
	}
	wantOrder := []string{"alpha", "gamma", "beta.txt", "zeta.txt"}
	for i, name := range wantOrder {
		if tree.Children[i].Name != name {
			t.Fatalf("at %d: got %q, want %q (full: %+v)", i, tree.Children[i].Name, name, tree.Children)
		}
	}
}

func TestReadUnknownHandle(t *testing.T) {
	if _, err := Read(Handle(999999), "x"); err == nil {
		t.Fatal("expected an error for an unknown handle")
	}
}
