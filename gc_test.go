// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package paks

import (
	"testing"
)

func TestGCReclaimsRemovedFileData(t *testing.T) {
	key := testKey()
	m := NewMemoryEditor(key)
	if err := m.CreateFile("big.bin", make([]byte, 4096)); err != nil {
		t.Fatal(err)
	}
	if err := m.Remove("big.bin"); err != nil {
		t.Fatal(err)
	}
	markBeforeGC := m.highMark

	if err := m.GC(); err != nil {
		t.Fatal(err)
	}
	if m.highMark >= markBeforeGC {
		t.Fatalf("expected GC to shrink the live block pool, was %d now %d", markBeforeGC, m.highMark)
	}

	data, err := m.Finish()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := OpenMemory(data, key); err != nil {
		t.Fatalf("archive should still open after GC: %v", err)
	}
}

// TestGCCoalescesLinkedExtents is the link-coalescing enhancement recorded
// in DESIGN.md: two descriptors sharing one extent before GC still share
// one (possibly relocated) extent after.
func TestGCCoalescesLinkedExtents(t *testing.T) {
	key := testKey()
	m := NewMemoryEditor(key)
	if err := m.CreateFile("orig.txt", []byte("shared payload")); err != nil {
		t.Fatal(err)
	}
	if err := m.Link("alias.txt", "orig.txt"); err != nil {
		t.Fatal(err)
	}

	origBefore, _ := m.dir.FindDesc("orig.txt")
	aliasBefore, _ := m.dir.FindDesc("alias.txt")
	if origBefore.Section != aliasBefore.Section {
		t.Fatal("expected link to share its source's section before GC")
	}

	if err := m.GC(); err != nil {
		t.Fatal(err)
	}

	origAfter, _ := m.dir.FindDesc("orig.txt")
	aliasAfter, _ := m.dir.FindDesc("alias.txt")
	if origAfter.Section != aliasAfter.Section {
		t.Fatal("expected link to still share one extent after GC")
	}

	origData, err := m.ReadFile("orig.txt")
	if err != nil {
		t.Fatal(err)
	}
	aliasData, err := m.ReadFile("alias.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(origData) != "shared payload" || string(aliasData) != "shared payload" {
		t.Fatalf("unexpected contents after GC: %q %q", origData, aliasData)
	}
}

func TestGCPreservesOverwrittenFileLatestContent(t *testing.T) {
	key := testKey()
	m := NewMemoryEditor(key)
	m.CreateFile("f.txt", []byte("old"))
	m.WriteFile("f.txt", []byte("new, and longer than old"))

	if err := m.GC(); err != nil {
		t.Fatal(err)
	}
	got, err := m.ReadFile("f.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new, and longer than old" {
		t.Fatalf("got %q", got)
	}
}
