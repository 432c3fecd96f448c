// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package paks

import (
	"strings"
	"testing"
)

func TestDescriptorPutGetRoundTrip(t *testing.T) {
	d := NewFileDescriptor([]byte("report.csv"))
	d.ContentSize = 1234
	d.Section = Section{Offset: 9, Size: 3, Nonce: [16]byte{1, 2, 3}, Mac: [16]byte{4, 5, 6}}

	buf := make([]byte, DescriptorSize)
	PutDescriptor(buf, d)
	got := GetDescriptor(buf)

	if string(got.Name()) != "report.csv" {
		t.Fatalf("got name %q", got.Name())
	}
	if got.ContentSize != d.ContentSize || got.Section != d.Section || got.ContentType != d.ContentType {
		t.Fatalf("got %+v, want %+v", got, d)
	}
}

func TestValidateName(t *testing.T) {
	exactly32 := strings.Repeat("a", 32)
	tooLong := strings.Repeat("a", 33)

	cases := []struct {
		name string
		want bool
	}{
		{"", false},
		{"ok.txt", true},
		{"has/slash", false},
		{"has\\backslash", false},
		{"has\x00nul", false},
		{exactly32, true},
		{tooLong, false},
	}
	for _, c := range cases {
		if got := validateName([]byte(c.name)); got != c.want {
			t.Errorf("validateName(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestDescriptorNameTruncatesAtFirstNUL(t *testing.T) {
	var d Descriptor
	d.SetName([]byte("abc"))
	if string(d.Name()) != "abc" {
		t.Fatalf("got %q", d.Name())
	}
}

func TestIsDirIsFile(t *testing.T) {
	d := NewDirDescriptor([]byte("d"), 0)
	if !d.IsDir() || d.IsFile() {
		t.Fatalf("expected IsDir, got %+v", d)
	}
	f := NewFileDescriptor([]byte("f"))
	if d.IsDir() == f.IsDir() || !f.IsFile() {
		t.Fatalf("expected IsFile, got %+v", f)
	}
	// Per spec.md §3, any content_type other than ContentTypeDir is a file.
	f.ContentType = 2
	if !f.IsFile() {
		t.Fatal("expected a reserved content_type to still count as a file")
	}
}
