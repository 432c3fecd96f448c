// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package paks

import "testing"

func TestHeaderPutGetRoundTrip(t *testing.T) {
	var h Header
	h.Nonce = [16]byte{1, 2, 3}
	h.Mac = [16]byte{4, 5, 6}
	for i := range h.InfoCipher {
		h.InfoCipher[i] = byte(i)
	}

	buf := make([]byte, HeaderSize)
	PutHeader(buf, h)
	got := GetHeader(buf)
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
}

func TestPutHeaderZeroesTrailingBytes(t *testing.T) {
	buf := make([]byte, HeaderSize)
	for i := range buf {
		buf[i] = 0xff
	}
	PutHeader(buf, Header{})
	for i := 32 + infoSize; i < HeaderSize; i++ {
		if buf[i] != 0 {
			t.Fatalf("byte %d not zeroed: %x", i, buf[i])
		}
	}
}

func TestInfoHeaderPutGetRoundTrip(t *testing.T) {
	info := InfoHeader{
		Version:   FormatVersion,
		Directory: Section{Offset: 8, Size: 2, Nonce: [16]byte{1}, Mac: [16]byte{2}},
	}
	buf := make([]byte, infoSize)
	putInfo(buf, info)
	got := getInfo(buf)
	if got != info {
		t.Fatalf("got %+v, want %+v", got, info)
	}
}

func TestCanonicalHeaderSectionMatchesLayout(t *testing.T) {
	if canonicalHeaderSection.Offset != 0 {
		t.Fatalf("header section must start at block 0, got %d", canonicalHeaderSection.Offset)
	}
	if canonicalHeaderSection.Size != HeaderBlocks {
		t.Fatalf("header section size %d does not match HeaderBlocks %d", canonicalHeaderSection.Size, HeaderBlocks)
	}
}
