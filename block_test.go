// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package paks

import (
	"bytes"
	"testing"
)

func TestBlocksForBytes(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{
		{0, 0},
		{1, 1},
		{BlockSize - 1, 1},
		{BlockSize, 1},
		{BlockSize + 1, 2},
		{BlockSize * 3, 3},
	}
	for _, c := range cases {
		if got := BlocksForBytes(c.n); got != c.want {
			t.Errorf("BlocksForBytes(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestBytesToBlocksPadsLastBlockWithZeroes(t *testing.T) {
	data := bytes.Repeat([]byte{0xff}, BlockSize+3)
	blocks := bytesToBlocks(data)
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	if !bytes.Equal(blocks[1][3:], make([]byte, BlockSize-3)) {
		t.Fatalf("expected zero padding after byte 3 of the last block, got %x", blocks[1])
	}
}

func TestBlocksToBytesBytesToBlocksRoundTrip(t *testing.T) {
	orig := []byte("a reasonably long payload spanning several blocks of sixteen bytes each")
	blocks := bytesToBlocks(orig)
	flat := blocksToBytes(blocks)
	if !bytes.Equal(flat[:len(orig)], orig) {
		t.Fatalf("got %q, want prefix %q", flat, orig)
	}
	if len(flat)%BlockSize != 0 {
		t.Fatalf("flattened length %d is not block-aligned", len(flat))
	}
}

func TestBlocksToBytesEmpty(t *testing.T) {
	if got := blocksToBytes(nil); got != nil {
		t.Fatalf("expected nil for no blocks, got %v", got)
	}
}
