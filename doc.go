// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package paks implements the PAKS single-file encrypted archive format: a
// virtual filesystem of nested directories and files, stored inside one host
// file, where every byte other than zero padding is authenticated-encrypted
// under a single 128-bit key.
//
// The format is layered, leaves first: fixed 16-byte [Block]s are the unit of
// every offset and size; a [Section] frames an authenticated-encrypted extent
// of blocks; a [Descriptor] is one 80-byte directory entry; a flat, pre-order
// sequence of descriptors ([Directory]) linearises an entire directory tree;
// and an editor ([MemoryEditor] or [FileEditor]) combines an append-only
// block pool with a mutable directory, persisted on [FileEditor.Finish].
package paks

// BlockSize is the size in bytes of one block, the unit of every offset,
// size, nonce, and MAC in the format.
const BlockSize = 16
