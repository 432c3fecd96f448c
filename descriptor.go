package paks

import (
	"bytes"
	"encoding/binary"
)

// DescriptorSize is the on-disk size in bytes of one directory entry. See
// DESIGN.md ("Resolved layout contradiction: Descriptor size") for why this
// is 80 bytes (5 blocks) rather than the 64 bytes spec.md's headline states
// in isolation.
const DescriptorSize = 80

// nameSize is the fixed width of the zero-padded name field.
const nameSize = 32

// Content type values. Anything other than ContentTypeDir is treated as a
// file (spec.md §3: "other values reserved for future file kinds but are
// still treated as 'file' by the engine").
const (
	ContentTypeDir  = 0
	ContentTypeFile = 1
)

// Descriptor is one directory entry: a file or a directory, identified by
// Name, with either a payload Section (file) or a recursive descendant count
// in ContentSize (directory).
type Descriptor struct {
	name        [nameSize]byte
	ContentType uint8
	ContentSize uint32
	Section     Section
}

// NewDirDescriptor returns a directory descriptor named name with the given
// recursive descendant count.
func NewDirDescriptor(name []byte, descendants uint32) Descriptor {
	var d Descriptor
	d.SetName(name)
	d.ContentType = ContentTypeDir
	d.ContentSize = descendants
	return d
}

// NewFileDescriptor returns an empty (content-less) file descriptor named
// name. Callers fill in Section and ContentSize once the payload is written.
func NewFileDescriptor(name []byte) Descriptor {
	var d Descriptor
	d.SetName(name)
	d.ContentType = ContentTypeFile
	return d
}

// Name returns the descriptor's name with trailing zero padding stripped.
func (d *Descriptor) Name() []byte {
	if i := bytes.IndexByte(d.name[:], 0); i >= 0 {
		return d.name[:i]
	}
	return d.name[:]
}

// SetName stores name into the descriptor, truncating to nameSize bytes if
// necessary. name must not be longer needed than its truncated form once
// callers have validated it (see validateName).
func (d *Descriptor) SetName(name []byte) {
	var buf [nameSize]byte
	n := copy(buf[:], name)
	_ = n
	d.name = buf
}

// IsDir reports whether the descriptor names a directory.
func (d Descriptor) IsDir() bool {
	return d.ContentType == ContentTypeDir
}

// IsFile reports whether the descriptor names a file. Per spec.md §3, any
// content_type other than ContentTypeDir counts as a file.
func (d Descriptor) IsFile() bool {
	return d.ContentType != ContentTypeDir
}

// validateName reports whether name is an acceptable descriptor name: 1-32
// bytes, no interior NUL, no path separator.
func validateName(name []byte) bool {
	if len(name) == 0 || len(name) > nameSize {
		return false
	}
	for _, c := range name {
		if c == 0 || c == '/' || c == '\\' {
			return false
		}
	}
	return true
}

// PutDescriptor encodes d into the first DescriptorSize bytes of dst.
func PutDescriptor(dst []byte, d Descriptor) {
	_ = dst[DescriptorSize-1]
	copy(dst[0:nameSize], d.name[:])
	dst[nameSize] = d.ContentType
	dst[nameSize+1] = 0
	dst[nameSize+2] = 0
	dst[nameSize+3] = 0
	binary.LittleEndian.PutUint32(dst[36:40], d.ContentSize)
	binary.LittleEndian.PutUint32(dst[40:44], d.Section.Offset)
	binary.LittleEndian.PutUint32(dst[44:48], d.Section.Size)
	copy(dst[48:64], d.Section.Nonce[:])
	copy(dst[64:80], d.Section.Mac[:])
}

// GetDescriptor decodes a Descriptor from the first DescriptorSize bytes of
// src.
func GetDescriptor(src []byte) Descriptor {
	_ = src[DescriptorSize-1]
	var d Descriptor
	copy(d.name[:], src[0:nameSize])
	d.ContentType = src[nameSize]
	d.ContentSize = binary.LittleEndian.Uint32(src[36:40])
	d.Section.Offset = binary.LittleEndian.Uint32(src[40:44])
	d.Section.Size = binary.LittleEndian.Uint32(src[44:48])
	copy(d.Section.Nonce[:], src[48:64])
	copy(d.Section.Mac[:], src[64:80])
	return d
}
