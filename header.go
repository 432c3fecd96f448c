package paks

import "encoding/binary"

// HeaderSize is the on-disk size in bytes of the archive header, always at
// offset 0.
const HeaderSize = 128

// HeaderBlocks is HeaderSize expressed in blocks.
const HeaderBlocks = HeaderSize / BlockSize

// FormatVersion is the only info.version this implementation accepts.
const FormatVersion = 1

// InfoHeader is the header's authenticated-encrypted payload: a format
// version and the section describing where the live directory is. Once
// sealed, its encoding is opaque ciphertext; see [Header.InfoCipher].
type InfoHeader struct {
	Version   uint32
	Directory Section
}

// infoSize is the encoded size in bytes of InfoHeader, before sealing.
const infoSize = 4 + SectionSize

// Header is the archive's first 128 bytes: a nonce and MAC framing the
// sealed InfoHeader that follows. Unlike [Section] and [Descriptor], a
// Header's Info is never held in the clear on disk — only [Header.InfoCipher]
// (opaque bytes) round-trips through Put/GetHeader; decrypting it into an
// [InfoHeader] is a separate step (openHeader).
type Header struct {
	Nonce      [16]byte
	Mac        [16]byte
	InfoCipher [infoSize]byte
}

// canonicalHeaderSection is the fixed (offset, size) pair describing the
// header's own section: the header always starts at block 0 and is always
// HeaderBlocks long. It supplies the associated data that binds the
// header's seal to its fixed location.
var canonicalHeaderSection = Section{Offset: 0, Size: HeaderBlocks}

// PutHeader encodes h into the first HeaderSize bytes of dst.
func PutHeader(dst []byte, h Header) {
	_ = dst[HeaderSize-1]
	copy(dst[0:16], h.Nonce[:])
	copy(dst[16:32], h.Mac[:])
	copy(dst[32:32+infoSize], h.InfoCipher[:])
	for i := 32 + infoSize; i < HeaderSize; i++ {
		dst[i] = 0
	}
}

// GetHeader decodes a Header from the first HeaderSize bytes of src,
// leaving InfoCipher sealed.
func GetHeader(src []byte) Header {
	_ = src[HeaderSize-1]
	var h Header
	copy(h.Nonce[:], src[0:16])
	copy(h.Mac[:], src[16:32])
	copy(h.InfoCipher[:], src[32:32+infoSize])
	return h
}

// putInfo encodes an InfoHeader's plaintext fields into dst, which must be
// at least infoSize bytes. Used only as the pre-image sealed by
// sealHeader.
func putInfo(dst []byte, info InfoHeader) {
	binary.LittleEndian.PutUint32(dst[0:4], info.Version)
	PutSection(dst[4:4+SectionSize], info.Directory)
}

func getInfo(src []byte) InfoHeader {
	var info InfoHeader
	info.Version = binary.LittleEndian.Uint32(src[0:4])
	info.Directory = GetSection(src[4 : 4+SectionSize])
	return info
}
