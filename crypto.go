package paks

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// KeySize is the width in bytes of a PAKS archive key (128 bits).
const KeySize = 16

// Key is the 128-bit symmetric key used to seal every section of an archive.
type Key [KeySize]byte

// ParseKey parses a hexadecimal string (up to 32 characters) as a big-endian
// 128-bit integer and returns the corresponding Key, matching the CLI/FFI key
// encoding in spec.md §6.
func ParseKey(s string) (Key, error) {
	if len(s) > KeySize*2 {
		return Key{}, fmt.Errorf("paks: parse key: %q is longer than %d hex digits", s, KeySize*2)
	}
	// Left-pad with a leading zero nibble if the digit count is odd so
	// hex.DecodeString sees whole bytes.
	padded := s
	if len(padded)%2 != 0 {
		padded = "0" + padded
	}
	raw, err := hex.DecodeString(padded)
	if err != nil {
		return Key{}, fmt.Errorf("paks: parse key: %w", err)
	}
	var key Key
	// raw is big-endian and right-aligned; place it at the end of key.
	copy(key[KeySize-len(raw):], raw)
	return key, nil
}

// RandomSource supplies nonce material. The zero value is not usable; use
// [CryptoRandSource] for the default, process-wide cryptographically secure
// source, or supply a host callback (spec.md §9 "Randomness").
type RandomSource interface {
	ReadRandom(buf []byte) error
}

// CryptoRandSource is the default [RandomSource], backed by crypto/rand.
var CryptoRandSource RandomSource = cryptoRandSource{}

type cryptoRandSource struct{}

func (cryptoRandSource) ReadRandom(buf []byte) error {
	_, err := rand.Read(buf)
	return err
}

func newGCM(key Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, 16)
}

// decryptSection reverses encryptSectionBuf. It returns false iff the MAC does
// not verify; ciphertext is left untouched on failure and must not be
// treated as valid plaintext by the caller.
func decryptSection(ciphertext []byte, section Section, key Key) bool {
	aead, err := newGCM(key)
	if err != nil {
		return false
	}
	ad := sectionAD(section.Offset, section.Size)
	sealed := make([]byte, len(ciphertext)+16)
	copy(sealed, ciphertext)
	copy(sealed[len(ciphertext):], section.Mac[:])
	opened, err := aead.Open(sealed[:0], section.Nonce[:], sealed, ad)
	if err != nil {
		return false
	}
	copy(ciphertext, opened)
	return true
}

// encryptSectionBuf seals plaintext in place under a fresh nonce, working
// around Go's AEAD.Seal appending the tag: it seals into a scratch buffer and
// copies the ciphertext back over plaintext, leaving plaintext's length
// unchanged and storing the tag in section.Mac.
func encryptSectionBuf(plaintext []byte, section *Section, key Key, rng RandomSource) error {
	aead, err := newGCM(key)
	if err != nil {
		return err
	}
	var nonce [16]byte
	if err := rng.ReadRandom(nonce[:]); err != nil {
		return fmt.Errorf("paks: generate nonce: %w", err)
	}
	ad := sectionAD(section.Offset, section.Size)
	sealed := aead.Seal(nil, nonce[:], plaintext, ad)
	copy(plaintext, sealed[:len(plaintext)])
	section.Nonce = nonce
	copy(section.Mac[:], sealed[len(plaintext):])
	return nil
}

// sealHeader encrypts info under the canonical header section (offset 0,
// size HeaderBlocks, the archive's fixed associated data for this seal) and
// returns a complete Header ready for PutHeader.
func sealHeader(info InfoHeader, key Key, rng RandomSource) (Header, error) {
	buf := make([]byte, infoSize)
	putInfo(buf, info)

	section := canonicalHeaderSection
	if err := encryptSectionBuf(buf, &section, key, rng); err != nil {
		return Header{}, err
	}
	var h Header
	h.Nonce = section.Nonce
	h.Mac = section.Mac
	copy(h.InfoCipher[:], buf)
	return h, nil
}

// openHeader reverses sealHeader, decrypting h.InfoCipher back into an
// InfoHeader. It returns false iff the header fails to authenticate.
func openHeader(h Header, key Key) (InfoHeader, bool) {
	section := canonicalHeaderSection
	section.Nonce = h.Nonce
	section.Mac = h.Mac
	buf := make([]byte, infoSize)
	copy(buf, h.InfoCipher[:])
	if !decryptSection(buf, section, key) {
		return InfoHeader{}, false
	}
	return getInfo(buf), true
}
