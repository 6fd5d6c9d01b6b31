package license

import (
	"fmt"

	apperrors "bckey/internal/errors"
)

const (
	// KeyLen is the decoded key size in bytes.
	KeyLen = 10
	// KeyHexLen is the number of hex digits in a key, dashes excluded.
	KeyHexLen = KeyLen * 2

	checksumBits = 16
	maxPullBits  = 32
)

// secret is subtracted from every raw key before any bit is read.
var secret = [KeyLen]byte{0x32, 0x14, 0xfe, 0xed, 0xf0, 0x0c, 0x43, 0x25, 0xf4, 0x27}

// Transform subtracts the key secret from raw, byte by byte, starting at the
// last byte. A byte that is smaller than its secret counterpart borrows 0x100
// and decrements the already computed byte at i+1. The last byte has nowhere
// to borrow from, and a decrement never propagates past one byte.
func Transform(raw [KeyLen]byte) [KeyLen]byte {
	var out [KeyLen]byte
	for i := KeyLen - 1; i >= 0; i-- {
		j := uint16(raw[i])
		if j < uint16(secret[i]) {
			j += 0x100
			if i < KeyLen-1 {
				out[i+1]--
			}
		}
		out[i] = byte(j - uint16(secret[i]))
	}
	return out
}

// Cipher reads a transformed key as a stream of bits.
//
// The stream visits the buffer as a ring: bit k is the lowest unread bit of
// byte k%KeyLen, which is bit k/KeyLen of the transformed byte. The buffer is
// never modified; only the cursor moves.
type Cipher struct {
	buf [KeyLen]byte
	pos int
}

// NewCipher transforms raw and verifies the 16-bit checksum at the head of
// the bit stream against the remaining payload bits. On success the returned
// Cipher is positioned just after the checksum.
func NewCipher(raw [KeyLen]byte) (*Cipher, error) {
	c := &Cipher{buf: Transform(raw)}

	embedded := uint16(c.Pull(checksumBits))
	remaining := c.Remaining()
	computed := Checksum(remaining[:])
	if embedded != computed {
		return nil, apperrors.NewChecksumError(computed, embedded)
	}
	return c, nil
}

// Pull returns the next n bits, first bit read in the most significant
// position. n must be between 0 and 32.
func (c *Cipher) Pull(n int) uint32 {
	if n < 0 || n > maxPullBits {
		panic(fmt.Sprintf("license: pull of %d bits", n))
	}
	var bits uint32
	for range n {
		bits = bits<<1 | uint32(c.bitAt(c.pos))
		c.pos++
	}
	return bits
}

// Cursor returns the ring index the next bit is read from.
func (c *Cipher) Cursor() int {
	return c.pos % KeyLen
}

// Consumed returns the number of bits read so far.
func (c *Cipher) Consumed() int {
	return c.pos
}

// Remaining returns the unread bits of each byte, aligned to bit 0. This is
// the buffer as a reader that shifts bits out of each byte would see it.
func (c *Cipher) Remaining() [KeyLen]byte {
	var out [KeyLen]byte
	for i, b := range c.buf {
		out[i] = b >> c.passes(i)
	}
	return out
}

func (c *Cipher) bitAt(k int) byte {
	return c.buf[k%KeyLen] >> (k / KeyLen) & 1
}

// passes returns how many bits have been read from byte i.
func (c *Cipher) passes(i int) int {
	if c.pos <= i {
		return 0
	}
	return (c.pos - i + KeyLen - 1) / KeyLen
}
