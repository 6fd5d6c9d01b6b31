package license

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "bckey/internal/errors"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{"empty", nil, 0x0000},
		{"check string", []byte("123456789"), 0xBB3D},
		{"zeros", make([]byte, KeyLen), 0x0000},
		{"single byte", []byte{0x01}, 0xC0C1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Checksum(tt.data))
		})
	}
}

func TestChecksum_MatchesBitwiseDefinition(t *testing.T) {
	bitwise := func(data []byte) uint16 {
		var crc uint16
		for _, b := range data {
			crc ^= uint16(b)
			for range 8 {
				if crc&1 != 0 {
					crc = crc>>1 ^ 0xA001
				} else {
					crc >>= 1
				}
			}
		}
		return crc
	}

	rng := rand.New(rand.NewSource(7))
	for range 200 {
		data := make([]byte, rng.Intn(32))
		rng.Read(data)
		assert.Equal(t, bitwise(data), Checksum(data))
	}
}

func TestTransform(t *testing.T) {
	tests := []struct {
		name string
		raw  [KeyLen]byte
		want [KeyLen]byte
	}{
		{
			name: "secret maps to zero",
			raw:  secret,
			want: [KeyLen]byte{},
		},
		{
			name: "zero key borrows at every byte",
			raw:  [KeyLen]byte{},
			want: [KeyLen]byte{0xce, 0xeb, 0x01, 0x12, 0x0f, 0xf3, 0xbc, 0xda, 0x0b, 0xd8},
		},
		{
			name: "all ones",
			raw:  [KeyLen]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
			want: [KeyLen]byte{0xcd, 0xeb, 0x01, 0x12, 0x0f, 0xf3, 0xbc, 0xda, 0x0b, 0xd8},
		},
		{
			name: "first byte one above secret",
			raw:  [KeyLen]byte{0x33, 0x14, 0xfe, 0xed, 0xf0, 0x0c, 0x43, 0x25, 0xf4, 0x27},
			want: [KeyLen]byte{0x01},
		},
		{
			name: "borrow decrements the next byte without propagating",
			raw:  [KeyLen]byte{0x31, 0x14, 0xfe, 0xed, 0xf0, 0x0c, 0x43, 0x25, 0xf4, 0x27},
			want: [KeyLen]byte{0xff, 0xff},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Transform(tt.raw))
		})
	}
}

func TestTransform_InvertsKeyConstruction(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for range 1000 {
		var b [KeyLen]byte
		rng.Read(b[:])
		require.Equal(t, b, Transform(untransform(b)), "bytes %x", b)
	}
}

func TestCipher_Pull(t *testing.T) {
	ones := [KeyLen]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	c := &Cipher{buf: Transform(ones)}

	assert.Equal(t, uint32(1), c.Pull(1))
	assert.Equal(t, uint32(6), c.Pull(3))
	assert.Equal(t, uint32(201), c.Pull(8))
	assert.Equal(t, uint32(30346), c.Pull(16))
	assert.Equal(t, uint32(854684952), c.Pull(32))
	assert.Equal(t, 60, c.Consumed())
	assert.Equal(t, 0, c.Cursor())
}

func TestCipher_PullWalksRingLowBitsFirst(t *testing.T) {
	// Only bit 0 of byte 0 and bits 0-1 of byte 9 are set.
	c := &Cipher{buf: [KeyLen]byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x03}}

	// Pass 1: bit 0 of bytes 0..9 -> 1 0 0 0 0 0 0 0 0 1
	assert.Equal(t, uint32(0b1000000001), c.Pull(10))
	assert.Equal(t, 0, c.Cursor())
	// Pass 2: bit 1 of bytes 0..9 -> only byte 9
	assert.Equal(t, uint32(0b0000000001), c.Pull(10))
	// Everything is now consumed.
	assert.Equal(t, uint32(0), c.Pull(32))
}

func TestCipher_PullZeroBits(t *testing.T) {
	c := &Cipher{buf: [KeyLen]byte{0xff}}
	assert.Equal(t, uint32(0), c.Pull(0))
	assert.Equal(t, 0, c.Consumed())
}

func TestCipher_PullPanicsOutsideWordSize(t *testing.T) {
	c := &Cipher{}
	assert.Panics(t, func() { c.Pull(33) })
	assert.Panics(t, func() { c.Pull(-1) })
}

// destructiveReader is the shift-out reader the Cipher models.
type destructiveReader struct {
	buf [KeyLen]byte
	idx int
}

func (d *destructiveReader) pull(n int) uint32 {
	var bits uint32
	for range n {
		bits = bits<<1 | uint32(d.buf[d.idx]&1)
		d.buf[d.idx] >>= 1
		d.idx = (d.idx + 1) % KeyLen
	}
	return bits
}

func TestCipher_MatchesDestructiveReader(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	widths := []int{16, 8, 4, 4, 4, 7, 5, 32, 13, 1}

	for range 500 {
		var buf [KeyLen]byte
		rng.Read(buf[:])

		c := &Cipher{buf: buf}
		d := &destructiveReader{buf: buf}
		for _, n := range widths {
			require.Equal(t, d.pull(n), c.Pull(n))
			require.Equal(t, d.buf, c.Remaining())
			require.Equal(t, d.idx, c.Cursor())
		}
	}
}

func TestCipher_RemainingDoesNotMutate(t *testing.T) {
	buf := [KeyLen]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff, 0x11, 0x22, 0x33, 0x44}
	c := &Cipher{buf: buf}
	c.Pull(16)

	first := c.Remaining()
	second := c.Remaining()
	assert.Equal(t, first, second)
	assert.Equal(t, buf, c.buf)
	assert.Equal(t, byte(0xaa>>2), first[0])
	assert.Equal(t, byte(0x11>>1), first[6])
}

func TestNewCipher(t *testing.T) {
	t.Run("valid checksum", func(t *testing.T) {
		raw := rawKeyFor(validFields())
		c, err := NewCipher(raw)
		require.NoError(t, err)
		assert.Equal(t, checksumBits, c.Consumed())
		assert.Equal(t, 6, c.Cursor())
	})

	t.Run("corrupted byte", func(t *testing.T) {
		raw := rawKeyFor(validFields())
		raw[4] ^= 0x10
		c, err := NewCipher(raw)
		assert.Nil(t, c)
		assert.ErrorIs(t, err, apperrors.ErrChecksumMismatch)
		assert.Equal(t, apperrors.ErrTypeChecksum, apperrors.TypeOf(err))
	})

	t.Run("secret as key has a zero checksum over zero payload", func(t *testing.T) {
		_, err := NewCipher(secret)
		assert.NoError(t, err)
	})
}

func TestNewCipher_AcceptsAnyPayloadWithMatchingChecksum(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for range 500 {
		f := keyFields{
			magic:      uint8(rng.Intn(256)),
			major:      uint8(rng.Intn(16)),
			minor:      uint8(rng.Intn(16)),
			typ:        uint8(rng.Intn(16)),
			evalPeriod: uint8(rng.Intn(128)),
			count:      uint8(rng.Intn(32)),
			id:         rng.Uint32(),
		}
		_, err := NewCipher(rawKeyFor(f))
		require.NoError(t, err, "fields %+v", f)
	}
}
