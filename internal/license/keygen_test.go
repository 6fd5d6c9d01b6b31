package license

// Test-only key construction: the inverse of Transform and of the bit
// layout read by Decode.

type keyFields struct {
	magic      uint8
	major      uint8
	minor      uint8
	typ        uint8
	evalPeriod uint8 // padding for camera keys
	count      uint8
	id         uint32
}

func validFields() keyFields {
	return keyFields{magic: Magic, major: FormatMajor, minor: FormatMinor}
}

// untransform returns the raw key that Transform maps to t. Transform borrows
// into byte i+1 whenever raw[i] < secret[i], so the raw bytes are rebuilt
// from the first byte upward, carrying that borrow forward.
func untransform(t [KeyLen]byte) [KeyLen]byte {
	var raw [KeyLen]byte
	borrow := 0
	for i := 0; i < KeyLen; i++ {
		raw[i] = byte(int(t[i]) + int(secret[i]) + borrow)
		borrow = 0
		if raw[i] < secret[i] {
			borrow = 1
		}
	}
	return raw
}

type bitWriter struct {
	bits [KeyLen * 8]byte
	pos  int
}

func (w *bitWriter) put(v uint32, width int) {
	for k := width - 1; k >= 0; k-- {
		w.bits[w.pos] = byte(v>>k) & 1
		w.pos++
	}
}

func (w *bitWriter) layout() [KeyLen]byte {
	var buf [KeyLen]byte
	for k, bit := range w.bits {
		buf[k%KeyLen] |= bit << (k / KeyLen)
	}
	return buf
}

// rawKeyFor builds raw key bytes that decode to f, with a correct checksum.
func rawKeyFor(f keyFields) [KeyLen]byte {
	w := &bitWriter{pos: checksumBits}
	w.put(uint32(f.magic), magicBits)
	w.put(uint32(f.major), majorBits)
	w.put(uint32(f.minor), minorBits)
	w.put(uint32(f.typ), typeBits)
	w.put(uint32(f.evalPeriod), evalPeriodBits)
	w.put(uint32(f.count), countBits)
	w.put(f.id, idBits)

	payload := &Cipher{buf: w.layout(), pos: checksumBits}
	remaining := payload.Remaining()

	w.pos = 0
	w.put(uint32(Checksum(remaining[:])), checksumBits)
	return untransform(w.layout())
}

func keyFor(f keyFields) string {
	return FormatKey(rawKeyFor(f))
}
