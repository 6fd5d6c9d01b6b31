package license

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "bckey/internal/errors"
)

// Magic is the first field of every key payload.
const Magic = 0xBC

// Supported key format generation.
const (
	FormatMajor = 2
	FormatMinor = 1
)

// Field widths, in the order they are read after the checksum.
const (
	magicBits      = 8
	majorBits      = 4
	minorBits      = 4
	typeBits       = 4
	evalPeriodBits = 7
	countBits      = 5
	idBits         = 32
)

// Type is the kind of license a key grants.
type Type uint8

const (
	TypeCamera     Type = 0
	TypeCameraEval Type = 1
)

// String returns the lowercase name of the license type.
func (t Type) String() string {
	switch t {
	case TypeCamera:
		return "camera"
	case TypeCameraEval:
		return "camera_eval"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Valid reports whether t is a known license type.
func (t Type) Valid() bool {
	return t == TypeCamera || t == TypeCameraEval
}

// MarshalJSON encodes the type by name.
func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts the names produced by MarshalJSON.
func (t *Type) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "camera":
		*t = TypeCamera
	case "camera_eval":
		*t = TypeCameraEval
	default:
		return fmt.Errorf("unknown license type %q", name)
	}
	return nil
}

// Record is a decoded license key. Count is meaningful for camera licenses,
// EvalPeriod for evaluation licenses; EvalPeriod is always zero for camera
// licenses.
type Record struct {
	Major      uint8  `json:"major"`
	Minor      uint8  `json:"minor"`
	Type       Type   `json:"type"`
	Count      uint8  `json:"count"`
	EvalPeriod uint8  `json:"eval_period"`
	ID         uint32 `json:"id"`
}

// IsEval reports whether the record is an evaluation license.
func (r *Record) IsEval() bool {
	return r.Type == TypeCameraEval
}

// String renders the record on one line.
func (r *Record) String() string {
	if r.IsEval() {
		return fmt.Sprintf("v%d.%d %s eval_period=%d count=%d id=%d", r.Major, r.Minor, r.Type, r.EvalPeriod, r.Count, r.ID)
	}
	return fmt.Sprintf("v%d.%d %s count=%d id=%d", r.Major, r.Minor, r.Type, r.Count, r.ID)
}

// ParseKey converts a key string to its raw bytes. Dashes are skipped
// wherever they appear; every other character must be a hex digit, and there
// must be exactly KeyHexLen of them.
func ParseKey(s string) ([KeyLen]byte, error) {
	var raw [KeyLen]byte
	n := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '-' {
			continue
		}
		v, ok := hexValue(ch)
		if !ok {
			return [KeyLen]byte{}, apperrors.NewFormatError("invalid character %q at offset %d", ch, i).
				WithContext("offset", i)
		}
		if n >= KeyHexLen {
			return [KeyLen]byte{}, apperrors.NewFormatError("more than %d hex digits", KeyHexLen).
				WithContext("offset", i)
		}
		if n%2 == 0 {
			v <<= 4
		}
		raw[n/2] |= v
		n++
	}
	if n != KeyHexLen {
		return [KeyLen]byte{}, apperrors.NewFormatError("%d hex digits, want %d", n, KeyHexLen).
			WithContext("digits", n)
	}
	return raw, nil
}

func hexValue(ch byte) (byte, bool) {
	switch {
	case ch >= '0' && ch <= '9':
		return ch - '0', true
	case ch >= 'a' && ch <= 'f':
		return ch - 'a' + 10, true
	case ch >= 'A' && ch <= 'F':
		return ch - 'A' + 10, true
	}
	return 0, false
}

// Decode parses and validates a license key. It returns a complete Record or
// an error wrapping one of ErrInvalidKeyFormat, ErrChecksumMismatch,
// ErrUnsupportedVersion or ErrUnknownLicenseType. Decode holds no state and
// is safe for concurrent use.
func Decode(key string) (*Record, error) {
	raw, err := ParseKey(key)
	if err != nil {
		return nil, err
	}
	c, err := NewCipher(raw)
	if err != nil {
		return nil, err
	}

	// The read order is the wire format.
	if magic := c.Pull(magicBits); magic != Magic {
		return nil, apperrors.NewFormatError("magic byte %#02x, want %#02x", magic, Magic).
			WithContext("magic", magic)
	}

	var r Record
	r.Major = uint8(c.Pull(majorBits))
	r.Minor = uint8(c.Pull(minorBits))
	if r.Major != FormatMajor || r.Minor != FormatMinor {
		return nil, apperrors.NewVersionError(r.Major, r.Minor)
	}

	r.Type = Type(c.Pull(typeBits))
	switch r.Type {
	case TypeCamera:
		c.Pull(evalPeriodBits)
	case TypeCameraEval:
		r.EvalPeriod = uint8(c.Pull(evalPeriodBits))
	default:
		return nil, apperrors.NewTypeError(uint8(r.Type))
	}

	r.Count = uint8(c.Pull(countBits))
	r.ID = c.Pull(idBits)
	return &r, nil
}

// Normalize returns key as uppercase hex in dash-separated groups of four.
// It does not validate the checksum.
func Normalize(key string) (string, error) {
	raw, err := ParseKey(key)
	if err != nil {
		return "", err
	}
	return FormatKey(raw), nil
}

// FormatKey renders raw key bytes as XXXX-XXXX-XXXX-XXXX-XXXX.
func FormatKey(raw [KeyLen]byte) string {
	hex := fmt.Sprintf("%X", raw[:])
	var b strings.Builder
	for i := 0; i < len(hex); i += 4 {
		if i > 0 {
			b.WriteByte('-')
		}
		b.WriteString(hex[i : i+4])
	}
	return b.String()
}
