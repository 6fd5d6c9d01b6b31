package testutil

// KeyFixture is a license key with the fields it decodes to. Outcome is
// "ok" for keys that decode, otherwise the reason label of the expected
// failure (format, checksum, version, type).
type KeyFixture struct {
	Name       string
	Key        string
	Outcome    string
	Type       uint8
	Count      uint8
	EvalPeriod uint8
	ID         uint32
}

// Valid license keys
var (
	CameraKey = KeyFixture{
		Name: "camera", Key: "B782-FF80-92CF-CA66-168A", Outcome: "ok",
		Type: 0, Count: 16, ID: 0x12345678,
	}
	EvalKey = KeyFixture{
		Name: "camera eval", Key: "0693-9FCF-D226-29E7-EE03", Outcome: "ok",
		Type: 1, Count: 4, EvalPeriod: 30, ID: 0xDEADBEEF,
	}
	MaxFieldsKey = KeyFixture{
		Name: "all fields at maximum", Key: "2811-F2E1-E305-431D-EF23", Outcome: "ok",
		Type: 1, Count: 31, EvalPeriod: 127, ID: 0xFFFFFFFF,
	}
	ZeroIDKey = KeyFixture{
		Name: "camera with zero id", Key: "3620-FFEF-F00E-4926-F729", Outcome: "ok",
		Type: 0, Count: 0, ID: 0,
	}
	// PaddedCameraKey carries non-zero padding where an evaluation key would
	// hold its period.
	PaddedCameraKey = KeyFixture{
		Name: "camera with padding bits set", Key: "4922-0E6F-030E-D2B6-FEAA", Outcome: "ok",
		Type: 0, Count: 9, ID: 77,
	}
)

// Keys with a valid checksum that are rejected later in decoding
var (
	Version31Key = KeyFixture{Name: "version 3.1", Key: "3723-FEF0-F01C-492A-F7AA", Outcome: "version"}
	Version20Key = KeyFixture{Name: "version 2.0", Key: "3819-01F1-F01C-4926-F6AA", Outcome: "version"}
	Type7Key     = KeyFixture{Name: "license type 7", Key: "3921-01F9-FA24-4A26-F6A9", Outcome: "type"}
	BadMagicKey  = KeyFixture{Name: "magic 0xAB", Key: "381D-04F2-F11D-4926-F6A8", Outcome: "format"}
	// SecretKey transforms to all zero bytes: the checksum holds, the magic does not.
	SecretKey = KeyFixture{Name: "secret as key", Key: "3214-FEED-F00C-4325-F427", Outcome: "format"}
)

// ValidKeys returns every fixture that decodes successfully
func ValidKeys() []KeyFixture {
	return []KeyFixture{CameraKey, EvalKey, MaxFieldsKey, ZeroIDKey, PaddedCameraKey}
}

// RejectedKeys returns every well-formed fixture that fails after the checksum
func RejectedKeys() []KeyFixture {
	return []KeyFixture{Version31Key, Version20Key, Type7Key, BadMagicKey, SecretKey}
}
