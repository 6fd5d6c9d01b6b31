// Package license decodes and validates license keys.
//
// # Key Format
//
// A key is 20 hex digits, case-insensitive, usually written in groups of
// four (XXXX-XXXX-XXXX-XXXX-XXXX). Dashes may appear anywhere and are
// ignored. The 10 decoded bytes are transformed by subtracting a fixed
// secret (see Transform) and then read as a bit stream that walks the
// buffer as a ring, taking the lowest unread bit of each byte in turn.
//
// # Bit Layout
//
// Fields are read in this order; the order is part of the format:
//
//	16 bits  checksum (CRC-16/ARC of the bits that follow)
//	 8 bits  magic, always 0xBC
//	 4 bits  major version
//	 4 bits  minor version (only 2.1 is understood)
//	 4 bits  license type (0 camera, 1 camera evaluation)
//	 7 bits  evaluation period (padding for camera licenses)
//	 5 bits  camera count
//	32 bits  license id
//
// # Usage
//
//	record, err := license.Decode("B782-FF80-92CF-CA66-168A")
//	if err != nil {
//	    // errors.Is(err, apperrors.ErrChecksumMismatch) etc.
//	}
//
// Validator wraps Decode with audit logging, OpenTelemetry spans and metrics,
// an optional attempt rate limit, and concurrent batch validation.
//
// Generating keys is outside the scope of this package.
package license
