package errors

import (
	"errors"
)

// License key errors. Decode failures are terminal: retrying the same key
// cannot succeed.
var (
	ErrInvalidKeyFormat   = errors.New("invalid license key format")
	ErrChecksumMismatch   = errors.New("license key checksum mismatch")
	ErrUnsupportedVersion = errors.New("unsupported license key version")
	ErrUnknownLicenseType = errors.New("unknown license type")
	ErrRateLimited        = errors.New("rate limited")
)

// Machine fingerprint errors
var (
	ErrHardwareQuery     = errors.New("hardware query failed")
	ErrNoHardwareAddress = errors.New("no hardware address available")
	ErrBufferTooSmall    = errors.New("destination buffer too small")
)

// ErrConfig is wrapped by every configuration error
var ErrConfig = errors.New("invalid configuration")

// IsKeyError reports whether err is one of the license key decode errors.
func IsKeyError(err error) bool {
	return errors.Is(err, ErrInvalidKeyFormat) ||
		errors.Is(err, ErrChecksumMismatch) ||
		errors.Is(err, ErrUnsupportedVersion) ||
		errors.Is(err, ErrUnknownLicenseType)
}

// Reason returns a short, stable label for err, suitable as a metric attribute.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidKeyFormat):
		return "format"
	case errors.Is(err, ErrChecksumMismatch):
		return "checksum"
	case errors.Is(err, ErrUnsupportedVersion):
		return "version"
	case errors.Is(err, ErrUnknownLicenseType):
		return "type"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrBufferTooSmall):
		return "buffer"
	case errors.Is(err, ErrHardwareQuery), errors.Is(err, ErrNoHardwareAddress):
		return "io"
	case errors.Is(err, ErrConfig):
		return "config"
	default:
		return "other"
	}
}
