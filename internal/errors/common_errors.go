package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeFormat    ErrorType = "FORMAT"
	ErrTypeChecksum  ErrorType = "CHECKSUM"
	ErrTypeVersion   ErrorType = "VERSION"
	ErrTypeType      ErrorType = "TYPE"
	ErrTypeIO        ErrorType = "IO"
	ErrTypeBuffer    ErrorType = "BUFFER"
	ErrTypeRateLimit ErrorType = "RATE_LIMIT"
	ErrTypeConfig    ErrorType = "CONFIG"
	ErrTypeUnknown   ErrorType = "UNKNOWN"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewFormatError creates a key format error. The cause is always ErrInvalidKeyFormat.
func NewFormatError(format string, args ...interface{}) *AppError {
	return NewAppError(ErrTypeFormat, fmt.Sprintf(format, args...), ErrInvalidKeyFormat)
}

// NewChecksumError creates a checksum mismatch error
func NewChecksumError(want, got uint16) *AppError {
	return NewAppError(ErrTypeChecksum, "embedded checksum does not match key payload", ErrChecksumMismatch).
		WithContext("embedded", fmt.Sprintf("%04x", got)).
		WithContext("computed", fmt.Sprintf("%04x", want))
}

// NewVersionError creates an unsupported version error
func NewVersionError(major, minor uint8) *AppError {
	return NewAppError(ErrTypeVersion, fmt.Sprintf("key format version %d.%d", major, minor), ErrUnsupportedVersion).
		WithContext("major", major).
		WithContext("minor", minor)
}

// NewTypeError creates an unknown license type error
func NewTypeError(licenseType uint8) *AppError {
	return NewAppError(ErrTypeType, fmt.Sprintf("license type %d", licenseType), ErrUnknownLicenseType).
		WithContext("type", licenseType)
}

// NewIOError creates a hardware query error wrapping the underlying system error
func NewIOError(message string, cause error) *AppError {
	if cause == nil {
		cause = ErrHardwareQuery
	} else if !errors.Is(cause, ErrHardwareQuery) && !errors.Is(cause, ErrNoHardwareAddress) {
		cause = fmt.Errorf("%w: %w", ErrHardwareQuery, cause)
	}
	return NewAppError(ErrTypeIO, message, cause)
}

// NewBufferError creates a buffer-size error
func NewBufferError(have, need int) *AppError {
	return NewAppError(ErrTypeBuffer, fmt.Sprintf("destination holds %d bytes, need %d", have, need), ErrBufferTooSmall).
		WithContext("have", have).
		WithContext("need", need)
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError() *AppError {
	return NewAppError(ErrTypeRateLimit, "too many validation attempts", ErrRateLimited)
}

// NewConfigError creates a configuration error wrapping ErrConfig
func NewConfigError(message string, cause error) *AppError {
	if cause == nil {
		cause = ErrConfig
	} else if !errors.Is(cause, ErrConfig) {
		cause = fmt.Errorf("%w: %w", ErrConfig, cause)
	}
	return NewAppError(ErrTypeConfig, message, cause)
}

// TypeOf returns the category of the first AppError in err's chain.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrTypeUnknown
}

// ExitCode maps an error to a process exit status for the CLI.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch TypeOf(err) {
	case ErrTypeFormat:
		return 2
	case ErrTypeChecksum:
		return 3
	case ErrTypeVersion:
		return 4
	case ErrTypeType:
		return 5
	case ErrTypeIO, ErrTypeBuffer:
		return 6
	case ErrTypeRateLimit:
		return 7
	case ErrTypeConfig:
		return 8
	default:
		return 1
	}
}
