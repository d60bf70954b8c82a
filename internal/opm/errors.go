package opm

import (
	"fmt"
)

// Error types for instrument communication and measurement computation

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeConnection indicates a session-level error (open failure,
	// handshake mismatch, operation on an unopened session)
	ErrTypeConnection ErrorType = iota
	// ErrTypeTimeout indicates the receive retry budget was exhausted
	// without seeing a response terminator
	ErrTypeTimeout
	// ErrTypeProtocol indicates an unexpected acknowledgment or a
	// malformed device response
	ErrTypeProtocol
	// ErrTypeValidation indicates a rejected input value (wavelength
	// outside the detector range, unrecognized enum value)
	ErrTypeValidation
	// ErrTypeDomain indicates a numeric domain error during measurement
	// conversion (logarithm of a non-positive value)
	ErrTypeDomain
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeConnection:
		return "Connection Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeProtocol:
		return "Protocol Error"
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeDomain:
		return "Domain Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// DeviceError represents an error that occurred while driving the instrument
type DeviceError struct {
	Type      ErrorType // Category of error
	Message   string    // Human-readable error message
	Err       error     // Underlying error (if any)
	Port      string    // Port or descriptor (for context)
	Retryable bool      // Whether the caller may simply retry the operation
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// NewConnectionError creates a session-level error
func NewConnectionError(message string, err error) *DeviceError {
	return &DeviceError{
		Type:      ErrTypeConnection,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

// NewTimeoutError creates a receive-timeout error. The poll loop is the
// only automatic retry; whole-command retries are up to the caller, so
// timeouts are marked retryable.
func NewTimeoutError(message string) *DeviceError {
	return &DeviceError{
		Type:      ErrTypeTimeout,
		Message:   message,
		Retryable: true,
	}
}

// NewProtocolError creates an unexpected-acknowledgment error. These
// never corrupt configuration state, so the caller may retry the call.
func NewProtocolError(message string) *DeviceError {
	return &DeviceError{
		Type:      ErrTypeProtocol,
		Message:   message,
		Retryable: true,
	}
}

// NewValidationError creates a rejected-input error
func NewValidationError(message string) *DeviceError {
	return &DeviceError{
		Type:      ErrTypeValidation,
		Message:   message,
		Retryable: false,
	}
}

// NewDomainError creates a numeric-domain error
func NewDomainError(message string) *DeviceError {
	return &DeviceError{
		Type:      ErrTypeDomain,
		Message:   message,
		Retryable: false,
	}
}

// IsConnectionError checks if an error is a session-level error
func IsConnectionError(err error) bool {
	if devErr, ok := err.(*DeviceError); ok {
		return devErr.Type == ErrTypeConnection
	}
	return false
}

// IsTimeoutError checks if an error is a receive timeout
func IsTimeoutError(err error) bool {
	if devErr, ok := err.(*DeviceError); ok {
		return devErr.Type == ErrTypeTimeout
	}
	return false
}

// IsProtocolError checks if an error is an unexpected acknowledgment
func IsProtocolError(err error) bool {
	if devErr, ok := err.(*DeviceError); ok {
		return devErr.Type == ErrTypeProtocol
	}
	return false
}

// IsValidationError checks if an error is a rejected input value
func IsValidationError(err error) bool {
	if devErr, ok := err.(*DeviceError); ok {
		return devErr.Type == ErrTypeValidation
	}
	return false
}

// IsDomainError checks if an error is a numeric domain error
func IsDomainError(err error) bool {
	if devErr, ok := err.(*DeviceError); ok {
		return devErr.Type == ErrTypeDomain
	}
	return false
}

// IsRetryable checks if an operation that returned err may be retried
func IsRetryable(err error) bool {
	if devErr, ok := err.(*DeviceError); ok {
		return devErr.Retryable
	}
	// Unknown errors are not retryable by default
	return false
}
