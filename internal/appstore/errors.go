package appstore

import "fmt"

// Error represents a structured error from the appstore package.
type Error interface {
	error
	Code() ErrorCode
	Unwrap() error
}

type ErrorCode string

const (
	// ErrCodeBundleIDMismatch: the payload's bundle identifier does not
	// equal the verifier's configured bundle identifier.
	ErrCodeBundleIDMismatch ErrorCode = "bundle_id_mismatch"

	// ErrCodeAppAppleIDMismatch: a Production payload's app identifier does
	// not equal the verifier's configured app identifier.
	ErrCodeAppAppleIDMismatch ErrorCode = "app_apple_id_mismatch"

	// ErrCodeEnvironmentMismatch: the payload's declared environment does
	// not equal the verifier's configured environment.
	ErrCodeEnvironmentMismatch ErrorCode = "environment_mismatch"

	// ErrCodeInternal covers unexpected failures.
	ErrCodeInternal ErrorCode = "internal"
)

// VerificationError represents an identity or environment check failure.
type VerificationError struct {

	// code is the error code
	code ErrorCode

	// message is a human-readable error message
	message string

	// wrapped is the optional underlying error
	wrapped error
}

func (e *VerificationError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *VerificationError) Code() ErrorCode { return e.code }
func (e *VerificationError) Unwrap() error   { return e.wrapped }

// NewBundleIDMismatchError creates an error for bundle identifier mismatches.
//
// The returned error will have code ErrCodeBundleIDMismatch.
func NewBundleIDMismatchError(expected, got string) error {
	return &VerificationError{
		code:    ErrCodeBundleIDMismatch,
		message: fmt.Sprintf("bundle ID mismatch: expected %q, payload has %q", expected, got),
	}
}

// NewAppAppleIDMismatchError creates an error for app identifier mismatches.
//
// The returned error will have code ErrCodeAppAppleIDMismatch.
func NewAppAppleIDMismatchError(msg string) error {
	return &VerificationError{code: ErrCodeAppAppleIDMismatch, message: msg}
}

// NewEnvironmentMismatchError creates an error for environment mismatches.
//
// The returned error will have code ErrCodeEnvironmentMismatch.
func NewEnvironmentMismatchError(expected, got Environment) error {
	return &VerificationError{
		code:    ErrCodeEnvironmentMismatch,
		message: fmt.Sprintf("environment mismatch: expected %q, payload has %q", expected, got),
	}
}

// NewInternalError creates an internal error for unexpected failures.
//
// The returned error will have code ErrCodeInternal.
func NewInternalError(msg string) error {
	return &VerificationError{code: ErrCodeInternal, message: msg}
}

// WrapInternalError wraps an existing error as an internal error.
//
// The returned error will have code ErrCodeInternal.
func WrapInternalError(err error, msg string) error {
	return &VerificationError{code: ErrCodeInternal, message: msg, wrapped: err}
}
