package crypto

import "fmt"

// Error represents a structured error from the crypto package
type Error interface {
	error
	Code() ErrorCode
	Unwrap() error
}

type ErrorCode string

const (
	// ErrCodeJWSFormat covers structural problems with the compact
	// serialization: wrong segment count, bad base64url, unparsable header
	// JSON, or missing alg/x5c header fields.
	ErrCodeJWSFormat ErrorCode = "invalid_jws_format"

	// ErrCodeMalformedCertificate covers x5c entries that cannot be decoded
	// from base64 or parsed as DER X.509 certificates.
	ErrCodeMalformedCertificate ErrorCode = "malformed_certificate"

	// ErrCodeCertificateChain covers chain-of-trust failures. Errors with
	// this code carry a ChainReason identifying the failing check.
	ErrCodeCertificateChain ErrorCode = "invalid_certificate_chain"

	// ErrCodeUnsupportedAlgorithm is returned when the JWS header declares,
	// or a chain certificate is signed with, an algorithm outside the
	// allowlist (defends against algorithm-substitution attacks).
	ErrCodeUnsupportedAlgorithm ErrorCode = "unsupported_algorithm"

	// ErrCodeInvalidSignature is returned when the JWS signature does not
	// verify against the leaf certificate's public key.
	ErrCodeInvalidSignature ErrorCode = "invalid_signature"

	// ErrCodeInternal covers unexpected failures in underlying primitives.
	ErrCodeInternal ErrorCode = "internal"
)

// ChainReason identifies which chain-of-trust check failed for errors with
// code ErrCodeCertificateChain.
type ChainReason string

const (
	// ChainReasonExpired: a certificate's validity window does not contain
	// the verification instant.
	ChainReasonExpired ChainReason = "expired_certificate"

	// ChainReasonUntrustedRoot: the final link in the chain does not reach a
	// pinned trust anchor.
	ChainReasonUntrustedRoot ChainReason = "untrusted_root"

	// ChainReasonBroken: issuer/subject or signature mismatch between
	// adjacent links, or a basic-constraints violation.
	ChainReasonBroken ChainReason = "broken_chain"

	// ChainReasonRevoked: an online status check returned a definitive
	// revoked status for a chain certificate.
	ChainReasonRevoked ChainReason = "revoked_certificate"
)

// CryptoError represents a structured error from the crypto package
type CryptoError struct {

	// code is the error code
	code ErrorCode

	// reason is set for ErrCodeCertificateChain errors only
	reason ChainReason

	// message is a human-readable error message
	message string

	// wrapped is the optional underlying error
	wrapped error
}

func (e *CryptoError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *CryptoError) Code() ErrorCode     { return e.code }
func (e *CryptoError) Reason() ChainReason { return e.reason }
func (e *CryptoError) Unwrap() error       { return e.wrapped }

// NewFormatError creates an error for malformed compact serializations.
// Use this for segment count problems, bad base64url encoding, invalid header
// JSON and missing required header fields.
//
// The returned error will have code ErrCodeJWSFormat.
func NewFormatError(msg string) error {
	return &CryptoError{code: ErrCodeJWSFormat, message: msg}
}

// WrapFormatError wraps an existing error as a JWS format error.
//
// The returned error will have code ErrCodeJWSFormat.
func WrapFormatError(err error, msg string) error {
	return &CryptoError{code: ErrCodeJWSFormat, message: msg, wrapped: err}
}

// NewCertificateError creates an error for x5c entries that cannot be decoded
// or parsed as X.509 certificates, or for chains outside the length bounds.
//
// The returned error will have code ErrCodeMalformedCertificate.
func NewCertificateError(msg string) error {
	return &CryptoError{code: ErrCodeMalformedCertificate, message: msg}
}

// WrapCertificateError wraps an existing error as a malformed certificate error.
//
// The returned error will have code ErrCodeMalformedCertificate.
func WrapCertificateError(err error, msg string) error {
	return &CryptoError{code: ErrCodeMalformedCertificate, message: msg, wrapped: err}
}

// NewChainError creates a chain-of-trust validation error with the given reason.
//
// The returned error will have code ErrCodeCertificateChain.
func NewChainError(reason ChainReason, msg string) error {
	return &CryptoError{code: ErrCodeCertificateChain, reason: reason, message: msg}
}

// WrapChainError wraps an existing error as a chain-of-trust validation error.
//
// The returned error will have code ErrCodeCertificateChain.
func WrapChainError(err error, reason ChainReason, msg string) error {
	return &CryptoError{code: ErrCodeCertificateChain, reason: reason, message: msg, wrapped: err}
}

// NewAlgorithmError creates an error for disallowed signing algorithms.
//
// The returned error will have code ErrCodeUnsupportedAlgorithm.
func NewAlgorithmError(msg string) error {
	return &CryptoError{code: ErrCodeUnsupportedAlgorithm, message: msg}
}

// NewSignatureError creates a signature verification error.
//
// The returned error will have code ErrCodeInvalidSignature.
func NewSignatureError(msg string) error {
	return &CryptoError{code: ErrCodeInvalidSignature, message: msg}
}

// WrapSignatureError wraps an existing error as a signature error.
//
// The returned error will have code ErrCodeInvalidSignature.
func WrapSignatureError(err error, msg string) error {
	return &CryptoError{code: ErrCodeInvalidSignature, message: msg, wrapped: err}
}

// NewInternalError creates an internal error for unexpected failures.
// Use this for errors related to crypto library failures, unexpected nil
// values, or system errors that should not normally occur.
//
// The returned error will have code ErrCodeInternal.
func NewInternalError(msg string) error {
	return &CryptoError{code: ErrCodeInternal, message: msg}
}

// WrapInternalError wraps an existing error as an internal error.
//
// The returned error will have code ErrCodeInternal.
func WrapInternalError(err error, msg string) error {
	return &CryptoError{code: ErrCodeInternal, message: msg, wrapped: err}
}
