package crypto

// chain.go - certificate chain-of-trust validation against pinned anchors.
//
// The chain is validated as an explicit ordered sequence with index-based
// adjacency checks (issuer[i] must be subject[i+1], and certificate i must be
// signed by certificate i+1). The final certificate must be signed by - or be
// identical to - one of the pinned trust anchors. We deliberately do not use
// x509.Certificate.Verify here: the pipeline needs to distinguish expired /
// untrusted-root / broken-chain failures, and must match anchors by subject
// and signature rather than by pool membership.

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"fmt"
	"time"
)

// ChainVerifier validates certificate chains extracted from JWS headers.
//
// A ChainVerifier is immutable after construction and safe for concurrent
// use. The only mutable state is the revocation checker's status cache, which
// never affects the logical outcome of a verification, only its latency.
type ChainVerifier struct {

	// anchors is the pinned set of trusted root certificates.
	anchors []*x509.Certificate

	// revocation performs online certificate status checks when enabled.
	// nil disables online checks entirely.
	revocation *RevocationChecker

	// revocationFailClosed escalates revocation-check connectivity failures
	// from soft warnings to hard chain failures.
	revocationFailClosed bool
}

// ChainVerification is the outcome of a successful chain validation.
type ChainVerification struct {

	// Leaf is the validated leaf certificate. Its public key is the only key
	// that may be used for JWS signature verification.
	Leaf *x509.Certificate

	// RevocationWarning carries a non-fatal online-check failure (network
	// error, unparsable responder reply). It is only set when the verifier
	// runs with fail-open revocation policy; nil otherwise.
	RevocationWarning error
}

// NewChainVerifier creates a ChainVerifier with the given pinned anchors.
//
// revocation may be nil to disable online status checks. When failClosed is
// true, a revocation-check connectivity failure fails the chain instead of
// being attached as a warning.
func NewChainVerifier(anchors []*x509.Certificate, revocation *RevocationChecker, failClosed bool) (*ChainVerifier, error) {
	if len(anchors) == 0 {
		return nil, NewInternalError("at least one trust anchor is required")
	}
	for i, anchor := range anchors {
		if anchor == nil {
			return nil, NewInternalError(fmt.Sprintf("trust anchor %d is nil", i))
		}
	}

	return &ChainVerifier{
		anchors:              anchors,
		revocation:           revocation,
		revocationFailClosed: failClosed,
	}, nil
}

// Verify validates a leaf-first certificate chain at the given instant.
//
// Checks, in order:
//   - every certificate uses an allowlisted signature algorithm
//   - every certificate's validity window contains `at`
//   - adjacent links match on issuer/subject and verify by signature
//   - basic constraints: non-CA leaf, CA intermediates with sufficient path length
//   - the final link is signed by (or identical to) a pinned anchor
//   - optionally, online revocation status for each certificate
//
// On success the returned ChainVerification carries the leaf certificate and
// any soft revocation warning.
func (cv *ChainVerifier) Verify(ctx context.Context, chain []*x509.Certificate, at time.Time) (*ChainVerification, error) {
	if len(chain) == 0 {
		return nil, NewInternalError("empty certificate chain")
	}

	for i, cert := range chain {
		if err := checkCertificateAlgorithm(cert); err != nil {
			return nil, err
		}

		if at.Before(cert.NotBefore) || at.After(cert.NotAfter) {
			return nil, NewChainError(ChainReasonExpired,
				fmt.Sprintf("certificate %d not valid at %s (valid %s to %s)",
					i, at.UTC().Format(time.RFC3339), cert.NotBefore.UTC().Format(time.RFC3339), cert.NotAfter.UTC().Format(time.RFC3339)))
		}
	}

	// Adjacency: certificate i must be issued and signed by certificate i+1.
	for i := 0; i < len(chain)-1; i++ {
		child, parent := chain[i], chain[i+1]

		if !bytes.Equal(child.RawIssuer, parent.RawSubject) {
			return nil, NewChainError(ChainReasonBroken,
				fmt.Sprintf("certificate %d issuer does not match certificate %d subject", i, i+1))
		}

		if err := child.CheckSignatureFrom(parent); err != nil {
			return nil, WrapChainError(err, ChainReasonBroken,
				fmt.Sprintf("certificate %d signature does not verify against certificate %d", i, i+1))
		}
	}

	if err := checkBasicConstraints(chain); err != nil {
		return nil, err
	}

	if err := cv.checkAnchor(chain[len(chain)-1]); err != nil {
		return nil, err
	}

	leaf := chain[0]
	if _, ok := leaf.PublicKey.(*ecdsa.PublicKey); !ok {
		return nil, NewAlgorithmError(fmt.Sprintf("leaf certificate public key is %T, expected ECDSA", leaf.PublicKey))
	}

	result := &ChainVerification{Leaf: leaf}

	if cv.revocation != nil {
		if err := cv.checkRevocation(ctx, chain, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// checkBasicConstraints verifies the CA flags and path length constraints:
// the leaf must be a non-CA end entity, and every certificate above it must
// be a CA whose path length constraint permits the CAs below it.
func checkBasicConstraints(chain []*x509.Certificate) error {
	leaf := chain[0]
	if !leaf.BasicConstraintsValid || leaf.IsCA {
		return NewChainError(ChainReasonBroken, "leaf certificate must be a non-CA end-entity certificate")
	}

	for i := 1; i < len(chain); i++ {
		cert := chain[i]
		if !cert.BasicConstraintsValid || !cert.IsCA {
			return NewChainError(ChainReasonBroken, fmt.Sprintf("certificate %d must be a CA certificate", i))
		}

		// Certificate i has i-1 subordinate CAs beneath it in this chain.
		subordinates := i - 1
		if cert.MaxPathLenZero && subordinates > 0 {
			return NewChainError(ChainReasonBroken, fmt.Sprintf("certificate %d path length constraint (0) violated", i))
		}
		if cert.MaxPathLen > 0 && subordinates > cert.MaxPathLen {
			return NewChainError(ChainReasonBroken,
				fmt.Sprintf("certificate %d path length constraint (%d) violated", i, cert.MaxPathLen))
		}
	}

	return nil
}

// checkAnchor verifies the final chain link reaches one of the pinned trust
// anchors. A match is either byte-identity with an anchor, or an
// issuer/subject match plus a verifying signature - never an anchor index.
func (cv *ChainVerifier) checkAnchor(top *x509.Certificate) error {
	for _, anchor := range cv.anchors {
		if bytes.Equal(top.Raw, anchor.Raw) {
			return nil
		}

		if !bytes.Equal(top.RawIssuer, anchor.RawSubject) {
			continue
		}
		if err := top.CheckSignatureFrom(anchor); err == nil {
			return nil
		}
	}

	return NewChainError(ChainReasonUntrustedRoot, "certificate chain does not terminate at a pinned trust anchor")
}

// checkRevocation runs the online status check for every chain certificate
// whose issuer is present in the chain. A definitive revoked status is always
// a hard failure; connectivity failures follow the configured policy.
func (cv *ChainVerifier) checkRevocation(ctx context.Context, chain []*x509.Certificate, result *ChainVerification) error {
	for i := 0; i < len(chain)-1; i++ {
		status, err := cv.revocation.Check(ctx, chain[i], chain[i+1])
		if err != nil {
			if cv.revocationFailClosed {
				return WrapChainError(err, ChainReasonRevoked,
					fmt.Sprintf("online status check failed for certificate %d", i))
			}
			// best-effort posture: attach the first failure as a warning
			if result.RevocationWarning == nil {
				result.RevocationWarning = err
			}
			continue
		}

		if status == StatusRevoked {
			return NewChainError(ChainReasonRevoked, fmt.Sprintf("certificate %d has been revoked", i))
		}
	}

	return nil
}
