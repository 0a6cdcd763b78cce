package crypto

// revocation.go - optional online certificate status checking (OCSP).
//
// Revocation checking is best-effort: failures to reach the responder are
// reported to the caller, which decides (per policy) whether to warn or fail.
// Statuses are cached for the process lifetime keyed by (issuer, serial) so a
// busy verifier pays at most one network round trip per distinct certificate.
// Cache fills are deduplicated per key with singleflight so concurrent
// verifications of different certificates never serialize behind each other.

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/crypto/ocsp"
	"golang.org/x/sync/singleflight"
)

// Status is the revocation status of a certificate.
type Status int

const (
	// StatusGood: the responder confirmed the certificate is not revoked.
	StatusGood Status = iota

	// StatusRevoked: the responder returned a definitive revoked status.
	StatusRevoked

	// StatusUnknown: the responder does not know the certificate. Treated
	// like a connectivity failure by callers (policy decides warn vs fail).
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusGood:
		return "good"
	case StatusRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// maxOCSPResponseSize bounds responder replies (a DER OCSP response is a few
// KB; anything larger is garbage).
const maxOCSPResponseSize = 1 << 20

// RevocationChecker performs OCSP status checks with a process-lifetime
// cache. Safe for concurrent use.
type RevocationChecker struct {
	httpClient *http.Client

	mu    sync.RWMutex
	cache map[string]Status

	group singleflight.Group
}

// NewRevocationChecker creates a checker whose HTTP requests are bounded by
// the given timeout. The timeout also applies when the caller's context has
// no earlier deadline.
func NewRevocationChecker(timeout time.Duration) *RevocationChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RevocationChecker{
		httpClient: &http.Client{Timeout: timeout},
		cache:      make(map[string]Status),
	}
}

// Check returns the revocation status of cert, which must have been issued by
// issuer.
//
// A certificate without an OCSP responder URL is reported as StatusGood -
// there is nothing to check. Network and parse failures return an error; the
// caller decides whether that is fatal. StatusRevoked and StatusGood results
// are cached for the process lifetime.
func (rc *RevocationChecker) Check(ctx context.Context, cert, issuer *x509.Certificate) (Status, error) {
	if cert == nil || issuer == nil {
		return StatusUnknown, NewInternalError("nil certificate passed to revocation check")
	}

	if len(cert.OCSPServer) == 0 {
		return StatusGood, nil
	}

	key := cacheKey(issuer, cert)

	rc.mu.RLock()
	status, hit := rc.cache[key]
	rc.mu.RUnlock()
	if hit {
		return status, nil
	}

	// singleflight collapses concurrent lookups for the same certificate
	// only; different keys proceed in parallel. The fill serves every
	// waiter, not just the caller that started it, so it is detached from
	// the caller's cancellation; the HTTP client timeout bounds it instead.
	v, err, _ := rc.group.Do(key, func() (any, error) {
		status, err := rc.query(context.WithoutCancel(ctx), cert, issuer)
		if err != nil {
			return StatusUnknown, err
		}

		rc.mu.Lock()
		rc.cache[key] = status
		rc.mu.Unlock()

		return status, nil
	})
	if err != nil {
		return StatusUnknown, err
	}

	return v.(Status), nil
}

// query performs a single OCSP round trip against the certificate's first
// responder URL.
func (rc *RevocationChecker) query(ctx context.Context, cert, issuer *x509.Certificate) (Status, error) {
	reqDER, err := ocsp.CreateRequest(cert, issuer, nil)
	if err != nil {
		return StatusUnknown, WrapInternalError(err, "failed to build OCSP request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cert.OCSPServer[0], bytes.NewReader(reqDER))
	if err != nil {
		return StatusUnknown, WrapInternalError(err, "failed to build OCSP HTTP request")
	}
	httpReq.Header.Set("Content-Type", "application/ocsp-request")
	httpReq.Header.Set("Accept", "application/ocsp-response")

	resp, err := rc.httpClient.Do(httpReq)
	if err != nil {
		return StatusUnknown, fmt.Errorf("OCSP responder unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return StatusUnknown, fmt.Errorf("OCSP responder returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxOCSPResponseSize))
	if err != nil {
		return StatusUnknown, fmt.Errorf("failed to read OCSP response: %w", err)
	}

	ocspResp, err := ocsp.ParseResponseForCert(body, cert, issuer)
	if err != nil {
		return StatusUnknown, fmt.Errorf("failed to parse OCSP response: %w", err)
	}

	switch ocspResp.Status {
	case ocsp.Good:
		return StatusGood, nil
	case ocsp.Revoked:
		return StatusRevoked, nil
	default:
		return StatusUnknown, fmt.Errorf("OCSP responder returned unknown status for serial %s", cert.SerialNumber)
	}
}

// cacheKey identifies a certificate by its issuer's subject and its serial
// number, matching how OCSP itself identifies certificates.
func cacheKey(issuer, cert *x509.Certificate) string {
	sum := sha256.Sum256(issuer.RawSubject)
	return hex.EncodeToString(sum[:]) + "/" + cert.SerialNumber.Text(16)
}
