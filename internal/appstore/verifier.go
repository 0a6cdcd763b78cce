package appstore

// verifier.go - the signed-data verification pipeline.
//
// Every entry point runs the same linear pipeline: decode the compact
// serialization, extract the x5c chain, validate the chain against the
// pinned anchors, verify the signature with the validated leaf key, then
// decode the payload and enforce the configured identity constraints. No
// stage's output is trusted before the prior stage succeeds, and the payload
// is never consulted for trust decisions before the signature verifies.
//
// Xcode and LocalTesting payloads are produced without production signing
// infrastructure: chain and signature verification are skipped for those two
// environments only, the structural and identity checks still run, and the
// result is marked TrustSourceLocal.

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"time"

	"github.com/storekit-community/appstore-server-go/internal/crypto"
)

// TrustSource records how a verified payload earned trust.
type TrustSource int

const (
	// TrustSourceChainVerified: the payload's certificate chain reached a
	// pinned anchor and the signature verified against the leaf key.
	TrustSourceChainVerified TrustSource = iota

	// TrustSourceLocal: the payload came from a developer-local environment
	// (Xcode or LocalTesting) where chain verification does not apply. Only
	// structural and identity checks ran.
	TrustSourceLocal
)

func (t TrustSource) String() string {
	if t == TrustSourceLocal {
		return "local"
	}
	return "chain-verified"
}

// VerifierConfig is the immutable construction-time configuration of a
// SignedDataVerifier. Validated eagerly by NewSignedDataVerifier.
type VerifierConfig struct {

	// RootCertificates is the pinned trust-anchor set. Required unless
	// Environment is Xcode or LocalTesting.
	RootCertificates []*x509.Certificate

	// BundleID is the expected bundle identifier. Required. Compared
	// exactly and case-sensitively against every payload.
	BundleID string

	// AppAppleID is the expected app identifier. Required when Environment
	// is Production; ignored for payloads that do not carry one.
	AppAppleID *int64

	// Environment is the expected environment for every payload.
	Environment Environment

	// EnableOnlineChecks turns on OCSP revocation checking during chain
	// validation.
	EnableOnlineChecks bool

	// RevocationFailureClosed escalates revocation-check connectivity
	// failures from soft warnings to hard verification failures.
	RevocationFailureClosed bool

	// OCSPTimeout bounds each online status check. Defaults to 5s.
	OCSPTimeout time.Duration

	// Now overrides the verification instant, for deterministic testing of
	// certificate validity windows. Defaults to time.Now.
	Now func() time.Time
}

// SignedDataVerifier verifies signed payloads from the store. Immutable
// after construction and safe for concurrent use; the only mutable state is
// the revocation checker's cache.
type SignedDataVerifier struct {
	chain       *crypto.ChainVerifier // nil for local environments
	bundleID    string
	appAppleID  *int64
	environment Environment
	now         func() time.Time
}

// NewSignedDataVerifier validates the configuration and builds a verifier.
func NewSignedDataVerifier(cfg VerifierConfig) (*SignedDataVerifier, error) {
	if cfg.BundleID == "" {
		return nil, NewInternalError("bundle ID is required")
	}
	if !cfg.Environment.Recognized() {
		return nil, NewInternalError(fmt.Sprintf("unknown environment %q", cfg.Environment))
	}
	if cfg.Environment == EnvironmentProduction && cfg.AppAppleID == nil {
		return nil, NewInternalError("app Apple ID is required for the Production environment")
	}

	v := &SignedDataVerifier{
		bundleID:    cfg.BundleID,
		appAppleID:  cfg.AppAppleID,
		environment: cfg.Environment,
		now:         cfg.Now,
	}
	if v.now == nil {
		v.now = time.Now
	}

	if !cfg.Environment.SkipsChainVerification() {
		var revocation *crypto.RevocationChecker
		if cfg.EnableOnlineChecks {
			revocation = crypto.NewRevocationChecker(cfg.OCSPTimeout)
		}

		chain, err := crypto.NewChainVerifier(cfg.RootCertificates, revocation, cfg.RevocationFailureClosed)
		if err != nil {
			return nil, WrapInternalError(err, "invalid trust anchor configuration")
		}
		v.chain = chain
	}

	return v, nil
}

// verification is the kind-independent outcome of the cryptographic stages.
type verification struct {
	payload           []byte
	trustSource       TrustSource
	revocationWarning error
}

// verify runs decode, chain validation and signature verification, returning
// the verified payload bytes. It never inspects payload content.
func (v *SignedDataVerifier) verify(ctx context.Context, signedPayload string) (*verification, error) {
	decoded, err := crypto.DecodeCompact(signedPayload)
	if err != nil {
		return nil, err
	}

	if v.environment.SkipsChainVerification() {
		return &verification{payload: decoded.Payload, trustSource: TrustSourceLocal}, nil
	}

	if err := crypto.CheckJWSAlgorithm(decoded.Header.Algorithm); err != nil {
		return nil, err
	}

	certs, err := crypto.ExtractCertificateChain(decoded.Header.X5C)
	if err != nil {
		return nil, err
	}

	chainResult, err := v.chain.Verify(ctx, certs, v.now())
	if err != nil {
		return nil, err
	}

	// the chain verifier guarantees an ECDSA leaf key
	leafKey, ok := chainResult.Leaf.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, NewInternalError("validated leaf key is not ECDSA")
	}

	payload, err := crypto.VerifySignature(signedPayload, leafKey)
	if err != nil {
		return nil, err
	}

	return &verification{
		payload:           payload,
		trustSource:       TrustSourceChainVerified,
		revocationWarning: chainResult.RevocationWarning,
	}, nil
}

// checkIdentity enforces the configured identity constraints against values
// taken from a decoded payload. appAppleID is nil when the payload kind does
// not carry one; it is only required to match in Production.
func (v *SignedDataVerifier) checkIdentity(bundleID string, appAppleID *int64, env Environment) error {
	if bundleID != v.bundleID {
		return NewBundleIDMismatchError(v.bundleID, bundleID)
	}

	if v.environment == EnvironmentProduction && appAppleID != nil && *appAppleID != *v.appAppleID {
		return NewAppAppleIDMismatchError(
			fmt.Sprintf("app Apple ID mismatch: expected %d, payload has %d", *v.appAppleID, *appAppleID))
	}

	if env != v.environment {
		return NewEnvironmentMismatchError(v.environment, env)
	}

	return nil
}

// TransactionVerification is the result of verifying a signed transaction.
type TransactionVerification struct {
	Payload           *TransactionPayload
	TrustSource       TrustSource
	RevocationWarning error
}

// VerifyTransaction verifies and decodes a signedTransactionInfo payload.
func (v *SignedDataVerifier) VerifyTransaction(ctx context.Context, signedTransaction string) (*TransactionVerification, error) {
	result, err := v.verify(ctx, signedTransaction)
	if err != nil {
		return nil, err
	}

	var payload TransactionPayload
	if err := json.Unmarshal(result.payload, &payload); err != nil {
		return nil, crypto.WrapFormatError(err, "failed to decode transaction payload")
	}

	if err := v.checkIdentity(payload.BundleID, nil, payload.Environment); err != nil {
		return nil, err
	}

	return &TransactionVerification{
		Payload:           &payload,
		TrustSource:       result.trustSource,
		RevocationWarning: result.revocationWarning,
	}, nil
}

// RenewalInfoVerification is the result of verifying signed renewal info.
type RenewalInfoVerification struct {
	Payload           *RenewalInfoPayload
	TrustSource       TrustSource
	RevocationWarning error
}

// VerifyRenewalInfo verifies and decodes a signedRenewalInfo payload.
// Renewal payloads carry no bundle or app identifier, so only the
// environment is cross-checked.
func (v *SignedDataVerifier) VerifyRenewalInfo(ctx context.Context, signedRenewalInfo string) (*RenewalInfoVerification, error) {
	result, err := v.verify(ctx, signedRenewalInfo)
	if err != nil {
		return nil, err
	}

	var payload RenewalInfoPayload
	if err := json.Unmarshal(result.payload, &payload); err != nil {
		return nil, crypto.WrapFormatError(err, "failed to decode renewal info payload")
	}

	if payload.Environment != v.environment {
		return nil, NewEnvironmentMismatchError(v.environment, payload.Environment)
	}

	return &RenewalInfoVerification{
		Payload:           &payload,
		TrustSource:       result.trustSource,
		RevocationWarning: result.revocationWarning,
	}, nil
}

// NotificationVerification is the result of verifying a server notification.
type NotificationVerification struct {
	Payload           *NotificationPayload
	TrustSource       TrustSource
	RevocationWarning error
}

// VerifyNotification verifies and decodes a server notification's
// signedPayload. The identity values are taken from whichever of data,
// summary or externalPurchaseToken the notification carries.
func (v *SignedDataVerifier) VerifyNotification(ctx context.Context, signedPayload string) (*NotificationVerification, error) {
	result, err := v.verify(ctx, signedPayload)
	if err != nil {
		return nil, err
	}

	var payload NotificationPayload
	if err := json.Unmarshal(result.payload, &payload); err != nil {
		return nil, crypto.WrapFormatError(err, "failed to decode notification payload")
	}

	var bundleID string
	var appAppleID *int64
	var env Environment

	switch {
	case payload.Data != nil:
		bundleID = payload.Data.BundleID
		env = payload.Data.Environment
		if payload.Data.AppAppleID != 0 {
			appAppleID = &payload.Data.AppAppleID
		}
	case payload.Summary != nil:
		bundleID = payload.Summary.BundleID
		env = payload.Summary.Environment
		if payload.Summary.AppAppleID != 0 {
			appAppleID = &payload.Summary.AppAppleID
		}
	case payload.ExternalPurchaseToken != nil:
		bundleID = payload.ExternalPurchaseToken.BundleID
		env = payload.ExternalPurchaseToken.Environment()
		if payload.ExternalPurchaseToken.AppAppleID != 0 {
			appAppleID = &payload.ExternalPurchaseToken.AppAppleID
		}
	default:
		return nil, crypto.NewFormatError("notification carries no data, summary or externalPurchaseToken")
	}

	if err := v.checkIdentity(bundleID, appAppleID, env); err != nil {
		return nil, err
	}

	return &NotificationVerification{
		Payload:           &payload,
		TrustSource:       result.trustSource,
		RevocationWarning: result.revocationWarning,
	}, nil
}

// AppTransactionVerification is the result of verifying a signed app
// transaction.
type AppTransactionVerification struct {
	Payload           *AppTransactionPayload
	TrustSource       TrustSource
	RevocationWarning error
}

// VerifyAppTransaction verifies and decodes a signed app transaction.
func (v *SignedDataVerifier) VerifyAppTransaction(ctx context.Context, signedAppTransaction string) (*AppTransactionVerification, error) {
	result, err := v.verify(ctx, signedAppTransaction)
	if err != nil {
		return nil, err
	}

	var payload AppTransactionPayload
	if err := json.Unmarshal(result.payload, &payload); err != nil {
		return nil, crypto.WrapFormatError(err, "failed to decode app transaction payload")
	}

	var appAppleID *int64
	if payload.AppAppleID != 0 {
		appAppleID = &payload.AppAppleID
	}

	if err := v.checkIdentity(payload.BundleID, appAppleID, payload.Environment()); err != nil {
		return nil, err
	}

	return &AppTransactionVerification{
		Payload:           &payload,
		TrustSource:       result.trustSource,
		RevocationWarning: result.revocationWarning,
	}, nil
}
