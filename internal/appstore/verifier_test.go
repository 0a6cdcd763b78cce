package appstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/storekit-community/appstore-server-go/internal/appstore/testutil"
	"github.com/storekit-community/appstore-server-go/internal/crypto"
)

func appAppleID(v int64) *int64 { return &v }

func TestNewSignedDataVerifier(t *testing.T) {

	fixture := testutil.NewFixture(t, crypto.ChainOptions{})

	testCases := []struct {
		name          string
		config        VerifierConfig
		wantError     bool
		expectedError string
	}{
		{
			name: "valid sandbox configuration",
			config: VerifierConfig{
				RootCertificates: fixture.Anchors(),
				BundleID:         "com.example.app",
				Environment:      EnvironmentSandbox,
			},
		},
		{
			name: "valid production configuration",
			config: VerifierConfig{
				RootCertificates: fixture.Anchors(),
				BundleID:         "com.example.app",
				AppAppleID:       appAppleID(1234),
				Environment:      EnvironmentProduction,
			},
		},
		{
			name: "xcode needs no anchors",
			config: VerifierConfig{
				BundleID:    "com.example.app",
				Environment: EnvironmentXcode,
			},
		},
		{
			name: "missing bundle ID",
			config: VerifierConfig{
				RootCertificates: fixture.Anchors(),
				Environment:      EnvironmentSandbox,
			},
			wantError:     true,
			expectedError: "bundle ID is required",
		},
		{
			name: "production without app Apple ID",
			config: VerifierConfig{
				RootCertificates: fixture.Anchors(),
				BundleID:         "com.example.app",
				Environment:      EnvironmentProduction,
			},
			wantError:     true,
			expectedError: "app Apple ID is required",
		},
		{
			name: "unknown environment",
			config: VerifierConfig{
				RootCertificates: fixture.Anchors(),
				BundleID:         "com.example.app",
				Environment:      Environment("Staging"),
			},
			wantError:     true,
			expectedError: "unknown environment",
		},
		{
			name: "sandbox without anchors",
			config: VerifierConfig{
				BundleID:    "com.example.app",
				Environment: EnvironmentSandbox,
			},
			wantError:     true,
			expectedError: "trust anchor",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSignedDataVerifier(tc.config)

			if tc.wantError {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tc.expectedError)
				}
				if !strings.Contains(err.Error(), tc.expectedError) {
					t.Errorf("expected error containing %q, got %q", tc.expectedError, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

// TestVerifyTransaction covers the end-to-end pipeline: a chain built from a
// test root R, intermediate I and leaf L, a payload signed by L, and a
// verifier pinned to R.
func TestVerifyTransaction(t *testing.T) {

	fixture := testutil.NewFixture(t, crypto.ChainOptions{})

	payloadJSON := []byte(`{"bundleId":"com.example.app","environment":"Sandbox","transactionId":"1"}`)
	signed := fixture.SignRaw(t, payloadJSON)

	newVerifier := func(t *testing.T, env Environment) *SignedDataVerifier {
		t.Helper()
		cfg := VerifierConfig{
			RootCertificates: fixture.Anchors(),
			BundleID:         "com.example.app",
			Environment:      env,
		}
		if env == EnvironmentProduction {
			cfg.AppAppleID = appAppleID(1234)
		}
		verifier, err := NewSignedDataVerifier(cfg)
		if err != nil {
			t.Fatalf("failed to create verifier: %v", err)
		}
		return verifier
	}

	t.Run("valid payload verifies", func(t *testing.T) {
		result, err := newVerifier(t, EnvironmentSandbox).VerifyTransaction(context.Background(), signed)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Payload.TransactionID != "1" {
			t.Errorf("expected transactionId %q, got %q", "1", result.Payload.TransactionID)
		}
		if result.TrustSource != TrustSourceChainVerified {
			t.Errorf("expected trust source %v, got %v", TrustSourceChainVerified, result.TrustSource)
		}
	})

	t.Run("leaf and intermediate without root still verifies", func(t *testing.T) {
		partial := fixture.SignWithChain(t, payloadJSON, fixture.Chain.Certificates()[:2])
		result, err := newVerifier(t, EnvironmentSandbox).VerifyTransaction(context.Background(), partial)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Payload.TransactionID != "1" {
			t.Errorf("expected transactionId %q, got %q", "1", result.Payload.TransactionID)
		}
	})

	t.Run("same payload verifies identically twice", func(t *testing.T) {
		verifier := newVerifier(t, EnvironmentSandbox)
		first, err := verifier.VerifyTransaction(context.Background(), signed)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := verifier.VerifyTransaction(context.Background(), signed)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if *first.Payload != *second.Payload {
			t.Error("repeat verification returned a different payload")
		}
	})

	t.Run("production verifier rejects sandbox payload", func(t *testing.T) {
		_, err := newVerifier(t, EnvironmentProduction).VerifyTransaction(context.Background(), signed)
		if err == nil {
			t.Fatal("expected environment mismatch, got nil")
		}
		var verr *VerificationError
		if !errors.As(err, &verr) || verr.Code() != ErrCodeEnvironmentMismatch {
			t.Errorf("expected code %q, got %v", ErrCodeEnvironmentMismatch, err)
		}
	})

	t.Run("bundle ID mismatch", func(t *testing.T) {
		verifier, err := NewSignedDataVerifier(VerifierConfig{
			RootCertificates: fixture.Anchors(),
			BundleID:         "com.other.app",
			Environment:      EnvironmentSandbox,
		})
		if err != nil {
			t.Fatalf("failed to create verifier: %v", err)
		}

		_, err = verifier.VerifyTransaction(context.Background(), signed)
		var verr *VerificationError
		if !errors.As(err, &verr) || verr.Code() != ErrCodeBundleIDMismatch {
			t.Errorf("expected code %q, got %v", ErrCodeBundleIDMismatch, err)
		}
	})

	t.Run("flipped payload byte fails signature verification", func(t *testing.T) {
		parts := strings.Split(signed, ".")
		payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
		if err != nil {
			t.Fatalf("failed to decode payload segment: %v", err)
		}

		verifier := newVerifier(t, EnvironmentSandbox)
		for i := range payloadBytes {
			flipped := make([]byte, len(payloadBytes))
			copy(flipped, payloadBytes)
			flipped[i] ^= 0x01
			tampered := parts[0] + "." + base64.RawURLEncoding.EncodeToString(flipped) + "." + parts[2]

			_, err := verifier.VerifyTransaction(context.Background(), tampered)
			if err == nil {
				t.Fatalf("byte flip at offset %d was not rejected", i)
			}
		}
	})

	t.Run("malformed input fails with format error", func(t *testing.T) {
		_, err := newVerifier(t, EnvironmentSandbox).VerifyTransaction(context.Background(), "only.two")
		var cerr *crypto.CryptoError
		if !errors.As(err, &cerr) || cerr.Code() != crypto.ErrCodeJWSFormat {
			t.Errorf("expected code %q, got %v", crypto.ErrCodeJWSFormat, err)
		}
	})

	t.Run("untrusted chain is rejected", func(t *testing.T) {
		other := testutil.NewFixture(t, crypto.ChainOptions{})
		foreign := other.SignRaw(t, payloadJSON)

		_, err := newVerifier(t, EnvironmentSandbox).VerifyTransaction(context.Background(), foreign)
		var cerr *crypto.CryptoError
		if !errors.As(err, &cerr) || cerr.Code() != crypto.ErrCodeCertificateChain {
			t.Fatalf("expected code %q, got %v", crypto.ErrCodeCertificateChain, err)
		}
		if cerr.Reason() != crypto.ChainReasonUntrustedRoot {
			t.Errorf("expected reason %q, got %q", crypto.ChainReasonUntrustedRoot, cerr.Reason())
		}
	})
}

// TestVerifyTransaction_ExpiredChain pins the verification instant outside
// the chain's validity window; the signature itself is still mathematically
// valid.
func TestVerifyTransaction_ExpiredChain(t *testing.T) {
	notBefore := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	fixture := testutil.NewFixture(t, crypto.ChainOptions{
		NotBefore: notBefore,
		NotAfter:  notBefore.Add(30 * 24 * time.Hour),
	})

	signed := fixture.SignRaw(t, []byte(`{"bundleId":"com.example.app","environment":"Sandbox","transactionId":"1"}`))

	verifier, err := NewSignedDataVerifier(VerifierConfig{
		RootCertificates: fixture.Anchors(),
		BundleID:         "com.example.app",
		Environment:      EnvironmentSandbox,
		Now:              func() time.Time { return notBefore.Add(90 * 24 * time.Hour) },
	})
	if err != nil {
		t.Fatalf("failed to create verifier: %v", err)
	}

	_, err = verifier.VerifyTransaction(context.Background(), signed)
	if err == nil {
		t.Fatal("expected expired chain to fail, got nil")
	}
	var cerr *crypto.CryptoError
	if !errors.As(err, &cerr) || cerr.Reason() != crypto.ChainReasonExpired {
		t.Errorf("expected reason %q, got %v", crypto.ChainReasonExpired, err)
	}
}

func TestVerifyTransaction_LocalEnvironments(t *testing.T) {
	// Xcode payloads have no production signing chain; structural decode and
	// identity checks must still run.
	fixture := testutil.NewFixture(t, crypto.ChainOptions{})

	for _, env := range []Environment{EnvironmentXcode, EnvironmentLocalTesting} {
		t.Run(string(env), func(t *testing.T) {
			verifier, err := NewSignedDataVerifier(VerifierConfig{
				BundleID:    "com.example.app",
				Environment: env,
			})
			if err != nil {
				t.Fatalf("failed to create verifier: %v", err)
			}

			signed := fixture.Sign(t, map[string]any{
				"bundleId":      "com.example.app",
				"environment":   string(env),
				"transactionId": "42",
			})

			result, err := verifier.VerifyTransaction(context.Background(), signed)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.TrustSource != TrustSourceLocal {
				t.Errorf("expected trust source %v, got %v", TrustSourceLocal, result.TrustSource)
			}

			// identity checks still apply
			wrongBundle := fixture.Sign(t, map[string]any{
				"bundleId":      "com.other.app",
				"environment":   string(env),
				"transactionId": "42",
			})
			if _, err := verifier.VerifyTransaction(context.Background(), wrongBundle); err == nil {
				t.Error("expected bundle ID mismatch for local environment, got nil")
			}

			// structural decoding still applies
			if _, err := verifier.VerifyTransaction(context.Background(), "not-a-jws"); err == nil {
				t.Error("expected format error for local environment, got nil")
			}
		})
	}
}

func TestVerifyRenewalInfo(t *testing.T) {
	fixture := testutil.NewFixture(t, crypto.ChainOptions{})

	verifier, err := NewSignedDataVerifier(VerifierConfig{
		RootCertificates: fixture.Anchors(),
		BundleID:         "com.example.app",
		Environment:      EnvironmentSandbox,
	})
	if err != nil {
		t.Fatalf("failed to create verifier: %v", err)
	}

	t.Run("valid renewal info", func(t *testing.T) {
		signed := fixture.Sign(t, RenewalInfoPayload{
			OriginalTransactionID: "1000000000",
			ProductID:             "com.example.app.monthly",
			AutoRenewStatus:       AutoRenewStatusOn,
			Environment:           EnvironmentSandbox,
			SignedDate:            1700000000000,
		})

		result, err := verifier.VerifyRenewalInfo(context.Background(), signed)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Payload.AutoRenewStatus != AutoRenewStatusOn {
			t.Errorf("unexpected auto-renew status: %v", result.Payload.AutoRenewStatus)
		}
	})

	t.Run("environment mismatch", func(t *testing.T) {
		signed := fixture.Sign(t, RenewalInfoPayload{
			OriginalTransactionID: "1000000000",
			Environment:           EnvironmentProduction,
		})

		_, err := verifier.VerifyRenewalInfo(context.Background(), signed)
		var verr *VerificationError
		if !errors.As(err, &verr) || verr.Code() != ErrCodeEnvironmentMismatch {
			t.Errorf("expected code %q, got %v", ErrCodeEnvironmentMismatch, err)
		}
	})
}

func TestVerifyNotification(t *testing.T) {
	fixture := testutil.NewFixture(t, crypto.ChainOptions{})

	newVerifier := func(t *testing.T, cfg VerifierConfig) *SignedDataVerifier {
		t.Helper()
		cfg.RootCertificates = fixture.Anchors()
		verifier, err := NewSignedDataVerifier(cfg)
		if err != nil {
			t.Fatalf("failed to create verifier: %v", err)
		}
		return verifier
	}

	t.Run("data notification", func(t *testing.T) {
		verifier := newVerifier(t, VerifierConfig{BundleID: "com.example.app", Environment: EnvironmentSandbox})
		signed := fixture.Sign(t, NotificationPayload{
			NotificationType: NotificationTypeSubscribed,
			Subtype:          SubtypeInitialBuy,
			NotificationUUID: "002e14d5-51f5-4503-b5a8-c3a1af68eb20",
			Version:          "2.0",
			SignedDate:       1700000000000,
			Data: &NotificationData{
				BundleID:    "com.example.app",
				Environment: EnvironmentSandbox,
			},
		})

		result, err := verifier.VerifyNotification(context.Background(), signed)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Payload.NotificationType != NotificationTypeSubscribed {
			t.Errorf("unexpected notification type: %v", result.Payload.NotificationType)
		}
	})

	t.Run("summary notification", func(t *testing.T) {
		verifier := newVerifier(t, VerifierConfig{BundleID: "com.example.app", Environment: EnvironmentSandbox})
		signed := fixture.Sign(t, NotificationPayload{
			NotificationType: NotificationTypeRenewalExtension,
			Subtype:          SubtypeSummary,
			NotificationUUID: "002e14d5-51f5-4503-b5a8-c3a1af68eb20",
			Version:          "2.0",
			Summary: &NotificationSummary{
				RequestIdentifier: "9e0ec2c9",
				BundleID:          "com.example.app",
				Environment:       EnvironmentSandbox,
				ProductID:         "com.example.app.monthly",
				SucceededCount:    10,
			},
		})

		result, err := verifier.VerifyNotification(context.Background(), signed)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Payload.Summary.SucceededCount != 10 {
			t.Errorf("unexpected summary: %+v", result.Payload.Summary)
		}
	})

	t.Run("external purchase token infers sandbox from prefix", func(t *testing.T) {
		verifier := newVerifier(t, VerifierConfig{BundleID: "com.example.app", Environment: EnvironmentSandbox})
		signed := fixture.Sign(t, NotificationPayload{
			NotificationType: NotificationTypeExternalPurchaseToken,
			Subtype:          SubtypeUnreported,
			NotificationUUID: "002e14d5-51f5-4503-b5a8-c3a1af68eb20",
			Version:          "2.0",
			ExternalPurchaseToken: &ExternalPurchaseToken{
				ExternalPurchaseID: "SANDBOX_abc123",
				BundleID:           "com.example.app",
			},
		})

		if _, err := verifier.VerifyNotification(context.Background(), signed); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("production app Apple ID mismatch", func(t *testing.T) {
		verifier := newVerifier(t, VerifierConfig{
			BundleID:    "com.example.app",
			AppAppleID:  appAppleID(1234),
			Environment: EnvironmentProduction,
		})
		signed := fixture.Sign(t, NotificationPayload{
			NotificationType: NotificationTypeDidRenew,
			NotificationUUID: "002e14d5-51f5-4503-b5a8-c3a1af68eb20",
			Version:          "2.0",
			Data: &NotificationData{
				AppAppleID:  9999,
				BundleID:    "com.example.app",
				Environment: EnvironmentProduction,
			},
		})

		_, err := verifier.VerifyNotification(context.Background(), signed)
		var verr *VerificationError
		if !errors.As(err, &verr) || verr.Code() != ErrCodeAppAppleIDMismatch {
			t.Errorf("expected code %q, got %v", ErrCodeAppAppleIDMismatch, err)
		}
	})

	t.Run("notification without data, summary or token", func(t *testing.T) {
		verifier := newVerifier(t, VerifierConfig{BundleID: "com.example.app", Environment: EnvironmentSandbox})
		signed := fixture.Sign(t, NotificationPayload{
			NotificationType: NotificationTypeTest,
			NotificationUUID: "002e14d5-51f5-4503-b5a8-c3a1af68eb20",
			Version:          "2.0",
		})

		if _, err := verifier.VerifyNotification(context.Background(), signed); err == nil {
			t.Fatal("expected error for empty notification, got nil")
		}
	})
}

func TestVerifyAppTransaction(t *testing.T) {
	fixture := testutil.NewFixture(t, crypto.ChainOptions{})

	verifier, err := NewSignedDataVerifier(VerifierConfig{
		RootCertificates: fixture.Anchors(),
		BundleID:         "com.example.app",
		AppAppleID:       appAppleID(1234),
		Environment:      EnvironmentProduction,
	})
	if err != nil {
		t.Fatalf("failed to create verifier: %v", err)
	}

	t.Run("valid app transaction", func(t *testing.T) {
		signed := fixture.Sign(t, AppTransactionPayload{
			ReceiptType:                EnvironmentProduction,
			AppAppleID:                 1234,
			BundleID:                   "com.example.app",
			ApplicationVersion:         "1.2.3",
			OriginalApplicationVersion: "1.0.0",
			ReceiptCreationDate:        1700000000000,
		})

		result, err := verifier.VerifyAppTransaction(context.Background(), signed)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Payload.ApplicationVersion != "1.2.3" {
			t.Errorf("unexpected payload: %+v", result.Payload)
		}
	})

	t.Run("wrong app Apple ID", func(t *testing.T) {
		signed := fixture.Sign(t, AppTransactionPayload{
			ReceiptType:        EnvironmentProduction,
			AppAppleID:         9999,
			BundleID:           "com.example.app",
			ApplicationVersion: "1.2.3",
		})

		_, err := verifier.VerifyAppTransaction(context.Background(), signed)
		var verr *VerificationError
		if !errors.As(err, &verr) || verr.Code() != ErrCodeAppAppleIDMismatch {
			t.Errorf("expected code %q, got %v", ErrCodeAppAppleIDMismatch, err)
		}
	})
}

// TestForwardCompatibleEnums checks that unknown enum values survive decoding
// and are flagged by Recognized() rather than failing.
func TestForwardCompatibleEnums(t *testing.T) {
	fixture := testutil.NewFixture(t, crypto.ChainOptions{})

	verifier, err := NewSignedDataVerifier(VerifierConfig{
		RootCertificates: fixture.Anchors(),
		BundleID:         "com.example.app",
		Environment:      EnvironmentSandbox,
	})
	if err != nil {
		t.Fatalf("failed to create verifier: %v", err)
	}

	signed := fixture.SignRaw(t, []byte(`{
		"bundleId": "com.example.app",
		"environment": "Sandbox",
		"transactionId": "1",
		"type": "Quantum Subscription",
		"inAppOwnershipType": "LEASED",
		"transactionReason": "GIFT"
	}`))

	result, err := verifier.VerifyTransaction(context.Background(), signed)
	if err != nil {
		t.Fatalf("unknown enum values must not fail decoding: %v", err)
	}

	if result.Payload.Type.Recognized() {
		t.Errorf("expected unrecognized product type, got %q", result.Payload.Type)
	}
	if result.Payload.Type != "Quantum Subscription" {
		t.Errorf("raw value must be preserved, got %q", result.Payload.Type)
	}
	if result.Payload.InAppOwnershipType.Recognized() {
		t.Errorf("expected unrecognized ownership type, got %q", result.Payload.InAppOwnershipType)
	}
	if result.Payload.TransactionReason.Recognized() {
		t.Errorf("expected unrecognized transaction reason, got %q", result.Payload.TransactionReason)
	}

	// known values round-trip as recognized
	var known TransactionPayload
	if err := json.Unmarshal([]byte(`{"type":"Consumable","inAppOwnershipType":"PURCHASED"}`), &known); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !known.Type.Recognized() || !known.InAppOwnershipType.Recognized() {
		t.Error("known enum values must be recognized")
	}
}

func TestNotificationChecksum(t *testing.T) {
	a := &NotificationPayload{
		NotificationType: NotificationTypeDidRenew,
		NotificationUUID: "002e14d5-51f5-4503-b5a8-c3a1af68eb20",
		Version:          "2.0",
	}
	b := &NotificationPayload{
		NotificationType: NotificationTypeDidRenew,
		NotificationUUID: "002e14d5-51f5-4503-b5a8-c3a1af68eb20",
		Version:          "2.0",
	}

	sumA, err := a.Checksum()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sumB, err := b.Checksum()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sumA != sumB {
		t.Error("equal notifications must produce equal checksums")
	}

	b.NotificationUUID = "11111111-2222-3333-4444-555555555555"
	sumC, err := b.Checksum()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sumA == sumC {
		t.Error("different notifications must produce different checksums")
	}
}
