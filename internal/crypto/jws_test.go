package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestDecodeCompact(t *testing.T) {

	chain, err := GenerateSigningChain(ChainOptions{})
	if err != nil {
		t.Fatalf("failed to generate test chain: %v", err)
	}

	validJWS, err := SignCompact([]byte(`{"transactionId":"1"}`), chain.LeafKey, chain.Certificates())
	if err != nil {
		t.Fatalf("failed to sign test payload: %v", err)
	}

	segment := func(data string) string {
		return base64.RawURLEncoding.EncodeToString([]byte(data))
	}

	testCases := []struct {
		name          string
		setupJWS      func(t *testing.T) string
		wantError     bool
		expectedError string
	}{
		{
			name: "valid signed payload",
			setupJWS: func(t *testing.T) string {
				return validJWS
			},
		},
		{
			name: "empty string",
			setupJWS: func(t *testing.T) string {
				return ""
			},
			wantError:     true,
			expectedError: "expected 3 segments",
		},
		{
			name: "two segments only",
			setupJWS: func(t *testing.T) string {
				return "header.payload"
			},
			wantError:     true,
			expectedError: "expected 3 segments",
		},
		{
			name: "four segments",
			setupJWS: func(t *testing.T) string {
				return "a.b.c.d"
			},
			wantError:     true,
			expectedError: "expected 3 segments",
		},
		{
			name: "empty middle segment",
			setupJWS: func(t *testing.T) string {
				return "a..c"
			},
			wantError:     true,
			expectedError: "segment 1 is empty",
		},
		{
			name: "invalid base64url header",
			setupJWS: func(t *testing.T) string {
				return "!invalid!." + segment("{}") + "." + segment("sig")
			},
			wantError:     true,
			expectedError: "failed to decode header segment",
		},
		{
			name: "padded base64 payload rejected",
			setupJWS: func(t *testing.T) string {
				parts := strings.Split(validJWS, ".")
				padded := base64.URLEncoding.EncodeToString([]byte(`{"a":1}`))
				if !strings.Contains(padded, "=") {
					t.Fatal("test payload did not produce padding")
				}
				return parts[0] + "." + padded + "." + parts[2]
			},
			wantError:     true,
			expectedError: "failed to decode payload segment",
		},
		{
			name: "header is not JSON",
			setupJWS: func(t *testing.T) string {
				return segment("not json") + "." + segment("{}") + "." + segment("sig")
			},
			wantError:     true,
			expectedError: "failed to parse header JSON",
		},
		{
			name: "missing alg header",
			setupJWS: func(t *testing.T) string {
				return segment(`{"x5c":["abc"]}`) + "." + segment("{}") + "." + segment("sig")
			},
			wantError:     true,
			expectedError: "missing required header field: alg",
		},
		{
			name: "missing x5c header",
			setupJWS: func(t *testing.T) string {
				return segment(`{"alg":"ES256"}`) + "." + segment("{}") + "." + segment("sig")
			},
			wantError:     true,
			expectedError: "missing required header field: x5c",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			decoded, err := DecodeCompact(tc.setupJWS(t))

			if tc.wantError {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tc.expectedError)
				}
				if !strings.Contains(err.Error(), tc.expectedError) {
					t.Errorf("expected error containing %q, got %q", tc.expectedError, err.Error())
				}
				var cryptoErr *CryptoError
				if !errors.As(err, &cryptoErr) || cryptoErr.Code() != ErrCodeJWSFormat {
					t.Errorf("expected error code %q, got %v", ErrCodeJWSFormat, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if decoded.Header.Algorithm != AlgorithmES256 {
				t.Errorf("expected alg %q, got %q", AlgorithmES256, decoded.Header.Algorithm)
			}
			if len(decoded.Header.X5C) != 3 {
				t.Errorf("expected 3 x5c entries, got %d", len(decoded.Header.X5C))
			}
			if !strings.Contains(string(decoded.Payload), `"transactionId":"1"`) {
				t.Errorf("unexpected payload: %s", decoded.Payload)
			}
		})
	}
}

// TestSignAndVerifySignature covers the whole sign/verify round trip,
// including tampering and wrong-key rejection.
func TestSignAndVerifySignature(t *testing.T) {

	chain, err := GenerateSigningChain(ChainOptions{})
	if err != nil {
		t.Fatalf("failed to generate test chain: %v", err)
	}

	payload := []byte(`{"transactionId":"1","bundleId":"com.example.app"}`)
	signed, err := SignCompact(payload, chain.LeafKey, chain.Certificates())
	if err != nil {
		t.Fatalf("failed to sign payload: %v", err)
	}

	t.Run("verifies with the signing key", func(t *testing.T) {
		got, err := VerifySignature(signed, &chain.LeafKey.PublicKey)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(got) != string(payload) {
			t.Errorf("expected payload %s, got %s", payload, got)
		}
	})

	t.Run("repeat verification returns the same result", func(t *testing.T) {
		first, err := VerifySignature(signed, &chain.LeafKey.PublicKey)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := VerifySignature(signed, &chain.LeafKey.PublicKey)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(first) != string(second) {
			t.Errorf("verification is not deterministic: %s vs %s", first, second)
		}
	})

	t.Run("rejects a tampered payload", func(t *testing.T) {
		parts := strings.Split(signed, ".")
		payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
		if err != nil {
			t.Fatalf("failed to decode payload segment: %v", err)
		}
		payloadBytes[0] ^= 0x01
		tampered := parts[0] + "." + base64.RawURLEncoding.EncodeToString(payloadBytes) + "." + parts[2]

		_, err = VerifySignature(tampered, &chain.LeafKey.PublicKey)
		if err == nil {
			t.Fatal("expected error for tampered payload, got nil")
		}
		var cryptoErr *CryptoError
		if !errors.As(err, &cryptoErr) || cryptoErr.Code() != ErrCodeInvalidSignature {
			t.Errorf("expected error code %q, got %v", ErrCodeInvalidSignature, err)
		}
	})

	t.Run("rejects a different key", func(t *testing.T) {
		otherKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			t.Fatalf("failed to generate key: %v", err)
		}

		_, err = VerifySignature(signed, &otherKey.PublicKey)
		if err == nil {
			t.Fatal("expected error for wrong key, got nil")
		}
	})

	t.Run("rejects nil key", func(t *testing.T) {
		if _, err := VerifySignature(signed, nil); err == nil {
			t.Fatal("expected error for nil key, got nil")
		}
	})

	t.Run("signing requires a certificate chain", func(t *testing.T) {
		if _, err := SignCompact(payload, chain.LeafKey, nil); err == nil {
			t.Fatal("expected error for missing chain, got nil")
		}
	})
}

func TestCheckJWSAlgorithm(t *testing.T) {
	testCases := []struct {
		name      string
		alg       string
		wantError bool
	}{
		{name: "ES256 accepted", alg: "ES256"},
		{name: "RS256 rejected", alg: "RS256", wantError: true},
		{name: "none rejected", alg: "none", wantError: true},
		{name: "lowercase es256 rejected", alg: "es256", wantError: true},
		{name: "empty rejected", alg: "", wantError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckJWSAlgorithm(tc.alg)
			if tc.wantError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				var cryptoErr *CryptoError
				if !errors.As(err, &cryptoErr) || cryptoErr.Code() != ErrCodeUnsupportedAlgorithm {
					t.Errorf("expected error code %q, got %v", ErrCodeUnsupportedAlgorithm, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
