package api

// token.go - outbound bearer-token generation for the App Store Server API.
//
// Each request carries a short-lived ES256 JWT signed with the App Store
// Connect API key. Token generation shares no state with payload
// verification; it is a plain outbound signing operation.

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// tokenAudience is the fixed aud claim the App Store Server API expects.
const tokenAudience = "appstoreconnect-v1"

// tokenLifetime keeps tokens comfortably under the store's 60 minute cap.
const tokenLifetime = 5 * time.Minute

// TokenGenerator mints bearer tokens for App Store Server API requests.
// Safe for concurrent use; each call produces a fresh token.
type TokenGenerator struct {
	key      jwk.Key
	issuerID string
	bundleID string
	now      func() time.Time
}

// NewTokenGenerator parses an App Store Connect API private key (PEM, PKCS#8
// or SEC1 EC) and prepares a generator. keyID and issuerID come from the
// Keys page in App Store Connect.
func NewTokenGenerator(privateKeyPEM []byte, keyID, issuerID, bundleID string) (*TokenGenerator, error) {
	if keyID == "" || issuerID == "" || bundleID == "" {
		return nil, fmt.Errorf("keyID, issuerID and bundleID are all required")
	}

	privateKey, err := parseECPrivateKeyPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}

	key, err := jwk.Import(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to import signing key: %w", err)
	}
	if err := key.Set(jwk.KeyIDKey, keyID); err != nil {
		return nil, fmt.Errorf("failed to set key ID: %w", err)
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.ES256()); err != nil {
		return nil, fmt.Errorf("failed to set algorithm: %w", err)
	}

	return &TokenGenerator{
		key:      key,
		issuerID: issuerID,
		bundleID: bundleID,
		now:      time.Now,
	}, nil
}

// Generate mints a new bearer token valid for tokenLifetime.
func (g *TokenGenerator) Generate() (string, error) {
	now := g.now()

	token, err := jwt.NewBuilder().
		Issuer(g.issuerID).
		IssuedAt(now).
		Expiration(now.Add(tokenLifetime)).
		Audience([]string{tokenAudience}).
		Claim("bid", g.bundleID).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.ES256(), g.key))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return string(signed), nil
}

// parseECPrivateKeyPEM accepts both the PKCS#8 wrapping App Store Connect
// ships keys in and plain SEC1 EC keys.
func parseECPrivateKeyPEM(pemData []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	if parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		ecKey, ok := parsed.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("key is %T, expected ECDSA", parsed)
		}
		return ecKey, nil
	}

	return x509.ParseECPrivateKey(block.Bytes)
}
