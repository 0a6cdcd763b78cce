// Package testutil provides signing fixtures for verification tests: a
// generated root/intermediate/leaf chain and helpers that sign arbitrary
// payloads the way the store would.
package testutil

import (
	"crypto/x509"
	"encoding/json"
	"testing"

	"github.com/storekit-community/appstore-server-go/internal/crypto"
)

// Fixture bundles a generated signing chain with signing helpers.
type Fixture struct {
	Chain *crypto.SigningChain
}

// NewFixture generates a fresh signing hierarchy.
func NewFixture(tb testing.TB, opts crypto.ChainOptions) *Fixture {
	tb.Helper()

	chain, err := crypto.GenerateSigningChain(opts)
	if err != nil {
		tb.Fatalf("failed to generate signing chain: %v", err)
	}
	return &Fixture{Chain: chain}
}

// Anchors returns the trust-anchor set a verifier should pin to accept this
// fixture's signatures.
func (f *Fixture) Anchors() []*x509.Certificate {
	return []*x509.Certificate{f.Chain.Root}
}

// Sign marshals payload to JSON and signs it with the fixture's leaf key,
// embedding the full chain in the x5c header.
func (f *Fixture) Sign(tb testing.TB, payload any) string {
	tb.Helper()

	raw, err := json.Marshal(payload)
	if err != nil {
		tb.Fatalf("failed to marshal payload: %v", err)
	}
	return f.SignRaw(tb, raw)
}

// SignRaw signs pre-marshalled JSON bytes with the fixture's leaf key.
func (f *Fixture) SignRaw(tb testing.TB, raw []byte) string {
	tb.Helper()

	signed, err := crypto.SignCompact(raw, f.Chain.LeafKey, f.Chain.Certificates())
	if err != nil {
		tb.Fatalf("failed to sign payload: %v", err)
	}
	return signed
}

// SignWithChain signs raw JSON with the fixture's leaf key but an arbitrary
// x5c chain, for tests that need mismatched or partial chains.
func (f *Fixture) SignWithChain(tb testing.TB, raw []byte, chain []*x509.Certificate) string {
	tb.Helper()

	signed, err := crypto.SignCompact(raw, f.Chain.LeafKey, chain)
	if err != nil {
		tb.Fatalf("failed to sign payload: %v", err)
	}
	return signed
}
