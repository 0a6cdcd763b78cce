// jws.go - decoding and signature verification for JWS compact serializations.
//
// Signed payloads arrive as compact serializations (Base64URL(header) "."
// Base64URL(payload) "." Base64URL(signature)). Decoding here is purely
// structural: nothing decoded by this file may be trusted until the
// certificate chain has been validated (chain.go) and the signature verified
// against the leaf key (VerifySignature).
//
// Signing and verification go through github.com/lestrrat-go/jwx/v3 rather
// than hand-rolled ECDSA so that the signing input is always the exact ASCII
// bytes of "header.payload" as received.
package crypto

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lestrrat-go/jwx/v3/cert"
	"github.com/lestrrat-go/jwx/v3/jws"
)

// JWSHeader is the decoded protected header of a signed payload.
type JWSHeader struct {
	// Algorithm is the declared signing algorithm ("alg"). Only ES256 is
	// accepted (see algorithm.go).
	Algorithm string `json:"alg"`

	// X5C is the embedded certificate chain, leaf first. Each entry is a
	// standard-base64 encoded DER certificate.
	X5C []string `json:"x5c"`
}

// DecodedJWS holds the structurally decoded parts of a compact serialization.
//
// The segment fields preserve the exact received encoding - signature
// verification operates on HeaderSegment "." PayloadSegment, never on
// re-encoded data.
type DecodedJWS struct {
	// HeaderSegment is the first compact segment exactly as received.
	HeaderSegment string

	// PayloadSegment is the second compact segment exactly as received.
	PayloadSegment string

	// Header is the parsed protected header.
	Header JWSHeader

	// Payload is the decoded (but unverified) payload bytes.
	Payload []byte
}

// DecodeCompact splits and decodes a JWS compact serialization without
// verifying anything.
//
// It fails with an ErrCodeJWSFormat error unless the input has exactly three
// non-empty dot-separated segments, each segment decodes as unpadded
// base64url, the header parses as JSON, and the header carries both an alg
// value and a non-empty x5c chain.
func DecodeCompact(signedPayload string) (*DecodedJWS, error) {
	parts := strings.Split(signedPayload, ".")
	if len(parts) != 3 {
		return nil, NewFormatError(fmt.Sprintf("invalid compact serialization: expected 3 segments, got %d", len(parts)))
	}
	for i, part := range parts {
		if part == "" {
			return nil, NewFormatError(fmt.Sprintf("invalid compact serialization: segment %d is empty", i))
		}
	}

	headerBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, WrapFormatError(err, "failed to decode header segment")
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, WrapFormatError(err, "failed to decode payload segment")
	}

	if _, err := base64.RawURLEncoding.DecodeString(parts[2]); err != nil {
		return nil, WrapFormatError(err, "failed to decode signature segment")
	}

	var header JWSHeader
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, WrapFormatError(err, "failed to parse header JSON")
	}

	if header.Algorithm == "" {
		return nil, NewFormatError("missing required header field: alg")
	}
	if len(header.X5C) == 0 {
		return nil, NewFormatError("missing required header field: x5c")
	}

	return &DecodedJWS{
		HeaderSegment:  parts[0],
		PayloadSegment: parts[1],
		Header:         header,
		Payload:        payloadBytes,
	}, nil
}

// VerifySignature verifies the JWS signature against the given public key and
// returns the payload bytes.
//
// The key must be the public key of a chain-validated leaf certificate -
// calling this with an unvalidated key defeats the whole pipeline. The
// signing input is the ASCII bytes of the received "header.payload" segments;
// jws.Verify operates on the raw compact string so no re-encoding can occur.
func VerifySignature(signedPayload string, publicKey *ecdsa.PublicKey) ([]byte, error) {
	if publicKey == nil {
		return nil, NewInternalError("nil public key")
	}

	payload, err := jws.Verify([]byte(signedPayload), jws.WithKey(jwsSignatureAlgorithm(), publicKey))
	if err != nil {
		return nil, WrapSignatureError(err, "signature verification failed")
	}

	return payload, nil
}

// SignCompact signs a payload with ES256 and embeds the certificate chain in
// the x5c protected header (leaf first).
//
// This is the counterpart of the verification pipeline and exists for the
// certgen tool and for tests - production payloads are signed by the store,
// never by this library.
func SignCompact(payload []byte, privateKey *ecdsa.PrivateKey, certChain []*x509.Certificate) (string, error) {
	if privateKey == nil {
		return "", NewInternalError("nil private key")
	}
	if len(certChain) == 0 {
		return "", NewInternalError("certificate chain is required")
	}

	chain := &cert.Chain{}
	for _, c := range certChain {
		if err := chain.AddString(base64.StdEncoding.EncodeToString(c.Raw)); err != nil {
			return "", WrapInternalError(err, "failed to build x5c chain")
		}
	}

	headers := jws.NewHeaders()
	if err := headers.Set(jws.X509CertChainKey, chain); err != nil {
		return "", WrapInternalError(err, "failed to set x5c header")
	}

	signed, err := jws.Sign(payload, jws.WithKey(jwsSignatureAlgorithm(), privateKey, jws.WithProtectedHeaders(headers)))
	if err != nil {
		return "", WrapInternalError(err, "failed to sign payload")
	}

	return string(signed), nil
}
