package crypto

// x5c.go - decoding the X.509 certificate chain embedded in a JWS header.
//
// The x5c (X.509 Certificate Chain) header parameter contains a chain of one
// or more PKIX certificates [RFC5280] as a JSON array of strings, each a
// base64-encoded DER certificate, leaf first.

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
)

// Chain length bounds. A chain needs at least a leaf; anything past leaf +
// intermediates + root is treated as a resource-abuse attempt.
const (
	MinChainLength = 1
	MaxChainLength = 5
)

// ExtractCertificateChain decodes the x5c entries from a JWS header into
// parsed certificates, preserving the header-supplied order (leaf first).
//
// Fails with ErrCodeMalformedCertificate if any entry does not decode from
// standard base64 (NB: not base64url) or parse as a DER certificate, or if
// the chain length is outside [MinChainLength, MaxChainLength].
func ExtractCertificateChain(x5c []string) ([]*x509.Certificate, error) {
	if len(x5c) < MinChainLength {
		return nil, NewCertificateError("x5c chain is empty")
	}
	if len(x5c) > MaxChainLength {
		return nil, NewCertificateError(fmt.Sprintf("x5c chain too long: %d certificates (max %d)", len(x5c), MaxChainLength))
	}

	certs := make([]*x509.Certificate, 0, len(x5c))
	for i, entry := range x5c {
		der, err := base64.StdEncoding.DecodeString(entry)
		if err != nil {
			return nil, WrapCertificateError(err, fmt.Sprintf("failed to decode certificate %d", i))
		}

		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, WrapCertificateError(err, fmt.Sprintf("failed to parse certificate %d", i))
		}

		certs = append(certs, cert)
	}

	return certs, nil
}

// ParseCertificatesPEM parses one or more X.509 certificates from PEM data,
// in the order they appear. Non-certificate blocks are skipped.
//
// Useful for loading trust anchors from files where multiple certificates are
// concatenated in PEM format.
func ParseCertificatesPEM(pemData []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	var block *pem.Block
	remaining := pemData

	for {
		block, remaining = pem.Decode(remaining)
		if block == nil {
			break
		}

		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, WrapCertificateError(err, "failed to parse certificate")
		}

		certs = append(certs, cert)
	}

	if len(certs) == 0 {
		return nil, NewCertificateError("no certificates found in PEM data")
	}

	return certs, nil
}

// LoadTrustAnchorsFromDir loads every PEM certificate file (*.pem, *.crt)
// from a directory. The result is intended to seed a verifier's pinned
// trust-anchor set at startup.
func LoadTrustAnchorsFromDir(dir string) ([]*x509.Certificate, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, WrapInternalError(err, fmt.Sprintf("failed to open directory %s", dir))
	}
	defer root.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, WrapInternalError(err, fmt.Sprintf("failed to read directory %s", dir))
	}

	var anchors []*x509.Certificate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := filepath.Ext(entry.Name())
		if ext != ".pem" && ext != ".crt" {
			continue
		}

		pemData, err := root.ReadFile(entry.Name())
		if err != nil {
			return nil, WrapInternalError(err, fmt.Sprintf("failed to read %s", entry.Name()))
		}

		certs, err := ParseCertificatesPEM(pemData)
		if err != nil {
			return nil, WrapCertificateError(err, fmt.Sprintf("failed to parse %s", entry.Name()))
		}

		anchors = append(anchors, certs...)
	}

	if len(anchors) == 0 {
		return nil, NewCertificateError(fmt.Sprintf("no trust anchor certificates found in %s", dir))
	}

	return anchors, nil
}
