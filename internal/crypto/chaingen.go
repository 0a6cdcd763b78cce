package crypto

// chaingen.go - generation of self-contained ECDSA certificate chains.
//
// Used by the certgen tool and by tests to produce a root / intermediate /
// leaf hierarchy that satisfies the chain verifier without touching any real
// certificate authority.

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"
)

// SigningChain holds a freshly generated three-certificate hierarchy. Leaf,
// Intermediate and Root are ordered leaf-first, matching the x5c header
// convention.
type SigningChain struct {
	Root         *x509.Certificate
	Intermediate *x509.Certificate
	Leaf         *x509.Certificate
	LeafKey      *ecdsa.PrivateKey

	// IntermediateKey is retained so a simulated OCSP responder can sign
	// status responses as the leaf's issuer.
	IntermediateKey *ecdsa.PrivateKey
}

// Certificates returns the chain leaf-first, ready for SignCompact.
func (sc *SigningChain) Certificates() []*x509.Certificate {
	return []*x509.Certificate{sc.Leaf, sc.Intermediate, sc.Root}
}

// RootPEM returns the root certificate PEM-encoded, suitable for writing to a
// trust anchor directory.
func (sc *SigningChain) RootPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: sc.Root.Raw})
}

// ChainOptions controls certificate generation. The zero value produces a
// chain named after "example.com" that is valid for one year from now.
type ChainOptions struct {
	// Organization appears in the subject of all three certificates.
	Organization string

	// CommonNamePrefix is prepended to "Root CA", "Intermediate CA" and
	// "Leaf" in the respective subjects.
	CommonNamePrefix string

	// NotBefore and NotAfter bound the validity window of every
	// certificate in the chain.
	NotBefore time.Time
	NotAfter  time.Time

	// LeafOCSPServer, when set, is embedded in the leaf certificate's
	// Authority Information Access extension as its OCSP responder URL.
	LeafOCSPServer string
}

func (o *ChainOptions) applyDefaults() {
	if o.Organization == "" {
		o.Organization = "example.com"
	}
	if o.NotBefore.IsZero() {
		o.NotBefore = time.Now().Add(-time.Hour)
	}
	if o.NotAfter.IsZero() {
		o.NotAfter = o.NotBefore.Add(365 * 24 * time.Hour)
	}
}

// GenerateSigningChain creates a root CA, an intermediate CA constrained to
// one subordinate level, and a signing leaf, all on P-256 keys. The root
// private key is discarded: once the chain exists only the leaf key (and,
// for OCSP simulation, the intermediate key) is needed.
func GenerateSigningChain(opts ChainOptions) (*SigningChain, error) {
	opts.applyDefaults()

	rootKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, WrapInternalError(err, "failed to generate root key")
	}

	rootTmpl := &x509.Certificate{
		SerialNumber:          newSerial(),
		Subject:               subjectName(opts, "Root CA"),
		NotBefore:             opts.NotBefore,
		NotAfter:              opts.NotAfter,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            1,
	}
	root, err := createCertificate(rootTmpl, rootTmpl, &rootKey.PublicKey, rootKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create root certificate: %w", err)
	}

	intermediateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, WrapInternalError(err, "failed to generate intermediate key")
	}

	intermediateTmpl := &x509.Certificate{
		SerialNumber:          newSerial(),
		Subject:               subjectName(opts, "Intermediate CA"),
		NotBefore:             opts.NotBefore,
		NotAfter:              opts.NotAfter,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLenZero:        true,
	}
	intermediate, err := createCertificate(intermediateTmpl, root, &intermediateKey.PublicKey, rootKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create intermediate certificate: %w", err)
	}

	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, WrapInternalError(err, "failed to generate leaf key")
	}

	leafTmpl := &x509.Certificate{
		SerialNumber:          newSerial(),
		Subject:               subjectName(opts, "Leaf"),
		NotBefore:             opts.NotBefore,
		NotAfter:              opts.NotAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageCodeSigning},
		BasicConstraintsValid: true,
	}
	if opts.LeafOCSPServer != "" {
		leafTmpl.OCSPServer = []string{opts.LeafOCSPServer}
	}
	leaf, err := createCertificate(leafTmpl, intermediate, &leafKey.PublicKey, intermediateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create leaf certificate: %w", err)
	}

	return &SigningChain{
		Root:            root,
		Intermediate:    intermediate,
		Leaf:            leaf,
		LeafKey:         leafKey,
		IntermediateKey: intermediateKey,
	}, nil
}

func createCertificate(template, parent *x509.Certificate, pub *ecdsa.PublicKey, signer *ecdsa.PrivateKey) (*x509.Certificate, error) {
	der, err := x509.CreateCertificate(rand.Reader, template, parent, pub, signer)
	if err != nil {
		return nil, err
	}
	return x509.ParseCertificate(der)
}

func subjectName(opts ChainOptions, role string) pkix.Name {
	cn := role
	if opts.CommonNamePrefix != "" {
		cn = opts.CommonNamePrefix + " " + role
	}
	return pkix.Name{
		Organization: []string{opts.Organization},
		CommonName:   cn,
	}
}

// newSerial returns a random 128-bit serial number. crypto/rand failures are
// unrecoverable so this panics rather than threading an error through every
// template.
func newSerial() *big.Int {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, err := rand.Int(rand.Reader, limit)
	if err != nil {
		panic(fmt.Sprintf("failed to generate certificate serial: %v", err))
	}
	return serial
}
