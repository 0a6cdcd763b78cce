// algorithm.go defines the signing algorithm allowlist.
//
// The store signs every payload with ES256 and issues its signing certificates
// from an ECDSA hierarchy. Anything else in a JWS header or a chain
// certificate is treated as an algorithm-substitution attempt and rejected.
package crypto

import (
	"crypto/x509"

	"github.com/lestrrat-go/jwx/v3/jwa"
)

// AlgorithmES256 is the only JWS algorithm accepted in signed payload headers.
const AlgorithmES256 = "ES256"

// jwsSignatureAlgorithm is the jwx algorithm used when verifying and signing
// compact serializations.
func jwsSignatureAlgorithm() jwa.SignatureAlgorithm {
	return jwa.ES256()
}

// allowedCertificateAlgorithms are the X.509 signature algorithms accepted on
// chain certificates. The issuing CA profile signs leaves with ECDSA/SHA-256
// and CA certificates with ECDSA/SHA-384.
var allowedCertificateAlgorithms = map[x509.SignatureAlgorithm]bool{
	x509.ECDSAWithSHA256: true,
	x509.ECDSAWithSHA384: true,
}

// CheckJWSAlgorithm validates the alg value from a JWS header against the
// allowlist.
func CheckJWSAlgorithm(alg string) error {
	if alg != AlgorithmES256 {
		return NewAlgorithmError("unsupported JWS algorithm: " + alg)
	}
	return nil
}

// checkCertificateAlgorithm validates the signature algorithm of a single
// chain certificate against the allowlist.
func checkCertificateAlgorithm(cert *x509.Certificate) error {
	if !allowedCertificateAlgorithms[cert.SignatureAlgorithm] {
		return NewAlgorithmError("unsupported certificate signature algorithm: " + cert.SignatureAlgorithm.String())
	}
	return nil
}
