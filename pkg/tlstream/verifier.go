package tlstream

import (
	"crypto/tls"
	"crypto/x509"
	"time"
)

// Verifier is the certificate verification capability an engine
// consults during the handshake. Implementations validate the
// presented chain and the handshake signatures, and declare which
// signature schemes they are willing to negotiate.
type Verifier interface {
	// VerifyChain validates the presented certificate chain. rawCerts
	// holds the DER-encoded chain, leaf first.
	VerifyChain(rawCerts [][]byte, serverName string, now time.Time) error

	// VerifyTLS12Signature validates a TLS 1.2 handshake signature.
	VerifyTLS12Signature(message []byte, cert *x509.Certificate, signature []byte) error

	// VerifyTLS13Signature validates a TLS 1.3 CertificateVerify signature.
	VerifyTLS13Signature(message []byte, cert *x509.Certificate, signature []byte) error

	// SupportedSchemes lists the signature schemes the verifier accepts.
	SupportedSchemes() []tls.SignatureScheme
}

// PermissiveVerifier accepts every certificate chain and handshake
// signature unconditionally, ignoring expiry, hostname and issuer.
// It exists solely to back the trust_all policy and must never be
// reachable from any other trust mode.
type PermissiveVerifier struct{}

var _ Verifier = PermissiveVerifier{}

// VerifyChain accepts any chain.
func (PermissiveVerifier) VerifyChain([][]byte, string, time.Time) error {
	return nil
}

// VerifyTLS12Signature accepts any signature.
func (PermissiveVerifier) VerifyTLS12Signature([]byte, *x509.Certificate, []byte) error {
	return nil
}

// VerifyTLS13Signature accepts any signature.
func (PermissiveVerifier) VerifyTLS13Signature([]byte, *x509.Certificate, []byte) error {
	return nil
}

// SupportedSchemes declares the full standard scheme list. Although
// verification itself is bypassed, servers still negotiate a scheme
// from this list; an incomplete list breaks handshakes against servers
// that require schemes missing from it.
func (PermissiveVerifier) SupportedSchemes() []tls.SignatureScheme {
	return []tls.SignatureScheme{
		tls.PKCS1WithSHA1,
		tls.ECDSAWithSHA1,
		tls.PKCS1WithSHA256,
		tls.ECDSAWithP256AndSHA256,
		tls.PKCS1WithSHA384,
		tls.ECDSAWithP384AndSHA384,
		tls.PKCS1WithSHA512,
		tls.ECDSAWithP521AndSHA512,
		tls.PSSWithSHA256,
		tls.PSSWithSHA384,
		tls.PSSWithSHA512,
		tls.Ed25519,
	}
}
