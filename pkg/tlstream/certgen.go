package tlstream

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// CertificateGenerationOptions contains options for generating certificates
type CertificateGenerationOptions struct {
	CommonName   string
	Organization []string
	Country      []string
	DNSNames     []string
	IPAddresses  []net.IP
	NotBefore    time.Time
	ValidFor     time.Duration
	IsCA         bool
	KeySize      int
	SerialNumber *big.Int
	ParentCert   *x509.Certificate
	ParentKey    interface{}
}

// GenerateSelfSignedCertificate generates a certificate for testing and
// development. When ParentCert/ParentKey are set the certificate is
// signed by that parent instead of itself. A NotBefore in the past
// combined with a short ValidFor produces an already-expired
// certificate.
func GenerateSelfSignedCertificate(opts CertificateGenerationOptions) (certPEM, keyPEM []byte, err error) {
	// Set defaults
	if opts.ValidFor == 0 {
		opts.ValidFor = 365 * 24 * time.Hour
	}
	if opts.KeySize == 0 {
		opts.KeySize = 2048
	}
	if opts.SerialNumber == nil {
		opts.SerialNumber = big.NewInt(1)
	}
	if opts.CommonName == "" {
		opts.CommonName = "localhost"
	}
	if opts.NotBefore.IsZero() {
		opts.NotBefore = time.Now()
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, opts.KeySize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	template := x509.Certificate{
		SerialNumber: opts.SerialNumber,
		Subject: pkix.Name{
			CommonName:   opts.CommonName,
			Organization: opts.Organization,
			Country:      opts.Country,
		},
		NotBefore:             opts.NotBefore,
		NotAfter:              opts.NotBefore.Add(opts.ValidFor),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              opts.DNSNames,
		IPAddresses:           opts.IPAddresses,
	}

	// Default SANs so a plain localhost handshake verifies
	if len(template.DNSNames) == 0 && len(template.IPAddresses) == 0 {
		template.DNSNames = []string{"localhost"}
		template.IPAddresses = []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback}
	}

	if opts.IsCA {
		template.IsCA = true
		template.KeyUsage |= x509.KeyUsageCertSign
		template.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth}
	}

	parentCert := &template
	var parentKey interface{} = privateKey
	if opts.ParentCert != nil && opts.ParentKey != nil {
		parentCert = opts.ParentCert
		parentKey = opts.ParentKey
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, parentCert, &privateKey.PublicKey, parentKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	certPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: certDER,
	})

	privateKeyDER, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal private key: %w", err)
	}

	keyPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: privateKeyDER,
	})

	return certPEM, keyPEM, nil
}

// WriteCertificateFiles writes certificate and key to files
func WriteCertificateFiles(certPEM, keyPEM []byte, certFile, keyFile string) error {
	if err := os.WriteFile(certFile, certPEM, 0644); err != nil {
		return fmt.Errorf("failed to write certificate file: %w", err)
	}

	// Key files get restricted permissions
	if err := os.WriteFile(keyFile, keyPEM, 0600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}

	return nil
}

// ParseCertificateKeyPair decodes a generated PEM pair back into usable
// signing material, for chaining further certificates off a CA.
func ParseCertificateKeyPair(certPEM, keyPEM []byte) (*x509.Certificate, interface{}, error) {
	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil {
		return nil, nil, fmt.Errorf("failed to decode certificate PEM block")
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, nil, fmt.Errorf("failed to decode key PEM block")
	}
	key, err := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return cert, key, nil
}

// GenerateTestCertificates generates a development certificate suite:
// a CA, a localhost server certificate signed by it, and an unrelated
// self-signed certificate useful for exercising verification failures.
func GenerateTestCertificates(baseDir string) error {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return fmt.Errorf("failed to create certificate directory: %w", err)
	}

	caCertPEM, caKeyPEM, err := GenerateSelfSignedCertificate(CertificateGenerationOptions{
		CommonName:   "Test CA",
		Organization: []string{"Test Organization"},
		Country:      []string{"US"},
		IsCA:         true,
		ValidFor:     10 * 365 * 24 * time.Hour,
		SerialNumber: big.NewInt(1),
	})
	if err != nil {
		return fmt.Errorf("failed to generate CA certificate: %w", err)
	}

	if err := WriteCertificateFiles(caCertPEM, caKeyPEM,
		filepath.Join(baseDir, "ca.crt"), filepath.Join(baseDir, "ca.key")); err != nil {
		return fmt.Errorf("failed to write CA certificate: %w", err)
	}

	caCert, caKey, err := ParseCertificateKeyPair(caCertPEM, caKeyPEM)
	if err != nil {
		return fmt.Errorf("failed to parse CA material: %w", err)
	}

	serverCertPEM, serverKeyPEM, err := GenerateSelfSignedCertificate(CertificateGenerationOptions{
		CommonName:   "localhost",
		Organization: []string{"Test Server"},
		Country:      []string{"US"},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		SerialNumber: big.NewInt(2),
		ParentCert:   caCert,
		ParentKey:    caKey,
	})
	if err != nil {
		return fmt.Errorf("failed to generate server certificate: %w", err)
	}

	if err := WriteCertificateFiles(serverCertPEM, serverKeyPEM,
		filepath.Join(baseDir, "server.crt"), filepath.Join(baseDir, "server.key")); err != nil {
		return fmt.Errorf("failed to write server certificate: %w", err)
	}

	strangerCertPEM, strangerKeyPEM, err := GenerateSelfSignedCertificate(CertificateGenerationOptions{
		CommonName:   "stranger.example.com",
		Organization: []string{"Unrelated"},
		Country:      []string{"US"},
		DNSNames:     []string{"stranger.example.com"},
		SerialNumber: big.NewInt(3),
	})
	if err != nil {
		return fmt.Errorf("failed to generate unrelated certificate: %w", err)
	}

	if err := WriteCertificateFiles(strangerCertPEM, strangerKeyPEM,
		filepath.Join(baseDir, "stranger.crt"), filepath.Join(baseDir, "stranger.key")); err != nil {
		return fmt.Errorf("failed to write unrelated certificate: %w", err)
	}

	return nil
}
