package tlstream

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// CertificateEncoding tags the on-disk encoding of a loaded certificate.
type CertificateEncoding string

const (
	EncodingPEM CertificateEncoding = "PEM"
	EncodingDER CertificateEncoding = "DER"
)

// Certificate is a parsed CA certificate together with its source
// encoding.
type Certificate struct {
	X509     *x509.Certificate
	Encoding CertificateEncoding
}

const (
	pemCertificateBlock = "CERTIFICATE"
	pemBeginMarker      = "-----BEGIN "
)

// LoadCertificateFromPath reads and decodes a single CA certificate.
// The encoding is chosen by file extension, case-insensitively:
// .pem and .crt files must contain exactly one PEM certificate block,
// .der files are parsed as one raw DER certificate, and any other
// extension is rejected before the content is inspected.
func LoadCertificateFromPath(path string) (*Certificate, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pem", ".crt", ".der":
	default:
		return nil, NewUnsupportedExtensionError(path)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, NewFileReadError(path, err)
	}

	if ext == ".der" {
		cert, err := x509.ParseCertificate(data)
		if err != nil {
			return nil, NewCertificateParseError(path, err).WithContext("file_path", path)
		}
		return &Certificate{X509: cert, Encoding: EncodingDER}, nil
	}

	certs, err := decodePEMCertificates(data)
	if err != nil {
		var tlsErr *TLSError
		if errors.As(err, &tlsErr) {
			tlsErr.WithContext("file_path", path)
		}
		return nil, err
	}
	if len(certs) != 1 {
		return nil, NewCertificateCountError(path, len(certs))
	}

	return &Certificate{X509: certs[0], Encoding: EncodingPEM}, nil
}

// LoadCertificateBundle splits a PEM bundle into certificate blocks and
// decodes each one. A bundle may hold zero or more certificates, but a
// single malformed block aborts the whole load; no partial result is
// returned.
func LoadCertificateBundle(bundle []byte) ([]*Certificate, error) {
	certs, err := decodePEMCertificates(bundle)
	if err != nil {
		return nil, err
	}

	out := make([]*Certificate, 0, len(certs))
	for _, cert := range certs {
		out = append(out, &Certificate{X509: cert, Encoding: EncodingPEM})
	}
	return out, nil
}

// decodePEMCertificates walks every CERTIFICATE block in data,
// fail-fast on the first block that does not parse. Non-certificate
// blocks (keys, CSRs) are skipped.
func decodePEMCertificates(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	decoded := 0

	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		decoded++
		if block.Type != pemCertificateBlock {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, NewCertificateParseError("malformed PEM certificate block", err).
				WithContext("block_index", len(certs))
		}
		certs = append(certs, cert)
	}

	// pem.Decode silently skips sections it cannot decode (corrupt
	// base64, truncated blocks). Any BEGIN marker without a decoded
	// block means such a section exists, and a partial result must not
	// be returned.
	if markers := bytes.Count(data, []byte(pemBeginMarker)); markers != decoded {
		return nil, NewCertificateParseError("undecodable PEM block in input", nil).
			WithContext("begin_markers", markers).
			WithContext("decoded_blocks", decoded)
	}

	return certs, nil
}
