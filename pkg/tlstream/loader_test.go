package tlstream

import (
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateCertPEM(t *testing.T, commonName string) []byte {
	t.Helper()
	certPEM, _, err := GenerateSelfSignedCertificate(CertificateGenerationOptions{
		CommonName: commonName,
	})
	require.NoError(t, err)
	return certPEM
}

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestLoadCertificateFromPath(t *testing.T) {
	certPEM := generateCertPEM(t, "single.example.com")

	t.Run("pem file", func(t *testing.T) {
		path := writeTempFile(t, "ca.pem", certPEM)

		cert, err := LoadCertificateFromPath(path)
		require.NoError(t, err)
		assert.Equal(t, EncodingPEM, cert.Encoding)
		assert.Equal(t, "single.example.com", cert.X509.Subject.CommonName)
	})

	t.Run("crt file", func(t *testing.T) {
		path := writeTempFile(t, "ca.crt", certPEM)

		cert, err := LoadCertificateFromPath(path)
		require.NoError(t, err)
		assert.Equal(t, EncodingPEM, cert.Encoding)
	})

	t.Run("uppercase extension", func(t *testing.T) {
		path := writeTempFile(t, "ca.PEM", certPEM)

		cert, err := LoadCertificateFromPath(path)
		require.NoError(t, err)
		assert.Equal(t, EncodingPEM, cert.Encoding)
	})

	t.Run("der file", func(t *testing.T) {
		block, _ := pem.Decode(certPEM)
		require.NotNil(t, block)
		path := writeTempFile(t, "ca.der", block.Bytes)

		cert, err := LoadCertificateFromPath(path)
		require.NoError(t, err)
		assert.Equal(t, EncodingDER, cert.Encoding)
		assert.Equal(t, "single.example.com", cert.X509.Subject.CommonName)
	})

	t.Run("der file with pem content", func(t *testing.T) {
		path := writeTempFile(t, "ca.der", certPEM)

		_, err := LoadCertificateFromPath(path)
		require.Error(t, err)
		assert.True(t, IsCertificateError(err))
	})

	t.Run("unsupported extension checked before content", func(t *testing.T) {
		// The path does not exist; a file read would fail differently.
		_, err := LoadCertificateFromPath("/nonexistent/ca.p12")
		require.Error(t, err)
		var tlsErr *TLSError
		require.ErrorAs(t, err, &tlsErr)
		assert.Equal(t, ErrorTypeUnsupportedExtension, tlsErr.Type)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCertificateFromPath(filepath.Join(t.TempDir(), "missing.pem"))
		require.Error(t, err)
		var tlsErr *TLSError
		require.ErrorAs(t, err, &tlsErr)
		assert.Equal(t, ErrorTypeFileNotFound, tlsErr.Type)
	})

	t.Run("empty pem file", func(t *testing.T) {
		path := writeTempFile(t, "ca.pem", nil)

		_, err := LoadCertificateFromPath(path)
		require.Error(t, err)
		var tlsErr *TLSError
		require.ErrorAs(t, err, &tlsErr)
		assert.Equal(t, ErrorTypeCertificateCount, tlsErr.Type)
		assert.Equal(t, 0, tlsErr.Context["certificate_count"])
	})

	t.Run("multiple certificates rejected", func(t *testing.T) {
		second := generateCertPEM(t, "second.example.com")
		path := writeTempFile(t, "ca.pem", append(append([]byte{}, certPEM...), second...))

		_, err := LoadCertificateFromPath(path)
		require.Error(t, err)
		var tlsErr *TLSError
		require.ErrorAs(t, err, &tlsErr)
		assert.Equal(t, ErrorTypeCertificateCount, tlsErr.Type)
		assert.Equal(t, 2, tlsErr.Context["certificate_count"])
	})

	t.Run("corrupt block alongside a valid certificate", func(t *testing.T) {
		corrupt := []byte("-----BEGIN CERTIFICATE-----\n!!!! not base64 !!!!\n-----END CERTIFICATE-----\n")
		path := writeTempFile(t, "ca.pem", append(append([]byte{}, corrupt...), certPEM...))

		_, err := LoadCertificateFromPath(path)
		require.Error(t, err)
		var tlsErr *TLSError
		require.ErrorAs(t, err, &tlsErr)
		assert.Equal(t, ErrorTypeCertificateParsing, tlsErr.Type)
	})

	t.Run("malformed certificate block", func(t *testing.T) {
		garbage := pem.EncodeToMemory(&pem.Block{
			Type:  "CERTIFICATE",
			Bytes: []byte("not a certificate"),
		})
		path := writeTempFile(t, "ca.pem", garbage)

		_, err := LoadCertificateFromPath(path)
		require.Error(t, err)
		var tlsErr *TLSError
		require.ErrorAs(t, err, &tlsErr)
		assert.Equal(t, ErrorTypeCertificateParsing, tlsErr.Type)
		assert.Equal(t, path, tlsErr.Context["file_path"])
	})
}

func TestLoadCertificateBundle(t *testing.T) {
	t.Run("multiple certificates", func(t *testing.T) {
		first := generateCertPEM(t, "first.example.com")
		second := generateCertPEM(t, "second.example.com")
		bundle := append(append([]byte{}, first...), second...)

		certs, err := LoadCertificateBundle(bundle)
		require.NoError(t, err)
		require.Len(t, certs, 2)
		assert.Equal(t, "first.example.com", certs[0].X509.Subject.CommonName)
		assert.Equal(t, "second.example.com", certs[1].X509.Subject.CommonName)
	})

	t.Run("empty bundle yields zero certificates", func(t *testing.T) {
		certs, err := LoadCertificateBundle(nil)
		require.NoError(t, err)
		assert.Empty(t, certs)
	})

	t.Run("non-certificate blocks are skipped", func(t *testing.T) {
		cert := generateCertPEM(t, "only.example.com")
		key := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte("key data")})
		bundle := append(append([]byte{}, key...), cert...)

		certs, err := LoadCertificateBundle(bundle)
		require.NoError(t, err)
		require.Len(t, certs, 1)
		assert.Equal(t, "only.example.com", certs[0].X509.Subject.CommonName)
	})

	t.Run("corrupt base64 fails the whole bundle", func(t *testing.T) {
		first := generateCertPEM(t, "first.example.com")
		second := generateCertPEM(t, "second.example.com")
		corrupt := []byte("-----BEGIN CERTIFICATE-----\n!!!! not base64 !!!!\n-----END CERTIFICATE-----\n")

		bundle := append(append(append([]byte{}, first...), corrupt...), second...)

		certs, err := LoadCertificateBundle(bundle)
		require.Error(t, err)
		assert.Nil(t, certs)

		var tlsErr *TLSError
		require.ErrorAs(t, err, &tlsErr)
		assert.Equal(t, ErrorTypeCertificateParsing, tlsErr.Type)
	})

	t.Run("truncated block fails the whole bundle", func(t *testing.T) {
		good := generateCertPEM(t, "good.example.com")
		truncated := []byte("-----BEGIN CERTIFICATE-----\nMIIB\n")
		bundle := append(append([]byte{}, good...), truncated...)

		certs, err := LoadCertificateBundle(bundle)
		require.Error(t, err)
		assert.Nil(t, certs)
		assert.True(t, IsCertificateError(err))
	})

	t.Run("malformed block fails the whole bundle", func(t *testing.T) {
		good := generateCertPEM(t, "good.example.com")
		bad := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte("garbage")})
		bundle := append(append([]byte{}, good...), bad...)

		certs, err := LoadCertificateBundle(bundle)
		require.Error(t, err)
		assert.Nil(t, certs)

		var tlsErr *TLSError
		require.ErrorAs(t, err, &tlsErr)
		assert.Equal(t, ErrorTypeCertificateParsing, tlsErr.Type)
		assert.Equal(t, 1, tlsErr.Context["block_index"])
	})
}
