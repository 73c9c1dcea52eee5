package tlstream

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTLSErrorFormatting(t *testing.T) {
	t.Run("type and message", func(t *testing.T) {
		err := NewTLSError(ErrorTypeConfigValidation, "invalid configuration")
		assert.Contains(t, err.Error(), "[config_validation]")
		assert.Contains(t, err.Error(), "invalid configuration")
	})

	t.Run("context is included", func(t *testing.T) {
		err := NewTLSError(ErrorTypeCertificateLoad, "load failed").
			WithContext("file_path", "/tmp/ca.pem")
		assert.Contains(t, err.Error(), "context:")
		assert.Contains(t, err.Error(), "file_path=/tmp/ca.pem")
	})

	t.Run("cause is included", func(t *testing.T) {
		cause := errors.New("underlying failure")
		err := NewTLSErrorWithCause(ErrorTypeHandshakeFailure, "handshake failed", cause)
		assert.Contains(t, err.Error(), "cause: underlying failure")
	})
}

func TestTLSErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := NewTLSErrorWithCause(ErrorTypeFileAccess, "read failed", cause)

	assert.ErrorIs(t, err, cause)

	var tlsErr *TLSError
	require.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &tlsErr)
	assert.Equal(t, ErrorTypeFileAccess, tlsErr.Type)
}

func TestTLSErrorSuggestions(t *testing.T) {
	err := NewTLSError(ErrorTypeEmptyTrustStore, "no roots").
		WithSuggestion("install CA package").
		WithSuggestion("use ca_file policy")

	assert.Len(t, err.Suggestions, 2)
}

func TestNewFileReadErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		cause    error
		wantType TLSErrorType
	}{
		{
			name:     "not found",
			cause:    fs.ErrNotExist,
			wantType: ErrorTypeFileNotFound,
		},
		{
			name:     "permission denied",
			cause:    fs.ErrPermission,
			wantType: ErrorTypeFilePermission,
		},
		{
			name:     "other io error",
			cause:    errors.New("device busy"),
			wantType: ErrorTypeFileAccess,
		},
		{
			name:     "wrapped not found",
			cause:    fmt.Errorf("open: %w", fs.ErrNotExist),
			wantType: ErrorTypeFileNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewFileReadError("/etc/ssl/ca.pem", tt.cause)
			assert.Equal(t, tt.wantType, err.Type)
			assert.Equal(t, "/etc/ssl/ca.pem", err.Context["file_path"])
			assert.True(t, IsFileSystemError(err))
		})
	}
}

func TestNewHandshakeFailureErrorTimeoutDetection(t *testing.T) {
	tests := []struct {
		name     string
		cause    error
		wantType TLSErrorType
	}{
		{
			name:     "deadline exceeded",
			cause:    os.ErrDeadlineExceeded,
			wantType: ErrorTypeHandshakeTimeout,
		},
		{
			name:     "context deadline",
			cause:    context.DeadlineExceeded,
			wantType: ErrorTypeHandshakeTimeout,
		},
		{
			name:     "wrapped deadline",
			cause:    fmt.Errorf("handshake: %w", os.ErrDeadlineExceeded),
			wantType: ErrorTypeHandshakeTimeout,
		},
		{
			name:     "protocol failure",
			cause:    errors.New("bad certificate"),
			wantType: ErrorTypeHandshakeFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewHandshakeFailureError("std", tt.cause)
			assert.Equal(t, tt.wantType, err.Type)
			assert.Equal(t, "std", err.Context["engine"])
			assert.True(t, IsHandshakeError(err))
		})
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		certificate   bool
		configuration bool
		handshake     bool
		filesystem    bool
	}{
		{
			name:        "certificate parse",
			err:         NewCertificateParseError("bad block", errors.New("asn1 error")),
			certificate: true,
		},
		{
			name:        "certificate count",
			err:         NewCertificateCountError("/tmp/ca.pem", 3),
			certificate: true,
		},
		{
			name:        "unsupported extension",
			err:         NewUnsupportedExtensionError("/tmp/ca.p12"),
			certificate: true,
		},
		{
			name:          "server name",
			err:           NewServerNameError("bad host", "invalid character"),
			configuration: true,
		},
		{
			name:          "empty trust store",
			err:           NewEmptyTrustStoreError(nil),
			configuration: true,
		},
		{
			name:       "file read",
			err:        NewFileReadError("/tmp/ca.pem", fs.ErrNotExist),
			filesystem: true,
		},
		{
			name:      "handshake",
			err:       NewHandshakeFailureError("utls", errors.New("alert")),
			handshake: true,
		},
		{
			name: "plain error matches nothing",
			err:  errors.New("plain"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.certificate, IsCertificateError(tt.err))
			assert.Equal(t, tt.configuration, IsConfigurationError(tt.err))
			assert.Equal(t, tt.handshake, IsHandshakeError(tt.err))
			assert.Equal(t, tt.filesystem, IsFileSystemError(tt.err))
		})
	}
}

func TestClassifiersSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("connect: %w", NewCertificateCountError("/tmp/ca.pem", 0))
	assert.True(t, IsCertificateError(err))
	assert.False(t, IsHandshakeError(err))
}
