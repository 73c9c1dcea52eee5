package tlstream

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// TLSErrorType represents different categories of TLS errors
type TLSErrorType string

const (
	// Configuration errors
	ErrorTypeConfigValidation TLSErrorType = "config_validation"
	ErrorTypeConfigMissing    TLSErrorType = "config_missing"
	ErrorTypeServerName       TLSErrorType = "server_name"
	ErrorTypeEmptyTrustStore  TLSErrorType = "empty_trust_store"

	// Certificate errors
	ErrorTypeCertificateLoad      TLSErrorType = "certificate_load"
	ErrorTypeCertificateParsing   TLSErrorType = "certificate_parsing"
	ErrorTypeCertificateCount     TLSErrorType = "certificate_count"
	ErrorTypeUnsupportedExtension TLSErrorType = "unsupported_extension"

	// File system errors
	ErrorTypeFileAccess     TLSErrorType = "file_access"
	ErrorTypeFileNotFound   TLSErrorType = "file_not_found"
	ErrorTypeFilePermission TLSErrorType = "file_permission"

	// TLS handshake errors
	ErrorTypeHandshakeFailure TLSErrorType = "handshake_failure"
	ErrorTypeHandshakeTimeout TLSErrorType = "handshake_timeout"
)

// TLSError represents a structured TLS error with context
type TLSError struct {
	Type        TLSErrorType
	Message     string
	Cause       error
	Context     map[string]interface{}
	Suggestions []string
}

// Error implements the error interface
func (e *TLSError) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[%s]", string(e.Type)))
	parts = append(parts, e.Message)

	if len(e.Context) > 0 {
		var contextParts []string
		for key, value := range e.Context {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", key, value))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(contextParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

// Unwrap returns the underlying error for error unwrapping
func (e *TLSError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *TLSError) WithContext(key string, value interface{}) *TLSError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for resolving the error
func (e *TLSError) WithSuggestion(suggestion string) *TLSError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// NewTLSError creates a new TLS error with the specified type and message
func NewTLSError(errorType TLSErrorType, message string) *TLSError {
	return &TLSError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// NewTLSErrorWithCause creates a new TLS error with an underlying cause
func NewTLSErrorWithCause(errorType TLSErrorType, message string, cause error) *TLSError {
	return &TLSError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewFileReadError classifies a file read failure into the taxonomy,
// keeping the os error kind (not found, permission denied) visible.
func NewFileReadError(path string, cause error) *TLSError {
	errorType := ErrorTypeFileAccess
	switch {
	case errors.Is(cause, fs.ErrNotExist):
		errorType = ErrorTypeFileNotFound
	case errors.Is(cause, fs.ErrPermission):
		errorType = ErrorTypeFilePermission
	}

	return NewTLSErrorWithCause(errorType, fmt.Sprintf("failed to read file: %s", path), cause).
		WithContext("file_path", path).
		WithSuggestion("Verify the file path is correct").
		WithSuggestion("Check that the file is readable by the process")
}

// NewUnsupportedExtensionError reports a CA file whose extension is not
// one of the accepted certificate encodings.
func NewUnsupportedExtensionError(path string) *TLSError {
	return NewTLSError(ErrorTypeUnsupportedExtension,
		"CA certificate has an unsupported file-extension; supported types are pem, crt and der").
		WithContext("file_path", path).
		WithSuggestion("Rename or convert the certificate to a .pem, .crt or .der file")
}

// NewCertificateCountError reports a single-certificate file that
// decoded to zero or more than one certificate.
func NewCertificateCountError(path string, count int) *TLSError {
	return NewTLSError(ErrorTypeCertificateCount,
		fmt.Sprintf("certificate file contains %d certificates, expected exactly 1", count)).
		WithContext("file_path", path).
		WithContext("certificate_count", count).
		WithSuggestion("Use a file holding a single CA certificate").
		WithSuggestion("Use a ca_bundle trust policy for multi-certificate PEM bundles")
}

// NewCertificateParseError reports malformed PEM or DER bytes.
func NewCertificateParseError(detail string, cause error) *TLSError {
	return NewTLSErrorWithCause(ErrorTypeCertificateParsing,
		fmt.Sprintf("failed to parse certificate: %s", detail), cause).
		WithSuggestion("Check that the data is a valid X.509 certificate").
		WithSuggestion("Verify the encoding matches the file extension (PEM vs DER)")
}

// NewServerNameError reports a host that cannot be used as an SNI name.
func NewServerNameError(host string, reason string) *TLSError {
	return NewTLSError(ErrorTypeServerName,
		fmt.Sprintf("host %q is not a valid server name: %s", host, reason)).
		WithContext("host", host).
		WithSuggestion("Use a valid DNS hostname or IP literal").
		WithSuggestion("A trust_all policy substitutes a placeholder name for invalid hosts")
}

// NewEmptyTrustStoreError reports a default-policy resolution that
// found no usable platform trust anchors. This is a fatal configuration
// state: connection attempts should stop rather than retry.
func NewEmptyTrustStoreError(cause error) *TLSError {
	return NewTLSErrorWithCause(ErrorTypeEmptyTrustStore,
		"platform trust store yielded no usable CA certificates", cause).
		WithSuggestion("Install the operating system CA certificate package").
		WithSuggestion("Or supply explicit roots via a ca_file or ca_bundle trust policy")
}

// NewHandshakeFailureError wraps a handshake failure reported by the
// backend engine.
func NewHandshakeFailureError(engine string, cause error) *TLSError {
	errorType := ErrorTypeHandshakeFailure
	if errors.Is(cause, os.ErrDeadlineExceeded) || errors.Is(cause, context.DeadlineExceeded) {
		errorType = ErrorTypeHandshakeTimeout
	}
	return NewTLSErrorWithCause(errorType, "TLS handshake failed", cause).
		WithContext("engine", engine).
		WithSuggestion("Check that the server certificate chain matches the trust policy").
		WithSuggestion("Verify client and server TLS version compatibility")
}

// Error classification helpers
func IsCertificateError(err error) bool {
	var tlsErr *TLSError
	if errors.As(err, &tlsErr) {
		switch tlsErr.Type {
		case ErrorTypeCertificateLoad, ErrorTypeCertificateParsing,
			ErrorTypeCertificateCount, ErrorTypeUnsupportedExtension:
			return true
		}
	}
	return false
}

func IsConfigurationError(err error) bool {
	var tlsErr *TLSError
	if errors.As(err, &tlsErr) {
		switch tlsErr.Type {
		case ErrorTypeConfigValidation, ErrorTypeConfigMissing,
			ErrorTypeServerName, ErrorTypeEmptyTrustStore:
			return true
		}
	}
	return false
}

func IsHandshakeError(err error) bool {
	var tlsErr *TLSError
	if errors.As(err, &tlsErr) {
		switch tlsErr.Type {
		case ErrorTypeHandshakeFailure, ErrorTypeHandshakeTimeout:
			return true
		}
	}
	return false
}

func IsFileSystemError(err error) bool {
	var tlsErr *TLSError
	if errors.As(err, &tlsErr) {
		switch tlsErr.Type {
		case ErrorTypeFileAccess, ErrorTypeFileNotFound, ErrorTypeFilePermission:
			return true
		}
	}
	return false
}
