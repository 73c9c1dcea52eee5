package tlstream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTLSMetricsCollectorSingleton(t *testing.T) {
	first, err := GetTLSMetricsCollector(nil)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := GetTLSMetricsCollector(nil)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestMetricsRecordingDoesNotPanic(t *testing.T) {
	collector, err := GetTLSMetricsCollector(nil)
	require.NoError(t, err)

	ctx := context.Background()
	collector.RecordHandshakeSuccess(ctx, "std", "TLS 1.3", "TLS_AES_128_GCM_SHA256", 12*time.Millisecond)
	collector.RecordHandshakeError(ctx, "utls", ErrorTypeHandshakeTimeout, 200*time.Millisecond)
	collector.RecordTrustAllUse(ctx)
	collector.RecordCertificateError(ctx, ErrorTypeCertificateParsing)
	collector.RecordTrustStoreSize(ctx, "ca_bundle", 3)
}

func TestNilCollectorIsSafe(t *testing.T) {
	var collector *TLSMetricsCollector

	ctx := context.Background()
	collector.RecordHandshakeSuccess(ctx, "std", "TLS 1.3", "suite", time.Millisecond)
	collector.RecordHandshakeError(ctx, "std", ErrorTypeHandshakeFailure, time.Millisecond)
	collector.RecordTrustAllUse(ctx)
	collector.RecordCertificateError(ctx, ErrorTypeCertificateLoad)
	collector.RecordTrustStoreSize(ctx, "default", 0)
}
