package tlstream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce    sync.Once
	metricsInitErr error
	tlsMetricsInst *TLSMetricsCollector
)

// TLSMetricsCollector handles metrics for secure stream establishment
type TLSMetricsCollector struct {
	// Handshake metrics
	handshakesTotal   metric.Int64Counter
	handshakeErrors   metric.Int64Counter
	handshakeDuration metric.Float64Histogram

	// Trust metrics
	trustAllUses      metric.Int64Counter
	certificateErrors metric.Int64Counter
	trustStoreSize    metric.Int64Histogram

	logger *slog.Logger
}

// GetTLSMetricsCollector returns the singleton metrics collector
func GetTLSMetricsCollector(logger *slog.Logger) (*TLSMetricsCollector, error) {
	metricsOnce.Do(func() {
		tlsMetricsInst, metricsInitErr = newTLSMetricsCollector(logger)
	})
	return tlsMetricsInst, metricsInitErr
}

// newTLSMetricsCollector creates a new metrics collector
func newTLSMetricsCollector(logger *slog.Logger) (*TLSMetricsCollector, error) {
	if logger == nil {
		logger = slog.Default()
	}

	meter := otel.GetMeterProvider().Meter("secstream.tlstream")

	collector := &TLSMetricsCollector{
		logger: logger,
	}

	var err error

	collector.handshakesTotal, err = meter.Int64Counter(
		"tls_client_handshakes_total",
		metric.WithDescription("Total number of TLS client handshakes attempted"),
		metric.WithUnit("{handshake}"),
	)
	if err != nil {
		return nil, err
	}

	collector.handshakeErrors, err = meter.Int64Counter(
		"tls_client_handshake_errors_total",
		metric.WithDescription("Total number of failed TLS client handshakes"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	collector.handshakeDuration, err = meter.Float64Histogram(
		"tls_client_handshake_duration_seconds",
		metric.WithDescription("TLS client handshake duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	collector.trustAllUses, err = meter.Int64Counter(
		"tls_client_trust_all_uses_total",
		metric.WithDescription("Connection attempts made with certificate verification disabled"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	collector.certificateErrors, err = meter.Int64Counter(
		"tls_client_certificate_errors_total",
		metric.WithDescription("CA certificate loading and parsing failures"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	collector.trustStoreSize, err = meter.Int64Histogram(
		"tls_client_trust_store_size",
		metric.WithDescription("Number of root certificates resolved per connection attempt"),
		metric.WithUnit("{certificate}"),
	)
	if err != nil {
		return nil, err
	}

	return collector, nil
}

// RecordHandshakeSuccess records a completed handshake
func (c *TLSMetricsCollector) RecordHandshakeSuccess(ctx context.Context, engine, version, cipherSuite string, duration time.Duration) {
	if c == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("engine", engine),
		attribute.String("tls_version", version),
		attribute.String("cipher_suite", cipherSuite),
		attribute.String("result", "success"),
	)

	c.handshakesTotal.Add(ctx, 1, attrs)
	c.handshakeDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordHandshakeError records a failed handshake
func (c *TLSMetricsCollector) RecordHandshakeError(ctx context.Context, engine string, errorType TLSErrorType, duration time.Duration) {
	if c == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("engine", engine),
		attribute.String("error_type", string(errorType)),
	)

	c.handshakesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("engine", engine),
		attribute.String("result", "failure"),
	))
	c.handshakeErrors.Add(ctx, 1, attrs)
	c.handshakeDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordTrustAllUse records a connection attempt with verification
// disabled
func (c *TLSMetricsCollector) RecordTrustAllUse(ctx context.Context) {
	if c == nil {
		return
	}
	c.trustAllUses.Add(ctx, 1)
}

// RecordCertificateError records a CA material loading failure
func (c *TLSMetricsCollector) RecordCertificateError(ctx context.Context, errorType TLSErrorType) {
	if c == nil {
		return
	}
	c.certificateErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error_type", string(errorType)),
	))
}

// RecordTrustStoreSize records the resolved root store size
func (c *TLSMetricsCollector) RecordTrustStoreSize(ctx context.Context, mode string, count int) {
	if c == nil {
		return
	}
	c.trustStoreSize.Record(ctx, int64(count), metric.WithAttributes(
		attribute.String("trust_mode", mode),
	))
}
