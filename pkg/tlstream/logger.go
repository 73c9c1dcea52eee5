package tlstream

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// TLSLogger provides structured logging for the secure stream layer
type TLSLogger struct {
	logger *slog.Logger
}

// NewTLSLogger creates a new TLS logger
func NewTLSLogger(logger *slog.Logger) *TLSLogger {
	if logger == nil {
		logger = slog.Default()
	}

	return &TLSLogger{
		logger: logger.With("component", "tlstream"),
	}
}

// LogHandshakeStart logs the start of a connection attempt
func (l *TLSLogger) LogHandshakeStart(ctx context.Context, attemptID, host, engine string) {
	l.logger.LogAttrs(ctx, slog.LevelInfo, "Performing TLS handshake",
		slog.String("event", "handshake_start"),
		slog.String("attempt_id", attemptID),
		slog.String("host", host),
		slog.String("engine", engine),
	)
}

// LogHandshakeSuccess logs a successful TLS handshake
func (l *TLSLogger) LogHandshakeSuccess(ctx context.Context, attemptID string, info *HandshakeInfo, duration time.Duration) {
	l.logger.LogAttrs(ctx, slog.LevelInfo, "TLS handshake completed successfully",
		slog.String("event", "handshake_success"),
		slog.String("attempt_id", attemptID),
		slog.String("engine", info.Engine),
		slog.String("tls_version", info.Version),
		slog.String("cipher_suite", info.CipherSuite),
		slog.String("server_name", info.ServerName),
		slog.String("negotiated_protocol", info.NegotiatedProtocol),
		slog.Duration("handshake_duration", duration),
	)
}

// LogHandshakeFailure logs a failed TLS handshake
func (l *TLSLogger) LogHandshakeFailure(ctx context.Context, attemptID, host, engine string, err error, duration time.Duration) {
	level := slog.LevelError
	var tlsErr *TLSError
	if errors.As(err, &tlsErr) && tlsErr.Type == ErrorTypeHandshakeTimeout {
		level = slog.LevelWarn
	}

	l.logger.LogAttrs(ctx, level, "TLS handshake failed",
		slog.String("event", "handshake_failure"),
		slog.String("attempt_id", attemptID),
		slog.String("host", host),
		slog.String("engine", engine),
		slog.String("error", err.Error()),
		slog.Duration("handshake_duration", duration),
	)
}

// LogTrustAllWarning logs the mandatory warning for every use of the
// trust_all policy so insecure connections stay auditable
func (l *TLSLogger) LogTrustAllWarning(ctx context.Context) {
	l.logger.LogAttrs(ctx, slog.LevelWarn, "Trusting the server certificate without validation",
		slog.String("event", "trust_all"),
	)
}

// LogTrustResolved logs the outcome of trust policy resolution
func (l *TLSLogger) LogTrustResolved(ctx context.Context, mode string, rootCount int) {
	l.logger.LogAttrs(ctx, slog.LevelDebug, "Trust material resolved",
		slog.String("event", "trust_resolved"),
		slog.String("trust_mode", mode),
		slog.Int("root_count", rootCount),
	)
}

// LogCertificateLoad logs certificate loading events
func (l *TLSLogger) LogCertificateLoad(ctx context.Context, source string, count int, err error) {
	level := slog.LevelDebug
	message := "CA certificates loaded"
	if err != nil {
		level = slog.LevelError
		message = "CA certificate loading failed"
	}

	attrs := []slog.Attr{
		slog.String("event", "certificate_load"),
		slog.String("source", source),
		slog.Int("certificate_count", count),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	l.logger.LogAttrs(ctx, level, message, attrs...)
}

// LogServerNameFallback logs the placeholder substitution that happens
// when a trust_all host is not a valid SNI name
func (l *TLSLogger) LogServerNameFallback(ctx context.Context, host, placeholder string) {
	l.logger.LogAttrs(ctx, slog.LevelDebug, "Host is not a valid server name, using placeholder",
		slog.String("event", "server_name_fallback"),
		slog.String("host", host),
		slog.String("placeholder", placeholder),
	)
}
