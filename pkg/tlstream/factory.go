package tlstream

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/polisai/secstream/pkg/config"
)

// StreamFactory upgrades raw connections to secure streams under one
// configuration. The configuration is read-only; trust material and
// server name are re-derived for every attempt, so concurrent Connect
// calls share no mutable state.
type StreamFactory struct {
	cfg      *config.Config
	engine   Engine
	resolver *TrustResolver
	logger   *TLSLogger
	metrics  *TLSMetricsCollector
}

// FactoryOption customises a StreamFactory.
type FactoryOption func(*StreamFactory)

// WithLogger routes factory logging through the given slog logger.
func WithLogger(logger *slog.Logger) FactoryOption {
	return func(f *StreamFactory) {
		f.logger = NewTLSLogger(logger)
	}
}

// WithEngine overrides the engine selected by the configuration.
func WithEngine(engine Engine) FactoryOption {
	return func(f *StreamFactory) {
		f.engine = engine
	}
}

// NewStreamFactory validates the configuration and selects the backend
// engine.
func NewStreamFactory(cfg *config.Config, opts ...FactoryOption) (*StreamFactory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, NewTLSErrorWithCause(ErrorTypeConfigValidation, "invalid configuration", err)
	}

	engine, err := EngineByName(cfg.EffectiveEngine())
	if err != nil {
		return nil, err
	}

	factory := &StreamFactory{
		cfg:    cfg,
		engine: engine,
		logger: NewTLSLogger(nil),
	}

	for _, opt := range opts {
		opt(factory)
	}

	metrics, err := GetTLSMetricsCollector(nil)
	if err != nil {
		return nil, err
	}
	factory.metrics = metrics
	factory.resolver = NewTrustResolver(factory.logger, metrics)

	return factory, nil
}

// Engine returns the backend engine in use.
func (f *StreamFactory) Engine() Engine {
	return f.engine
}

// Connect performs the TLS client handshake over raw and returns the
// secure stream. raw must be an established connection; it is closed on
// every failure path, including trust resolution errors that occur
// before any handshake byte is written. The caller's context cancels
// the in-flight handshake; when it carries no deadline, the configured
// handshake timeout applies.
func (f *StreamFactory) Connect(ctx context.Context, raw net.Conn) (*SecureStream, error) {
	attemptID := uuid.NewString()
	start := time.Now()

	f.logger.LogHandshakeStart(ctx, attemptID, f.cfg.Host, f.engine.Name())

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.EffectiveHandshakeTimeout())
		defer cancel()
	}

	material, err := f.resolver.Resolve(ctx, f.cfg.Trust)
	if err != nil {
		return nil, f.fail(ctx, raw, attemptID, start, err)
	}

	serverName, err := ResolveServerName(f.cfg.Host, f.cfg.Trust)
	if err != nil {
		return nil, f.fail(ctx, raw, attemptID, start, err)
	}
	if serverName != f.cfg.Host {
		f.logger.LogServerNameFallback(ctx, f.cfg.Host, serverName)
	}

	minVersion, err := config.ParseTLSVersion(f.cfg.MinVersion)
	if err != nil {
		return nil, f.fail(ctx, raw, attemptID, start, NewTLSErrorWithCause(ErrorTypeConfigValidation, "invalid minimum TLS version", err))
	}

	conn, info, err := f.engine.Handshake(ctx, raw, &HandshakeParams{
		ServerName: serverName,
		Material:   material,
		MinVersion: minVersion,
	})
	if err != nil {
		return nil, f.fail(ctx, raw, attemptID, start, err)
	}

	duration := time.Since(start)
	f.logger.LogHandshakeSuccess(ctx, attemptID, info, duration)
	f.metrics.RecordHandshakeSuccess(ctx, info.Engine, info.Version, info.CipherSuite, duration)

	return newSecureStream(conn, raw, info), nil
}

// fail releases the raw transport and records the failure before
// handing the error back unchanged.
func (f *StreamFactory) fail(ctx context.Context, raw net.Conn, attemptID string, start time.Time, err error) error {
	_ = raw.Close()

	duration := time.Since(start)
	errorType := ErrorTypeHandshakeFailure
	if tlsErr, ok := err.(*TLSError); ok {
		errorType = tlsErr.Type
	}

	f.metrics.RecordHandshakeError(ctx, f.engine.Name(), errorType, duration)
	f.logger.LogHandshakeFailure(ctx, attemptID, f.cfg.Host, f.engine.Name(), err, duration)

	return err
}
