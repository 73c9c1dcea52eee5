package tlstream

import (
	"context"
	"crypto/x509"

	"github.com/polisai/secstream/pkg/config"
)

// TrustMaterial is the backend-agnostic outcome of resolving a trust
// policy for one connection attempt. It is built fresh per attempt and
// read-only once constructed.
type TrustMaterial struct {
	// Roots holds the trusted validation anchors. Empty under the
	// trust_all policy.
	Roots *x509.CertPool

	// RootCount is the number of anchors added to Roots by this
	// resolution. Zero for the default policy, where the platform
	// store is opaque.
	RootCount int

	// Verifier overrides chain and signature verification when
	// non-nil. Only the trust_all policy sets it.
	Verifier Verifier

	// SkipHostVerify disables hostname verification. Only set
	// alongside Verifier.
	SkipHostVerify bool
}

// TrustResolver turns a trust policy into backend trust material.
type TrustResolver struct {
	logger  *TLSLogger
	metrics *TLSMetricsCollector
}

// NewTrustResolver creates a resolver that reports through the given
// logger and metrics collector. Both may be nil.
func NewTrustResolver(logger *TLSLogger, metrics *TLSMetricsCollector) *TrustResolver {
	if logger == nil {
		logger = NewTLSLogger(nil)
	}
	return &TrustResolver{logger: logger, metrics: metrics}
}

// Resolve builds the trust material for one connection attempt.
func (r *TrustResolver) Resolve(ctx context.Context, policy config.TrustPolicy) (*TrustMaterial, error) {
	switch policy.EffectiveMode() {
	case config.TrustModeDefault:
		return r.resolveDefault(ctx)
	case config.TrustModeAll:
		return r.resolveTrustAll(ctx)
	case config.TrustModeCAFile:
		return r.resolveCAFile(ctx, policy.CAFile)
	case config.TrustModeCABundle:
		return r.resolveCABundle(ctx, policy.Bundle())
	default:
		return nil, NewTLSError(ErrorTypeConfigValidation, "unknown trust mode").
			WithContext("trust_mode", string(policy.Mode))
	}
}

// resolveDefault loads the platform-native trust anchors. The platform
// store is queried per resolution, never cached here. An empty store is
// a fatal configuration state: proceeding silently would make every
// chain unverifiable in a way that looks like a server problem.
func (r *TrustResolver) resolveDefault(ctx context.Context) (*TrustMaterial, error) {
	pool, err := x509.SystemCertPool()
	if err != nil {
		return nil, NewEmptyTrustStoreError(err)
	}
	if pool == nil || pool.Equal(x509.NewCertPool()) {
		return nil, NewEmptyTrustStoreError(nil)
	}

	r.logger.LogTrustResolved(ctx, string(config.TrustModeDefault), 0)
	return &TrustMaterial{Roots: pool}, nil
}

// resolveTrustAll produces an empty root store and the permissive
// verifier. The warning is emitted on every invocation, not once.
func (r *TrustResolver) resolveTrustAll(ctx context.Context) (*TrustMaterial, error) {
	r.logger.LogTrustAllWarning(ctx)
	r.metrics.RecordTrustAllUse(ctx)

	return &TrustMaterial{
		Roots:          x509.NewCertPool(),
		Verifier:       PermissiveVerifier{},
		SkipHostVerify: true,
	}, nil
}

func (r *TrustResolver) resolveCAFile(ctx context.Context, path string) (*TrustMaterial, error) {
	cert, err := LoadCertificateFromPath(path)
	if err != nil {
		r.recordCertificateError(ctx, err)
		r.logger.LogCertificateLoad(ctx, path, 0, err)
		return nil, err
	}

	pool := x509.NewCertPool()
	pool.AddCert(cert.X509)

	r.logger.LogCertificateLoad(ctx, path, 1, nil)
	r.logger.LogTrustResolved(ctx, string(config.TrustModeCAFile), 1)
	r.metrics.RecordTrustStoreSize(ctx, string(config.TrustModeCAFile), 1)

	return &TrustMaterial{Roots: pool, RootCount: 1}, nil
}

func (r *TrustResolver) resolveCABundle(ctx context.Context, bundle []byte) (*TrustMaterial, error) {
	certs, err := LoadCertificateBundle(bundle)
	if err != nil {
		r.recordCertificateError(ctx, err)
		r.logger.LogCertificateLoad(ctx, "bundle", 0, err)
		return nil, err
	}

	pool := x509.NewCertPool()
	for _, cert := range certs {
		pool.AddCert(cert.X509)
	}

	r.logger.LogCertificateLoad(ctx, "bundle", len(certs), nil)
	r.logger.LogTrustResolved(ctx, string(config.TrustModeCABundle), len(certs))
	r.metrics.RecordTrustStoreSize(ctx, string(config.TrustModeCABundle), len(certs))

	return &TrustMaterial{Roots: pool, RootCount: len(certs)}, nil
}

func (r *TrustResolver) recordCertificateError(ctx context.Context, err error) {
	if tlsErr, ok := err.(*TLSError); ok {
		r.metrics.RecordCertificateError(ctx, tlsErr.Type)
		return
	}
	r.metrics.RecordCertificateError(ctx, ErrorTypeCertificateLoad)
}
