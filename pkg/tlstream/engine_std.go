package tlstream

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"time"

	"github.com/polisai/secstream/pkg/config"
)

// StdEngine performs the handshake with the standard library's
// crypto/tls implementation.
type StdEngine struct{}

var _ Engine = (*StdEngine)(nil)

// Name returns "std".
func (e *StdEngine) Name() string {
	return config.EngineStd
}

// Handshake upgrades raw to a crypto/tls client connection.
func (e *StdEngine) Handshake(ctx context.Context, raw net.Conn, params *HandshakeParams) (net.Conn, *HandshakeInfo, error) {
	conn := tls.Client(raw, buildStdConfig(params))

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := conn.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, nil, NewHandshakeFailureError(e.Name(), err)
	}

	_ = conn.SetDeadline(time.Time{})

	state := conn.ConnectionState()
	info := &HandshakeInfo{
		Engine:             e.Name(),
		Version:            tls.VersionName(state.Version),
		CipherSuite:        tls.CipherSuiteName(state.CipherSuite),
		ServerName:         params.ServerName,
		NegotiatedProtocol: state.NegotiatedProtocol,
	}

	return conn, info, nil
}

// buildStdConfig maps the backend-agnostic trust material onto a
// crypto/tls client configuration. A verifier override disables the
// built-in chain and hostname checks and routes them through the
// override instead; stock verification applies otherwise.
func buildStdConfig(params *HandshakeParams) *tls.Config {
	cfg := &tls.Config{
		ServerName: params.ServerName,
		RootCAs:    params.Material.Roots,
		MinVersion: stdProtocolVersion(params.MinVersion),
	}

	if verifier := params.Material.Verifier; verifier != nil {
		serverName := params.ServerName
		cfg.InsecureSkipVerify = true
		cfg.VerifyPeerCertificate = func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			return verifier.VerifyChain(rawCerts, serverName, time.Now())
		}
	}

	return cfg
}

func stdProtocolVersion(v config.TLSVersion) uint16 {
	if v == config.TLSVersion13 {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}
