package tlstream

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"time"

	utls "github.com/refraction-networking/utls"

	"github.com/polisai/secstream/pkg/config"
)

// UTLSEngine performs the handshake with the uTLS implementation. The
// HelloGolang ClientHello preset keeps its negotiation behavior aligned
// with crypto/tls so the two engines accept and reject the same chains
// under the same trust material.
type UTLSEngine struct{}

var _ Engine = (*UTLSEngine)(nil)

// Name returns "utls".
func (e *UTLSEngine) Name() string {
	return config.EngineUTLS
}

// Handshake upgrades raw to a uTLS client connection.
func (e *UTLSEngine) Handshake(ctx context.Context, raw net.Conn, params *HandshakeParams) (net.Conn, *HandshakeInfo, error) {
	conn := utls.UClient(raw, buildUTLSConfig(params), utls.HelloGolang)

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

// buildUTLSConfig mirrors buildStdConfig for the uTLS configuration
// type; the trust semantics of the four policy variants are identical
// across engines.
func buildUTLSConfig(params *HandshakeParams) *utls.Config {
	cfg := &utls.Config{
		ServerName: params.ServerName,
		RootCAs:    params.Material.Roots,
		MinVersion: utlsProtocolVersion(params.MinVersion),
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

func utlsProtocolVersion(v config.TLSVersion) uint16 {
	if v == config.TLSVersion13 {
		return utls.VersionTLS13
	}
	return utls.VersionTLS12
}
