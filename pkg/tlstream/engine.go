package tlstream

import (
	"context"
	"fmt"
	"net"

	"github.com/polisai/secstream/pkg/config"
)

// HandshakeParams carries the per-attempt inputs an engine needs to
// perform the client handshake. Both engines receive identical
// parameters and must produce the same accept/reject outcome for a
// given certificate chain and policy.
type HandshakeParams struct {
	ServerName string
	Material   *TrustMaterial
	MinVersion config.TLSVersion
}

// HandshakeInfo describes the negotiated session uniformly across
// engines.
type HandshakeInfo struct {
	Engine             string
	Version            string
	CipherSuite        string
	ServerName         string
	NegotiatedProtocol string
}

// Engine performs the TLS client handshake over an already-connected
// raw stream. Implementations are stateless and safe for concurrent
// use; all per-attempt state lives in HandshakeParams.
//
// On failure the engine closes the connection it created; the raw
// transport is released either way.
type Engine interface {
	// Name identifies the engine ("std" or "utls").
	Name() string

	// Handshake upgrades raw to a secure connection. The context
	// deadline, when present, bounds the handshake I/O.
	Handshake(ctx context.Context, raw net.Conn, params *HandshakeParams) (net.Conn, *HandshakeInfo, error)
}

// EngineByName selects an engine implementation. An empty name selects
// the std engine.
func EngineByName(name string) (Engine, error) {
	switch name {
	case "", config.EngineStd:
		return &StdEngine{}, nil
	case config.EngineUTLS:
		return &UTLSEngine{}, nil
	default:
		return nil, NewTLSError(ErrorTypeConfigValidation,
			fmt.Sprintf("unknown TLS engine %q", name)).
			WithContext("engine", name).
			WithSuggestion("Valid engines: std, utls")
	}
}
