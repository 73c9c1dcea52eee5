// Package tlstream upgrades an already-connected raw byte stream to a
// secure TLS client stream under a configurable trust policy.
//
// It resolves the policy into backend trust material, derives the SNI
// server name, performs the client handshake through one of two
// interchangeable backend engines (crypto/tls or uTLS), and returns a
// uniform duplex SecureStream regardless of which engine negotiated
// the session.
package tlstream
