package tlstream

import (
	"errors"
	"net"
	"sync"
	"time"
)

// SecureStream bridges an engine's native secure connection to the
// duplex read/write/close contract used by the rest of the system.
// Partial reads and writes are forwarded as-is; operations that cannot
// make progress block until the connection is ready or a deadline
// expires, in which case a net.Error with Timeout() == true surfaces.
type SecureStream struct {
	conn net.Conn
	raw  net.Conn
	info *HandshakeInfo

	closeOnce sync.Once
	closeErr  error
}

var _ net.Conn = (*SecureStream)(nil)

func newSecureStream(conn, raw net.Conn, info *HandshakeInfo) *SecureStream {
	return &SecureStream{conn: conn, raw: raw, info: info}
}

// Info describes the negotiated session.
func (s *SecureStream) Info() *HandshakeInfo {
	return s.info
}

// Raw exposes the underlying transport, for callers that need to
// inspect connection metadata. Writing to it corrupts the TLS session.
func (s *SecureStream) Raw() net.Conn {
	return s.raw
}

// Read reads decrypted application data.
func (s *SecureStream) Read(b []byte) (int, error) {
	return s.conn.Read(b)
}

// Write encrypts and writes application data.
func (s *SecureStream) Write(b []byte) (int, error) {
	return s.conn.Write(b)
}

// Close closes the secure connection and the underlying raw transport.
// It is idempotent and closes the transport on every path, even when
// the close_notify exchange fails.
func (s *SecureStream) Close() error {
	s.closeOnce.Do(func() {
		err := s.conn.Close()
		if rawErr := s.raw.Close(); rawErr != nil && !errors.Is(rawErr, net.ErrClosed) {
			if err == nil {
				err = rawErr
			}
		}
		s.closeErr = err
	})
	return s.closeErr
}

// LocalAddr returns the local address of the underlying transport.
func (s *SecureStream) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// RemoteAddr returns the remote address of the underlying transport.
func (s *SecureStream) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// SetDeadline sets the read and write deadlines.
func (s *SecureStream) SetDeadline(t time.Time) error {
	return s.conn.SetDeadline(t)
}

// SetReadDeadline sets the read deadline.
func (s *SecureStream) SetReadDeadline(t time.Time) error {
	return s.conn.SetReadDeadline(t)
}

// SetWriteDeadline sets the write deadline.
func (s *SecureStream) SetWriteDeadline(t time.Time) error {
	return s.conn.SetWriteDeadline(t)
}
