// Package transport supplies the SecureStream abstraction the game
// core depends on, and its one production implementation over
// crypto/tls. The core never imports crypto/tls directly; only this
// package and the interface it exposes.
package transport

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"time"
)

// SecureStream is the narrow byte-stream interface the core depends
// on. It is satisfied by *TLSStream (below) in production and by a
// fake in tests.
type SecureStream interface {
	ReadFull(buf []byte) error
	Write(buf []byte) (int, error)
	Handshake() error
	VerifyPeer() error
	Shutdown() error
	RemoteAddr() net.Addr
	// SetReadDeadline implements the core's receive-timeout window.
	// A zero time.Time disables the deadline (blocking read).
	SetReadDeadline(t time.Time) error
}

// TLSStream wraps a *tls.Conn accepted by the acceptor.
type TLSStream struct {
	conn        *tls.Conn
	requireMTLS bool
}

// NewTLSStream wraps an already-dialed/accepted *tls.Conn.
// requireMTLS controls whether VerifyPeer demands a client certificate.
func NewTLSStream(conn *tls.Conn, requireMTLS bool) *TLSStream {
	return &TLSStream{conn: conn, requireMTLS: requireMTLS}
}

// ReadFull reads exactly len(buf) bytes, relying on io.ReadFull to
// retry short reads internally; it only returns once buf is full or
// the stream is unrecoverably broken.
func (s *TLSStream) ReadFull(buf []byte) error {
	_, err := io.ReadFull(s.conn, buf)
	if err != nil {
		return fmt.Errorf("transport: read: %w", err)
	}
	return nil
}

// Write writes buf in full, looping internally to cover any partial
// write the underlying connection returns.
func (s *TLSStream) Write(buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := s.conn.Write(buf[total:])
		if err != nil {
			return total, fmt.Errorf("transport: write: %w", err)
		}
		total += n
	}
	return total, nil
}

// Handshake drives the TLS handshake to completion synchronously.
func (s *TLSStream) Handshake() error {
	if err := s.conn.Handshake(); err != nil {
		return fmt.Errorf("transport: handshake: %w", err)
	}
	return nil
}

// VerifyPeer confirms a client certificate was presented and verified
// when mutual TLS is required. With no CA configured, it's a no-op.
func (s *TLSStream) VerifyPeer() error {
	if !s.requireMTLS {
		return nil
	}
	state := s.conn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return fmt.Errorf("transport: no client certificate presented")
	}
	return nil
}

// Shutdown closes the underlying connection.
func (s *TLSStream) Shutdown() error {
	return s.conn.Close()
}

// RemoteAddr exposes the peer address for logging.
func (s *TLSStream) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// SetReadDeadline forwards to the underlying connection.
func (s *TLSStream) SetReadDeadline(t time.Time) error {
	return s.conn.SetReadDeadline(t)
}
