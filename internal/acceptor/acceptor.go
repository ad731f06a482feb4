// Package acceptor owns the listening socket: it accepts raw TCP
// connections, drives the TLS server handshake on each, and spawns an
// isolated session handler goroutine for every one that succeeds.
package acceptor

import (
	"context"
	"crypto/tls"
	"log"
	"net"
	"time"

	"github.com/qwe638853/WorldBossRaid/internal/combat"
	"github.com/qwe638853/WorldBossRaid/internal/gamestate"
	"github.com/qwe638853/WorldBossRaid/internal/session"
	"github.com/qwe638853/WorldBossRaid/internal/transport"
)

// Acceptor listens on one TCP endpoint and hands every accepted,
// handshaken connection to a fresh session.Handler.
type Acceptor struct {
	listener    net.Listener
	tlsConfig   *tls.Config
	state       *gamestate.State
	resolver    *combat.Resolver
	cfg         session.Config
	requireMTLS bool

	logger *log.Logger
}

// New binds addr and prepares an Acceptor. tlsConfig must already
// carry the server's certificate; requireMTLS controls whether
// ClientAuth was set to require and verify a client certificate.
func New(addr string, tlsConfig *tls.Config, state *gamestate.State, resolver *combat.Resolver, cfg session.Config, requireMTLS bool) (*Acceptor, error) {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Acceptor{
		listener:    ln,
		tlsConfig:   tlsConfig,
		state:       state,
		resolver:    resolver,
		cfg:         cfg,
		requireMTLS: requireMTLS,
		logger:      log.New(log.Writer(), "[acceptor] ", log.LstdFlags),
	}, nil
}

// Addr reports the listener's bound address.
func (a *Acceptor) Addr() net.Addr {
	return a.listener.Addr()
}

// Serve accepts connections until ctx is canceled, at which point it
// closes the listener and returns. A transient per-connection
// handshake failure is logged and the acceptor keeps going; it never
// takes the listener down.
func (a *Acceptor) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		a.listener.Close()
	}()

	for {
		conn, err := a.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				a.logger.Printf("accept error: %v", err)
				continue
			}
		}
		go a.handshakeAndServe(conn)
	}
}

func (a *Acceptor) handshakeAndServe(raw net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Printf("recovered from panic during handshake: %v", r)
			raw.Close()
		}
	}()

	tlsConn := tls.Server(raw, a.tlsConfig)
	if err := tlsConn.SetDeadline(time.Now().Add(10 * time.Second)); err != nil {
		a.logger.Printf("set handshake deadline: %v", err)
		tlsConn.Close()
		return
	}
	if err := tlsConn.Handshake(); err != nil {
		a.logger.Printf("handshake failed from %s: %v", raw.RemoteAddr(), err)
		tlsConn.Close()
		return
	}
	if err := tlsConn.SetDeadline(time.Time{}); err != nil {
		a.logger.Printf("clear handshake deadline: %v", err)
		tlsConn.Close()
		return
	}

	stream := transport.NewTLSStream(tlsConn, a.requireMTLS)
	if err := stream.VerifyPeer(); err != nil {
		a.logger.Printf("peer verification failed from %s: %v", raw.RemoteAddr(), err)
		stream.Shutdown()
		return
	}

	h := session.New(stream, a.state, a.resolver, a.cfg)
	h.Run()
}
