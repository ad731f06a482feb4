// Command server runs the World Boss Raid acceptor: it loads a YAML
// config, builds the mutual-TLS credential pair, and serves
// connections until a shutdown signal arrives.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qwe638853/WorldBossRaid/internal/acceptor"
	"github.com/qwe638853/WorldBossRaid/internal/combat"
	"github.com/qwe638853/WorldBossRaid/internal/config"
	"github.com/qwe638853/WorldBossRaid/internal/gamestate"
	"github.com/qwe638853/WorldBossRaid/internal/session"
)

// respawnPollInterval is how often the background scheduler checks
// whether the respawn cooldown has elapsed. respawnDelay is how long
// the boss stays down before the next stage spawns in.
const (
	respawnPollInterval = time.Second
	respawnDelay        = 10 * time.Second
)

func main() {
	configPath := flag.String("config", "server.yaml", "path to the server YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	tlsConfig, requireMTLS, err := buildTLSConfig(cfg)
	if err != nil {
		log.Fatalf("build tls config: %v", err)
	}

	state := gamestate.New()
	resolver := combat.New(state)

	sessionCfg := session.Config{
		HeartbeatTimeout: time.Duration(cfg.HeartbeatTimeoutS) * time.Second,
		ReadTimeout:      time.Duration(cfg.ReadTimeoutS) * time.Second,
		RateMax:          cfg.RateMax,
		RateWindow:       time.Duration(cfg.RateWindowS) * time.Second,
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.ListenPort)
	acc, err := acceptor.New(addr, tlsConfig, state, resolver, sessionCfg, requireMTLS)
	if err != nil {
		log.Fatalf("bind %s: %v", addr, err)
	}
	log.Printf("World Boss Raid server listening on %s (mTLS=%v)", acc.Addr(), requireMTLS)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go runRespawnScheduler(ctx, state)

	if err := acc.Serve(ctx); err != nil {
		log.Fatalf("serve: %v", err)
	}
	log.Println("shutdown complete")
}

// runRespawnScheduler periodically advances the boss out of its
// respawn cooldown, giving clients a visible "boss down" window
// before the next stage spawns in.
func runRespawnScheduler(ctx context.Context, state *gamestate.State) {
	ticker := time.NewTicker(respawnPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state.TryAdvanceRespawn(respawnDelay)
		}
	}
}

// buildTLSConfig loads the server certificate pair and, when a CA
// path is configured, enables and requires mutual TLS verification of
// the client certificate chain.
func buildTLSConfig(cfg config.ServerConfig) (*tls.Config, bool, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertPath, cfg.KeyPath)
	if err != nil {
		return nil, false, fmt.Errorf("load server cert/key: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if cfg.CAPath == "" {
		return tlsConfig, false, nil
	}

	caBytes, err := os.ReadFile(cfg.CAPath)
	if err != nil {
		return nil, false, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, false, fmt.Errorf("parse ca bundle %s: no certificates found", cfg.CAPath)
	}

	tlsConfig.ClientCAs = pool
	tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	return tlsConfig, true, nil
}
