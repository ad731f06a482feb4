// Package session implements the per-connection handler state
// machine: AwaitJoin -> Playing -> Closed. It composes the wire codec,
// replay guard, rate limiter, and input validator, and dispatches
// attacks into the combat resolver and heartbeats into the shared
// game state.
package session

import (
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/qwe638853/WorldBossRaid/internal/combat"
	"github.com/qwe638853/WorldBossRaid/internal/gamestate"
	"github.com/qwe638853/WorldBossRaid/internal/protocol"
	"github.com/qwe638853/WorldBossRaid/internal/ratelimit"
	"github.com/qwe638853/WorldBossRaid/internal/replay"
	"github.com/qwe638853/WorldBossRaid/internal/transport"
	"github.com/qwe638853/WorldBossRaid/internal/validate"
)

// Config carries the per-connection tunables sourced from
// config.ServerConfig.
type Config struct {
	HeartbeatTimeout time.Duration
	ReadTimeout      time.Duration
	RateMax          int
	RateWindow       time.Duration
}

// Handler owns one connection exclusively: its stream, replay guard,
// rate limiter, and identity. It is never shared across goroutines.
type Handler struct {
	stream   transport.SecureStream
	state    *gamestate.State
	resolver *combat.Resolver
	cfg      Config

	connID string
	logger *log.Logger

	replayGuard *replay.Guard
	rateLimiter *ratelimit.Limiter

	playerID int32
	username string
	joined   bool

	lastHeartbeat time.Time
	hasHeartbeat  bool
}

// New constructs a handler for one freshly handshaken connection.
func New(stream transport.SecureStream, state *gamestate.State, resolver *combat.Resolver, cfg Config) *Handler {
	connID := uuid.NewString()
	return &Handler{
		stream:      stream,
		state:       state,
		resolver:    resolver,
		cfg:         cfg,
		connID:      connID,
		logger:      log.New(log.Writer(), fmt.Sprintf("[conn %s] ", connID[:8]), log.LstdFlags),
		replayGuard: replay.NewGuard(),
		rateLimiter: ratelimit.New(cfg.RateMax, cfg.RateWindow),
		playerID:    -1,
	}
}

// Run drives the handler through AwaitJoin and Playing until the
// connection closes, for any reason. A panic inside Run is recovered
// so that one corrupted connection can never take the acceptor (or
// the shared game state, which is only ever touched through its
// mutex-guarded API) down with it.
func (h *Handler) Run() {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Printf("recovered from panic: %v", r)
		}
		h.cleanup()
	}()

	if err := h.awaitJoin(); err != nil {
		h.logger.Printf("join failed: %v", err)
		return
	}

	h.playing()
}

func (h *Handler) cleanup() {
	if h.joined {
		h.state.PlayerLeave()
	}
	if err := h.stream.Shutdown(); err != nil {
		h.logger.Printf("shutdown: %v", err)
	}
}

// awaitJoin reads exactly one packet with no read-timeout, requires it
// to be a well-formed OP_JOIN, assigns a player ID, and replies with
// OP_JOIN_RESP.
func (h *Handler) awaitJoin() error {
	if err := h.stream.SetReadDeadline(time.Time{}); err != nil {
		return err
	}

	pkt, err := protocol.ReadPacket(h.stream)
	if err != nil {
		return err
	}

	if pkt.Header.Opcode != protocol.OpJoin {
		return &protocol.ProtocolError{Kind: protocol.KindProtocolOrder,
			Err: fmt.Errorf("first packet opcode 0x%02x, want OP_JOIN", pkt.Header.Opcode)}
	}
	if !validate.PacketSize(protocol.OpJoin, pkt.Header.Length) {
		return &protocol.ProtocolError{Kind: protocol.KindFraming}
	}

	join, ok := protocol.DecodeJoin(pkt.Payload)
	if !ok || !validate.Username(join.Username) {
		return &protocol.ProtocolError{Kind: protocol.KindInvalidUsername}
	}

	h.replayGuard.Validate(pkt.Header.SeqNum)

	h.username = join.Username
	h.playerID = h.state.PlayerJoin()
	h.joined = true

	h.logger.Printf("player joined: name=%s id=%d", h.username, h.playerID)

	resp := protocol.EncodeJoinResp(protocol.JoinRespPayload{PlayerID: h.playerID, Status: 1})
	return protocol.WritePacket(h.stream, protocol.OpJoinResp, 0, resp)
}

// playing runs the main receive loop: read one packet with a
// read-timeout, enforce heartbeat liveness, then validate and
// dispatch.
func (h *Handler) playing() {
	for {
		if err := h.stream.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout)); err != nil {
			h.logger.Printf("set read deadline: %v", err)
			return
		}

		pkt, err := protocol.ReadPacket(h.stream)
		if err != nil {
			if isTimeout(err) {
				if h.heartbeatExpired() {
					h.logger.Printf("heartbeat timeout, closing")
					return
				}
				continue
			}
			h.logger.Printf("read failed, closing: %v", err)
			return
		}

		if h.heartbeatExpired() {
			h.logger.Printf("heartbeat timeout, closing")
			return
		}

		if !h.rateLimiter.Check(time.Now()) {
			h.logger.Printf("rate limit exceeded, closing")
			return
		}
		if !validate.Opcode(pkt.Header.Opcode) {
			h.logger.Printf("invalid opcode 0x%02x, closing", pkt.Header.Opcode)
			return
		}
		if !validate.PacketSize(pkt.Header.Opcode, pkt.Header.Length) {
			h.logger.Printf("invalid packet size for opcode 0x%02x, closing", pkt.Header.Opcode)
			return
		}
		if !h.replayGuard.Validate(pkt.Header.SeqNum) {
			h.logger.Printf("replay detected (seq=%d), closing", pkt.Header.SeqNum)
			return
		}

		if !h.dispatch(pkt) {
			return
		}
	}
}

// heartbeatExpired reports whether more than HeartbeatTimeout has
// elapsed since the most recent heartbeat. Before any heartbeat has been
// seen, liveness is not yet enforced.
func (h *Handler) heartbeatExpired() bool {
	if !h.hasHeartbeat {
		return false
	}
	return time.Since(h.lastHeartbeat) > h.cfg.HeartbeatTimeout
}

// dispatch handles one validated packet. It returns false when the
// connection should close (LEAVE, or a dispatch-level failure).
func (h *Handler) dispatch(pkt protocol.Packet) bool {
	switch pkt.Header.Opcode {
	case protocol.OpAttack:
		return h.handleAttack(pkt)
	case protocol.OpHeartbeat:
		return h.handleHeartbeat()
	case protocol.OpLeave:
		h.logger.Printf("player left: name=%s", h.username)
		return false
	default:
		return false
	}
}

func (h *Handler) handleAttack(pkt protocol.Packet) bool {
	attack, ok := protocol.DecodeAttack(pkt.Payload)
	if !ok || !validate.AttackPayload(attack.Damage) {
		h.logger.Printf("invalid attack payload, closing")
		return false
	}

	result, snap := h.resolver.Resolve(attack.Damage, h.username)

	state := protocol.GameStatePayload{
		BossHP:           snap.CurrentHP,
		MaxHP:            snap.MaxHP,
		OnlineCount:      snap.OnlineCount,
		Stage:            uint8(snap.Stage),
		IsRespawning:     boolToU8(snap.IsRespawning),
		IsCrit:           boolToU8(result.IsCrit),
		IsLucky:          boolToU8(result.IsLuckyKill),
		LastPlayerDamage: result.DmgDealt,
		LastBossDice:     result.BossDice,
		LastPlayerStreak: result.CurrentStreak,
		DmgTaken:         result.DmgTaken,
		LastKiller:       snap.LastKiller,
	}

	if err := protocol.WritePacket(h.stream, protocol.OpGameState, 0, protocol.EncodeGameState(state)); err != nil {
		h.logger.Printf("send game state: %v", err)
		return false
	}
	return true
}

func (h *Handler) handleHeartbeat() bool {
	h.lastHeartbeat = time.Now()
	h.hasHeartbeat = true

	snap := h.state.Snapshot()

	isLucky := false
	if snap.HasLuckyEvent {
		if time.Since(snap.LuckyEventAt) <= 5*time.Second {
			isLucky = true
		} else {
			h.state.ClearLuckyKill()
		}
	}

	state := protocol.GameStatePayload{
		BossHP:       snap.CurrentHP,
		MaxHP:        snap.MaxHP,
		OnlineCount:  snap.OnlineCount,
		Stage:        uint8(snap.Stage),
		IsRespawning: boolToU8(snap.IsRespawning),
		IsLucky:      boolToU8(isLucky),
		LastKiller:   snap.LastKiller,
	}

	if err := protocol.WritePacket(h.stream, protocol.OpGameState, 0, protocol.EncodeGameState(state)); err != nil {
		h.logger.Printf("send heartbeat game state: %v", err)
		return false
	}
	return true
}

func boolToU8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
