// Package validate implements the ingress checks every packet must
// pass before the connection handler dispatches it: username charset
// and length, opcode whitelist, per-opcode payload size, and attack
// payload range.
package validate

import (
	"github.com/qwe638853/WorldBossRaid/internal/protocol"
)

// Username reports whether s is a legal player name: non-empty, at
// most 31 bytes, and restricted to [A-Za-z0-9_-].
func Username(s string) bool {
	if len(s) == 0 || len(s) > protocol.MaxUsernameLen-1 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}

// Opcode reports whether op is in the server-facing whitelist; any
// other opcode (including the server's own S->C codes) is rejected on
// ingress.
func Opcode(op uint16) bool {
	switch op {
	case protocol.OpJoin, protocol.OpAttack, protocol.OpLeave, protocol.OpHeartbeat:
		return true
	default:
		return false
	}
}

// PacketSize reports whether length is the exact size required for
// op's fixed payload.
func PacketSize(op uint16, length uint32) bool {
	return protocol.ValidateFraming(op, length) == nil
}

// AttackPayload reports whether a client-suggested damage value is in
// the accepted [0,1000] range.
func AttackPayload(damage int32) bool {
	return damage >= 0 && damage <= 1000
}
