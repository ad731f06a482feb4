// Package replay implements the per-connection replay guard: a
// monotonic sequence-number validator with one permitted uint32 wrap.
package replay

// Guard tracks the last accepted sequence number for one connection.
// It is not safe for concurrent use; each handler owns exactly one.
type Guard struct {
	lastSeq     uint32
	initialized bool
}

// NewGuard returns a fresh, uninitialized replay guard.
func NewGuard() *Guard {
	return &Guard{}
}

// Validate reports whether seq is acceptable given everything seen so
// far on this connection, and records it if so.
//
// The first packet is always accepted. Afterward, any seq strictly
// greater than the last accepted one is accepted. A seq at or below
// the last one is rejected as a replay unless the gap is at least
// 2^31, in which case it is treated as a legitimate uint32 wrap and
// accepted.
func (g *Guard) Validate(seq uint32) bool {
	if !g.initialized {
		g.lastSeq = seq
		g.initialized = true
		return true
	}

	if seq > g.lastSeq {
		g.lastSeq = seq
		return true
	}

	diff := g.lastSeq - seq
	if diff >= 1<<31 {
		g.lastSeq = seq
		return true
	}

	return false
}
