// Package gamestate holds the single authoritative, process-wide game
// record: boss HP, stage, online count, the per-player streak table,
// and the lucky-kill broadcast flag. Every field is guarded by one
// coarse mutex; there is no other way to read or mutate it.
package gamestate

import (
	"sync"
	"time"
)

// Stage is the monotonic phase of the encounter.
type Stage uint8

const (
	StageBoss1 Stage = iota
	StageBoss2
	StageDead
)

const (
	Boss1MaxHP         = 1000
	Boss2MaxHP         = 2000
	MaxTrackedPlayers  = 100
	maxPlayerNameBytes = 31
)

// playerHistory is one slot of the fixed-capacity streak table.
type playerHistory struct {
	name        string
	lastDice    int32
	streakCount int32
}

// Snapshot is an immutable copy of the shared record taken under the
// lock; callers never see a torn read.
type Snapshot struct {
	CurrentHP     int32
	MaxHP         int32
	Stage         Stage
	OnlineCount   int32
	IsRespawning  bool
	LastKiller    string
	HasLuckyEvent bool
	LuckyEventAt  time.Time
}

// State is the shared, mutex-protected game record. Zero value is not
// usable; construct with New.
type State struct {
	mu sync.Mutex

	currentHP      int32
	maxHP          int32
	stage          Stage
	onlineCount    int32
	isRespawning   bool
	respawnStarted time.Time
	lastKiller     string

	hasLuckyEvent bool
	luckyEventAt  time.Time

	players [MaxTrackedPlayers]playerHistory
}

// New returns a freshly initialized record: Boss 1 at full HP, zero
// players online, an empty streak table.
func New() *State {
	return &State{
		currentHP: Boss1MaxHP,
		maxHP:     Boss1MaxHP,
		stage:     StageBoss1,
	}
}

// Snapshot returns an immutable copy of the record.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	return Snapshot{
		CurrentHP:     s.currentHP,
		MaxHP:         s.maxHP,
		Stage:         s.stage,
		OnlineCount:   s.onlineCount,
		IsRespawning:  s.isRespawning,
		LastKiller:    s.lastKiller,
		HasLuckyEvent: s.hasLuckyEvent,
		LuckyEventAt:  s.luckyEventAt,
	}
}

// PlayerJoin increments the online count and returns its new value,
// which also serves as a non-authoritative player ID.
func (s *State) PlayerJoin() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onlineCount++
	return s.onlineCount
}

// PlayerLeave decrements the online count, clamped at zero.
func (s *State) PlayerLeave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.onlineCount > 0 {
		s.onlineCount--
	}
}

// ApplyDamage subtracts amount from the boss's HP (clamped at zero)
// unless the boss is respawning or already dead, in which case it is
// a no-op. It reports true only on the strike that brings HP to zero,
// at which point it also latches is_respawning and records the
// attacker as last_killer.
func (s *State) ApplyDamage(amount int32, attackerName string) (justKilled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyDamageLocked(amount, attackerName)
}

func (s *State) applyDamageLocked(amount int32, attackerName string) (justKilled bool) {
	if s.isRespawning || s.stage == StageDead {
		return false
	}

	s.currentHP -= amount
	if s.currentHP <= 0 {
		s.currentHP = 0
		if !s.isRespawning {
			justKilled = true
			s.isRespawning = true
			s.respawnStarted = time.Now()
			s.lastKiller = truncateName(attackerName)
		}
	}
	return justKilled
}

// SpawnNextBoss advances the stage: Boss1 -> Boss2 (full HP reset) or
// Boss2 -> Dead (HP pinned at zero). Either way it clears the
// respawn lock and the last killer.
func (s *State) SpawnNextBoss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spawnNextBossLocked()
}

func (s *State) spawnNextBossLocked() {
	switch s.stage {
	case StageBoss1:
		s.stage = StageBoss2
		s.maxHP = Boss2MaxHP
		s.currentHP = Boss2MaxHP
	default:
		s.stage = StageDead
		s.currentHP = 0
	}

	s.isRespawning = false
	s.lastKiller = ""
}

// TryAdvanceRespawn checks whether the respawn cooldown has elapsed
// and, if so, spawns the next boss. It is meant to be called
// periodically by a background scheduler goroutine; it is a no-op
// whenever the boss is not currently respawning.
func (s *State) TryAdvanceRespawn(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRespawning {
		return
	}
	if time.Since(s.respawnStarted) < delay {
		return
	}
	s.spawnNextBossLocked()
}

// UpdateStreak records this attempt's dice roll and win/loss outcome
// for name, returning the resulting streak count. A win with the same
// dice value as last time extends the streak; any other outcome
// resets it to 1 (win) or 0 (loss). When the table is full and name
// has no existing slot, it returns 0 and tracks nothing: a deliberate
// capacity decision, not an error.
func (s *State) UpdateStreak(name string, dice int32, isWin bool) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateStreakLocked(name, dice, isWin)
}

func (s *State) updateStreakLocked(name string, dice int32, isWin bool) int32 {
	name = truncateName(name)
	idx := s.findOrAllocSlot(name)
	if idx < 0 {
		return 0
	}

	p := &s.players[idx]
	if isWin {
		if p.lastDice == dice {
			p.streakCount++
		} else {
			p.streakCount = 1
		}
	} else {
		p.streakCount = 0
	}
	p.lastDice = dice
	return p.streakCount
}

func (s *State) findOrAllocSlot(name string) int {
	for i := range s.players {
		if s.players[i].name == name {
			return i
		}
	}
	for i := range s.players {
		if s.players[i].name == "" {
			s.players[i] = playerHistory{name: name}
			return i
		}
	}
	return -1
}

// MarkLuckyKill records a broadcastable lucky-kill event.
func (s *State) MarkLuckyKill(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markLuckyKillLocked(at)
}

func (s *State) markLuckyKillLocked(at time.Time) {
	s.hasLuckyEvent = true
	s.luckyEventAt = at
}

// ClearLuckyKill clears the lucky-kill flag. Idempotent.
func (s *State) ClearLuckyKill() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasLuckyEvent = false
}

// Transaction is a view onto State handed to a callback running
// inside a single lock acquisition (see WithLock). It exists so the
// attack resolver can read boss/stage state and then conditionally
// mutate it without releasing the lock in between, so player_dice is
// compared against a consistent HP and the streak updates atomically
// with damage application.
type Transaction struct {
	s *State
}

// IsRespawning reports the respawn lock as of this transaction.
func (t *Transaction) IsRespawning() bool { return t.s.isRespawning }

// Stage reports the boss stage as of this transaction.
func (t *Transaction) Stage() Stage { return t.s.stage }

// Snapshot returns the current record without releasing the lock.
func (t *Transaction) Snapshot() Snapshot { return t.s.snapshotLocked() }

// ApplyDamage mutates HP within this transaction's lock acquisition.
func (t *Transaction) ApplyDamage(amount int32, attackerName string) bool {
	return t.s.applyDamageLocked(amount, attackerName)
}

// UpdateStreak mutates the streak table within this transaction's
// lock acquisition.
func (t *Transaction) UpdateStreak(name string, dice int32, isWin bool) int32 {
	return t.s.updateStreakLocked(name, dice, isWin)
}

// MarkLuckyKill records the broadcast event within this transaction's
// lock acquisition.
func (t *Transaction) MarkLuckyKill(at time.Time) {
	t.s.markLuckyKillLocked(at)
}

// WithLock runs fn with exclusive access to the record, giving it a
// Transaction through which to read and mutate without an intervening
// unlock. This is the single lock acquisition the attack resolver uses
// to make dice-vs-HP comparison and damage/streak mutation atomic with
// respect to every other concurrent resolver.
func (s *State) WithLock(fn func(t *Transaction)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&Transaction{s: s})
}

func truncateName(name string) string {
	if len(name) > maxPlayerNameBytes {
		return name[:maxPlayerNameBytes]
	}
	return name
}
