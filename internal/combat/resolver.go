// Package combat implements the attack resolution algorithm: a dice
// contest against the boss with critical, combo, and rare instant-kill
// rules, executed atomically with respect to the shared game state.
package combat

import (
	"math/rand"
	"time"

	"github.com/qwe638853/WorldBossRaid/internal/gamestate"
)

// instantKillDamage is the fixed damage value used by both the lucky
// kill and the three-combo escalation.
const instantKillDamage = 999_999

// luckyKillRoll is the exact uniform-int value in [0,999999] that
// triggers the rare lucky kill: a 1-in-1,000,000 chance.
const luckyKillRoll = 777777

// Result is the outcome of one resolved attack.
type Result struct {
	BossDice      int32
	DmgDealt      int32
	DmgTaken      int32
	IsWin         bool
	IsCrit        bool
	IsLuckyKill   bool
	CurrentStreak int32
	BossJustDied  bool
}

// diceSource is the narrow randomness dependency the resolver needs.
// *rand.Rand satisfies it; tests supply a scripted fake so dice
// outcomes are fully deterministic, per the requirement that anything
// asserting on dice results inject a seeded or mocked source.
type diceSource interface {
	Intn(n int) int
}

// Resolver ties a game state to a source of randomness. Production
// code uses a process-wide *rand.Rand seeded from the clock.
type Resolver struct {
	state *gamestate.State
	rng   diceSource
	now   func() time.Time
}

// New returns a Resolver over state using a clock-seeded RNG.
func New(state *gamestate.State) *Resolver {
	return &Resolver{
		state: state,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   time.Now,
	}
}

// NewWithRand returns a Resolver using the supplied RNG, for
// deterministic tests.
func NewWithRand(state *gamestate.State, rng *rand.Rand) *Resolver {
	return &Resolver{state: state, rng: rng, now: time.Now}
}

// NewWithSource returns a Resolver using any diceSource, letting tests
// script exact dice rolls without depending on a real PRNG's output
// for a given seed.
func NewWithSource(state *gamestate.State, rng diceSource) *Resolver {
	return &Resolver{state: state, rng: rng, now: time.Now}
}

// Resolve processes one attack from playerName with a client-suggested
// playerDice. A playerDice outside [1,6] is rerolled uniformly inside
// that range before resolution. The entire read-decide-mutate sequence
// runs under one game-state lock acquisition so that concurrent
// resolvers linearize cleanly.
func (r *Resolver) Resolve(playerDice int32, playerName string) (Result, gamestate.Snapshot) {
	var result Result
	var snap gamestate.Snapshot

	r.state.WithLock(func(t *gamestate.Transaction) {
		if playerDice < 1 || playerDice > 6 {
			playerDice = int32(r.rng.Intn(6)) + 1
		}

		if t.IsRespawning() || t.Stage() == gamestate.StageDead {
			snap = t.Snapshot()
			return
		}

		bossDice := int32(r.rng.Intn(6)) + 1
		result.BossDice = bossDice

		isLucky := r.rng.Intn(1_000_000) == luckyKillRoll

		switch {
		case isLucky:
			result.IsWin = true
			result.IsCrit = true
			result.IsLuckyKill = true
			result.DmgDealt = instantKillDamage
			if t.ApplyDamage(result.DmgDealt, playerName) {
				result.BossJustDied = true
				t.MarkLuckyKill(r.now())
			}

		case playerDice > bossDice:
			result.IsWin = true
			result.DmgDealt = playerDice
			if playerDice == 6 {
				result.IsCrit = true
				result.DmgDealt *= 2
			}

			streak := t.UpdateStreak(playerName, playerDice, true)
			result.CurrentStreak = streak
			if streak >= 3 {
				result.IsCrit = true
				result.DmgDealt = instantKillDamage
			}

			if t.ApplyDamage(result.DmgDealt, playerName) {
				result.BossJustDied = true
			}

		default: // tie or loss: boss wins ties
			t.UpdateStreak(playerName, playerDice, false)
			result.CurrentStreak = 0
			if playerDice < bossDice {
				result.DmgTaken = bossDice + 10
			}
		}

		snap = t.Snapshot()
	})

	return result, snap
}
