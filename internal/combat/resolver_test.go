package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qwe638853/WorldBossRaid/internal/gamestate"
)

// scriptedRNG replays a fixed sequence of Intn results, one per call,
// in order. It lets a test pin down exact boss rolls and lucky-kill
// checks without depending on what a real PRNG happens to produce for
// a given seed.
type scriptedRNG struct {
	rolls []int
	next  int
}

func (s *scriptedRNG) Intn(n int) int {
	if s.next >= len(s.rolls) {
		panic("scriptedRNG: out of scripted rolls")
	}
	v := s.rolls[s.next]
	s.next++
	return v
}

// neverLucky is a value guaranteed not to equal the lucky-kill
// trigger (777777) for the Intn(1_000_000) call.
const neverLucky = 0

func TestResolveCriticalOnPlayerSix(t *testing.T) {
	state := gamestate.New()
	// bossDice roll -> Intn(6) returns 4 (so bossDice=5); lucky check -> neverLucky.
	r := NewWithSource(state, &scriptedRNG{rolls: []int{4, neverLucky}})

	result, snap := r.Resolve(6, "alice")

	assert.EqualValues(t, 5, result.BossDice)
	assert.EqualValues(t, 12, result.DmgDealt)
	assert.True(t, result.IsCrit)
	assert.True(t, result.IsWin)
	assert.False(t, result.IsLuckyKill)
	assert.EqualValues(t, gamestate.Boss1MaxHP-12, snap.CurrentHP)
}

func TestResolveThreeWinStreakInstantKills(t *testing.T) {
	state := gamestate.New()
	rolls := []int{
		0, neverLucky, // attack 1: bossDice=1
		0, neverLucky, // attack 2: bossDice=1
		0, neverLucky, // attack 3: bossDice=1
	}
	r := NewWithSource(state, &scriptedRNG{rolls: rolls})

	res1, _ := r.Resolve(5, "alice")
	assert.EqualValues(t, 1, res1.CurrentStreak)
	assert.False(t, res1.BossJustDied)

	res2, _ := r.Resolve(5, "alice")
	assert.EqualValues(t, 2, res2.CurrentStreak)
	assert.False(t, res2.BossJustDied)

	res3, snap3 := r.Resolve(5, "alice")
	assert.EqualValues(t, 3, res3.CurrentStreak)
	assert.EqualValues(t, instantKillDamage, res3.DmgDealt)
	assert.True(t, res3.IsCrit)
	assert.True(t, res3.BossJustDied)
	assert.EqualValues(t, 0, snap3.CurrentHP)
	assert.True(t, snap3.IsRespawning)
}

func TestResolveLossComputesDmgTaken(t *testing.T) {
	state := gamestate.New()
	// bossDice roll -> Intn(6) returns 5 (bossDice=6); lucky check -> neverLucky.
	r := NewWithSource(state, &scriptedRNG{rolls: []int{5, neverLucky}})

	result, _ := r.Resolve(1, "bob")
	assert.False(t, result.IsWin)
	assert.EqualValues(t, 0, result.DmgDealt)
	assert.EqualValues(t, 16, result.DmgTaken) // boss_dice(6) + 10
	assert.EqualValues(t, 0, result.CurrentStreak)
}

func TestResolveTieBreaksTowardBoss(t *testing.T) {
	state := gamestate.New()
	// bossDice roll -> Intn(6) returns 2 (bossDice=3); lucky check -> neverLucky.
	r := NewWithSource(state, &scriptedRNG{rolls: []int{2, neverLucky}})

	result, _ := r.Resolve(3, "carol")
	assert.False(t, result.IsWin)
	assert.EqualValues(t, 0, result.DmgDealt)
	assert.EqualValues(t, 0, result.DmgTaken)
	assert.EqualValues(t, 0, result.CurrentStreak)
}

func TestResolveLuckyKillInstantlyEndsBoss(t *testing.T) {
	state := gamestate.New()
	r := NewWithSource(state, &scriptedRNG{rolls: []int{0, 777777}})

	result, snap := r.Resolve(2, "dave")
	assert.True(t, result.IsLuckyKill)
	assert.True(t, result.IsCrit)
	assert.True(t, result.IsWin)
	assert.True(t, result.BossJustDied)
	assert.EqualValues(t, instantKillDamage, result.DmgDealt)
	assert.EqualValues(t, 0, snap.CurrentHP)
	assert.True(t, snap.HasLuckyEvent)
}

func TestResolveNoopWhileRespawning(t *testing.T) {
	state := gamestate.New()
	state.ApplyDamage(gamestate.Boss1MaxHP, "alice")

	r := NewWithSource(state, &scriptedRNG{rolls: []int{}})
	result, snap := r.Resolve(6, "bob")

	assert.Equal(t, Result{}, result)
	assert.True(t, snap.IsRespawning)
}

func TestResolveOutOfRangeDiceIsRerolled(t *testing.T) {
	state := gamestate.New()
	// reroll -> Intn(6) returns 3 (playerDice=4); bossDice -> Intn(6) returns 0 (bossDice=1); lucky -> neverLucky.
	r := NewWithSource(state, &scriptedRNG{rolls: []int{3, 0, neverLucky}})

	result, _ := r.Resolve(99, "erin")
	require.True(t, result.IsWin)
	assert.EqualValues(t, 4, result.DmgDealt)
}
