package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restbreak/internal/core/model"
)

var testBase = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func newTestMachine() (*Machine, time.Time) {
	return NewMachine(model.Default(), nil, testBase), testBase
}

// advance ticks the machine in one-second steps with the given idle
// sample and returns the new clock position.
func advance(machine *Machine, from time.Time, total time.Duration, idle time.Duration) time.Time {
	now := from
	for elapsed := time.Duration(0); elapsed < total; elapsed += time.Second {
		now = now.Add(time.Second)
		machine.OnTick(now, idle)
	}
	return now
}

func TestNewMachineStartsActive(t *testing.T) {
	machine, _ := newTestMachine()

	state := machine.State()

	assert.Equal(t, KindNormal, state.Mode.Kind())
	assert.Zero(t, state.ElapsedActive)
	assert.Zero(t, state.Overdue)
	assert.False(t, state.ReadingMode)
}

func TestFullCycleActivePrebreakBreak(t *testing.T) {
	machine, now := newTestMachine()
	config := machine.Config()

	// Work until just before the warning window opens.
	now = advance(machine, now, config.BreakInterval-config.PrebreakWarning-time.Second, 0)
	assert.Equal(t, KindNormal, machine.State().Mode.Kind())

	now = advance(machine, now, time.Second, 0)
	require.Equal(t, KindPreBreak, machine.State().Mode.Kind())

	// The warning counts down and then the break starts.
	now = advance(machine, now, config.PrebreakWarning, 0)
	require.Equal(t, KindBreak, machine.State().Mode.Kind())

	// The break runs its course and the countdown restarts from zero.
	now = advance(machine, now, config.BreakDuration, 0)
	state := machine.State()
	assert.Equal(t, KindNormal, state.Mode.Kind())
	assert.Zero(t, state.ElapsedActive)
	_ = now
}

func TestElapsedNeverExceedsBreakInterval(t *testing.T) {
	machine, now := newTestMachine()
	config := machine.Config()
	require.NoError(t, machine.Mute())

	advance(machine, now, config.BreakInterval+10*time.Minute, 0)

	assert.Equal(t, config.BreakInterval, machine.State().ElapsedActive)
}

func TestIdleResetDuringActive(t *testing.T) {
	machine, now := newTestMachine()
	config := machine.Config()

	now = advance(machine, now, 5*time.Minute, 0)
	require.Equal(t, 5*time.Minute, machine.State().ElapsedActive)

	result := machine.OnTick(now.Add(time.Second), config.IdleResetThreshold)

	assert.True(t, result.IdleReset)
	state := machine.State()
	assert.Zero(t, state.ElapsedActive)
	assert.Equal(t, KindNormal, state.Mode.Kind())
}

func TestIdleResetCancelsPrebreak(t *testing.T) {
	machine, now := newTestMachine()
	config := machine.Config()

	now = advance(machine, now, config.BreakInterval-config.PrebreakWarning, 0)
	require.Equal(t, KindPreBreak, machine.State().Mode.Kind())

	result := machine.OnTick(now.Add(time.Second), config.IdleResetThreshold)

	assert.True(t, result.IdleReset)
	assert.True(t, result.ModeChanged)
	state := machine.State()
	assert.Equal(t, KindNormal, state.Mode.Kind())
	assert.Zero(t, state.ElapsedActive)
}

func TestReadingModeBlocksIdleReset(t *testing.T) {
	machine, now := newTestMachine()
	config := machine.Config()
	machine.SetReadingMode(true)

	now = advance(machine, now, 5*time.Minute, 0)
	result := machine.OnTick(now.Add(time.Second), config.IdleResetThreshold)

	assert.False(t, result.IdleReset)
	assert.Equal(t, 5*time.Minute+time.Second, machine.State().ElapsedActive)
}

func TestIdleDoesNotAffectBreak(t *testing.T) {
	machine, now := newTestMachine()
	config := machine.Config()
	machine.TriggerBreak()

	// Being idle during a break is expected; the break simply runs down.
	now = advance(machine, now, config.BreakDuration/2, config.IdleResetThreshold)
	require.Equal(t, KindBreak, machine.State().Mode.Kind())

	advance(machine, now, config.BreakDuration/2, config.IdleResetThreshold)
	state := machine.State()
	assert.Equal(t, KindNormal, state.Mode.Kind())
	assert.Zero(t, state.ElapsedActive)
}

func TestSnoozeFreezesCountdown(t *testing.T) {
	machine, now := newTestMachine()

	now = advance(machine, now, 7*time.Minute, 0)
	require.NoError(t, machine.SnoozeFor(now, 10*time.Minute))

	now = advance(machine, now, 5*time.Minute, 0)
	state := machine.State()
	assert.Equal(t, KindSnoozed, state.Mode.Kind())
	assert.Equal(t, 7*time.Minute, state.ElapsedActive)

	// Expiry resumes the countdown where it left off. The deadline
	// tick itself already counts as active time again.
	advance(machine, now, 5*time.Minute, 0)
	state = machine.State()
	assert.Equal(t, KindNormal, state.Mode.Kind())
	assert.Equal(t, 7*time.Minute+time.Second, state.ElapsedActive)
}

func TestSnoozeRejectedDuringBreak(t *testing.T) {
	machine, now := newTestMachine()
	machine.TriggerBreak()

	err := machine.SnoozeFor(now, 5*time.Minute)

	assert.ErrorIs(t, err, ErrInvalidOperation)
	assert.Equal(t, KindBreak, machine.State().Mode.Kind())
}

func TestMuteRejectedDuringBreak(t *testing.T) {
	machine, now := newTestMachine()
	machine.TriggerBreak()

	assert.ErrorIs(t, machine.Mute(), ErrInvalidOperation)
	assert.ErrorIs(t, machine.MuteFor(now, time.Minute), ErrInvalidOperation)
}

func TestMuteAccruesOverdueOnceBreakIsDue(t *testing.T) {
	machine, now := newTestMachine()
	config := machine.Config()
	require.NoError(t, machine.Mute())

	// Work off the remaining interval while muted, then keep going.
	now = advance(machine, now, config.BreakInterval, 0)
	require.Equal(t, config.BreakInterval, machine.State().ElapsedActive)
	require.Zero(t, machine.State().Overdue)

	advance(machine, now, 5*time.Minute, 0)

	state := machine.State()
	assert.Equal(t, KindMuted, state.Mode.Kind())
	assert.Equal(t, 5*time.Minute, state.Overdue)
}

func TestMutedIgnoresIdle(t *testing.T) {
	machine, now := newTestMachine()
	config := machine.Config()
	require.NoError(t, machine.Mute())

	advance(machine, now, 5*time.Minute, config.IdleResetThreshold)

	// Muted counters are unaffected by idleness either way.
	assert.Equal(t, 5*time.Minute, machine.State().ElapsedActive)
}

func TestMuteForExpiryClearsOverdue(t *testing.T) {
	machine, now := newTestMachine()
	config := machine.Config()
	require.NoError(t, machine.MuteFor(now, config.BreakInterval+2*time.Minute))

	now = advance(machine, now, config.BreakInterval+time.Minute, 0)
	require.Equal(t, time.Minute, machine.State().Overdue)

	// Past the mute deadline the overdue ledger is wiped and the
	// pending break starts through the usual warning window.
	advance(machine, now, 2*time.Minute, 0)
	state := machine.State()
	assert.Equal(t, KindBreak, state.Mode.Kind())
	assert.Zero(t, state.Overdue)
}

func TestUnmuteClearsOverrideAndOverdue(t *testing.T) {
	machine, now := newTestMachine()
	config := machine.Config()
	require.NoError(t, machine.Mute())
	advance(machine, now, config.BreakInterval+3*time.Minute, 0)
	require.Equal(t, 3*time.Minute, machine.State().Overdue)

	machine.Unmute()

	state := machine.State()
	assert.Equal(t, KindNormal, state.Mode.Kind())
	assert.Zero(t, state.Overdue)
}

func TestUnmuteIsNoopWhenNotMuted(t *testing.T) {
	machine, now := newTestMachine()
	advance(machine, now, 5*time.Minute, 0)

	machine.Unmute()

	state := machine.State()
	assert.Equal(t, KindNormal, state.Mode.Kind())
	assert.Equal(t, 5*time.Minute, state.ElapsedActive)
}

func TestTriggerBreakStartsBreakImmediately(t *testing.T) {
	machine, now := newTestMachine()
	config := machine.Config()
	advance(machine, now, 5*time.Minute, 0)

	machine.TriggerBreak()

	state := machine.State()
	require.Equal(t, KindBreak, state.Mode.Kind())
	assert.Equal(t, OnBreak{Remaining: config.BreakDuration}, state.Mode)
	assert.Zero(t, state.Overdue)
}

func TestTriggerBreakDuringBreakIsIdempotent(t *testing.T) {
	machine, now := newTestMachine()
	config := machine.Config()
	machine.TriggerBreak()
	now = advance(machine, now, 30*time.Second, 0)

	machine.TriggerBreak()

	mode, ok := machine.State().Mode.(OnBreak)
	require.True(t, ok)
	assert.Equal(t, config.BreakDuration-30*time.Second, mode.Remaining)
	_ = now
}

func TestTriggerBreakWhileMuted(t *testing.T) {
	machine, now := newTestMachine()
	config := machine.Config()
	require.NoError(t, machine.Mute())
	advance(machine, now, config.BreakInterval+2*time.Minute, 0)

	machine.TriggerBreak()

	state := machine.State()
	assert.Equal(t, KindBreak, state.Mode.Kind())
	assert.Zero(t, state.Overdue)
}

func TestSuspendGapIsNotCharged(t *testing.T) {
	machine, now := newTestMachine()
	require.NoError(t, machine.SnoozeFor(now, time.Hour))
	now = advance(machine, now, time.Minute, 0)

	// A laptop lid closed for ten minutes: the gap exceeds the cutoff
	// and nothing is charged to any counter.
	machine.OnTick(now.Add(10*time.Minute), 0)

	assert.Equal(t, KindSnoozed, machine.State().Mode.Kind())
	assert.Zero(t, machine.State().ElapsedActive)
}

func TestSuspendGapResetsActiveCountdown(t *testing.T) {
	machine, now := newTestMachine()
	now = advance(machine, now, 5*time.Minute, 0)

	result := machine.OnTick(now.Add(10*time.Minute), 0)

	// Downtime is rest, not work.
	assert.True(t, result.IdleReset)
	assert.Zero(t, machine.State().ElapsedActive)
}

func TestSuspendDoesNotFastForwardBreak(t *testing.T) {
	machine, now := newTestMachine()
	config := machine.Config()
	machine.TriggerBreak()
	now = advance(machine, now, 10*time.Second, 0)

	machine.OnTick(now.Add(10*time.Minute), 0)

	mode, ok := machine.State().Mode.(OnBreak)
	require.True(t, ok)
	assert.Equal(t, config.BreakDuration-10*time.Second, mode.Remaining)
}

func TestNegativeSnoozeDurationClampsToNow(t *testing.T) {
	machine, now := newTestMachine()
	require.NoError(t, machine.SnoozeFor(now, -5*time.Minute))

	machine.OnTick(now.Add(time.Second), 0)

	assert.Equal(t, KindNormal, machine.State().Mode.Kind())
}

func TestClockGoingBackwardsChargesNothing(t *testing.T) {
	machine, now := newTestMachine()
	now = advance(machine, now, 5*time.Minute, 0)

	machine.OnTick(now.Add(-time.Hour), 0)

	assert.Equal(t, 5*time.Minute, machine.State().ElapsedActive)
}

func TestSetConfigClampsElapsed(t *testing.T) {
	machine, now := newTestMachine()
	require.NoError(t, machine.Mute())
	advance(machine, now, 15*time.Minute, 0)

	shorter := machine.Config()
	shorter.BreakInterval = 10 * time.Minute
	machine.SetConfig(shorter)

	assert.Equal(t, 10*time.Minute, machine.State().ElapsedActive)
}

func TestRestoredStateResumesCountdown(t *testing.T) {
	restored := &State{
		ElapsedActive: 12 * time.Minute,
		Mode:          Active{},
		ReadingMode:   true,
	}
	machine := NewMachine(model.Default(), restored, testBase)

	advance(machine, testBase, time.Minute, 0)

	state := machine.State()
	assert.Equal(t, 13*time.Minute, state.ElapsedActive)
	assert.True(t, state.ReadingMode)
}

func TestErrorsWrapInvalidOperation(t *testing.T) {
	machine, now := newTestMachine()
	machine.TriggerBreak()

	err := machine.SnoozeFor(now, time.Minute)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidOperation))
}
