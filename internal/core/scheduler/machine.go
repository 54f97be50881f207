package scheduler

import (
	"errors"
	"fmt"
	"time"

	"restbreak/internal/core/model"
)

// ErrInvalidOperation indicates a command that is not legal in the
// current presence mode. The mode is left unchanged.
var ErrInvalidOperation = errors.New("operation not valid in current mode")

// suspendCutoff is the tick delta beyond which the gap is treated as a
// system suspend rather than elapsed work time. Nothing is charged to
// any counter for such a gap and a break in progress is not
// fast-forwarded.
const suspendCutoff = 30 * time.Second

// TickResult reports what a tick did to the machine.
type TickResult struct {
	// ModeChanged is true when the presence mode variant changed.
	ModeChanged bool
	// IdleReset is true when idle activity reset the countdown.
	IdleReset bool
}

// Machine is the break scheduling state machine. It is not safe for
// concurrent use; the runtime serializes all access on one goroutine.
type Machine struct {
	config model.Config
	state  State
}

// NewMachine creates a machine from an optional restored state. The
// restored state must already be reconciled (see internal/storage);
// its LastTick is discarded so downtime is not charged to the countdown.
func NewMachine(config model.Config, restored *State, now time.Time) *Machine {
	state := State{Mode: Active{}, LastTick: now}
	if restored != nil {
		state = *restored
		state.LastTick = now
	}
	if state.Mode == nil {
		state.Mode = Active{}
	}
	return &Machine{config: config, state: state}
}

// State returns a copy of the current aggregate.
func (machine *Machine) State() State {
	return machine.state
}

// Config returns the schedule currently in effect.
func (machine *Machine) Config() model.Config {
	return machine.config
}

// SetConfig swaps the schedule. Counters are clamped so the invariants
// hold against the new thresholds on the next tick.
func (machine *Machine) SetConfig(config model.Config) {
	machine.config = config
	if machine.state.ElapsedActive > config.BreakInterval {
		machine.state.ElapsedActive = config.BreakInterval
	}
}

// OnTick advances the machine by one clock tick. idle is the latest
// idle-duration sample; a failed sample must be reported as zero.
func (machine *Machine) OnTick(now time.Time, idle time.Duration) TickResult {
	var result TickResult
	previousKind := machine.state.Mode.Kind()

	dt := now.Sub(machine.state.LastTick)
	if dt < 0 {
		dt = 0
	}
	suspended := dt > suspendCutoff
	if suspended {
		dt = 0
	}
	machine.state.IdleStreak = idle

	machine.expireOverrides(now)

	switch mode := machine.state.Mode.(type) {
	case Active:
		machine.advanceCountdown(dt, idle, suspended, nil, &result)
	case PreBreak:
		machine.advanceCountdown(dt, idle, suspended, &mode, &result)
	case OnBreak:
		mode.Remaining -= dt
		if mode.Remaining <= 0 {
			machine.state.Mode = Active{}
			machine.state.ElapsedActive = 0
		} else {
			machine.state.Mode = mode
		}
	case Snoozed:
		// Counters stay frozen until the snooze expires.
	case Muted:
		if machine.state.ElapsedActive >= machine.config.BreakInterval {
			machine.state.Overdue += dt
		} else {
			machine.state.ElapsedActive += dt
			if machine.state.ElapsedActive > machine.config.BreakInterval {
				machine.state.ElapsedActive = machine.config.BreakInterval
			}
		}
	}

	machine.state.LastTick = now
	result.ModeChanged = machine.state.Mode.Kind() != previousKind
	return result
}

// expireOverrides collapses timed overrides whose deadline has passed.
// A user-initiated override is never cleared by anything else.
func (machine *Machine) expireOverrides(now time.Time) {
	switch mode := machine.state.Mode.(type) {
	case Snoozed:
		if !now.Before(mode.Until) {
			machine.state.Mode = Active{}
		}
	case Muted:
		if mode.Until != nil && !now.Before(*mode.Until) {
			machine.state.Mode = Active{}
			machine.state.Overdue = 0
		}
	}
}

// advanceCountdown handles the Active and PreBreak branches. prebreak is
// nil when the machine is in Active.
func (machine *Machine) advanceCountdown(dt, idle time.Duration, suspended bool, prebreak *PreBreak, result *TickResult) {
	if !machine.state.ReadingMode && (suspended || idle >= machine.config.IdleResetThreshold) {
		machine.state.ElapsedActive = 0
		machine.state.Mode = Active{}
		result.IdleReset = true
		return
	}

	machine.state.ElapsedActive += dt
	if machine.state.ElapsedActive > machine.config.BreakInterval {
		machine.state.ElapsedActive = machine.config.BreakInterval
	}

	if prebreak == nil {
		if machine.state.ElapsedActive >= machine.config.BreakInterval-machine.config.PrebreakWarning {
			machine.state.Mode = PreBreak{Remaining: machine.config.PrebreakWarning}
		}
		return
	}

	remaining := prebreak.Remaining - dt
	if remaining <= 0 {
		machine.enterBreak()
		return
	}
	machine.state.Mode = PreBreak{Remaining: remaining}
}

func (machine *Machine) enterBreak() {
	machine.state.Mode = OnBreak{Remaining: machine.config.BreakDuration}
	machine.state.Overdue = 0
}

// SnoozeFor suspends break prompts until now+duration. A break in
// progress cannot be snoozed.
func (machine *Machine) SnoozeFor(now time.Time, duration time.Duration) error {
	if _, onBreak := machine.state.Mode.(OnBreak); onBreak {
		return fmt.Errorf("snooze: %w", ErrInvalidOperation)
	}
	if duration < 0 {
		duration = 0
	}
	machine.state.Mode = Snoozed{Until: now.Add(duration)}
	return nil
}

// Mute suspends break prompts until further notice.
func (machine *Machine) Mute() error {
	if _, onBreak := machine.state.Mode.(OnBreak); onBreak {
		return fmt.Errorf("mute: %w", ErrInvalidOperation)
	}
	machine.state.Mode = Muted{}
	return nil
}

// MuteFor suspends break prompts until now+duration.
func (machine *Machine) MuteFor(now time.Time, duration time.Duration) error {
	if _, onBreak := machine.state.Mode.(OnBreak); onBreak {
		return fmt.Errorf("mute: %w", ErrInvalidOperation)
	}
	if duration < 0 {
		duration = 0
	}
	until := now.Add(duration)
	machine.state.Mode = Muted{Until: &until}
	return nil
}

// Unmute clears a snooze or mute back to Active and zeroes the overdue
// counter. It is a no-op when no override is in effect.
func (machine *Machine) Unmute() {
	switch machine.state.Mode.(type) {
	case Snoozed, Muted:
		machine.state.Mode = Active{}
		machine.state.Overdue = 0
	}
}

// TriggerBreak starts a break immediately. Calling it during a break is
// an idempotent no-op.
func (machine *Machine) TriggerBreak() {
	if _, onBreak := machine.state.Mode.(OnBreak); onBreak {
		return
	}
	machine.enterBreak()
}

// SetReadingMode flips the reading-mode flag; it takes effect on the
// next tick.
func (machine *Machine) SetReadingMode(enabled bool) {
	machine.state.ReadingMode = enabled
}
