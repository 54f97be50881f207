package scheduler

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"restbreak/internal/core/model"
)

// ErrNotRunning indicates a command sent to a stopped scheduler.
var ErrNotRunning = errors.New("scheduler not running")

// IdleSource supplies the most recent idle-duration sample. It must not
// block; the sampler maintaining it runs off the tick path.
type IdleSource interface {
	Latest() time.Duration
}

// Saver persists a state snapshot. Failures degrade to in-memory
// operation and are logged, never propagated to scheduling.
type Saver interface {
	Save(state State) error
}

// Clock abstracts "now" so tests can drive time deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// Options contains runtime options for the Scheduler.
type Options struct {
	TickInterval time.Duration
	// SaveInterval bounds how stale a persisted snapshot may get while
	// no transition occurs. Transitions always save immediately.
	SaveInterval time.Duration
	Clock        Clock
	Logger       zerolog.Logger
	// OnSaveError is invoked after each failed snapshot, in addition to
	// the log line. Optional.
	OnSaveError func(error)
}

type command struct {
	apply func(machine *Machine, now time.Time) error
	// mutating marks commands that may change machine state. Only
	// those are followed by a snapshot and a state-change event;
	// read-only queries leave the timeline untouched.
	mutating bool
	reply    chan error
}

// Scheduler runs the state machine on a single timeline: one goroutine
// owns the Machine and applies clock ticks and externally submitted
// commands in strict sequence, so a command is never interleaved with an
// in-progress tick.
type Scheduler struct {
	machine *Machine
	idle    IdleSource
	saver   Saver
	options Options
	logger  zerolog.Logger

	commands  chan command
	subscribe chan chan Event
	stopCh    chan struct{}
	doneCh    chan struct{}

	subscribers []chan Event
	started     bool
}

// New creates a scheduler around a machine. idle and saver may be nil
// (never-idle, in-memory only).
func New(machine *Machine, idle IdleSource, saver Saver, options Options) *Scheduler {
	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}
	if options.SaveInterval <= 0 {
		options.SaveInterval = 15 * time.Second
	}
	if options.Clock == nil {
		options.Clock = SystemClock()
	}
	return &Scheduler{
		machine:   machine,
		idle:      idle,
		saver:     saver,
		options:   options,
		logger:    options.Logger.With().Str("component", "scheduler").Logger(),
		commands:  make(chan command),
		subscribe: make(chan chan Event),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the scheduling loop. It may be called once.
func (scheduler *Scheduler) Start() {
	if scheduler.started {
		return
	}
	scheduler.started = true
	go scheduler.run()
}

// Stop terminates the loop, performs a final snapshot and closes all
// subscriber channels. Safe to call more than once.
func (scheduler *Scheduler) Stop() {
	select {
	case <-scheduler.stopCh:
	default:
		close(scheduler.stopCh)
	}
	if scheduler.started {
		<-scheduler.doneCh
	}
}

// Subscribe registers an observer channel. The channel is closed when
// the scheduler stops. Slow subscribers drop events rather than stall
// the timeline.
func (scheduler *Scheduler) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	select {
	case scheduler.subscribe <- ch:
	case <-scheduler.stopCh:
		close(ch)
	}
	return ch
}

// SnoozeFor suspends break prompts for the given duration.
func (scheduler *Scheduler) SnoozeFor(duration time.Duration) error {
	return scheduler.do(func(machine *Machine, now time.Time) error {
		return machine.SnoozeFor(now, duration)
	})
}

// Mute suspends break prompts until further notice.
func (scheduler *Scheduler) Mute() error {
	return scheduler.do(func(machine *Machine, now time.Time) error {
		return machine.Mute()
	})
}

// MuteFor suspends break prompts for the given duration.
func (scheduler *Scheduler) MuteFor(duration time.Duration) error {
	return scheduler.do(func(machine *Machine, now time.Time) error {
		return machine.MuteFor(now, duration)
	})
}

// Unmute clears any snooze or mute.
func (scheduler *Scheduler) Unmute() error {
	return scheduler.do(func(machine *Machine, now time.Time) error {
		machine.Unmute()
		return nil
	})
}

// TriggerBreak starts a break immediately.
func (scheduler *Scheduler) TriggerBreak() error {
	return scheduler.do(func(machine *Machine, now time.Time) error {
		machine.TriggerBreak()
		return nil
	})
}

// SetReadingMode flips the reading-mode flag.
func (scheduler *Scheduler) SetReadingMode(enabled bool) error {
	return scheduler.do(func(machine *Machine, now time.Time) error {
		machine.SetReadingMode(enabled)
		return nil
	})
}

// UpdateConfig swaps the schedule in effect.
func (scheduler *Scheduler) UpdateConfig(config model.Config) error {
	return scheduler.do(func(machine *Machine, now time.Time) error {
		machine.SetConfig(config)
		return nil
	})
}

// Snapshot returns the current state and config, read on the scheduling
// timeline. It never saves or publishes.
func (scheduler *Scheduler) Snapshot() (State, model.Config, error) {
	var state State
	var config model.Config
	err := scheduler.query(func(machine *Machine, now time.Time) error {
		state = machine.State()
		config = machine.Config()
		return nil
	})
	return state, config, err
}

// do funnels a mutating command onto the scheduling timeline and waits
// for its result.
func (scheduler *Scheduler) do(apply func(machine *Machine, now time.Time) error) error {
	return scheduler.submit(command{apply: apply, mutating: true, reply: make(chan error, 1)})
}

// query runs a read-only command on the scheduling timeline.
func (scheduler *Scheduler) query(apply func(machine *Machine, now time.Time) error) error {
	return scheduler.submit(command{apply: apply, reply: make(chan error, 1)})
}

func (scheduler *Scheduler) submit(cmd command) error {
	select {
	case scheduler.commands <- cmd:
		return <-cmd.reply
	case <-scheduler.stopCh:
		return ErrNotRunning
	}
}

func (scheduler *Scheduler) run() {
	defer close(scheduler.doneCh)

	ticker := time.NewTicker(scheduler.options.TickInterval)
	defer ticker.Stop()

	now := scheduler.options.Clock.Now()
	lastSave := now
	scheduler.publish(Event{Type: EventStateChange, State: scheduler.machine.State(), At: now})

	for {
		select {
		case <-scheduler.stopCh:
			scheduler.save()
			for _, ch := range scheduler.subscribers {
				close(ch)
			}
			scheduler.subscribers = nil
			return

		case ch := <-scheduler.subscribe:
			scheduler.subscribers = append(scheduler.subscribers, ch)

		case cmd := <-scheduler.commands:
			now := scheduler.options.Clock.Now()
			err := cmd.apply(scheduler.machine, now)
			if err == nil && cmd.mutating {
				scheduler.save()
				lastSave = now
				scheduler.publish(Event{Type: EventStateChange, State: scheduler.machine.State(), At: now})
			}
			cmd.reply <- err

		case <-ticker.C:
			now := scheduler.options.Clock.Now()
			idle := time.Duration(0)
			if scheduler.idle != nil {
				idle = scheduler.idle.Latest()
			}
			result := scheduler.machine.OnTick(now, idle)
			state := scheduler.machine.State()

			if result.IdleReset {
				scheduler.publish(Event{Type: EventIdleReset, State: state, At: now})
			}
			if result.ModeChanged {
				scheduler.save()
				lastSave = now
				scheduler.publish(Event{Type: EventStateChange, State: state, At: now})
				continue
			}
			scheduler.publish(Event{Type: EventProgress, State: state, At: now})
			if now.Sub(lastSave) >= scheduler.options.SaveInterval {
				scheduler.save()
				lastSave = now
			}
		}
	}
}

func (scheduler *Scheduler) save() {
	if scheduler.saver == nil {
		return
	}
	if err := scheduler.saver.Save(scheduler.machine.State()); err != nil {
		scheduler.logger.Warn().Err(err).Msg("state snapshot failed, continuing in memory")
		if scheduler.options.OnSaveError != nil {
			scheduler.options.OnSaveError(err)
		}
	}
}

func (scheduler *Scheduler) publish(event Event) {
	for _, ch := range scheduler.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
