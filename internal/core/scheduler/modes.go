package scheduler

import "time"

// ModeKind tags a PresenceMode variant. The string values double as the
// presence_mode type published to widgets.
type ModeKind string

const (
	KindNormal   ModeKind = "normal"
	KindPreBreak ModeKind = "prebreak"
	KindBreak    ModeKind = "break"
	KindSnoozed  ModeKind = "snoozed"
	KindMuted    ModeKind = "muted"
)

// PresenceMode is the break-scheduling disposition. It is a closed set:
// exactly one variant holds at any instant and each variant carries only
// the data meaningful to it.
type PresenceMode interface {
	Kind() ModeKind
	sealed()
}

// Active is the normal countdown toward the next break.
type Active struct{}

// PreBreak is the warning countdown before an imminent break.
type PreBreak struct {
	Remaining time.Duration
}

// OnBreak is a break in progress.
type OnBreak struct {
	Remaining time.Duration
}

// Snoozed suspends the countdown until a fixed timestamp. The elapsed
// active time counter is frozen while snoozed.
type Snoozed struct {
	Until time.Time
}

// Muted suspends break prompts indefinitely (Until == nil) or until a
// timestamp. Unlike Snoozed, the overdue counter keeps accruing once a
// break is due.
type Muted struct {
	Until *time.Time
}

func (Active) Kind() ModeKind   { return KindNormal }
func (PreBreak) Kind() ModeKind { return KindPreBreak }
func (OnBreak) Kind() ModeKind  { return KindBreak }
func (Snoozed) Kind() ModeKind  { return KindSnoozed }
func (Muted) Kind() ModeKind    { return KindMuted }

func (Active) sealed()   {}
func (PreBreak) sealed() {}
func (OnBreak) sealed()  {}
func (Snoozed) sealed()  {}
func (Muted) sealed()    {}

// ModeUntil reports the expiry timestamp carried by the mode, if any.
func ModeUntil(mode PresenceMode) (time.Time, bool) {
	switch m := mode.(type) {
	case Snoozed:
		return m.Until, true
	case Muted:
		if m.Until != nil {
			return *m.Until, true
		}
	}
	return time.Time{}, false
}

// State is the scheduler aggregate mutated by the machine and persisted
// across restarts.
type State struct {
	// ElapsedActive is the duration accumulated toward the next break.
	// It never exceeds the break interval.
	ElapsedActive time.Duration
	// Overdue accrues while a due break is suppressed by mute. It is
	// reset when a break actually starts or on unmute.
	Overdue time.Duration
	// Mode is the current presence mode.
	Mode PresenceMode
	// ReadingMode disables idle-triggered countdown resets.
	ReadingMode bool
	// LastTick is the timestamp of the last processed tick.
	LastTick time.Time
	// IdleStreak is the most recent idle-duration sample, retained so
	// widgets can preview an imminent idle reset. Not persisted.
	IdleStreak time.Duration
}
