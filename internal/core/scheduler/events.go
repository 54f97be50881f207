package scheduler

import "time"

// EventType defines the type of scheduler event.
type EventType string

const (
	EventStateChange EventType = "state_change"
	EventProgress    EventType = "progress"
	EventIdleReset   EventType = "idle_reset"
)

// Event is a scheduler update delivered to observers. State is a copy
// taken on the scheduling timeline.
type Event struct {
	Type  EventType
	State State
	At    time.Time
}
