// Package platform isolates the OS-specific pieces: idle detection,
// autostart registration and the single-instance lock.
package platform

import (
	"errors"
	"time"
)

// ErrIdleUnsupported indicates idle detection is not available on this
// system. The daemon keeps running; the countdown simply never resets
// on idleness.
var ErrIdleUnsupported = errors.New("idle detection unsupported")

// IdleProvider returns the duration since last user input.
type IdleProvider interface {
	IdleDuration() (time.Duration, error)
}

// NewIdleProvider returns a platform-specific idle provider.
func NewIdleProvider() IdleProvider {
	return newIdleProvider()
}
