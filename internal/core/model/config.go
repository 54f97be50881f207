package model

import (
	"fmt"
	"time"
)

// Config contains the scheduling durations for the break state machine.
// Threshold comparisons are always re-derived from the current values,
// never cached, so the config may be swapped between ticks.
type Config struct {
	// BreakInterval is the active time accumulated before a break is due.
	BreakInterval time.Duration
	// PrebreakWarning is the warning window preceding a break.
	PrebreakWarning time.Duration
	// BreakDuration is how long an enforced break lasts.
	BreakDuration time.Duration
	// IdleResetThreshold is the continuous idle time that resets the countdown.
	IdleResetThreshold time.Duration
}

// Default returns the stock schedule: a 20 minute work interval with a
// 90 second break, a 15 second warning and idle resets after 90 seconds.
func Default() Config {
	return Config{
		BreakInterval:      20 * time.Minute,
		PrebreakWarning:    15 * time.Second,
		BreakDuration:      90 * time.Second,
		IdleResetThreshold: 90 * time.Second,
	}
}

// Validate checks that every duration is positive and that the warning
// window fits inside the break interval.
func (config Config) Validate() error {
	if config.BreakInterval <= 0 {
		return fmt.Errorf("break_interval must be positive, got %s", config.BreakInterval)
	}
	if config.PrebreakWarning <= 0 {
		return fmt.Errorf("prebreak_warning_duration must be positive, got %s", config.PrebreakWarning)
	}
	if config.BreakDuration <= 0 {
		return fmt.Errorf("break_duration must be positive, got %s", config.BreakDuration)
	}
	if config.IdleResetThreshold <= 0 {
		return fmt.Errorf("idle_reset_threshold must be positive, got %s", config.IdleResetThreshold)
	}
	if config.PrebreakWarning >= config.BreakInterval {
		return fmt.Errorf("prebreak_warning_duration (%s) must be shorter than break_interval (%s)",
			config.PrebreakWarning, config.BreakInterval)
	}
	return nil
}
