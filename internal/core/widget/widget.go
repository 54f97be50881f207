// Package widget projects scheduler state into the compact form shown
// by desktop widgets and the status command.
package widget

import (
	"fmt"
	"time"

	"restbreak/internal/core/model"
	"restbreak/internal/core/scheduler"
)

// resetPreviewAfter is how long the user must already be idle before
// the normal timer switches to previewing the idle-reset countdown.
// Shorter idle streaks are everyday typing pauses and not worth
// flashing the display for.
const resetPreviewAfter = 5 * time.Second

// ModeInfo is the presence mode as published to widgets.
type ModeInfo struct {
	Type string `json:"type"`
	// Until is set for timed snoozes and mutes so a widget can render
	// "until 14:35" without tracking the countdown itself.
	Until *time.Time `json:"until,omitempty"`
}

// Info is one widget frame. Timer values are pre-formatted timecodes so
// every consumer renders the same digits.
type Info struct {
	NormalTimerValue   string   `json:"normal_timer_value"`
	PrebreakTimerValue string   `json:"prebreak_timer_value"`
	OverdueValue       string   `json:"overdue_value"`
	PresenceMode       ModeInfo `json:"presence_mode"`
	ReadingMode        bool     `json:"reading_mode"`
}

// Project renders the scheduler state against the schedule in effect.
func Project(state scheduler.State, config model.Config) Info {
	info := Info{
		PresenceMode: ModeInfo{Type: string(state.Mode.Kind())},
		ReadingMode:  state.ReadingMode,
	}
	if until, ok := scheduler.ModeUntil(state.Mode); ok {
		u := until
		info.PresenceMode.Until = &u
	}

	switch mode := state.Mode.(type) {
	case scheduler.OnBreak:
		// The break remaining rides in the prebreak/break timer slot;
		// the next-break countdown is meaningless mid-break.
		info.PrebreakTimerValue = FormatTimecode(mode.Remaining)
	case scheduler.PreBreak:
		info.NormalTimerValue = normalTimer(state, config)
		info.PrebreakTimerValue = FormatTimecode(mode.Remaining)
	default:
		info.NormalTimerValue = normalTimer(state, config)
	}

	if state.Overdue > 0 {
		info.OverdueValue = FormatTimecode(state.Overdue)
	}
	return info
}

// normalTimer is the countdown to the next break. While the user is
// already idling toward a reset it previews the reset countdown
// instead, so the widget explains why the break timer is about to jump.
func normalTimer(state scheduler.State, config model.Config) string {
	kind := state.Mode.Kind()
	countingDown := kind == scheduler.KindNormal || kind == scheduler.KindPreBreak
	if countingDown && !state.ReadingMode && state.IdleStreak >= resetPreviewAfter {
		return FormatTimecode(config.IdleResetThreshold - state.IdleStreak)
	}
	return FormatTimecode(config.BreakInterval - state.ElapsedActive)
}

// FormatTimecode renders a duration as M:SS with no zero padding on the
// minutes. Negative durations clamp to 0:00.
func FormatTimecode(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
