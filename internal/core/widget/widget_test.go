package widget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restbreak/internal/core/model"
	"restbreak/internal/core/scheduler"
)

func TestFormatTimecode(t *testing.T) {
	assert.Equal(t, "0:29", FormatTimecode(29*time.Second))
	assert.Equal(t, "7:54", FormatTimecode(7*time.Minute+54*time.Second))
	assert.Equal(t, "19:29", FormatTimecode(19*time.Minute+29*time.Second))
	assert.Equal(t, "0:00", FormatTimecode(0))
	assert.Equal(t, "0:00", FormatTimecode(-5*time.Second))
}

func TestProjectNormalCountdown(t *testing.T) {
	config := model.Default()
	state := scheduler.State{
		Mode:          scheduler.Active{},
		ElapsedActive: 31 * time.Second,
	}

	info := Project(state, config)

	assert.Equal(t, "19:29", info.NormalTimerValue)
	assert.Empty(t, info.PrebreakTimerValue)
	assert.Empty(t, info.OverdueValue)
	assert.Equal(t, "normal", info.PresenceMode.Type)
	assert.Nil(t, info.PresenceMode.Until)
	assert.False(t, info.ReadingMode)
}

func TestProjectPrebreak(t *testing.T) {
	config := model.Default()
	state := scheduler.State{
		Mode:          scheduler.PreBreak{Remaining: 9 * time.Second},
		ElapsedActive: config.BreakInterval - 9*time.Second,
	}

	info := Project(state, config)

	assert.Equal(t, "prebreak", info.PresenceMode.Type)
	assert.Equal(t, "0:09", info.PrebreakTimerValue)
	assert.Equal(t, "0:09", info.NormalTimerValue)
}

func TestProjectBreakShowsRemaining(t *testing.T) {
	config := model.Default()
	state := scheduler.State{Mode: scheduler.OnBreak{Remaining: 75 * time.Second}}

	info := Project(state, config)

	assert.Equal(t, "break", info.PresenceMode.Type)
	assert.Equal(t, "1:15", info.PrebreakTimerValue)
	assert.Empty(t, info.NormalTimerValue)
}

func TestProjectSnoozedCarriesUntil(t *testing.T) {
	config := model.Default()
	until := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	state := scheduler.State{
		Mode:          scheduler.Snoozed{Until: until},
		ElapsedActive: 5 * time.Minute,
	}

	info := Project(state, config)

	assert.Equal(t, "snoozed", info.PresenceMode.Type)
	require.NotNil(t, info.PresenceMode.Until)
	assert.True(t, until.Equal(*info.PresenceMode.Until))
	assert.Equal(t, "15:00", info.NormalTimerValue)
}

func TestProjectMutedOverdue(t *testing.T) {
	config := model.Default()
	state := scheduler.State{
		Mode:          scheduler.Muted{},
		ElapsedActive: config.BreakInterval,
		Overdue:       4*time.Minute + 2*time.Second,
	}

	info := Project(state, config)

	assert.Equal(t, "muted", info.PresenceMode.Type)
	assert.Nil(t, info.PresenceMode.Until)
	assert.Equal(t, "4:02", info.OverdueValue)
	assert.Equal(t, "0:00", info.NormalTimerValue)
}

func TestProjectIdleResetPreview(t *testing.T) {
	config := model.Default()
	state := scheduler.State{
		Mode:          scheduler.Active{},
		ElapsedActive: 10 * time.Minute,
		IdleStreak:    30 * time.Second,
	}

	info := Project(state, config)

	// 90s threshold minus 30s of idling so far.
	assert.Equal(t, "1:00", info.NormalTimerValue)
}

func TestProjectIdleBelowPreviewThreshold(t *testing.T) {
	config := model.Default()
	state := scheduler.State{
		Mode:          scheduler.Active{},
		ElapsedActive: 10 * time.Minute,
		IdleStreak:    3 * time.Second,
	}

	info := Project(state, config)

	assert.Equal(t, "10:00", info.NormalTimerValue)
}

func TestProjectReadingModeSkipsPreview(t *testing.T) {
	config := model.Default()
	state := scheduler.State{
		Mode:          scheduler.Active{},
		ElapsedActive: 10 * time.Minute,
		IdleStreak:    time.Minute,
		ReadingMode:   true,
	}

	info := Project(state, config)

	assert.Equal(t, "10:00", info.NormalTimerValue)
	assert.True(t, info.ReadingMode)
}
