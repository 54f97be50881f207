package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidateRejectsNonPositiveDurations(t *testing.T) {
	cases := map[string]func(*Config){
		"break_interval":       func(c *Config) { c.BreakInterval = 0 },
		"prebreak_warning":     func(c *Config) { c.PrebreakWarning = -time.Second },
		"break_duration":       func(c *Config) { c.BreakDuration = 0 },
		"idle_reset_threshold": func(c *Config) { c.IdleResetThreshold = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			config := Default()
			mutate(&config)
			assert.Error(t, config.Validate())
		})
	}
}

func TestValidateRejectsWarningNotShorterThanInterval(t *testing.T) {
	config := Default()
	config.BreakInterval = 15 * time.Second
	config.PrebreakWarning = 15 * time.Second

	assert.Error(t, config.Validate())
}
