// Package config loads daemon configuration from file and environment
// variables and supports live reload of the schedule.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"restbreak/internal/core/model"
)

// Config holds the complete daemon configuration.
type Config struct {
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	State     StateConfig     `mapstructure:"state"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// SchedulerConfig defines the break schedule and tick cadence.
// Durations are strings ("20m", "90s") so the file reads naturally.
type SchedulerConfig struct {
	BreakInterval      string `mapstructure:"break_interval"`
	PrebreakWarning    string `mapstructure:"prebreak_warning"`
	BreakDuration      string `mapstructure:"break_duration"`
	IdleResetThreshold string `mapstructure:"idle_reset_threshold"`
	TickInterval       string `mapstructure:"tick_interval"`
	IdleSampleInterval string `mapstructure:"idle_sample_interval"`
	SaveInterval       string `mapstructure:"save_interval"`
}

// StateConfig defines where the state snapshot lives. An empty path
// resolves to the user config directory.
type StateConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig defines the Prometheus endpoint.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// Loader reads configuration and watches it for changes.
type Loader struct {
	viper *viper.Viper
}

// NewLoader creates a loader. configPath may be empty, in which case
// the standard locations are searched and a missing file falls back to
// defaults plus environment variables.
func NewLoader(configPath string) *Loader {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.config/restbreak")
		v.AddConfigPath("/etc/restbreak")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("RESTBREAK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{viper: v}
}

// Load reads the configuration. A missing file is not an error.
func (loader *Loader) Load() (*Config, error) {
	if err := loader.viper.ReadInConfig(); err != nil {
		// A missing file means defaults plus environment variables.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var config Config
	if err := loader.viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// Watch re-reads the file on change and hands a valid new Config to
// onChange. A reload that fails validation is reported to onError and
// the previous configuration stays in effect.
func (loader *Loader) Watch(onChange func(*Config), onError func(error)) {
	loader.viper.OnConfigChange(func(fsnotify.Event) {
		config, err := loader.Load()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(config)
	})
	loader.viper.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scheduler.break_interval", "20m")
	v.SetDefault("scheduler.prebreak_warning", "15s")
	v.SetDefault("scheduler.break_duration", "90s")
	v.SetDefault("scheduler.idle_reset_threshold", "90s")
	v.SetDefault("scheduler.tick_interval", "1s")
	v.SetDefault("scheduler.idle_sample_interval", "1s")
	v.SetDefault("scheduler.save_interval", "15s")

	v.SetDefault("state.path", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_addr", "127.0.0.1:9167")
}

// SchedulerModel parses the schedule durations into the model config.
func (config *Config) SchedulerModel() (model.Config, error) {
	parsed := model.Config{}
	fields := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"scheduler.break_interval", config.Scheduler.BreakInterval, &parsed.BreakInterval},
		{"scheduler.prebreak_warning", config.Scheduler.PrebreakWarning, &parsed.PrebreakWarning},
		{"scheduler.break_duration", config.Scheduler.BreakDuration, &parsed.BreakDuration},
		{"scheduler.idle_reset_threshold", config.Scheduler.IdleResetThreshold, &parsed.IdleResetThreshold},
	}
	for _, field := range fields {
		value, err := time.ParseDuration(field.value)
		if err != nil {
			return model.Config{}, fmt.Errorf("parse %s: %w", field.name, err)
		}
		*field.dst = value
	}
	if err := parsed.Validate(); err != nil {
		return model.Config{}, err
	}
	return parsed, nil
}

// TickInterval parses the scheduler tick cadence.
func (config *Config) TickInterval() (time.Duration, error) {
	return parsePositive("scheduler.tick_interval", config.Scheduler.TickInterval)
}

// IdleSampleInterval parses the idle polling cadence.
func (config *Config) IdleSampleInterval() (time.Duration, error) {
	return parsePositive("scheduler.idle_sample_interval", config.Scheduler.IdleSampleInterval)
}

// SaveInterval parses the maximum snapshot staleness.
func (config *Config) SaveInterval() (time.Duration, error) {
	return parsePositive("scheduler.save_interval", config.Scheduler.SaveInterval)
}

// Validate checks all fields parse and cross-field constraints hold.
func (config *Config) Validate() error {
	if _, err := config.SchedulerModel(); err != nil {
		return err
	}
	if _, err := config.TickInterval(); err != nil {
		return err
	}
	if _, err := config.IdleSampleInterval(); err != nil {
		return err
	}
	if _, err := config.SaveInterval(); err != nil {
		return err
	}
	if config.Metrics.Enabled && config.Metrics.ListenAddr == "" {
		return fmt.Errorf("metrics.listen_addr is required when metrics are enabled")
	}
	return nil
}

func parsePositive(name, value string) (time.Duration, error) {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, parsed)
	}
	return parsed, nil
}
