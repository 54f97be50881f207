// Package storage persists scheduler state to YAML and reconciles it
// against wall-clock downtime on load.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"restbreak/internal/core/model"
	"restbreak/internal/core/scheduler"
)

const stateFileName = "state.yaml"

type yamlMode struct {
	Type string `yaml:"type"`
	// RemainingSeconds is set for prebreak and break modes.
	RemainingSeconds int `yaml:"remaining_seconds,omitempty"`
	// Until is set for snoozes and timed mutes, RFC 3339.
	Until string `yaml:"until,omitempty"`
}

type yamlState struct {
	ElapsedActiveSeconds int      `yaml:"elapsed_active_seconds"`
	OverdueSeconds       int      `yaml:"overdue_seconds"`
	Mode                 yamlMode `yaml:"mode"`
	ReadingMode          bool     `yaml:"reading_mode"`
	SavedAt              string   `yaml:"saved_at"`
}

// Store reads and writes scheduler state snapshots at a fixed path.
type Store struct {
	path   string
	config model.Config
	logger zerolog.Logger
	clock  scheduler.Clock
}

// NewStore creates a store for path. config drives load-time
// reconciliation; clock may be nil for the wall clock.
func NewStore(path string, config model.Config, clock scheduler.Clock, logger zerolog.Logger) *Store {
	if clock == nil {
		clock = scheduler.SystemClock()
	}
	return &Store{
		path:   path,
		config: config,
		clock:  clock,
		logger: logger.With().Str("component", "storage").Logger(),
	}
}

// DefaultPath resolves the state file location under the user config
// directory.
func DefaultPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, stateFileName), nil
}

// Load reads the snapshot and reconciles it against downtime since it
// was saved. A missing file yields (nil, nil) so the caller starts
// fresh; a corrupt file is an error.
func (store *Store) Load(now time.Time) (*scheduler.State, error) {
	rawData, err := os.ReadFile(store.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var fileData yamlState
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return nil, fmt.Errorf("parse state yaml: %w", err)
	}

	state, savedAt, err := decodeState(fileData)
	if err != nil {
		return nil, err
	}
	store.reconcile(state, savedAt, now)
	return state, nil
}

// Save writes the snapshot atomically: a temp file in the same
// directory followed by a rename, so a crash mid-write never leaves a
// truncated state file behind.
func (store *Store) Save(state scheduler.State) error {
	fileData := encodeState(state, store.clock.Now())

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal state yaml: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(store.path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmpPath := store.path + ".tmp"
	if err := os.WriteFile(tmpPath, serialized, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmpPath, store.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// reconcile folds the downtime between savedAt and now into the
// restored state. Downtime is never charged to the countdown; if it was
// long enough to count as a rest, the countdown restarts from zero.
func (store *Store) reconcile(state *scheduler.State, savedAt, now time.Time) {
	switch mode := state.Mode.(type) {
	case scheduler.OnBreak:
		// A break interrupted by shutdown is treated as taken.
		state.Mode = scheduler.Active{}
		state.ElapsedActive = 0
		state.Overdue = 0
	case scheduler.PreBreak:
		state.Mode = scheduler.Active{}
	case scheduler.Snoozed:
		if !now.Before(mode.Until) {
			state.Mode = scheduler.Active{}
		}
	case scheduler.Muted:
		if mode.Until != nil && !now.Before(*mode.Until) {
			state.Mode = scheduler.Active{}
			state.Overdue = 0
		}
	}

	if downtime := now.Sub(savedAt); downtime >= store.config.BreakDuration {
		if state.ElapsedActive > 0 || state.Overdue > 0 {
			store.logger.Info().
				Dur("downtime", downtime).
				Msg("downtime counted as a rest, countdown restarted")
		}
		state.ElapsedActive = 0
		state.Overdue = 0
	}
	state.LastTick = now
}

func encodeState(state scheduler.State, now time.Time) yamlState {
	fileData := yamlState{
		ElapsedActiveSeconds: int(state.ElapsedActive / time.Second),
		OverdueSeconds:       int(state.Overdue / time.Second),
		Mode:                 yamlMode{Type: string(state.Mode.Kind())},
		ReadingMode:          state.ReadingMode,
		SavedAt:              now.Format(time.RFC3339),
	}

	switch mode := state.Mode.(type) {
	case scheduler.PreBreak:
		fileData.Mode.RemainingSeconds = int(mode.Remaining / time.Second)
	case scheduler.OnBreak:
		fileData.Mode.RemainingSeconds = int(mode.Remaining / time.Second)
	case scheduler.Snoozed:
		fileData.Mode.Until = mode.Until.Format(time.RFC3339)
	case scheduler.Muted:
		if mode.Until != nil {
			fileData.Mode.Until = mode.Until.Format(time.RFC3339)
		}
	}
	return fileData
}

func decodeState(fileData yamlState) (*scheduler.State, time.Time, error) {
	savedAt, err := time.Parse(time.RFC3339, fileData.SavedAt)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("parse saved_at: %w", err)
	}

	state := &scheduler.State{
		ElapsedActive: time.Duration(fileData.ElapsedActiveSeconds) * time.Second,
		Overdue:       time.Duration(fileData.OverdueSeconds) * time.Second,
		ReadingMode:   fileData.ReadingMode,
	}
	if state.ElapsedActive < 0 {
		state.ElapsedActive = 0
	}
	if state.Overdue < 0 {
		state.Overdue = 0
	}

	mode, err := decodeMode(fileData.Mode)
	if err != nil {
		return nil, time.Time{}, err
	}
	state.Mode = mode
	return state, savedAt, nil
}

func decodeMode(fileData yamlMode) (scheduler.PresenceMode, error) {
	switch scheduler.ModeKind(fileData.Type) {
	case scheduler.KindNormal, "":
		return scheduler.Active{}, nil
	case scheduler.KindPreBreak:
		return scheduler.PreBreak{Remaining: time.Duration(fileData.RemainingSeconds) * time.Second}, nil
	case scheduler.KindBreak:
		return scheduler.OnBreak{Remaining: time.Duration(fileData.RemainingSeconds) * time.Second}, nil
	case scheduler.KindSnoozed:
		until, err := time.Parse(time.RFC3339, fileData.Until)
		if err != nil {
			return nil, fmt.Errorf("parse snooze until: %w", err)
		}
		return scheduler.Snoozed{Until: until}, nil
	case scheduler.KindMuted:
		if fileData.Until == "" {
			return scheduler.Muted{}, nil
		}
		until, err := time.Parse(time.RFC3339, fileData.Until)
		if err != nil {
			return nil, fmt.Errorf("parse mute until: %w", err)
		}
		return scheduler.Muted{Until: &until}, nil
	default:
		return nil, fmt.Errorf("unknown presence mode %q in state file", fileData.Type)
	}
}
