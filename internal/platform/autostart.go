package platform

import (
	"fmt"
	"os"
)

// Service defines the OS-specific helpers needed by the daemon.
type Service interface {
	GetConfigDir() (string, error)
	// EnableAutostart registers command (an executable path followed by
	// its arguments) to start at login.
	EnableAutostart(appName string, command []string) error
	DisableAutostart(appName string) error
}

type platformService struct{}

// NewService returns a platform-specific implementation.
func NewService() Service {
	return &platformService{}
}

// GetConfigDir returns the OS-standard configuration directory.
func (service *platformService) GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err == nil && configDir != "" {
		return configDir, nil
	}

	homeDir, homeErr := os.UserHomeDir()
	if homeErr != nil {
		if err != nil {
			return "", fmt.Errorf("get config dir: %w", err)
		}
		return "", fmt.Errorf("get config dir: %w", homeErr)
	}

	return fallbackConfigDir(homeDir), nil
}

func validateAutostartArgs(appName string, command []string) error {
	if appName == "" {
		return fmt.Errorf("enable autostart: app name is empty")
	}
	if len(command) == 0 || command[0] == "" {
		return fmt.Errorf("enable autostart: command is empty")
	}
	return nil
}
