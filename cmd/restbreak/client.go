package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"restbreak/internal/ipc"
)

// withClient dials the daemon, runs fn and closes the connection.
func withClient(fn func(client *ipc.Client) error) error {
	client, err := ipc.Dial()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func parseMinutes(value string) (int64, error) {
	minutes, err := strconv.ParseInt(value, 10, 64)
	if err != nil || minutes <= 0 {
		return 0, fmt.Errorf("minutes must be a positive integer, got %q", value)
	}
	return minutes, nil
}

var snoozeForCmd = &cobra.Command{
	Use:   "snooze-for <minutes>",
	Short: "Pause break prompts for a number of minutes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes, err := parseMinutes(args[0])
		if err != nil {
			return err
		}
		return withClient(func(client *ipc.Client) error {
			return client.SnoozeForMinutes(minutes)
		})
	},
}

var muteCmd = &cobra.Command{
	Use:   "mute",
	Short: "Pause break prompts until unmuted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(client *ipc.Client) error {
			return client.Mute()
		})
	},
}

var muteForCmd = &cobra.Command{
	Use:   "mute-for <minutes>",
	Short: "Pause break prompts for a number of minutes, tracking overdue time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes, err := parseMinutes(args[0])
		if err != nil {
			return err
		}
		return withClient(func(client *ipc.Client) error {
			return client.MuteForMinutes(minutes)
		})
	},
}

var unmuteCmd = &cobra.Command{
	Use:   "unmute",
	Short: "Resume break prompts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(client *ipc.Client) error {
			return client.Unmute()
		})
	},
}

var breakCmd = &cobra.Command{
	Use:   "break",
	Short: "Start a break right now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(client *ipc.Client) error {
			return client.TriggerBreak()
		})
	},
}

var setReadingModeCmd = &cobra.Command{
	Use:   "set-reading-mode <on|off>",
	Short: "Toggle reading mode, which keeps the countdown running while idle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var enabled bool
		switch args[0] {
		case "on":
			enabled = true
		case "off":
			enabled = false
		default:
			return fmt.Errorf("expected on or off, got %q", args[0])
		}
		return withClient(func(client *ipc.Client) error {
			return client.SetReadingMode(enabled)
		})
	},
}

func init() {
	rootCmd.AddCommand(
		snoozeForCmd,
		muteCmd,
		muteForCmd,
		unmuteCmd,
		breakCmd,
		setReadingModeCmd,
	)
}
