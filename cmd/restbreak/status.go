package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"restbreak/internal/core/widget"
	"restbreak/internal/ipc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the daemon's current state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(client *ipc.Client) error {
			info, err := client.GetWidgetInfo()
			if err != nil {
				return err
			}
			printStatus(info)
			return nil
		})
	},
}

func printStatus(info widget.Info) {
	label := color.New(color.Bold)

	label.Print("Mode:          ")
	switch info.PresenceMode.Type {
	case "break":
		color.Green("on break (%s left)", info.PrebreakTimerValue)
	case "prebreak":
		color.Yellow("break in %s", info.PrebreakTimerValue)
	case "snoozed":
		color.Cyan("snoozed%s", untilSuffix(info.PresenceMode.Until))
	case "muted":
		color.Red("muted%s", untilSuffix(info.PresenceMode.Until))
	default:
		fmt.Println("counting down")
	}

	if info.PresenceMode.Type != "break" {
		label.Print("Next break in: ")
		fmt.Println(info.NormalTimerValue)
	}
	if info.OverdueValue != "" {
		label.Print("Overdue:       ")
		color.Red("%s", info.OverdueValue)
	}

	label.Print("Reading mode:  ")
	if info.ReadingMode {
		color.Yellow("on")
	} else {
		fmt.Println("off")
	}
}

func untilSuffix(until *time.Time) string {
	if until == nil {
		return ""
	}
	return " until " + until.Local().Format("15:04")
}

// widgetAPICmd groups the raw single-value queries consumed by shell
// widgets and status bars. Values are printed without a trailing
// newline so they can be embedded verbatim.
var widgetAPICmd = &cobra.Command{
	Use:   "widget-api",
	Short: "Raw state queries for status bar widgets",
}

func widgetValue(extract func(info widget.Info) string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return withClient(func(client *ipc.Client) error {
			info, err := client.GetWidgetInfo()
			if err != nil {
				return err
			}
			fmt.Print(extract(info))
			return nil
		})
	}
}

func init() {
	widgetAPICmd.AddCommand(
		&cobra.Command{
			Use:   "time-to-break",
			Short: "Print the next-break countdown as M:SS",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return widgetValue(func(info widget.Info) string {
					return info.NormalTimerValue
				})(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "overtime",
			Short: "Print the overdue counter as M:SS, empty when none",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return widgetValue(func(info widget.Info) string {
					return info.OverdueValue
				})(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "presence-mode",
			Short: "Print the current presence mode",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return widgetValue(func(info widget.Info) string {
					return info.PresenceMode.Type
				})(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "reading-mode",
			Short: "Print whether reading mode is on",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return widgetValue(func(info widget.Info) string {
					if info.ReadingMode {
						return "true"
					}
					return "false"
				})(cmd, args)
			},
		},
	)
	rootCmd.AddCommand(statusCmd, widgetAPICmd)
}
