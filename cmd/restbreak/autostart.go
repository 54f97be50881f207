package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"restbreak/internal/platform"
)

var autostartCmd = &cobra.Command{
	Use:   "autostart",
	Short: "Manage starting the daemon at login",
}

var autostartEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Register the daemon to start at login",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("resolve executable path: %w", err)
		}
		service := platform.NewService()
		if err := service.EnableAutostart(appName, []string{execPath, "serve"}); err != nil {
			return err
		}
		fmt.Println("autostart enabled")
		return nil
	},
}

var autostartDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Remove the login autostart registration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		service := platform.NewService()
		if err := service.DisableAutostart(appName); err != nil {
			return err
		}
		fmt.Println("autostart disabled")
		return nil
	},
}

func init() {
	autostartCmd.AddCommand(autostartEnableCmd, autostartDisableCmd)
	rootCmd.AddCommand(autostartCmd)
}
