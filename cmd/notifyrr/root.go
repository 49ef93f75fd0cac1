package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	serverURL  string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "notifyrr",
	Short: "CLI client for the notifyrr webhook notifier",
	Long: `notifyrr - CLI client for the notifyrr webhook notifier

Inspect subscribers, delivery history, and pipeline status, and fire
test notifications at configured webhooks.

Run 'notifyrrd' to start the server daemon.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8686", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("notifyrr {{.Version}}\n")
}
