package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Pipeline status",
	Long: `Show the notification pipeline status: configured subscribers,
candidates still waiting for metadata, and messages queued for delivery.`,
	Args: cobra.NoArgs,
	RunE: runStatusCmd,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatusCmd(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)

	status, err := client.Status()
	if err != nil {
		return fmt.Errorf("status check failed: %w", err)
	}

	if jsonOutput {
		printJSON(status)
		return nil
	}

	uptime := (time.Duration(status.UptimeSeconds) * time.Second).String()
	fmt.Printf("notifyrr | Server: %s | Status: %s | Up: %s\n\n", serverURL, status.Status, uptime)
	fmt.Printf("  Subscribers:        %d\n", status.Subscribers)
	fmt.Printf("  Pending candidates: %d\n", status.PendingCandidates)
	fmt.Printf("  Queued messages:    %d\n", status.QueueDepth)

	return nil
}
