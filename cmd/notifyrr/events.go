package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent events",
	Long: `Show recent pipeline events, newest first.

Examples:
  notifyrr events                # Most recent events
  notifyrr events --entity item/abc123   # Full trail for one item`,
	RunE: runEventsCmd,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	eventsCmd.Flags().String("entity", "", "Show all events for one entity (<type>/<id>)")
}

func runEventsCmd(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	entity, _ := cmd.Flags().GetString("entity")

	client := NewClient(serverURL)
	events, err := client.Events(limit, entity)
	if err != nil {
		return fmt.Errorf("failed to fetch events: %w", err)
	}

	if jsonOutput {
		printJSON(events)
		return nil
	}

	if len(events.Items) == 0 {
		fmt.Println("No events")
		return nil
	}

	fmt.Printf("Recent Events (%d):\n\n", events.Total)
	fmt.Printf("  %-12s %-24s %-20s\n", "TIME", "TYPE", "ENTITY")
	fmt.Println("  " + strings.Repeat("-", 60))

	for _, e := range events.Items {
		t, _ := time.Parse(time.RFC3339, e.OccurredAt)
		entity := fmt.Sprintf("%s/%s", e.EntityType, e.EntityID)
		fmt.Printf("  %-12s %-24s %-20s\n", formatTimeAgo(t), e.EventType, entity)
	}

	return nil
}
