package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show delivery history",
	Long: `Show recent webhook deliveries, newest first.

Examples:
  notifyrr history                       # All recent deliveries
  notifyrr history -s general            # One subscriber (fuzzy name ok)
  notifyrr history --kind test           # Only test notifications`,
	Args: cobra.NoArgs,
	RunE: runHistoryCmd,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringP("subscriber", "s", "", "Filter by subscriber name")
	historyCmd.Flags().String("kind", "", "Filter by kind (media_added, test)")
	historyCmd.Flags().IntP("limit", "n", 20, "Number of records to show")
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	subscriber, _ := cmd.Flags().GetString("subscriber")
	kind, _ := cmd.Flags().GetString("kind")
	limit, _ := cmd.Flags().GetInt("limit")

	client := NewClient(serverURL)

	if subscriber != "" {
		resolved, err := resolveSubscriber(client, subscriber)
		if err != nil {
			return err
		}
		subscriber = resolved
	}

	hist, err := client.History(subscriber, kind, limit)
	if err != nil {
		return fmt.Errorf("failed to fetch history: %w", err)
	}

	if jsonOutput {
		printJSON(hist)
		return nil
	}

	if len(hist.Items) == 0 {
		fmt.Println("No deliveries recorded")
		return nil
	}

	fmt.Printf("Delivery History (%d):\n\n", hist.Total)
	fmt.Printf("  %-10s %-16s %-12s %-9s %s\n", "TIME", "SUBSCRIBER", "KIND", "RESULT", "TITLE")
	fmt.Println("  " + strings.Repeat("-", 75))

	for _, h := range hist.Items {
		result := "ok"
		if !h.Delivered {
			result = "FAILED"
		}
		fmt.Printf("  %-10s %-16s %-12s %-9s %s\n",
			formatTimeAgo(h.CreatedAt), h.Subscriber, h.Kind, result, h.Title)
		if h.Error != "" {
			fmt.Printf("  %12s error: %s\n", "", h.Error)
		}
	}

	return nil
}
