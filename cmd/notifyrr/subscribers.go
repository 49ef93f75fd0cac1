package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var subscribersCmd = &cobra.Command{
	Use:   "subscribers",
	Short: "List configured subscribers",
	Args:  cobra.NoArgs,
	RunE:  runSubscribersCmd,
}

func init() {
	rootCmd.AddCommand(subscribersCmd)
}

func runSubscribersCmd(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)

	subs, err := client.Subscribers()
	if err != nil {
		return fmt.Errorf("failed to fetch subscribers: %w", err)
	}

	if jsonOutput {
		printJSON(subs)
		return nil
	}

	if len(subs) == 0 {
		fmt.Println("No subscribers configured")
		return nil
	}

	fmt.Printf("Subscribers (%d):\n\n", len(subs))
	fmt.Printf("  %-20s %-8s %-9s %-9s %s\n", "NAME", "ENABLED", "ANNOUNCE", "MENTION", "CATEGORIES")
	fmt.Println("  " + strings.Repeat("-", 70))

	for _, s := range subs {
		fmt.Printf("  %-20s %-8v %-9v %-9s %s\n",
			s.Name, s.Enabled, s.AnnounceOnAdd, s.Mention, strings.Join(s.Categories, ","))
	}

	return nil
}
