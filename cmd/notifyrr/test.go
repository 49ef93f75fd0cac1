package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/notifyrr/notifyrr/pkg/match"
)

var testCmd = &cobra.Command{
	Use:   "test <subscriber>",
	Short: "Send a test notification",
	Long: `Send a test notification to the named subscriber's webhook.

The name may be a prefix or close-enough variant; the closest configured
subscriber is used when the match is unambiguous.

Examples:
  notifyrr test general           # Exact name
  notifyrr test gen               # Prefix also matches "general"`,
	Args: cobra.ExactArgs(1),
	RunE: runTestCmd,
}

func init() {
	rootCmd.AddCommand(testCmd)
}

func runTestCmd(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)

	name, err := resolveSubscriber(client, args[0])
	if err != nil {
		return err
	}

	if err := client.Test(name); err != nil {
		return fmt.Errorf("test notification failed: %w", err)
	}

	fmt.Printf("Test notification sent to %q\n", name)
	return nil
}

// resolveSubscriber maps user input to a configured subscriber name,
// falling back to fuzzy matching for partial input.
func resolveSubscriber(client *Client, input string) (string, error) {
	subs, err := client.Subscribers()
	if err != nil {
		return "", fmt.Errorf("failed to fetch subscribers: %w", err)
	}
	if len(subs) == 0 {
		return "", fmt.Errorf("no subscribers configured")
	}

	names := make([]string, len(subs))
	for i, s := range subs {
		names[i] = s.Name
	}

	for _, n := range names {
		if n == input {
			return n, nil
		}
	}

	result := match.Best(input, names)
	if result.Confidence >= match.ConfidenceMedium {
		fmt.Printf("Using closest match: %q\n", result.Name)
		return result.Name, nil
	}

	return "", fmt.Errorf("no subscriber matches %q (configured: %s)", input, strings.Join(names, ", "))
}
