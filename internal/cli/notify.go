package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// testNotificationCmd represents the test-notification command
var testNotificationCmd = &cobra.Command{
	Use:   "test-notification",
	Short: "Request a test notification from the App Store",
	Long: `Ask the App Store to send a TEST notification to the server URL
registered in App Store Connect, or check the delivery status of a previous
request.

Example:
  storekit test-notification
  storekit test-notification --token ce3af791-365e-4c60-841b-1674b43c1609`,
	RunE: runTestNotification,
}

var testNotificationToken string

func init() {
	rootCmd.AddCommand(testNotificationCmd)

	testNotificationCmd.Flags().StringVar(&testNotificationToken, "token", "", "Check the status of a previously requested test notification")
}

func runTestNotification(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	if testNotificationToken != "" {
		resp, err := client.GetTestNotificationStatus(cmd.Context(), testNotificationToken)
		if err != nil {
			return fmt.Errorf("failed to check test notification: %w", err)
		}

		for _, attempt := range resp.SendAttempts {
			appLogger.Info("send attempt",
				slog.Int64("date", attempt.AttemptDate),
				slog.String("result", string(attempt.SendAttemptResult)))
		}
		fmt.Println(resp.SignedPayload)
		return nil
	}

	resp, err := client.RequestTestNotification(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to request test notification: %w", err)
	}

	appLogger.Info("test notification requested",
		slog.String("token", resp.TestNotificationToken))
	fmt.Println(resp.TestNotificationToken)

	return nil
}
