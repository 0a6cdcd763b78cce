package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// transactionInfoCmd represents the transaction-info command
var transactionInfoCmd = &cobra.Command{
	Use:   "transaction-info <transactionId>",
	Short: "Fetch and verify a transaction from the App Store Server API",
	Long: `Fetch the signed transaction for a transaction ID from the App Store
Server API, verify it against the configured trust anchors and app identity,
and print the decoded payload as JSON.

Requires API_KEY_PATH, API_KEY_ID and API_ISSUER_ID to be configured.

Example:
  storekit transaction-info 2000000123456789`,
	Args: cobra.ExactArgs(1),
	RunE: runTransactionInfo,
}

var skipVerification bool

func init() {
	rootCmd.AddCommand(transactionInfoCmd)

	transactionInfoCmd.Flags().BoolVar(&skipVerification, "raw", false, "Print the raw signed payload without verifying it")
}

func runTransactionInfo(cmd *cobra.Command, args []string) error {
	transactionID := args[0]

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	resp, err := client.GetTransactionInfo(cmd.Context(), transactionID)
	if err != nil {
		return fmt.Errorf("failed to fetch transaction: %w", err)
	}

	if skipVerification {
		fmt.Println(resp.SignedTransactionInfo)
		return nil
	}

	verifier, err := newVerifier()
	if err != nil {
		return err
	}

	result, err := verifier.VerifyTransaction(cmd.Context(), resp.SignedTransactionInfo)
	if err != nil {
		return fmt.Errorf("transaction failed verification: %w", err)
	}

	appLogger.Info("transaction verified",
		slog.String("transaction_id", result.Payload.TransactionID),
		slog.String("trust", result.TrustSource.String()))

	out, err := json.MarshalIndent(result.Payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render payload: %w", err)
	}
	fmt.Println(string(out))

	return nil
}
