package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify an App Store signed payload",
	Long: `Verify an App Store signed payload against the configured trust anchors
and app identity, and print the decoded payload as JSON.

Example:
  storekit verify --type transaction --payload "eyJ..."
  storekit verify --type notification --payload-file ./notification.jws`,
	RunE: runVerify,
}

var (
	payloadType    string
	payloadToCheck string
	payloadFile    string
)

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&payloadType, "type", "transaction", "Payload type: transaction, renewal-info, notification or app-transaction")
	verifyCmd.Flags().StringVar(&payloadToCheck, "payload", "", "Signed payload to verify")
	verifyCmd.Flags().StringVar(&payloadFile, "payload-file", "", "Path to a file containing the signed payload")
	verifyCmd.MarkFlagsMutuallyExclusive("payload", "payload-file")
	verifyCmd.MarkFlagsOneRequired("payload", "payload-file")
}

func runVerify(cmd *cobra.Command, args []string) error {
	signedPayload := payloadToCheck
	if payloadFile != "" {
		raw, err := os.ReadFile(payloadFile)
		if err != nil {
			return fmt.Errorf("failed to read payload file: %w", err)
		}
		signedPayload = strings.TrimSpace(string(raw))
	}

	verifier, err := newVerifier()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	var payload any
	var trust fmt.Stringer
	switch payloadType {
	case "transaction":
		result, err := verifier.VerifyTransaction(ctx, signedPayload)
		if err != nil {
			return err
		}
		payload, trust = result.Payload, result.TrustSource
	case "renewal-info":
		result, err := verifier.VerifyRenewalInfo(ctx, signedPayload)
		if err != nil {
			return err
		}
		payload, trust = result.Payload, result.TrustSource
	case "notification":
		result, err := verifier.VerifyNotification(ctx, signedPayload)
		if err != nil {
			return err
		}
		payload, trust = result.Payload, result.TrustSource
	case "app-transaction":
		result, err := verifier.VerifyAppTransaction(ctx, signedPayload)
		if err != nil {
			return err
		}
		payload, trust = result.Payload, result.TrustSource
	default:
		return fmt.Errorf("invalid payload type: %s (must be transaction, renewal-info, notification or app-transaction)", payloadType)
	}

	appLogger.Info("payload verified",
		slog.String("type", payloadType),
		slog.String("trust", trust.String()))

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render payload: %w", err)
	}
	fmt.Println(string(out))

	return nil
}
