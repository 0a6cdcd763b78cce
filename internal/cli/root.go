// Package cli implements the storekit command line tool.
//
// The CLI shares the server's environment-variable configuration
// (see internal/config/config.go for details)
package cli

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/storekit-community/appstore-server-go/internal/api"
	"github.com/storekit-community/appstore-server-go/internal/appstore"
	"github.com/storekit-community/appstore-server-go/internal/config"
	"github.com/storekit-community/appstore-server-go/internal/crypto"
	"github.com/storekit-community/appstore-server-go/internal/logger"
	"github.com/storekit-community/appstore-server-go/internal/version"
)

var (
	cfg       *config.ServerEnvironment
	appLogger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:               "storekit",
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	Short:             "App Store signed payload toolkit",
	Long:              `storekit verifies App Store signed payloads and calls the App Store Server API`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.NewServerConfig()
		if err != nil {
			log.Printf("failed to load configuration: %v", err.Error())
			return err
		}

		appLogger = logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)
		return nil
	},
}

func Execute() {
	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newVerifier builds a SignedDataVerifier from the loaded configuration.
func newVerifier() (*appstore.SignedDataVerifier, error) {
	verifierCfg := appstore.VerifierConfig{
		BundleID:                cfg.BundleID,
		Environment:             appstore.Environment(cfg.AppStoreEnvironment),
		EnableOnlineChecks:      cfg.EnableOnlineChecks,
		RevocationFailureClosed: cfg.RevocationFailClosed,
		OCSPTimeout:             cfg.OCSPTimeout,
	}
	if cfg.AppAppleID != 0 {
		appAppleID := cfg.AppAppleID
		verifierCfg.AppAppleID = &appAppleID
	}

	env := appstore.Environment(cfg.AppStoreEnvironment)
	if !env.SkipsChainVerification() {
		anchors, err := crypto.LoadTrustAnchorsFromDir(cfg.RootCertsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load trust anchors: %w", err)
		}
		verifierCfg.RootCertificates = anchors
	}

	return appstore.NewSignedDataVerifier(verifierCfg)
}

// newAPIClient builds an App Store Server API client from the loaded
// configuration. The API credentials are optional in the environment, so
// commands that need the client must call this and surface the error.
func newAPIClient() (*api.Client, error) {
	if cfg.APIKeyPath == "" {
		return nil, fmt.Errorf("API_KEY_PATH, API_KEY_ID and API_ISSUER_ID must be set to call the App Store Server API")
	}

	keyPEM, err := os.ReadFile(cfg.APIKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read API key: %w", err)
	}

	return api.NewClient(api.ClientConfig{
		SigningKeyPEM: keyPEM,
		KeyID:         cfg.APIKeyID,
		IssuerID:      cfg.APIIssuerID,
		BundleID:      cfg.BundleID,
		Environment:   appstore.Environment(cfg.AppStoreEnvironment),
	})
}
