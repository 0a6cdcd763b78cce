package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/storekit-community/appstore-server-go/internal/appstore"
	"github.com/storekit-community/appstore-server-go/internal/config"
	"github.com/storekit-community/appstore-server-go/internal/crypto"
	"github.com/storekit-community/appstore-server-go/internal/logger"
	"github.com/storekit-community/appstore-server-go/internal/server"
	"github.com/storekit-community/appstore-server-go/internal/version"
)

func main() {
	cmd := &cobra.Command{
		Use:   "storekit-receiver",
		Short: "App Store Server Notification receiver",
		Long:  `storekit-receiver verifies App Store Server Notifications (v2) posted to its webhook endpoint`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	v := version.Get()
	cmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.NewServerConfig()
	if err != nil {
		log.Printf("failed to load configuration: %v", err.Error())
		os.Exit(1)
	}

	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

	appLogger.Info("Configuration loaded",
		slog.String("ENVIRONMENT", cfg.Environment),
		slog.String("HOST", cfg.Host),
		slog.Int("PORT", cfg.Port),
		slog.String("LOG_LEVEL", cfg.LogLevel),
		slog.String("APP_STORE_ENVIRONMENT", cfg.AppStoreEnvironment),
		slog.String("BUNDLE_ID", cfg.BundleID),
		slog.String("ROOT_CERTS_DIR", cfg.RootCertsDir),
		slog.Bool("ENABLE_ONLINE_CHECKS", cfg.EnableOnlineChecks),
	)

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

	if !appstore.Environment(cfg.AppStoreEnvironment).SkipsChainVerification() {
		anchors, err := crypto.LoadTrustAnchorsFromDir(cfg.RootCertsDir)
		if err != nil {
			appLogger.Error("Failed to load trust anchors", slog.String("error", err.Error()))
			os.Exit(1)
		}
		verifierCfg.RootCertificates = anchors
		appLogger.Info("trust anchors loaded", slog.Int("count", len(anchors)))
	}

	verifier, err := appstore.NewSignedDataVerifier(verifierCfg)
	if err != nil {
		appLogger.Error("Failed to create verifier", slog.String("error", err.Error()))
		os.Exit(1)
	}

	appLogger.Info("Starting server", slog.String("version", version.Get().Version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(cfg, verifier, appLogger)
	if err != nil {
		appLogger.Error("Failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(ctx); err != nil {
		appLogger.Error("Server error", slog.String("error", err.Error()))
		return err
	}

	appLogger.Info("server shutdown complete")
	return nil
}
