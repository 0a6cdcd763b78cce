package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"

	"github.com/storekit-community/appstore-server-go/internal/appstore"
)

// Environment variables with defaults
type ServerEnvironment struct {

	// http server settings
	Environment           string        `env:"ENVIRONMENT,default=dev"`
	Host                  string        `env:"HOST,default=0.0.0.0"`
	Port                  int           `env:"PORT,default=8080"`
	LogLevel              string        `env:"LOG_LEVEL,default=debug"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	ReadTimeout           time.Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout          time.Duration `env:"WRITE_TIMEOUT,default=15s"`
	IdleTimeout           time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	RateLimitRPS          int32         `env:"RATE_LIMIT_RPS,default=100"`
	RateLimitBurst        int32         `env:"RATE_LIMIT_BURST,default=200"`
	MaxRequestBodySize    int64         `env:"MAX_REQUEST_BODY_SIZE,default=1048576"`

	// payload verification settings
	AppStoreEnvironment  string        `env:"APP_STORE_ENVIRONMENT,default=Sandbox"`
	AppAppleID           int64         `env:"APP_APPLE_ID,default=0"`
	EnableOnlineChecks   bool          `env:"ENABLE_ONLINE_CHECKS,default=false"`
	RevocationFailClosed bool          `env:"REVOCATION_FAIL_CLOSED,default=false"`
	OCSPTimeout          time.Duration `env:"OCSP_TIMEOUT,default=5s"`

	// App Store Server API credentials; optional, only needed by commands
	// that call the store
	APIKeyPath  string `env:"API_KEY_PATH"`
	APIKeyID    string `env:"API_KEY_ID"`
	APIIssuerID string `env:"API_ISSUER_ID"`

	// RootCertsDir is required unless APP_STORE_ENVIRONMENT is a local
	// environment (Xcode/LocalTesting), which never verifies chains
	RootCertsDir string `env:"ROOT_CERTS_DIR"`

	// Required configuration - must be set by environment variables
	BundleID string `env:"BUNDLE_ID,required=true"`
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"prod":    true,
	"staging": true,
}

// NewServerConfig loads environment variables and returns a ServerEnvironment struct that contains the values
func NewServerConfig() (*ServerEnvironment, error) {
	var cfg ServerEnvironment

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateConfig checks for required env variables
func validateConfig(cfg *ServerEnvironment) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}

	if !appstore.Environment(cfg.AppStoreEnvironment).Recognized() {
		return fmt.Errorf("invalid APP_STORE_ENVIRONMENT: %s", cfg.AppStoreEnvironment)
	}
	if appstore.Environment(cfg.AppStoreEnvironment) == appstore.EnvironmentProduction && cfg.AppAppleID == 0 {
		return fmt.Errorf("APP_APPLE_ID is required when APP_STORE_ENVIRONMENT is Production")
	}
	if !appstore.Environment(cfg.AppStoreEnvironment).SkipsChainVerification() && cfg.RootCertsDir == "" {
		return fmt.Errorf("ROOT_CERTS_DIR is required when APP_STORE_ENVIRONMENT is %s", cfg.AppStoreEnvironment)
	}

	if cfg.RateLimitRPS < 1 {
		return fmt.Errorf("RATE_LIMIT_RPS must be at least 1")
	}
	if cfg.RateLimitBurst < cfg.RateLimitRPS {
		return fmt.Errorf("RATE_LIMIT_BURST (%d) cannot be less than RATE_LIMIT_RPS (%d)",
			cfg.RateLimitBurst, cfg.RateLimitRPS)
	}
	if cfg.MaxRequestBodySize < 1024 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be at least 1024 bytes")
	}
	if cfg.OCSPTimeout < time.Second {
		return fmt.Errorf("OCSP_TIMEOUT must be at least 1s")
	}

	// API credentials are all-or-nothing
	hasAny := cfg.APIKeyPath != "" || cfg.APIKeyID != "" || cfg.APIIssuerID != ""
	hasAll := cfg.APIKeyPath != "" && cfg.APIKeyID != "" && cfg.APIIssuerID != ""
	if hasAny && !hasAll {
		return fmt.Errorf("API_KEY_PATH, API_KEY_ID and API_ISSUER_ID must all be set together")
	}

	return nil
}
