package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Environments the backend distinguishes. Dev-only operations (deposit
// force-complete) are rejected outside development.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config carries everything the binaries and flows read from the
// environment.
type Config struct {
	// APIBaseURL is the backend root, e.g. http://localhost:8080/api.
	APIBaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8080/api"`
	// APIToken is the opaque bearer credential passed on every call.
	APIToken string `env:"API_TOKEN"`
	// Environment selects dev-only behavior.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	// Port the devserver listens on.
	Port string `env:"SERVER_PORT" envDefault:"8080"`

	// DepositPollInterval between deposit status refetches.
	DepositPollInterval time.Duration `env:"DEPOSIT_POLL_INTERVAL" envDefault:"10s"`
	// DepositAutoCompleteDelay before a dev-mode deposit is force-completed.
	DepositAutoCompleteDelay time.Duration `env:"DEPOSIT_AUTOCOMPLETE_DELAY" envDefault:"10s"`
	// DevPaymentURL is the sentinel link identifying provider stub deposits.
	DevPaymentURL string `env:"DEV_PAYMENT_URL" envDefault:"https://example.com/keepz-dev-payment-placeholder"`
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.Environment != EnvDevelopment && cfg.Environment != EnvProduction {
		return nil, fmt.Errorf("unknown ENVIRONMENT %q", cfg.Environment)
	}
	return &cfg, nil
}

// IsDevelopment reports whether dev-only operations are allowed.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}
