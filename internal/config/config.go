package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix, e.g. SPLIT_SPECS_ENDPOINT.
const Prefix = "SPLIT_SPECS"

// Config holds all client configuration loaded from environment variables.
type Config struct {
	Endpoint       string        `envconfig:"ENDPOINT" default:"https://split-specs.appspot.com/query"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	PageSize       int           `envconfig:"PAGE_SIZE" default:"15"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile  string `envconfig:"LOG_FILE"` // defaults to ~/.split-specs/split-specs.log

	CredentialsFile string `envconfig:"CREDENTIALS_FILE"` // defaults to ~/.split-specs.yaml

	// Re-fetch policy after requesting the next spec
	NextSpecAttempts  int           `envconfig:"NEXT_SPEC_ATTEMPTS" default:"5"`
	NextSpecBaseDelay time.Duration `envconfig:"NEXT_SPEC_BASE_DELAY" default:"200ms"`
	NextSpecMaxDelay  time.Duration `envconfig:"NEXT_SPEC_MAX_DELAY" default:"2s"`
}

// Load reads the configuration from the environment and fills in path defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if cfg.LogFile == "" || cfg.CredentialsFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		if cfg.LogFile == "" {
			cfg.LogFile = filepath.Join(home, ".split-specs", "split-specs.log")
		}
		if cfg.CredentialsFile == "" {
			cfg.CredentialsFile = filepath.Join(home, ".split-specs.yaml")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges that envconfig cannot express.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("%s_ENDPOINT must not be empty", Prefix)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("%s_PAGE_SIZE must be positive, got %d", Prefix, c.PageSize)
	}
	if c.NextSpecAttempts <= 0 {
		return fmt.Errorf("%s_NEXT_SPEC_ATTEMPTS must be positive, got %d", Prefix, c.NextSpecAttempts)
	}
	return nil
}
