package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// MaxBatchSize is the largest number of IDs the detail endpoint accepts in one call.
const MaxBatchSize = 900

const (
	EnvGatewayURL = "CLOUDX_GATEWAY_URL"
	EnvCookie     = "CLOUDX_COOKIE"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Gateway  GatewayConfig  `toml:"gateway"`
	Session  SessionConfig  `toml:"session"`
	Import   ImportConfig   `toml:"import"`
	Database DatabaseConfig `toml:"database"`
}

// GatewayConfig contains settings for the local API gateway.
type GatewayConfig struct {
	BaseURL           string  `toml:"base_url"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// SessionConfig contains where the session cookie lives and how QR login behaves.
type SessionConfig struct {
	CookieFile       string `toml:"cookie_file"`
	QRImagePath      string `toml:"qr_image_path"`
	QRTimeoutSeconds int    `toml:"qr_timeout_seconds"`

	// Cookie is only ever populated from the environment.
	Cookie string `toml:"-"`
}

// ImportConfig contains the import pipeline's batching and retry policy.
type ImportConfig struct {
	CatalogPath           string `toml:"catalog_path"`
	BatchSize             int    `toml:"batch_size"`
	MaxAttempts           int    `toml:"max_attempts"`
	RetryDelaySeconds     int    `toml:"retry_delay_seconds"`
	RateLimitDelaySeconds int    `toml:"rate_limit_delay_seconds"`
	MaxRateLimitRetries   int    `toml:"max_rate_limit_retries"`
	FailureLog            string `toml:"failure_log"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// Timeout returns the gateway HTTP timeout.
func (g GatewayConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// QRTimeout returns how long to wait for a QR code to be scanned.
func (s SessionConfig) QRTimeout() time.Duration {
	return time.Duration(s.QRTimeoutSeconds) * time.Second
}

// RetryDelay returns the pause after a failed import attempt.
func (c ImportConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// RateLimitDelay returns the pause after the gateway reports rate limiting.
func (c ImportConfig) RateLimitDelay() time.Duration {
	return time.Duration(c.RateLimitDelaySeconds) * time.Second
}

// Validate checks the import policy for values the gateway or the retry loop cannot honour.
func (c *Config) Validate() error {
	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("%w: gateway.base_url is empty", ErrInvalidConfig)
	}
	if c.Import.BatchSize <= 0 || c.Import.BatchSize > MaxBatchSize {
		return fmt.Errorf("%w: import.batch_size must be between 1 and %d, got %d", ErrInvalidConfig, MaxBatchSize, c.Import.BatchSize)
	}
	if c.Import.MaxAttempts <= 0 {
		return fmt.Errorf("%w: import.max_attempts must be positive, got %d", ErrInvalidConfig, c.Import.MaxAttempts)
	}
	if c.Import.RetryDelaySeconds < 0 || c.Import.RateLimitDelaySeconds < 0 {
		return fmt.Errorf("%w: import delays cannot be negative", ErrInvalidConfig)
	}
	if c.Import.MaxRateLimitRetries < 0 {
		return fmt.Errorf("%w: import.max_rate_limit_retries cannot be negative", ErrInvalidConfig)
	}
	if c.Import.FailureLog == "" {
		return fmt.Errorf("%w: import.failure_log is empty", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv loads dotenv files (missing files are ignored) and applies environment overrides.
func (c *Config) ApplyEnv(files ...string) {
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}

	if v := os.Getenv(EnvGatewayURL); v != "" {
		c.Gateway.BaseURL = v
	}
	if v := os.Getenv(EnvCookie); v != "" {
		c.Session.Cookie = v
	}
}
