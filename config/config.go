// Package config handles loading and validating configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/memocracy/gatekeeper/core"
	"github.com/shopspring/decimal"
)

// Store backends
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Mainnet USDC and USDT mints
const (
	USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTMint = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

// Config holds all configuration values for the gatekeeper service.
type Config struct {
	// HTTP
	ServerAddr  string
	CORSOrigins []string

	// Logging
	LogLevel string

	// Storage
	StoreBackend string
	RedisURL     string
	DatabaseURL  string
	NonceTTL     time.Duration

	// Solana RPC
	SolanaRPCURL         string
	RPCTimeout           time.Duration
	RPCRequestsPerSecond float64
	RPCBurst             int

	// Contribution scan
	ContributionSignatureLimit int
	ContributionBatchSize      int
	ContributionBatchPause     time.Duration
	ContributionUSDDivisor     decimal.Decimal
	StablecoinMints            []string

	// Sessions
	SessionTTL        time.Duration
	SessionSigningKey string
	SessionCookieName string

	// Operator routes, closed when empty
	OperatorAPIKey string

	// Events
	EventsEnabled bool
}

// Load reads configuration from environment variables with fallback to .env file.
// Priority order: Environment variables > .env file > hardcoded defaults
func Load() (*Config, error) {
	// Attempt to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		ServerAddr:  getEnv("SERVER_ADDR", ":9000"),
		CORSOrigins: getEnvList("CORS_ORIGINS", nil),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", StoreMemory)),
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		NonceTTL:     time.Duration(getEnvInt("NONCE_TTL_SECONDS", 600)) * time.Second,

		SolanaRPCURL:         getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		RPCTimeout:           time.Duration(getEnvInt("RPC_TIMEOUT_SECONDS", 15)) * time.Second,
		RPCRequestsPerSecond: getEnvFloat("RPC_REQUESTS_PER_SECOND", 8),
		RPCBurst:             getEnvInt("RPC_BURST", 10),

		ContributionSignatureLimit: getEnvInt("CONTRIBUTION_SIGNATURE_LIMIT", 200),
		ContributionBatchSize:      getEnvInt("CONTRIBUTION_BATCH_SIZE", 10),
		ContributionBatchPause:     time.Duration(getEnvInt("CONTRIBUTION_BATCH_PAUSE_MS", 250)) * time.Millisecond,
		ContributionUSDDivisor:     getEnvDecimal("CONTRIBUTION_USD_DIVISOR", decimal.NewFromInt(1_000_000)),
		StablecoinMints:            getEnvList("STABLECOIN_MINTS", []string{USDCMint, USDTMint}),

		SessionTTL:        time.Duration(getEnvInt("SESSION_TTL_MINUTES", 24*60)) * time.Minute,
		SessionSigningKey: getEnv("SESSION_SIGNING_KEY", ""),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "gatekeeper_session"),

		OperatorAPIKey: getEnv("OPERATOR_API_KEY", ""),

		EventsEnabled: getEnvBool("EVENTS_ENABLED", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set and valid.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: REDIS_URL is required for the redis store", core.ErrConfiguration)
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for the postgres store", core.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: STORE_BACKEND must be memory, redis or postgres, got %q", core.ErrConfiguration, c.StoreBackend)
	}

	if c.EventsEnabled && c.RedisURL == "" {
		return fmt.Errorf("%w: REDIS_URL is required when EVENTS_ENABLED is set", core.ErrConfiguration)
	}

	if c.SolanaRPCURL == "" {
		return fmt.Errorf("%w: SOLANA_RPC_URL is required", core.ErrConfiguration)
	}

	if c.RPCTimeout <= 0 {
		return fmt.Errorf("%w: RPC_TIMEOUT_SECONDS must be positive", core.ErrConfiguration)
	}

	if c.RPCRequestsPerSecond < 0 {
		return fmt.Errorf("%w: RPC_REQUESTS_PER_SECOND must not be negative", core.ErrConfiguration)
	}

	if c.ContributionSignatureLimit < 1 || c.ContributionSignatureLimit > 1000 {
		return fmt.Errorf("%w: CONTRIBUTION_SIGNATURE_LIMIT must be between 1 and 1000", core.ErrConfiguration)
	}

	if c.ContributionBatchSize < 1 {
		return fmt.Errorf("%w: CONTRIBUTION_BATCH_SIZE must be at least 1", core.ErrConfiguration)
	}

	if !c.ContributionUSDDivisor.IsPositive() {
		return fmt.Errorf("%w: CONTRIBUTION_USD_DIVISOR must be positive", core.ErrConfiguration)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("%w: SESSION_TTL_MINUTES must be positive", core.ErrConfiguration)
	}

	if c.SessionCookieName == "" {
		return fmt.Errorf("%w: SESSION_COOKIE_NAME is required", core.ErrConfiguration)
	}

	return nil
}

// MaskedDatabaseURL returns the database URL with most characters hidden for logging.
func (c *Config) MaskedDatabaseURL() string {
	return maskSecret(c.DatabaseURL)
}

// MaskedOperatorAPIKey returns the operator key with most characters hidden for logging.
func (c *Config) MaskedOperatorAPIKey() string {
	return maskSecret(c.OperatorAPIKey)
}

// maskSecret hides all but the first and last 4 characters of a secret.
func maskSecret(s string) string {
	if len(s) <= 8 {
		if len(s) == 0 {
			return "(not set)"
		}
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer or returns a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty entries.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
