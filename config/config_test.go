package config

import (
	"testing"
	"time"

	"github.com/memocracy/gatekeeper/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ServerAddr)
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, 200, cfg.ContributionSignatureLimit)
	assert.Equal(t, 10, cfg.ContributionBatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.ContributionBatchPause)
	assert.True(t, cfg.ContributionUSDDivisor.Equal(decimal.NewFromInt(1_000_000)))
	assert.Equal(t, []string{USDCMint, USDTMint}, cfg.StablecoinMints)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.EventsEnabled)
	assert.Empty(t, cfg.OperatorAPIKey)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://gk:secret@db:5432/gatekeeper")
	t.Setenv("CONTRIBUTION_BATCH_SIZE", "4")
	t.Setenv("CONTRIBUTION_USD_DIVISOR", "1000000000")
	t.Setenv("STABLECOIN_MINTS", " mintA, ,mintB ")
	t.Setenv("CORS_ORIGINS", "https://memocracy.app")
	t.Setenv("SESSION_TTL_MINUTES", "30")
	t.Setenv("RPC_TIMEOUT_SECONDS", "not-a-number")
	t.Setenv("OPERATOR_API_KEY", "op-key-0123456789")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.StoreBackend)
	assert.Equal(t, 4, cfg.ContributionBatchSize)
	assert.True(t, cfg.ContributionUSDDivisor.Equal(decimal.NewFromInt(1_000_000_000)))
	assert.Equal(t, []string{"mintA", "mintB"}, cfg.StablecoinMints)
	assert.Equal(t, []string{"https://memocracy.app"}, cfg.CORSOrigins)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	// unparsable values fall back to the default
	assert.Equal(t, 15*time.Second, cfg.RPCTimeout)
	assert.Equal(t, "post****eper", cfg.MaskedDatabaseURL())
	assert.Equal(t, "op-k****6789", cfg.MaskedOperatorAPIKey())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"STORE_BACKEND": "dynamo"}},
		{"postgres without dsn", map[string]string{"STORE_BACKEND": "postgres"}},
		{"signature limit too large", map[string]string{"CONTRIBUTION_SIGNATURE_LIMIT": "5000"}},
		{"zero batch size", map[string]string{"CONTRIBUTION_BATCH_SIZE": "0"}},
		{"negative divisor", map[string]string{"CONTRIBUTION_USD_DIVISOR": "-1"}},
		{"zero session ttl", map[string]string{"SESSION_TTL_MINUTES": "0"}},
		{"negative rate", map[string]string{"RPC_REQUESTS_PER_SECOND": "-2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.ErrorIs(t, err, core.ErrConfiguration)
		})
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "(not set)", maskSecret(""))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "abcd****mnop", maskSecret("abcdefghijklmnop"))
}
