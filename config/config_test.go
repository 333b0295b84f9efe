package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8099", cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "USD", cfg.Ledger.DefaultCurrency)
	assert.Equal(t, "5", cfg.Ledger.PlatformFeePercent.String())
	assert.Equal(t, 5*time.Second, cfg.Ledger.TxTimeout)
	assert.Equal(t, "0 3 * * *", cfg.Reconcile.Schedule)
	assert.Empty(t, cfg.Redis.URL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://ledger@localhost/ledger")
	t.Setenv("LEDGER_PLATFORM_FEE_PERCENT", "2.5")
	t.Setenv("LEDGER_TX_TIMEOUT", "2s")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("RATE_LIMIT_REQUESTS", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "2.5", cfg.Ledger.PlatformFeePercent.String())
	assert.Equal(t, 2*time.Second, cfg.Ledger.TxTimeout)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 10, cfg.RateLimit.Requests)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"DB_DRIVER":                   "oracle",
		"LEDGER_DEFAULT_CURRENCY":     "EURO",
		"LEDGER_PLATFORM_FEE_PERCENT": "101",
		"LEDGER_TX_TIMEOUT":           "0s",
		"RATE_LIMIT_REQUESTS":         "0",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}

	t.Run("fee not a number", func(t *testing.T) {
		t.Setenv("LEDGER_PLATFORM_FEE_PERCENT", "five")
		_, err := Load()
		assert.Error(t, err)
	})
}
