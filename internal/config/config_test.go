package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_1")
	t.Setenv("SITE_DOMAIN", "http://localhost:5173")
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "memory")
}

func TestLoadMemoryDriver(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SWEEP_INTERVAL", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, "5000", cfg.Port)
}

func TestLoadReportsAllMissing(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_DRIVER", "mysql")
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_NAME", "")

	_, err := Load()
	require.Error(t, err)
	for _, key := range []string{"STRIPE_SECRET_KEY", "DB_USER", "DB_HOST", "DB_NAME"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_DRIVER", "sqlite")

	_, err := Load()
	assert.ErrorContains(t, err, "sqlite")
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestLoadCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")

	cfg := LoadCacheConfig()
	assert.True(t, cfg.Methods["GET"])
	assert.True(t, cfg.Methods["HEAD"])
	assert.False(t, cfg.Methods["POST"])
}

func TestCachePathsAndExemptions(t *testing.T) {
	cfg := LoadCacheConfig()
	assert.True(t, cfg.Cacheable("/parcels"))
	assert.True(t, cfg.Cacheable("/users/a@x.com/role"))
	assert.False(t, cfg.Cacheable("/payments"))
	assert.False(t, cfg.Cacheable("/parcelsX"))

	rl := LoadRateLimitConfig()
	assert.True(t, rl.IsExempt("/webhooks/stripe"))
	assert.True(t, rl.IsExempt("/healthz"))
	assert.False(t, rl.IsExempt("/parcels"))
}
