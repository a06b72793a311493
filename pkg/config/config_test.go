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

	assert.Equal(t, "http://localhost:8000", cfg.Backend.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout())
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL())
	assert.False(t, cfg.Journal.Enabled)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("REVIEW_BACKEND_BASEURL", "http://review.internal:9000")
	t.Setenv("REVIEW_CACHE_DRIVER", "none")
	t.Setenv("REVIEW_BACKEND_BREAKER_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://review.internal:9000", cfg.Backend.BaseURL)
	assert.Equal(t, "none", cfg.Cache.Driver)
	assert.True(t, cfg.Backend.Breaker.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Backend.Breaker.Timeout())
}

func TestLoadRejectsUnknownCacheDriver(t *testing.T) {
	t.Setenv("REVIEW_CACHE_DRIVER", "memcached")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.driver")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Backend: BackendConfig{BaseURL: "http://x", TimeoutSec: 1},
			Cache:   CacheConfig{Driver: "memory"},
		}
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.Backend.BaseURL = "  "
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Backend.TimeoutSec = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Journal = JournalConfig{Enabled: true}
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Backend.Breaker = BreakerConfig{Enabled: true}
	assert.Error(t, cfg.Validate())
}
