package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "SOURCE_KIND", "DB_PATH", "REDIS_ADDR", "HTTP_PORT", "GRPC_PORT", "CACHE_TTL", "TIMEZONE"} {
		t.Setenv(key, "")
	}

	cfg := LoadFromEnv()

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, SourceSQLite, cfg.SourceKind)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 50051, cfg.GRPCPort)
	assert.Equal(t, 5*time.Second, cfg.CacheTTL)
	assert.Equal(t, 5*time.Second, cfg.RefreshInterval)
	assert.False(t, cfg.CacheEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SOURCE_KIND", "http")
	t.Setenv("MONITOR_API_URL", "https://survey.example.com")
	t.Setenv("MONITOR_API_RPS", "2.5")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("GRPC_PORT", "not-a-number")
	t.Setenv("GRPC_REFLECTION_ENABLED", "true")
	t.Setenv("TIMEZONE", "UTC")

	cfg := LoadFromEnv()

	assert.Equal(t, SourceHTTP, cfg.SourceKind)
	assert.Equal(t, 2.5, cfg.MonitorAPIRPS)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 50051, cfg.GRPCPort, "unparsable values fall back")
	assert.True(t, cfg.GRPCReflectionEnabled)
	assert.True(t, cfg.CacheEnabled())
	assert.Equal(t, time.UTC, cfg.Location())
	require.NoError(t, cfg.Validate())
}

func validConfig() *Config {
	return &Config{
		AppEnv:            "test",
		SourceKind:        SourceSQLite,
		DBPath:            ":memory:",
		DBDriver:          "sqlite3",
		MonitorAPITimeout: time.Second,
		CacheTTL:          time.Second,
		HTTPPort:          8080,
		GRPCPort:          50051,
		Timezone:          "UTC",
		RecentLimit:       5,
		RefreshInterval:   time.Second,
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown env", func(c *Config) { c.AppEnv = "staging" }},
		{"unknown source", func(c *Config) { c.SourceKind = "postgres" }},
		{"sqlite without path", func(c *Config) { c.DBPath = "" }},
		{"http without url", func(c *Config) { c.SourceKind = SourceHTTP }},
		{"negative rps", func(c *Config) { c.MonitorAPIRPS = -1 }},
		{"zero ttl", func(c *Config) { c.CacheTTL = 0 }},
		{"port out of range", func(c *Config) { c.HTTPPort = 70000 }},
		{"ports collide", func(c *Config) { c.GRPCPort = c.HTTPPort }},
		{"recent limit zero", func(c *Config) { c.RecentLimit = 0 }},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
		{"zero refresh", func(c *Config) { c.RefreshInterval = 0 }},
	}

	require.NoError(t, validConfig().Validate())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("http source needs no db path", func(t *testing.T) {
		cfg := validConfig()
		cfg.SourceKind = SourceHTTP
		cfg.DBPath = ""
		cfg.MonitorAPIURL = "http://localhost:3000"
		assert.NoError(t, cfg.Validate())
	})
}

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		logger, err := NewLogger(&Config{AppEnv: env})
		require.NoError(t, err)
		assert.NotNil(t, logger)
	}
}
