package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	SourceSQLite = "sqlite"
	SourceHTTP   = "http"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv                string        `validate:"required,oneof=development production test"`
	SourceKind            string        `validate:"required,oneof=sqlite http"`
	DBPath                string        `validate:"required_if=SourceKind sqlite"`
	DBDriver              string        `validate:"required_if=SourceKind sqlite"`
	MonitorAPIURL         string        `validate:"required_if=SourceKind http"`
	MonitorAPIRPS         float64       `validate:"gte=0"`
	MonitorAPITimeout     time.Duration `validate:"gt=0"`
	RedisAddr             string
	CacheTTL              time.Duration `validate:"gt=0"`
	HTTPPort              int           `validate:"min=1,max=65535"`
	GRPCPort              int           `validate:"min=1,max=65535,nefield=HTTPPort"`
	GRPCReflectionEnabled bool
	Timezone              string        `validate:"required"`
	RecentLimit           int           `validate:"min=1,max=100"`
	RefreshInterval       time.Duration `validate:"gt=0"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	return &Config{
		AppEnv:                getEnv("APP_ENV", "development"),
		SourceKind:            getEnv("SOURCE_KIND", SourceSQLite),
		DBPath:                getEnv("DB_PATH", "./data/survey.db"),
		DBDriver:              getEnv("DB_DRIVER", "sqlite3"),
		MonitorAPIURL:         getEnv("MONITOR_API_URL", ""),
		MonitorAPIRPS:         getFloat("MONITOR_API_RPS", 5),
		MonitorAPITimeout:     getDuration("MONITOR_API_TIMEOUT", 10*time.Second),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		CacheTTL:              getDuration("CACHE_TTL", 5*time.Second),
		HTTPPort:              getInt("HTTP_PORT", 8080),
		GRPCPort:              getInt("GRPC_PORT", 50051),
		GRPCReflectionEnabled: getBool("GRPC_REFLECTION_ENABLED", false),
		Timezone:              getEnv("TIMEZONE", "America/Sao_Paulo"),
		RecentLimit:           getInt("RECENT_LIMIT", 5),
		RefreshInterval:       getDuration("REFRESH_INTERVAL", 5*time.Second),
	}
}

// Validate checks field constraints and that Timezone names a known location.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid config: timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured timezone, or UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CacheEnabled reports whether a redis address is configured.
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}
