// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
// Tokens are issued by the upstream registration platform; this application
// only verifies them.
type JWTConfig interface {
	GetJWTSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetEnv() string
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// TuttsConfig provides settings for the external professional-status API.
type TuttsConfig interface {
	GetTuttsAPIURL() string
	GetTuttsToken() string
}

// SnapshotConfig provides the published spreadsheet export URLs.
type SnapshotConfig interface {
	GetRegistrySnapshotURL() string
	GetTrafficTagSnapshotURL() string
}

// EnrichmentConfig provides tuning knobs for the reconciliation engine.
type EnrichmentConfig interface {
	GetEnrichmentQuota() int
	GetOracleCallCap() int
	GetEnrichmentCooldown() time.Duration
	GetOracleCallDelay() time.Duration
}

// CronConfig provides the shared secret for machine-triggered runs.
type CronConfig interface {
	GetCronSecret() string
}

// SchedulerConfig provides settings for the background task scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetEnrichmentCronSpec() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	JWTSecret             string
	CORSAllowAll          bool
	CORSOrigins           []string
	CORSAllowCreds        bool
	TuttsAPIURL           string
	TuttsToken            string
	RegistrySnapshotURL   string
	TrafficTagSnapshotURL string
	CronSecret            string
	EnrichmentQuota       int
	OracleCallCap         int
	EnrichmentCooldown    time.Duration
	OracleCallDelay       time.Duration
	RedisURL              string
	RedisTLSInsecure      bool
	AsynqQueueName        string
	AsynqConcurrency      int
	EnrichmentCronSpec    string
}

// =============================================================================
// Interface Implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

func (c *Config) GetJWTSecret() string { return c.JWTSecret }

func (c *Config) GetEnv() string           { return c.Env }
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

func (c *Config) GetTuttsAPIURL() string { return c.TuttsAPIURL }
func (c *Config) GetTuttsToken() string  { return c.TuttsToken }

func (c *Config) GetRegistrySnapshotURL() string   { return c.RegistrySnapshotURL }
func (c *Config) GetTrafficTagSnapshotURL() string { return c.TrafficTagSnapshotURL }

func (c *Config) GetEnrichmentQuota() int              { return c.EnrichmentQuota }
func (c *Config) GetOracleCallCap() int                { return c.OracleCallCap }
func (c *Config) GetEnrichmentCooldown() time.Duration { return c.EnrichmentCooldown }
func (c *Config) GetOracleCallDelay() time.Duration    { return c.OracleCallDelay }

func (c *Config) GetCronSecret() string { return c.CronSecret }

func (c *Config) GetRedisURL() string           { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool     { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string     { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int      { return c.AsynqConcurrency }
func (c *Config) GetEnrichmentCronSpec() string { return c.EnrichmentCronSpec }

// =============================================================================
// Loading
// =============================================================================

// Load reads configuration from the environment, loading a local .env file
// first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		CORSAllowAll:          getBool("CORS_ALLOW_ALL", false),
		CORSOrigins:           getList("CORS_ORIGINS"),
		CORSAllowCreds:        getBool("CORS_ALLOW_CREDENTIALS", true),
		TuttsAPIURL:           getEnv("TUTTS_API_URL", "https://tutts.com.br/integracao"),
		TuttsToken:            os.Getenv("TUTTS_INTEGRACAO_TOKEN"),
		RegistrySnapshotURL:   os.Getenv("REGISTRY_SNAPSHOT_URL"),
		TrafficTagSnapshotURL: os.Getenv("TRAFFIC_TAG_SNAPSHOT_URL"),
		CronSecret:            os.Getenv("CRON_SECRET"),
		EnrichmentQuota:       getInt("ENRICHMENT_QUOTA", 50),
		OracleCallCap:         getInt("ORACLE_CALL_CAP", 50),
		EnrichmentCooldown:    getDuration("ENRICHMENT_COOLDOWN", 30*time.Minute),
		OracleCallDelay:       getDuration("ORACLE_CALL_DELAY", 150*time.Millisecond),
		RedisURL:              os.Getenv("REDIS_URL"),
		RedisTLSInsecure:      getBool("REDIS_TLS_INSECURE", false),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:      getInt("ASYNQ_CONCURRENCY", 10),
		EnrichmentCronSpec:    getEnv("ENRICHMENT_CRON_SPEC", "*/10 * * * *"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
