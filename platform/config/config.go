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
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq-backed delayed task layer.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// DispatchConfig provides settings for the polling dispatcher.
type DispatchConfig interface {
	GetDispatchTickInterval() time.Duration
	GetDispatchItemTimeout() time.Duration
	GetCallBatchLimit() int
	GetMessageBatchLimit() int
	GetGraceSweepInterval() time.Duration
}

// GatewayConfig provides settings for the telephony/SMS bridge service.
type GatewayConfig interface {
	GetBridgeURL() string
	GetBridgeAPIKey() string
	GetBridgeRequestsPerSecond() float64
}

// ContentConfig provides settings for AI message/script generation.
type ContentConfig interface {
	GetGeminiAPIKey() string
	GetContentModel() string
}

// WebhookConfig provides settings for provider webhook authentication.
type WebhookConfig interface {
	GetWebhookAPIKey() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                     string
	HTTPAddr                string
	DatabaseURL             string
	JWTAccessSecret         string
	CORSAllowAll            bool
	CORSOrigins             []string
	CORSAllowCreds          bool
	RedisURL                string
	RedisTLSInsecure        bool
	AsynqQueueName          string
	AsynqConcurrency        int
	DispatchTickInterval    time.Duration
	DispatchItemTimeout     time.Duration
	CallBatchLimit          int
	MessageBatchLimit       int
	GraceSweepInterval      time.Duration
	BridgeURL               string
	BridgeAPIKey            string
	BridgeRequestsPerSecond float64
	GeminiAPIKey            string
	ContentModel            string
	WebhookAPIKey           string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// DispatchConfig implementation
func (c *Config) GetDispatchTickInterval() time.Duration { return c.DispatchTickInterval }
func (c *Config) GetDispatchItemTimeout() time.Duration  { return c.DispatchItemTimeout }
func (c *Config) GetCallBatchLimit() int                 { return c.CallBatchLimit }
func (c *Config) GetMessageBatchLimit() int              { return c.MessageBatchLimit }
func (c *Config) GetGraceSweepInterval() time.Duration   { return c.GraceSweepInterval }

// GatewayConfig implementation
func (c *Config) GetBridgeURL() string                 { return c.BridgeURL }
func (c *Config) GetBridgeAPIKey() string              { return c.BridgeAPIKey }
func (c *Config) GetBridgeRequestsPerSecond() float64  { return c.BridgeRequestsPerSecond }

// ContentConfig implementation
func (c *Config) GetGeminiAPIKey() string { return c.GeminiAPIKey }
func (c *Config) GetContentModel() string { return c.ContentModel }

// WebhookConfig implementation
func (c *Config) GetWebhookAPIKey() string { return c.WebhookAPIKey }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                     getEnv("APP_ENV", "development"),
		HTTPAddr:                getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		JWTAccessSecret:         getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:            corsAllowAll,
		CORSOrigins:             corsOrigins,
		CORSAllowCreds:          strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:                getEnv("REDIS_URL", ""),
		RedisTLSInsecure:        strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:          getEnv("ASYNQ_QUEUE", "engagement"),
		AsynqConcurrency:        mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		DispatchTickInterval:    mustDuration(getEnv("DISPATCH_TICK_INTERVAL", "20s")),
		DispatchItemTimeout:     mustDuration(getEnv("DISPATCH_ITEM_TIMEOUT", "30s")),
		CallBatchLimit:          mustInt(getEnv("DISPATCH_CALL_BATCH_LIMIT", "3")),
		MessageBatchLimit:       mustInt(getEnv("DISPATCH_MESSAGE_BATCH_LIMIT", "5")),
		GraceSweepInterval:      mustDuration(getEnv("GRACE_SWEEP_INTERVAL", "1h")),
		BridgeURL:               getEnv("BRIDGE_URL", ""),
		BridgeAPIKey:            getEnv("BRIDGE_API_KEY", ""),
		BridgeRequestsPerSecond: mustFloat(getEnv("BRIDGE_REQUESTS_PER_SECOND", "5")),
		GeminiAPIKey:            getEnv("GEMINI_API_KEY", ""),
		ContentModel:            getEnv("CONTENT_MODEL", "gemini-2.0-flash"),
		WebhookAPIKey:           getEnv("WEBHOOK_API_KEY", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.DispatchTickInterval <= 0 {
		return nil, fmt.Errorf("DISPATCH_TICK_INTERVAL must be a positive duration")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
