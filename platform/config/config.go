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
	GetPublicFormRatePerMinute() int
}

// TelegramConfig provides settings for the Telegram Bot API client and webhook.
type TelegramConfig interface {
	GetTelegramBotToken() string
	GetTelegramAPIURL() string
	GetTelegramWebhookURL() string
	GetTelegramWebhookSecret() string
	IsTelegramEnabled() bool
}

// SchedulerConfig provides settings for the asynq client and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetNotifyRetryDelay() time.Duration
}

// LinkStoreConfig selects where pending Telegram linking state lives.
type LinkStoreConfig interface {
	GetLinkStore() string
	GetLinkPendingTTL() time.Duration
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// EmailConfig provides settings for SMTP delivery of admin alerts.
type EmailConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromAddress() string
	GetEmailFromName() string
	GetAppBaseURL() string
	IsEmailEnabled() bool
}

// LeadsConfig provides settings used by the leads module.
type LeadsConfig interface {
	GetPhoneDefaultRegion() string
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
	PublicFormRatePerMinute int
	AppBaseURL              string
	TelegramBotToken        string
	TelegramAPIURL          string
	TelegramWebhookURL      string
	TelegramWebhookSecret   string
	RedisURL                string
	RedisTLSInsecure        bool
	AsynqQueueName          string
	AsynqConcurrency        int
	NotifyRetryDelay        time.Duration
	LinkStore               string
	LinkPendingTTL          time.Duration
	PhoneDefaultRegion      string
	SMTPHost                string
	SMTPPort                int
	SMTPUsername            string
	SMTPPassword            string
	EmailFromAddress        string
	EmailFromName           string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string            { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool          { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string       { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool        { return c.CORSAllowCreds }
func (c *Config) GetPublicFormRatePerMinute() int { return c.PublicFormRatePerMinute }

// TelegramConfig implementation
func (c *Config) GetTelegramBotToken() string      { return c.TelegramBotToken }
func (c *Config) GetTelegramAPIURL() string        { return c.TelegramAPIURL }
func (c *Config) GetTelegramWebhookURL() string    { return c.TelegramWebhookURL }
func (c *Config) GetTelegramWebhookSecret() string { return c.TelegramWebhookSecret }
func (c *Config) IsTelegramEnabled() bool          { return c.TelegramBotToken != "" }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool          { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string          { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int           { return c.AsynqConcurrency }
func (c *Config) GetNotifyRetryDelay() time.Duration { return c.NotifyRetryDelay }

// LinkStoreConfig implementation
func (c *Config) GetLinkStore() string              { return c.LinkStore }
func (c *Config) GetLinkPendingTTL() time.Duration { return c.LinkPendingTTL }

// EmailConfig implementation
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetAppBaseURL() string       { return c.AppBaseURL }
func (c *Config) IsEmailEnabled() bool {
	return c.SMTPHost != "" && c.EmailFromAddress != ""
}

// LeadsConfig implementation
func (c *Config) GetPhoneDefaultRegion() string { return c.PhoneDefaultRegion }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
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
		PublicFormRatePerMinute: mustInt(getEnv("PUBLIC_FORM_RATE_PER_MINUTE", "10")),
		AppBaseURL:              getEnv("APP_BASE_URL", "http://localhost:3000"),
		TelegramBotToken:        getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAPIURL:          getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		TelegramWebhookURL:      getEnv("TELEGRAM_WEBHOOK_URL", ""),
		TelegramWebhookSecret:   getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
		RedisURL:                getEnv("REDIS_URL", ""),
		RedisTLSInsecure:        strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:          getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:        mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		NotifyRetryDelay:        mustDuration(getEnv("NOTIFY_RETRY_DELAY", "1m")),
		LinkStore:               strings.ToLower(getEnv("LINK_STORE", "memory")),
		LinkPendingTTL:          mustDuration(getEnv("LINK_PENDING_TTL", "15m")),
		PhoneDefaultRegion:      strings.ToUpper(getEnv("PHONE_DEFAULT_REGION", "UZ")),
		SMTPHost:                getEnv("SMTP_HOST", ""),
		SMTPPort:                mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:            getEnv("SMTP_USERNAME", ""),
		SMTPPassword:            getEnv("SMTP_PASSWORD", ""),
		EmailFromAddress:        getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:           getEnv("EMAIL_FROM_NAME", "Dealer CRM"),
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
	if cfg.LinkStore != "memory" && cfg.LinkStore != "redis" {
		return nil, fmt.Errorf("LINK_STORE must be memory or redis, got %q", cfg.LinkStore)
	}
	if cfg.LinkStore == "redis" && cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required when LINK_STORE is redis")
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
	result, err := strconv.Atoi(strings.TrimSpace(value))
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
