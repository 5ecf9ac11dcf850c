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

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	GetPublicRateLimit() float64
	GetPublicRateBurst() int
}

// SchedulerConfig provides settings for the asynq delivery queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// SMSConfig provides settings for the SMS verification provider.
type SMSConfig interface {
	GetTwilioAccountSID() string
	GetTwilioAuthToken() string
	GetTwilioVerifyServiceSID() string
	IsSMSEnabled() bool
}

// VerificationConfig provides settings for the phone verification subsystem.
type VerificationConfig interface {
	SMSConfig
	GetOTPResendCooldown() time.Duration
	GetOTPMaxAttempts() int
	GetSkipPhoneVerification() bool
}

// DeliveryConfig provides settings for CRM and tracking fan-out.
type DeliveryConfig interface {
	GetCRMWebhookURL() string
	GetTrackingCollectorURLs() []string
	GetDeliveryTimeout() time.Duration
}

// SubmissionConfig provides settings for the lead submission orchestrator.
type SubmissionConfig interface {
	GetLeadPersistAttempts() int
	GetLeadPersistBackoff() time.Duration
}

// AlertConfig provides settings for operational alert email.
type AlertConfig interface {
	IsAlertEnabled() bool
	GetAlertSMTPHost() string
	GetAlertSMTPPort() int
	GetAlertSMTPUsername() string
	GetAlertSMTPPassword() string
	GetAlertFromAddress() string
	GetAlertToAddress() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	PublicRateLimit float64
	PublicRateBurst int

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	TwilioAccountSID       string
	TwilioAuthToken        string
	TwilioVerifyServiceSID string
	SMSEnabled             bool

	OTPResendCooldown     time.Duration
	OTPMaxAttempts        int
	SkipPhoneVerification bool

	CRMWebhookURL         string
	TrackingCollectorURLs []string
	DeliveryTimeout       time.Duration

	LeadPersistAttempts int
	LeadPersistBackoff  time.Duration

	AlertEnabled      bool
	AlertSMTPHost     string
	AlertSMTPPort     int
	AlertSMTPUsername string
	AlertSMTPPassword string
	AlertFromAddress  string
	AlertToAddress    string
}

// Load reads configuration from the environment (and .env when present) and
// validates it. Missing required values fail fast at startup.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smsEnabled := strings.EqualFold(getEnv("SMS_ENABLED", "true"), "true")
	alertEnabled := strings.EqualFold(getEnv("ALERT_EMAIL_ENABLED", "false"), "true")

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		CORSAllowAll:   corsAllowAll,
		CORSOrigins:    corsOrigins,
		CORSAllowCreds: strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),

		PublicRateLimit: mustFloat(getEnv("PUBLIC_RATE_LIMIT", "10")),
		PublicRateBurst: mustInt(getEnv("PUBLIC_RATE_BURST", "20")),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),

		TwilioAccountSID:       getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:        getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioVerifyServiceSID: getEnv("TWILIO_VERIFY_SERVICE_SID", ""),
		SMSEnabled:             smsEnabled,

		OTPResendCooldown:     mustDuration(getEnv("OTP_RESEND_COOLDOWN", "60s")),
		OTPMaxAttempts:        mustInt(getEnv("OTP_MAX_ATTEMPTS", "5")),
		SkipPhoneVerification: strings.EqualFold(getEnv("SKIP_PHONE_VERIFICATION", "false"), "true"),

		CRMWebhookURL:         getEnv("CRM_WEBHOOK_URL", ""),
		TrackingCollectorURLs: splitCSV(getEnv("TRACKING_COLLECTOR_URLS", "")),
		DeliveryTimeout:       mustDuration(getEnv("DELIVERY_TIMEOUT", "10s")),

		LeadPersistAttempts: mustInt(getEnv("LEAD_PERSIST_ATTEMPTS", "3")),
		LeadPersistBackoff:  mustDuration(getEnv("LEAD_PERSIST_BACKOFF", "200ms")),

		AlertEnabled:      alertEnabled,
		AlertSMTPHost:     getEnv("ALERT_SMTP_HOST", ""),
		AlertSMTPPort:     mustInt(getEnv("ALERT_SMTP_PORT", "587")),
		AlertSMTPUsername: getEnv("ALERT_SMTP_USERNAME", ""),
		AlertSMTPPassword: getEnv("ALERT_SMTP_PASSWORD", ""),
		AlertFromAddress:  getEnv("ALERT_FROM_ADDRESS", ""),
		AlertToAddress:    getEnv("ALERT_TO_ADDRESS", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SMSEnabled && !cfg.SkipPhoneVerification {
		if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioVerifyServiceSID == "" {
			return nil, fmt.Errorf("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_VERIFY_SERVICE_SID are required when SMS is enabled")
		}
	}
	if cfg.OTPMaxAttempts < 1 {
		return nil, fmt.Errorf("OTP_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.LeadPersistAttempts < 1 {
		return nil, fmt.Errorf("LEAD_PERSIST_ATTEMPTS must be at least 1")
	}
	if cfg.AlertEnabled && (cfg.AlertSMTPHost == "" || cfg.AlertFromAddress == "" || cfg.AlertToAddress == "") {
		return nil, fmt.Errorf("ALERT_SMTP_HOST, ALERT_FROM_ADDRESS and ALERT_TO_ADDRESS are required when alert email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

func (c *Config) GetHTTPAddr() string         { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool       { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string    { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool     { return c.CORSAllowCreds }
func (c *Config) GetPublicRateLimit() float64 { return c.PublicRateLimit }
func (c *Config) GetPublicRateBurst() int     { return c.PublicRateBurst }

func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetTwilioAccountSID() string       { return c.TwilioAccountSID }
func (c *Config) GetTwilioAuthToken() string        { return c.TwilioAuthToken }
func (c *Config) GetTwilioVerifyServiceSID() string { return c.TwilioVerifyServiceSID }
func (c *Config) IsSMSEnabled() bool                { return c.SMSEnabled }

func (c *Config) GetOTPResendCooldown() time.Duration { return c.OTPResendCooldown }
func (c *Config) GetOTPMaxAttempts() int              { return c.OTPMaxAttempts }
func (c *Config) GetSkipPhoneVerification() bool      { return c.SkipPhoneVerification }

func (c *Config) GetCRMWebhookURL() string           { return c.CRMWebhookURL }
func (c *Config) GetTrackingCollectorURLs() []string { return c.TrackingCollectorURLs }
func (c *Config) GetDeliveryTimeout() time.Duration  { return c.DeliveryTimeout }

func (c *Config) GetLeadPersistAttempts() int            { return c.LeadPersistAttempts }
func (c *Config) GetLeadPersistBackoff() time.Duration   { return c.LeadPersistBackoff }

func (c *Config) IsAlertEnabled() bool          { return c.AlertEnabled }
func (c *Config) GetAlertSMTPHost() string      { return c.AlertSMTPHost }
func (c *Config) GetAlertSMTPPort() int         { return c.AlertSMTPPort }
func (c *Config) GetAlertSMTPUsername() string  { return c.AlertSMTPUsername }
func (c *Config) GetAlertSMTPPassword() string  { return c.AlertSMTPPassword }
func (c *Config) GetAlertFromAddress() string   { return c.AlertFromAddress }
func (c *Config) GetAlertToAddress() string     { return c.AlertToAddress }

// =============================================================================
// Helpers
// =============================================================================

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
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

func mustFloat(value string) float64 {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
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
