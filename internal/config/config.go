package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string

	// AuthJWTSecret signs/verifies the patient session tokens issued by the
	// identity provider in front of this service.
	AuthJWTSecret string

	// AdminJWTSecret protects the administrative lifecycle endpoints.
	AdminJWTSecret string

	// Stripe checkout configuration.
	StripeSecretKey     string
	StripeWebhookSecret string
	StripeSuccessURL    string
	StripeCancelURL     string
	StripeDryRun        bool

	Currency             string
	ConsultationFeeCents int

	// Booking window: earliest and latest acceptable scheduled time,
	// measured from the moment of booking.
	BookingMinLead  time.Duration
	BookingMaxAhead time.Duration

	ReconcileInterval    time.Duration
	ReconcileBatchSize   int
	WebhookDedupeTTL     time.Duration
	NotifyStatusChannel  string
	NotifyEmailEnabled   bool
	NotifyEmailRecipient string

	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		AuthJWTSecret:  getEnv("AUTH_JWT_SECRET", ""),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeSuccessURL:    getEnv("STRIPE_SUCCESS_URL", ""),
		StripeCancelURL:     getEnv("STRIPE_CANCEL_URL", ""),
		StripeDryRun:        getEnvAsBool("STRIPE_DRY_RUN", false),

		Currency:             strings.ToLower(getEnv("PAYMENT_CURRENCY", "usd")),
		ConsultationFeeCents: getEnvAsInt("CONSULTATION_FEE_CENTS", 2990),

		BookingMinLead:  getEnvAsDuration("BOOKING_MIN_LEAD", 30*time.Minute),
		BookingMaxAhead: getEnvAsDuration("BOOKING_MAX_AHEAD", 90*24*time.Hour),

		ReconcileInterval:    getEnvAsDuration("RECONCILE_INTERVAL", 1*time.Minute),
		ReconcileBatchSize:   getEnvAsInt("RECONCILE_BATCH_SIZE", 25),
		WebhookDedupeTTL:     getEnvAsDuration("WEBHOOK_DEDUPE_TTL", 72*time.Hour),
		NotifyStatusChannel:  getEnv("NOTIFY_STATUS_CHANNEL", "carebook:appointment-status"),
		NotifyEmailEnabled:   getEnvAsBool("NOTIFY_EMAIL_ENABLED", false),
		NotifyEmailRecipient: getEnv("NOTIFY_EMAIL_RECIPIENT", ""),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Carebook"),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
