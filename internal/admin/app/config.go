package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/service"
)

type Config struct {
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	DatabaseFile   string        // Optional: path to SQLite database file (default: ./admin.db)
	RedisURL       string        // Optional: redis://... ; empty keeps sessions and the export queue in process
	CacheOpTimeout time.Duration // Per-operation cache deadline (default: 2s)

	AccessTokenTTL     time.Duration // Sliding access token lifetime (default: 12h)
	TwoFactorTokenTTL  time.Duration // Lifetime of the token between password and OTP (default: 5m)
	MaxSessionLifetime time.Duration // Hard ceiling on renewals (default: 7 days)
	TokenRenewInterval time.Duration // Minimum gap between renewals (default: 15m)
	CaptchaTTL         time.Duration // Captcha lifetime (default: 5m)
	OTPIssuer          string        // Issuer shown by authenticator apps

	ExportDir     string // Directory for generated export files (default: uploads/exports)
	ExportWorkers int    // Export worker goroutines (default: 1)

	HousekeepingSchedule  string        // Cron spec for cleanup (default: @daily)
	OperationLogRetention time.Duration // 0 keeps operation logs forever (default: 90 days)
	ExportRetention       time.Duration // 0 keeps export files forever (default: 7 days)

	AllowedOrigins []string // CORS origins (default: *)
	TrustedProxies []string // Proxies whose X-Forwarded-For is believed, CIDRs or addresses (default: none)

	SeedOnStart       bool   // Seed an empty database during startup (default: false)
	SeedAdminPassword string // Password given to seeded accounts (default: password123)
}

// LoadConfig reads the environment. A .env file in the working directory is
// applied first without overriding variables that are already set.
func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		DatabaseFile:   getEnvOrDefault("ADMIN_DATABASE_FILE", "admin.db"),
		RedisURL:       os.Getenv("REDIS_URL"),
		CacheOpTimeout: getEnvDurationOrDefault("CACHE_OP_TIMEOUT", 2*time.Second),

		AccessTokenTTL:     getEnvDurationOrDefault("ACCESS_TOKEN_TTL", service.DefaultAccessTokenTTL),
		TwoFactorTokenTTL:  getEnvDurationOrDefault("TWO_FACTOR_TOKEN_TTL", service.DefaultTwoFactorTokenTTL),
		MaxSessionLifetime: getEnvDurationOrDefault("MAX_SESSION_LIFETIME", service.DefaultMaxSessionLifetime),
		TokenRenewInterval: getEnvDurationOrDefault("TOKEN_RENEW_INTERVAL", service.DefaultRenewInterval),
		CaptchaTTL:         getEnvDurationOrDefault("CAPTCHA_TTL", service.DefaultCaptchaTTL),
		OTPIssuer:          getEnvOrDefault("OTP_ISSUER", "web-admin-fullstack-template"),

		ExportDir:     getEnvOrDefault("EXPORT_DIR", service.DefaultExportDir),
		ExportWorkers: getEnvIntOrDefault("EXPORT_WORKERS", 1),

		HousekeepingSchedule:  getEnvOrDefault("HOUSEKEEPING_SCHEDULE", service.DefaultHousekeepingSchedule),
		OperationLogRetention: getEnvDurationOrDefault("OPERATION_LOG_RETENTION", service.DefaultOperationLogRetention),
		ExportRetention:       getEnvDurationOrDefault("EXPORT_RETENTION", service.DefaultExportRetention),

		AllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		TrustedProxies: splitList(os.Getenv("TRUSTED_PROXIES")),

		SeedOnStart:       getEnvBoolOrDefault("SEED_ON_START", false),
		SeedAdminPassword: getEnvOrDefault("SEED_ADMIN_PASSWORD", service.DefaultSeedPassword),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
