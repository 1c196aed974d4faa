package config

import (
	"os"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string

	// VendorTimeout bounds every outbound ERP call unless the integration
	// row overrides it.
	VendorTimeout time.Duration
	// RefdataTTL controls how long cached reference catalogs stay fresh.
	RefdataTTL time.Duration

	// External insurance carriers. An empty base URL leaves the carrier
	// unconfigured and its lookups answer NotImplemented.
	VidacareBaseURL  string
	VidacareToken    string
	PlanmedBaseURL   string
	PlanmedClientID  string
	PlanmedSecret    string
	InsuranceTimeout time.Duration

	ShutdownGrace time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		VendorTimeout: getEnvAsDuration("VENDOR_TIMEOUT", 15*time.Second),
		RefdataTTL:    getEnvAsDuration("REFDATA_TTL", 15*time.Minute),

		VidacareBaseURL:  getEnv("VIDACARE_BASE_URL", ""),
		VidacareToken:    getEnv("VIDACARE_TOKEN", ""),
		PlanmedBaseURL:   getEnv("PLANMED_BASE_URL", ""),
		PlanmedClientID:  getEnv("PLANMED_CLIENT_ID", ""),
		PlanmedSecret:    getEnv("PLANMED_SECRET", ""),
		InsuranceTimeout: getEnvAsDuration("INSURANCE_TIMEOUT", 10*time.Second),

		ShutdownGrace: getEnvAsDuration("SHUTDOWN_GRACE", 10*time.Second),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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
