package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	AdminJWTSecret string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	StatsCacheTTL time.Duration

	// Public submission rate limiting.
	SubmitRateLimit int
	SubmitRateBurst int

	// Dashboard worker cadences.
	DashboardBaseURL      string
	DashboardToken        string
	DashboardFetchEvery   time.Duration
	DashboardRelabelEvery time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		StatsCacheTTL: getEnvAsDuration("STATS_CACHE_TTL", 60*time.Second),

		SubmitRateLimit: getEnvAsInt("SUBMIT_RATE_LIMIT", 10),
		SubmitRateBurst: getEnvAsInt("SUBMIT_RATE_BURST", 5),

		DashboardBaseURL:      getEnv("DASHBOARD_BASE_URL", "http://localhost:8080"),
		DashboardToken:        getEnv("DASHBOARD_TOKEN", ""),
		DashboardFetchEvery:   getEnvAsDuration("DASHBOARD_FETCH_INTERVAL", 5*time.Minute),
		DashboardRelabelEvery: getEnvAsDuration("DASHBOARD_RELABEL_INTERVAL", 60*time.Second),
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
