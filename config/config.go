package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	LogLevel  string
	PublicURL string // externally visible origin, used for OAuth callbacks

	// Jobs REST API
	JobsAPIURL          string
	JobsAPITimeout      time.Duration
	JobsAPIForwardToken bool

	// Identity provider (Supabase Auth)
	SupabaseUrl       string
	SupabaseKey       string
	SupabaseJWTSecret string

	// Browser session
	SessionSecret        string
	SessionCookieName    string
	SessionCookieSecure  bool
	SessionTTL           time.Duration
	SessionSettleTimeout time.Duration

	// Redis/Upstash Configuration
	UpstashRedisURL      string
	UpstashRedisPassword string

	// Rate Limiting Configuration
	RateLimitWindowSeconds   int
	RateLimitLoginThreshold  int
	RateLimitGlobalThreshold int
	FailedLoginBlockMinutes  int
	FailedLoginMaxAttempts   int
}

func LoadConfig() (*Config, error) {
	// Only effective locally; a missing .env is fine in production.
	_ = godotenv.Load()

	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		PublicURL: strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:8080"), "/"),

		JobsAPIURL:          strings.TrimRight(getEnv("JOBS_API_URL", ""), "/"),
		JobsAPITimeout:      time.Duration(getEnvInt("JOBS_API_TIMEOUT_SECONDS", 10)) * time.Second,
		JobsAPIForwardToken: getEnvBool("JOBS_API_FORWARD_TOKEN", true),

		// Strip the trailing slash to avoid ".co//auth"
		SupabaseUrl:       strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseKey:       getEnv("SUPABASE_KEY", getEnv("SUPABASE_ANON_KEY", "")),
		SupabaseJWTSecret: getEnv("SUPABASE_JWT_SECRET", getEnv("SUPABASE_JWT_KEY", "")),

		SessionSecret:        getEnv("SESSION_SECRET", ""),
		SessionCookieName:    getEnv("SESSION_COOKIE_NAME", "jobportal_session"),
		SessionCookieSecure:  getEnvBool("SESSION_COOKIE_SECURE", true),
		SessionTTL:           getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		SessionSettleTimeout: getEnvDuration("SESSION_SETTLE_TIMEOUT", 3*time.Second),

		UpstashRedisURL:      getEnv("UPSTASH_REDIS_URL", ""),
		UpstashRedisPassword: getEnv("UPSTASH_REDIS_PASSWORD", ""),

		RateLimitWindowSeconds:   getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitLoginThreshold:  getEnvInt("RATE_LIMIT_LOGIN_THRESHOLD", 10),
		RateLimitGlobalThreshold: getEnvInt("RATE_LIMIT_GLOBAL_THRESHOLD", 300),
		FailedLoginBlockMinutes:  getEnvInt("FAILED_LOGIN_BLOCK_MINUTES", 15),
		FailedLoginMaxAttempts:   getEnvInt("FAILED_LOGIN_MAX_ATTEMPTS", 5),
	}

	var missing []string
	if cfg.JobsAPIURL == "" {
		missing = append(missing, "JOBS_API_URL")
	}
	if cfg.SupabaseUrl == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if cfg.SupabaseKey == "" {
		missing = append(missing, "SUPABASE_KEY")
	}
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}
	if len(missing) > 0 {
		return cfg, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if len(cfg.SessionSecret) < 32 {
		log.Println("WARNING: SESSION_SECRET is shorter than 32 bytes.")
	}

	if cfg.UpstashRedisURL == "" {
		log.Println("WARNING: UPSTASH_REDIS_URL not configured. Sessions and rate limiting will use in-memory fallback.")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool returns a boolean environment variable or fallback if not set/invalid
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("90s", "12h").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
