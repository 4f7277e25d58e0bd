package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/auth/pkg/jwtutil"
)

type AppConfig struct {
	Env      string
	LogLevel string
	HTTPAddr string

	BackendURL     string
	BackendTimeout time.Duration
	// BackendToken is only used by broadcastctl; the console forwards the
	// operator's own token.
	BackendToken string

	SessionTTL    time.Duration
	SweepInterval time.Duration

	RedisAddr       string
	RedisPass       string
	RateLimit       int
	RateLimitWindow time.Duration
	RateLimitBlock  time.Duration

	JWT jwtutil.JWTConfig
}

// Load reads an optional .env file and then the process environment.
func Load() AppConfig {
	_ = godotenv.Load()
	return AppConfig{
		Env:      getEnv("APP_ENV", "production"),
		LogLevel: getEnv("LOG_LEVEL", ""),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		BackendURL:     getEnv("BROADCAST_API_URL", "http://localhost:8000"),
		BackendTimeout: getEnvAsDuration("BROADCAST_API_TIMEOUT", 60*time.Second),
		BackendToken:   getEnv("BROADCAST_TOKEN", ""),

		SessionTTL:    getEnvAsDuration("COMPOSER_SESSION_TTL", 30*time.Minute),
		SweepInterval: getEnvAsDuration("COMPOSER_SWEEP_INTERVAL", time.Minute),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPass:       getEnv("REDIS_PASS", ""),
		RateLimit:       getEnvAsInt("RATE_LIMIT", 300),
		RateLimitWindow: getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitBlock:  getEnvAsDuration("RATE_LIMIT_BLOCK", 2*time.Minute),

		JWT: jwtutil.JWTConfig{
			Secret:   getEnv("SUPABASE_JWT_SECRET", ""),
			PubPath:  getEnv("JWT_PUBLIC_KEY_PATH", ""),
			Issuer:   getEnv("JWT_ISSUER", ""),
			Audience: getEnv("JWT_AUDIENCE", "authenticated"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
