package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MigrationsPath string

	// Hosted Postgres convenience:
	// - DATABASE_URL: runtime connection (often PgBouncer/pooler)
	// - DIRECT_URL: direct connection for migrations
	DatabaseURL string
	DirectURL   string

	DB DBConfig

	// AMQPURL enables the RabbitMQ notification publisher when set.
	// Empty means notifications are logged only (local dev).
	AMQPURL string

	// JWTSecret signs and verifies actor session tokens (HS256).
	JWTSecret string

	Policy PolicyConfig

	// SweepInterval controls the in-process deadline sweep. Zero disables it;
	// correctness never depends on the sweep running.
	SweepInterval time.Duration

	// PortalAllowedOrigins is a comma-separated allowlist of origins allowed
	// to call the public guest claim-response endpoints (token-based).
	PortalAllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

// PolicyConfig holds the tunable claim/verification policy knobs.
type PolicyConfig struct {
	// ClaimResponseWindow is the offset from filing time to the guest
	// response deadline. The deadline is set once at filing and immutable.
	ClaimResponseWindow time.Duration

	// ClaimUrgencyThreshold is the remaining-time floor under which a claim
	// reads as urgent.
	ClaimUrgencyThreshold time.Duration

	// ClaimResponseMinChars is the content-quality floor for guest responses.
	ClaimResponseMinChars int

	// RiskFlagThreshold flags a new booking for manual review when its risk
	// score is at or above this value.
	RiskFlagThreshold int
}

func Load() Config {
	// Convenience for local dev: load variables from .env if present.
	// In production, rely on real environment variables.
	_ = godotenv.Load()

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8082"
		}
	}

	return Config{
		AppEnv:         env("APP_ENV", "dev"),
		HTTPAddr:       httpAddr,
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		DB: DBConfig{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "rentalcore"),
			User:     env("DB_USER", "rentalcore"),
			Password: env("DB_PASSWORD", "rentalcore"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		AMQPURL:   os.Getenv("AMQP_URL"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		Policy: PolicyConfig{
			ClaimResponseWindow:   envDuration("CLAIM_RESPONSE_WINDOW", 48*time.Hour),
			ClaimUrgencyThreshold: envDuration("CLAIM_URGENCY_THRESHOLD", 12*time.Hour),
			ClaimResponseMinChars: envInt("CLAIM_RESPONSE_MIN_CHARS", 100),
			RiskFlagThreshold:     envInt("RISK_FLAG_THRESHOLD", 75),
		},
		SweepInterval:        envDuration("SWEEP_INTERVAL", 0),
		PortalAllowedOrigins: envList("PORTAL_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:4173"),
	}
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
