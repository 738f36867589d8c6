package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const devJWTSecret = "dev-secret-change-in-production"

type Config struct {
	Port        string
	Env         string
	LogLevel    string
	BaseURL     string
	CORSOrigins []string
	// TrustProxy honours X-Forwarded-For / X-Real-IP. Only set it behind a
	// proxy that overwrites those headers, since the auth rate limit keys on
	// the resulting address.
	TrustProxy bool

	StoreBackend string
	MongoURI     string
	DBName       string
	RedisURL     string

	JWTSecret string
	JWTTTL    time.Duration

	ResendAPIKey string
	FromEmail    string
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
}

// Load reads the environment. .env loading happens in main before this.
func Load() (Config, error) {
	ttl, err := time.ParseDuration(getEnv("JWT_TTL", "720h"))
	if err != nil {
		return Config{}, fmt.Errorf("JWT_TTL: %w", err)
	}
	trustProxy, err := strconv.ParseBool(getEnv("TRUST_PROXY", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("TRUST_PROXY: %w", err)
	}

	cfg := Config{
		Port:         getEnv("PORT", "8080"),
		Env:          getEnv("APP_ENV", "development"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		BaseURL:      strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:5173"), "/"),
		CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "*")),
		TrustProxy:   trustProxy,
		StoreBackend: getEnv("STORE_BACKEND", "mongo"),
		MongoURI:     getEnv("MONGODB_URI", ""),
		DBName:       getEnv("DB_NAME", "pulso"),
		RedisURL:     getEnv("REDIS_URL", ""),
		JWTSecret:    getEnv("JWT_SECRET", devJWTSecret),
		JWTTTL:       ttl,
		ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		FromEmail:    getEnv("FROM_EMAIL", "Pulso <no-reply@pulso.app>"),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Env != "development" && c.Env != "production" {
		return errors.New("APP_ENV must be one of: development, production")
	}
	if c.StoreBackend != "mongo" && c.StoreBackend != "memory" {
		return errors.New("STORE_BACKEND must be one of: mongo, memory")
	}
	if c.StoreBackend == "mongo" && c.MongoURI == "" {
		return errors.New("MONGODB_URI is required when STORE_BACKEND=mongo")
	}
	if c.IsProduction() {
		if c.JWTSecret == devJWTSecret || len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be set to at least 32 characters in production")
		}
		if c.StoreBackend == "memory" {
			return errors.New("STORE_BACKEND=memory is not allowed in production")
		}
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
