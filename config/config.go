package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var (
	PORT        string
	DB_URL      string
	JWT_SECRET  string
	REDIS_ADDR  string
	CORS_ORIGIN string
	LOG_FORMAT  string

	PREVIEW_CEILING_SECONDS int
	ROLE_CACHE_TTL          time.Duration
	AUDIT_BUFFER_SIZE       int

	LOGIN_URL   string
	UPGRADE_URL string

	STRIPE_SECRET_KEY     string
	STRIPE_PRODUCT_ID     string
	STRIPE_WEBHOOK_SECRET string
)

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	PORT = getEnv("PORT", "8080")
	DB_URL = mustEnv("DB_URL")
	JWT_SECRET = mustEnv("JWT_SECRET")
	REDIS_ADDR = getEnv("REDIS_ADDR", "")
	CORS_ORIGIN = getEnv("CORS_ORIGIN", "http://localhost:5173")
	LOG_FORMAT = getEnv("LOG_FORMAT", "json")

	PREVIEW_CEILING_SECONDS = getEnvInt("PREVIEW_CEILING_SECONDS", 300)
	if PREVIEW_CEILING_SECONDS <= 0 {
		log.Fatalf("PREVIEW_CEILING_SECONDS must be positive, got %d", PREVIEW_CEILING_SECONDS)
	}
	ROLE_CACHE_TTL = getEnvDuration("ROLE_CACHE_TTL", time.Minute)
	AUDIT_BUFFER_SIZE = getEnvInt("AUDIT_BUFFER_SIZE", 256)

	LOGIN_URL = getEnv("LOGIN_URL", "/login")
	UPGRADE_URL = getEnv("UPGRADE_URL", "/pricing")

	STRIPE_SECRET_KEY = getEnv("STRIPE_SECRET_KEY", "")
	STRIPE_PRODUCT_ID = getEnv("STRIPE_PRODUCT_ID", "")
	STRIPE_WEBHOOK_SECRET = getEnv("STRIPE_WEBHOOK_SECRET", "")
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Fatalf("Invalid integer for %s: %q", key, raw)
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Fatalf("Invalid duration for %s: %q", key, raw)
	}
	return v
}
