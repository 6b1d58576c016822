package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment    string
	LogLevel       string
	HTTPAddr       string
	DBDSN          string
	MigrationsPath string
	AuthSecret     string
	CORSOrigins    string

	ZoomAPIURL  string
	ZoomToken   string
	EmailAPIURL string
	EmailAPIKey string
}

// Load reads configuration from the environment, with an optional .env
// file for local development.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set env vars directly.
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment:    getEnv("ENV", "development"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		DBDSN:          os.Getenv("DB_DSN"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		AuthSecret:     os.Getenv("AUTH_SECRET"),
		CORSOrigins:    getEnv("CORS_ORIGINS", "*"),
		ZoomAPIURL:     os.Getenv("ZOOM_API_URL"),
		ZoomToken:      os.Getenv("ZOOM_TOKEN"),
		EmailAPIURL:    os.Getenv("EMAIL_API_URL"),
		EmailAPIKey:    os.Getenv("EMAIL_API_KEY"),
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.AuthSecret == "" {
		return nil, fmt.Errorf("AUTH_SECRET is required but not set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
