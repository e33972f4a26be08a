// Package config reads the service settings from the environment, after
// loading a .env file when one is present.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/bookshelf-service/cmd/api/assets"
	"github.com/joho/godotenv"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	Port           int
	StorageBackend string
	DatabaseURL    string
	MigrationsPath string
	AssetBackend   string
	RedisAddr      string
	JWTSecret      string
	RequestTimeout time.Duration
	MaxAssetBytes  int64
	WriteRateLimit float64

	NotificationsEnabled bool
	NotificationsBaseURL string
	NotificationsTimeout time.Duration
}

func Load() (Config, error) {
	// Variables already set in the environment win over the .env file.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg := Config{
		StorageBackend:       getEnv("STORAGE_BACKEND", BackendMemory),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		MigrationsPath:       getEnv("DATABASE_MIGRATIONS_PATH", "migrations"),
		AssetBackend:         getEnv("ASSET_BACKEND", BackendMemory),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		NotificationsBaseURL: os.Getenv("NOTIFICATIONS_BASE_URL"),
	}

	var err error
	if cfg.Port, err = strconv.Atoi(getEnv("PORT", "8080")); err != nil {
		return Config{}, fmt.Errorf("getting PORT from env: %w", err)
	}
	if cfg.RequestTimeout, err = time.ParseDuration(getEnv("HTTP_REQUEST_TIMEOUT", "10s")); err != nil {
		return Config{}, fmt.Errorf("getting HTTP_REQUEST_TIMEOUT from env: %w", err)
	}
	if cfg.MaxAssetBytes, err = strconv.ParseInt(getEnv("MAX_ASSET_BYTES", strconv.Itoa(assets.DefaultMaxBytes)), 10, 64); err != nil {
		return Config{}, fmt.Errorf("getting MAX_ASSET_BYTES from env: %w", err)
	}
	if cfg.WriteRateLimit, err = strconv.ParseFloat(getEnv("WRITE_RATE_LIMIT", "5"), 64); err != nil {
		return Config{}, fmt.Errorf("getting WRITE_RATE_LIMIT from env: %w", err)
	}
	if cfg.NotificationsEnabled, err = strconv.ParseBool(getEnv("NOTIFICATIONS_ENABLED", "false")); err != nil {
		return Config{}, fmt.Errorf("getting NOTIFICATIONS_ENABLED from env: %w", err)
	}
	if cfg.NotificationsTimeout, err = time.ParseDuration(getEnv("NOTIFICATIONS_TIMEOUT", "5s")); err != nil {
		return Config{}, fmt.Errorf("getting NOTIFICATIONS_TIMEOUT from env: %w", err)
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.StorageBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required with STORAGE_BACKEND=%s", BackendPostgres)
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	switch c.AssetBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown ASSET_BACKEND %q", c.AssetBackend)
	}

	if c.NotificationsEnabled && c.NotificationsBaseURL == "" {
		return fmt.Errorf("NOTIFICATIONS_BASE_URL is required when notifications are enabled")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
