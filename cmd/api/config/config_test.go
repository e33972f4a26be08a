package config

import (
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestLoad(t *testing.T) {

	t.Run("defaults to the in-memory backends", func(t *testing.T) {
		is := is.New(t)
		for _, key := range []string{"PORT", "STORAGE_BACKEND", "ASSET_BACKEND", "HTTP_REQUEST_TIMEOUT", "MAX_ASSET_BYTES", "WRITE_RATE_LIMIT", "NOTIFICATIONS_ENABLED"} {
			t.Setenv(key, "")
		}

		cfg, err := Load()
		is.NoErr(err)
		is.Equal(cfg.Port, 8080)
		is.Equal(cfg.StorageBackend, BackendMemory)
		is.Equal(cfg.AssetBackend, BackendMemory)
		is.Equal(cfg.RequestTimeout, 10*time.Second)
		is.Equal(cfg.MaxAssetBytes, int64(50<<20))
		is.Equal(cfg.WriteRateLimit, 5.0)
		is.True(!cfg.NotificationsEnabled)
	})

	t.Run("reads the environment", func(t *testing.T) {
		is := is.New(t)
		t.Setenv("PORT", "9090")
		t.Setenv("STORAGE_BACKEND", "postgres")
		t.Setenv("DATABASE_URL", "postgres://localhost/books?sslmode=disable")
		t.Setenv("ASSET_BACKEND", "redis")
		t.Setenv("HTTP_REQUEST_TIMEOUT", "3s")

		cfg, err := Load()
		is.NoErr(err)
		is.Equal(cfg.Port, 9090)
		is.Equal(cfg.StorageBackend, BackendPostgres)
		is.Equal(cfg.AssetBackend, BackendRedis)
		is.Equal(cfg.RequestTimeout, 3*time.Second)
	})

	t.Run("postgres needs a database url", func(t *testing.T) {
		is := is.New(t)
		t.Setenv("STORAGE_BACKEND", "postgres")
		t.Setenv("DATABASE_URL", "")

		_, err := Load()
		is.True(err != nil)
	})

	t.Run("rejects an unknown asset backend", func(t *testing.T) {
		is := is.New(t)
		t.Setenv("ASSET_BACKEND", "s3")

		_, err := Load()
		is.True(err != nil)
	})

	t.Run("rejects a malformed timeout", func(t *testing.T) {
		is := is.New(t)
		t.Setenv("HTTP_REQUEST_TIMEOUT", "ten seconds")

		_, err := Load()
		is.True(err != nil)
	})
}
