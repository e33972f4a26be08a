// Package backend opens the catalog repository and the asset store selected
// by the configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bookshelf-service/cmd/api/assets"
	"github.com/bookshelf-service/cmd/api/book"
	"github.com/bookshelf-service/cmd/api/config"
	"github.com/bookshelf-service/cmd/api/database"
	"github.com/bookshelf-service/cmd/api/inmemory"
	"github.com/golang-migrate/migrate/v4"
	"github.com/redis/go-redis/v9"
)

type Backends struct {
	Repository book.Repository
	Assets     book.AssetStore

	closers []func() error
}

/* Opens both backends; migrations are applied when the catalog lives in postgres. */
func Open(ctx context.Context, cfg config.Config) (*Backends, error) {
	b := &Backends{}

	switch cfg.StorageBackend {
	case config.BackendPostgres:
		dbObject, err := database.ConnectDb(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting with db: %w", err)
		}
		b.closers = append(b.closers, dbObject.Close)

		store := database.NewStore(dbObject)
		err = database.MigrationUp(store, cfg.MigrationsPath)
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			b.Close()
			return nil, fmt.Errorf("migrating: %w", err)
		}
		b.Repository = store
	default:
		store, err := inmemory.NewInMemoryStore()
		if err != nil {
			return nil, err
		}
		log.Println("catalog kept in memory, books are lost on restart")
		b.Repository = store
	}

	policy := assets.Policy{MaxBytes: cfg.MaxAssetBytes}
	switch cfg.AssetBackend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		b.closers = append(b.closers, rdb.Close)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			b.Close()
			return nil, fmt.Errorf("connecting with redis: %w", err)
		}
		log.Println("connected to redis")
		b.Assets = assets.NewRedisStore(rdb, policy)
	default:
		store, err := assets.NewMemoryStore(policy)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Assets = store
	}

	return b, nil
}

func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			log.Println("closing backend:", err)
		}
	}
	b.closers = nil
}
