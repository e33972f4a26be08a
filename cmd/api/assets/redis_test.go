package assets_test

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/bookshelf-service/cmd/api/assets"
	"github.com/bookshelf-service/cmd/api/book"
	"github.com/matryer/is"
	"github.com/redis/go-redis/v9"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestRedisStore(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	store := assets.NewRedisStore(client, assets.Policy{})
	var stored []string
	t.Cleanup(func() {
		for _, locator := range stored {
			client.Del(ctx, "asset:"+locator)
		}
	})

	t.Run("stores and fetches a book file", func(t *testing.T) {
		is := is.New(t)

		locator, err := store.Put(ctx, book.NamespaceFiles, pdfBytes, "", "redis-book")
		is.NoErr(err)
		stored = append(stored, locator)
		is.True(strings.HasPrefix(locator, "files/redis-book-"))

		asset, err := store.Get(ctx, locator)
		is.NoErr(err)
		is.Equal(asset.Namespace, book.NamespaceFiles)
		is.Equal(asset.ContentType, "application/pdf")
		is.True(bytes.Equal(asset.Data, pdfBytes))
	})

	t.Run("lists covers separately from files", func(t *testing.T) {
		is := is.New(t)

		locator, err := store.Put(ctx, book.NamespaceCovers, pngBytes, "image/png", "redis-book")
		is.NoErr(err)
		stored = append(stored, locator)

		covers, err := store.List(ctx, book.NamespaceCovers)
		is.NoErr(err)
		found := false
		for _, a := range covers {
			is.True(strings.HasPrefix(a.Locator, "covers/"))
			if a.Locator == locator {
				found = true
			}
		}
		is.True(found)
	})

	t.Run("deletes idempotently", func(t *testing.T) {
		is := is.New(t)

		locator, err := store.Put(ctx, book.NamespaceFiles, pdfBytes, "", "redis-book")
		is.NoErr(err)

		is.NoErr(store.Delete(ctx, locator))
		is.NoErr(store.Delete(ctx, locator))

		_, err = store.Get(ctx, locator)
		is.True(errors.Is(err, book.ErrResponseAssetNotFound))
	})

	t.Run("a malformed locator is not found", func(t *testing.T) {
		is := is.New(t)

		_, err := store.Get(ctx, "not-a-locator")
		is.True(errors.Is(err, book.ErrResponseAssetNotFound))
	})
}
