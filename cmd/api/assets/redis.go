package assets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bookshelf-service/cmd/api/book"
	"github.com/redis/go-redis/v9"
)

const assetKeyPrefix = "asset:"

// RedisStore keeps every asset in a hash under "asset:{locator}". The
// namespace is the first locator segment, so covers and files never share keys.
type RedisStore struct {
	client *redis.Client
	policy Policy
}

func NewRedisStore(client *redis.Client, policy Policy) *RedisStore {
	return &RedisStore{client: client, policy: policy}
}

func (r *RedisStore) Put(ctx context.Context, ns book.Namespace, data []byte, mimeHint, associationKey string) (string, error) {
	contentType, err := r.policy.check(ns, data, mimeHint)
	if err != nil {
		return "", err
	}

	locator := newLocator(ns, associationKey, time.Now().UTC())
	err = r.client.HSet(ctx, assetKeyPrefix+locator, "data", data, "content_type", contentType).Err()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("storing asset: %w", err)
		}
		return "", book.ErrResponseStorageFailure.With(err.Error())
	}
	return locator, nil
}

func (r *RedisStore) Get(ctx context.Context, locator string) (book.Asset, error) {
	ns, _, err := parseLocator(locator)
	if err != nil {
		return book.Asset{}, err
	}

	fields, err := r.client.HGetAll(ctx, assetKeyPrefix+locator).Result()
	if err != nil {
		return book.Asset{}, fmt.Errorf("fetching asset: %w", err)
	}
	data, ok := fields["data"]
	if !ok {
		return book.Asset{}, fmt.Errorf("fetching asset %s: %w", locator, book.ErrResponseAssetNotFound)
	}

	return book.Asset{
		Locator:     locator,
		Namespace:   ns,
		ContentType: fields["content_type"],
		Data:        []byte(data),
	}, nil
}

/* DEL on a missing key is a no-op, which keeps deletion idempotent. */
func (r *RedisStore) Delete(ctx context.Context, locator string) error {
	if err := r.client.Del(ctx, assetKeyPrefix+locator).Err(); err != nil {
		return book.ErrResponseStorageFailure.With(err.Error())
	}
	return nil
}

func (r *RedisStore) List(ctx context.Context, ns book.Namespace) ([]book.StoredAsset, error) {
	stored := []book.StoredAsset{}
	prefixLen := len(assetKeyPrefix)

	iter := r.client.Scan(ctx, 0, assetKeyPrefix+string(ns)+"/*", 100).Iterator()
	for iter.Next(ctx) {
		locator := iter.Val()[prefixLen:]
		_, storedAt, err := parseLocator(locator)
		if err != nil {
			continue
		}
		stored = append(stored, book.StoredAsset{Locator: locator, StoredAt: storedAt})
	}
	if err := iter.Err(); err != nil {
		return nil, book.ErrResponseStorageFailure.With(err.Error())
	}
	return stored, nil
}
