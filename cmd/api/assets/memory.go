package assets

import (
	"context"
	"fmt"
	"time"

	"github.com/bookshelf-service/cmd/api/book"
	"github.com/hashicorp/go-memdb"
)

type MemoryStore struct {
	db     *memdb.MemDB
	policy Policy
}

type storedBlob struct {
	Locator     string
	Namespace   string
	ContentType string
	Data        []byte
	StoredAt    time.Time
}

func NewMemoryStore(policy Policy) (*MemoryStore, error) {
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			"asset": {
				Name: "asset",
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Locator"},
					},
					"namespace": {
						Name:    "namespace",
						Unique:  false,
						Indexer: &memdb.StringFieldIndex{Field: "Namespace"},
					},
				},
			},
		},
	}

	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize in-memory asset store: %w", err)
	}
	return &MemoryStore{db: db, policy: policy}, nil
}

func (m *MemoryStore) Put(ctx context.Context, ns book.Namespace, data []byte, mimeHint, associationKey string) (string, error) {
	contentType, err := m.policy.check(ns, data, mimeHint)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("storing asset: %w", err)
	}

	now := time.Now().UTC()
	blob := storedBlob{
		Locator:     newLocator(ns, associationKey, now),
		Namespace:   string(ns),
		ContentType: contentType,
		Data:        append([]byte(nil), data...),
		StoredAt:    now,
	}

	txn := m.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert("asset", blob); err != nil {
		return "", book.ErrResponseStorageFailure.With(err.Error())
	}
	txn.Commit()
	return blob.Locator, nil
}

func (m *MemoryStore) Get(ctx context.Context, locator string) (book.Asset, error) {
	txn := m.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First("asset", "id", locator)
	if err != nil {
		return book.Asset{}, fmt.Errorf("fetching asset: %w", err)
	}
	if raw == nil {
		return book.Asset{}, fmt.Errorf("fetching asset %s: %w", locator, book.ErrResponseAssetNotFound)
	}

	blob := raw.(storedBlob)
	return book.Asset{
		Locator:     blob.Locator,
		Namespace:   book.Namespace(blob.Namespace),
		ContentType: blob.ContentType,
		Data:        append([]byte(nil), blob.Data...),
	}, nil
}

/* Deleting a locator that is not stored is not an error. */
func (m *MemoryStore) Delete(ctx context.Context, locator string) error {
	txn := m.db.Txn(true)
	defer txn.Abort()

	if _, err := txn.DeleteAll("asset", "id", locator); err != nil {
		return book.ErrResponseStorageFailure.With(err.Error())
	}
	txn.Commit()
	return nil
}

func (m *MemoryStore) List(ctx context.Context, ns book.Namespace) ([]book.StoredAsset, error) {
	txn := m.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get("asset", "namespace", string(ns))
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}

	stored := []book.StoredAsset{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		blob := obj.(storedBlob)
		stored = append(stored, book.StoredAsset{Locator: blob.Locator, StoredAt: blob.StoredAt})
	}
	return stored, nil
}
