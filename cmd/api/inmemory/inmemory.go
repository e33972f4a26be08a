package inmemory

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bookshelf-service/cmd/api/book"
	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
)

type InMemoryStore struct {
	db *memdb.MemDB
}

func NewInMemoryStore() (*InMemoryStore, error) {
	// Define the schema
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			"book": {
				Name: "book",
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"owner_id": {
						Name:    "owner_id",
						Unique:  false,
						Indexer: &memdb.StringFieldIndex{Field: "OwnerID"},
					},
				},
			},
		},
	}

	errV := schema.Validate()
	if errV != nil {
		log.Println("schema validating error: ", errV)
	}

	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize in-memory database: %w", err)
	}
	return &InMemoryStore{db: db}, nil
}

// AdaptedBook is the stored form of a book: memdb string indexes need string ids.
type AdaptedBook struct {
	ID          string
	OwnerID     string
	Name        string
	Category    string
	Price       float64
	Description string
	Cover       *string
	File        *book.FileAsset
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func adaptBookIdToString(bookEntry book.Book) AdaptedBook {
	adapted := AdaptedBook{
		ID:          bookEntry.ID.String(),
		OwnerID:     bookEntry.OwnerID.String(),
		Name:        bookEntry.Name,
		Category:    bookEntry.Category,
		Price:       bookEntry.Price,
		Description: bookEntry.Description,
		CreatedAt:   bookEntry.CreatedAt,
		UpdatedAt:   bookEntry.UpdatedAt,
	}
	if bookEntry.Cover != nil {
		cover := *bookEntry.Cover
		adapted.Cover = &cover
	}
	if bookEntry.File != nil {
		file := *bookEntry.File
		adapted.File = &file
	}
	return adapted
}

func adaptBookIdToUUID(adptBook AdaptedBook) book.Book {
	b := book.Book{
		ID:          uuid.MustParse(adptBook.ID),
		OwnerID:     uuid.MustParse(adptBook.OwnerID),
		Name:        adptBook.Name,
		Category:    adptBook.Category,
		Price:       adptBook.Price,
		Description: adptBook.Description,
		CreatedAt:   adptBook.CreatedAt,
		UpdatedAt:   adptBook.UpdatedAt,
	}
	if adptBook.Cover != nil {
		cover := *adptBook.Cover
		b.Cover = &cover
	}
	if adptBook.File != nil {
		file := *adptBook.File
		b.File = &file
	}
	return b
}

func now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}

/* Stores a new book, stamping both timestamps. */
func (store *InMemoryStore) CreateBook(ctx context.Context, bookEntry book.Book) (book.Book, error) {
	if bookEntry.File != nil && !bookEntry.File.Complete() {
		return book.Book{}, fmt.Errorf("storing book on db: partial file metadata for %s", bookEntry.ID)
	}

	txn := store.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First("book", "id", bookEntry.ID.String())
	if err != nil {
		return book.Book{}, fmt.Errorf("storing book on db: %w", err)
	}
	if raw != nil {
		return book.Book{}, fmt.Errorf("storing book on db: id %s already used", bookEntry.ID)
	}

	adapted := adaptBookIdToString(bookEntry)
	adapted.CreatedAt = now()
	adapted.UpdatedAt = adapted.CreatedAt

	if err := txn.Insert("book", adapted); err != nil {
		return book.Book{}, fmt.Errorf("storing book on db: %w", err)
	}

	txn.Commit()
	return adaptBookIdToUUID(adapted), nil
}

func (store *InMemoryStore) GetBookByID(ctx context.Context, id uuid.UUID) (book.Book, error) {
	txn := store.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First("book", "id", id.String())
	if err != nil {
		return book.Book{}, fmt.Errorf("searching by ID: %w", err)
	}
	if raw == nil {
		return book.Book{}, fmt.Errorf("searching by ID: %w", book.ErrResponseBookNotFound)
	}

	return adaptBookIdToUUID(raw.(AdaptedBook)), nil
}

/* Overwrites the stored book; the owner and the creation time never change. */
func (store *InMemoryStore) UpdateBook(ctx context.Context, bookEntry book.Book) (book.Book, error) {
	if bookEntry.File != nil && !bookEntry.File.Complete() {
		return book.Book{}, fmt.Errorf("updating book on db: partial file metadata for %s", bookEntry.ID)
	}

	txn := store.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First("book", "id", bookEntry.ID.String())
	if err != nil {
		return book.Book{}, fmt.Errorf("updating book on db: %w", err)
	}
	if raw == nil {
		return book.Book{}, fmt.Errorf("updating book on db: %w", book.ErrResponseBookNotFound)
	}

	stored := raw.(AdaptedBook)
	updatedBook := adaptBookIdToString(bookEntry)
	updatedBook.OwnerID = stored.OwnerID
	updatedBook.CreatedAt = stored.CreatedAt
	updatedBook.UpdatedAt = now()
	if !updatedBook.UpdatedAt.After(stored.UpdatedAt) {
		updatedBook.UpdatedAt = stored.UpdatedAt.Add(time.Millisecond)
	}

	if err := txn.Insert("book", updatedBook); err != nil {
		return book.Book{}, fmt.Errorf("updating book on db: %w", err)
	}

	txn.Commit()
	return adaptBookIdToUUID(updatedBook), nil
}

func (store *InMemoryStore) DeleteBook(ctx context.Context, id uuid.UUID) error {
	txn := store.db.Txn(true)
	defer txn.Abort()

	count, err := txn.DeleteAll("book", "id", id.String())
	if err != nil {
		return fmt.Errorf("deleting book from db: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("deleting book from db: %w", book.ErrResponseBookNotFound)
	}

	txn.Commit()
	return nil
}

func (store *InMemoryStore) ListBooksByOwner(ctx context.Context, ownerID uuid.UUID) ([]book.Book, error) {
	txn := store.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get("book", "owner_id", ownerID.String())
	if err != nil {
		return nil, fmt.Errorf("listing owner books from db: %w", err)
	}
	return collect(it), nil
}

func (store *InMemoryStore) ListBooks(ctx context.Context) ([]book.Book, error) {
	txn := store.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get("book", "id")
	if err != nil {
		return nil, fmt.Errorf("listing books from db: %w", err)
	}
	return collect(it), nil
}

func collect(it memdb.ResultIterator) []book.Book {
	books := []book.Book{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		books = append(books, adaptBookIdToUUID(obj.(AdaptedBook)))
	}
	return books
}
