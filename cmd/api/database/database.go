package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/bookshelf-service/cmd/api/book"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/google/uuid"

	_ "github.com/golang-migrate/migrate/v4/source/file"

	_ "github.com/lib/pq"
)

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db  *sql.DB
	exc DBTX
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:  db,
		exc: db,
	}
}

/* Connects to the database trought a connection string and returns a pointer to a valid DB object (*sql.DB). */
func ConnectDb(connStr string) (*sql.DB, error) {

	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("connecting to db, openning: %w", err)
	}

	err = sqlDB.Ping()
	if err != nil {
		return nil, fmt.Errorf("connecting to db, pingging: %w", err)
	}

	log.Println("Successfully connected!")
	return sqlDB, nil
}

func MigrationUp(store *Store, path string) error {
	m, err := newMigrate(store, path)
	if err != nil {
		return fmt.Errorf("migrating up: %w", err)
	}

	err = m.Up()
	if err != nil {
		return fmt.Errorf("migrating up: %w", err)
	}
	return nil
}

func MigrationDown(store *Store, path string) error {
	m, err := newMigrate(store, path)
	if err != nil {
		return fmt.Errorf("migrating down: %w", err)
	}

	err = m.Down()
	if err != nil {
		return fmt.Errorf("migrating down: %w", err)
	}
	return nil
}

func newMigrate(store *Store, path string) (*migrate.Migrate, error) {
	driver, err := postgres.WithInstance(store.db, &postgres.Config{})
	if err != nil {
		return nil, err
	}

	return migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", path),
		"postgres", driver)
}

const bookColumns = `id, owner_id, name, category, price, description,
	cover_locator, file_locator, file_name, file_size, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

/* Reads one row in bookColumns order. */
func scanBook(row scanner) (book.Book, error) {
	var b book.Book
	var cover, fileLocator, fileName sql.NullString
	var fileSize sql.NullInt64
	err := row.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Category, &b.Price, &b.Description,
		&cover, &fileLocator, &fileName, &fileSize, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return book.Book{}, err
	}

	if cover.Valid {
		b.Cover = &cover.String
	}
	if fileLocator.Valid {
		b.File = &book.FileAsset{
			Locator:  fileLocator.String,
			FileName: fileName.String,
			Size:     fileSize.Int64,
		}
	}
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return b, nil
}

func assetColumns(b book.Book) (cover, fileLocator, fileName sql.NullString, fileSize sql.NullInt64) {
	if b.Cover != nil {
		cover = sql.NullString{String: *b.Cover, Valid: true}
	}
	if b.File != nil {
		fileLocator = sql.NullString{String: b.File.Locator, Valid: true}
		fileName = sql.NullString{String: b.File.FileName, Valid: true}
		fileSize = sql.NullInt64{Int64: b.File.Size, Valid: true}
	}
	return cover, fileLocator, fileName, fileSize
}

func now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}

/* Stores the book into the database, checks and returns it if succeed. */
func (store *Store) CreateBook(ctx context.Context, bookEntry book.Book) (book.Book, error) {
	sqlStatement := `
	INSERT INTO books (` + bookColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	RETURNING ` + bookColumns
	cover, fileLocator, fileName, fileSize := assetColumns(bookEntry)
	createdRow := store.exc.QueryRowContext(ctx, sqlStatement, bookEntry.ID, bookEntry.OwnerID, bookEntry.Name,
		bookEntry.Category, bookEntry.Price, bookEntry.Description, cover, fileLocator, fileName, fileSize, now())
	bookToReturn, err := scanBook(createdRow)
	if err != nil {
		return book.Book{}, fmt.Errorf("storing book on db: %w", err)
	}

	return bookToReturn, nil
}

/* Searches a book in database based on ID and returns it if succeed. */
func (store *Store) GetBookByID(ctx context.Context, id uuid.UUID) (book.Book, error) {
	sqlStatement := `SELECT ` + bookColumns + `
	FROM books
	WHERE id=$1;`
	foundRow := store.exc.QueryRowContext(ctx, sqlStatement, id)
	bookToReturn, err := scanBook(foundRow)
	if err != nil {
		switch err {
		case sql.ErrNoRows:
			return book.Book{}, fmt.Errorf("searching by ID: %w", book.ErrResponseBookNotFound)
		default:
			return book.Book{}, fmt.Errorf("searching by ID: %w", err)
		}
	}

	return bookToReturn, nil
}

// UpdateBook overwrites the editable columns and the asset columns. owner_id
// and created_at are never written; updated_at always moves forward.
func (store *Store) UpdateBook(ctx context.Context, bookEntry book.Book) (book.Book, error) {
	sqlStatement := `
	UPDATE books
	SET name = $2, category = $3, price = $4, description = $5,
		cover_locator = $6, file_locator = $7, file_name = $8, file_size = $9,
		updated_at = GREATEST($10, updated_at + interval '1 millisecond')
	WHERE id = $1
	RETURNING ` + bookColumns
	cover, fileLocator, fileName, fileSize := assetColumns(bookEntry)
	updatedRow := store.exc.QueryRowContext(ctx, sqlStatement, bookEntry.ID, bookEntry.Name, bookEntry.Category,
		bookEntry.Price, bookEntry.Description, cover, fileLocator, fileName, fileSize, now())
	bookToReturn, err := scanBook(updatedRow)
	if err != nil {
		switch err {
		case sql.ErrNoRows:
			return book.Book{}, fmt.Errorf("updating on db: %w", book.ErrResponseBookNotFound)
		default:
			return book.Book{}, fmt.Errorf("updating on db: %w", err)
		}
	}

	return bookToReturn, nil
}

func (store *Store) DeleteBook(ctx context.Context, id uuid.UUID) error {
	sqlStatement := `
	DELETE FROM books
	WHERE id = $1;`
	result, err := store.exc.ExecContext(ctx, sqlStatement, id)
	if err != nil {
		return fmt.Errorf("deleting book from db: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting book from db: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("deleting book from db: %w", book.ErrResponseBookNotFound)
	}
	return nil
}

func (store *Store) ListBooksByOwner(ctx context.Context, ownerID uuid.UUID) ([]book.Book, error) {
	sqlStatement := `SELECT ` + bookColumns + `
	FROM books
	WHERE owner_id = $1;`
	return store.listBooks(ctx, "listing owner books from db", sqlStatement, ownerID)
}

func (store *Store) ListBooks(ctx context.Context) ([]book.Book, error) {
	sqlStatement := `SELECT ` + bookColumns + `
	FROM books;`
	return store.listBooks(ctx, "listing books from db", sqlStatement)
}

func (store *Store) listBooks(ctx context.Context, doing, sqlStatement string, args ...any) ([]book.Book, error) {
	rows, err := store.exc.QueryContext(ctx, sqlStatement, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", doing, err)
	}
	defer rows.Close()

	bookslist := []book.Book{}
	for rows.Next() {
		bookToReturn, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", doing, err)
		}
		bookslist = append(bookslist, bookToReturn)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", doing, err)
	}

	return bookslist, nil
}
