package inmemory_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"testing"

	"github.com/bookshelf-service/cmd/api/book"
	"github.com/bookshelf-service/cmd/api/inmemory"
	"github.com/google/uuid"
	"github.com/matryer/is"
)

var ctx context.Context = context.Background()

func newStore() *inmemory.InMemoryStore {
	store, err := inmemory.NewInMemoryStore()
	if err != nil {
		log.Fatalln(err)
	}
	return store
}

func newBook(owner uuid.UUID, name string) book.Book {
	return book.Book{
		ID:          uuid.New(),
		OwnerID:     owner,
		Name:        name,
		Category:    "Fiction",
		Price:       40.0,
		Description: "A book stored in memory",
		Cover:       toPointer("covers/" + name + "-1-aaa"),
		File: &book.FileAsset{
			Locator:  "files/" + name + "-1-bbb",
			FileName: name + ".pdf",
			Size:     1024,
		},
	}
}

func TestCreateBook(t *testing.T) {
	store := newStore()

	t.Run("creates a book without errors", func(t *testing.T) {
		is := is.New(t)

		b := newBook(uuid.New(), "A new book")

		createdBook, err := store.CreateBook(ctx, b)
		is.NoErr(err)
		is.True(!createdBook.CreatedAt.IsZero())
		is.True(createdBook.UpdatedAt.Equal(createdBook.CreatedAt))
		compareBooks(is, createdBook, b)
	})

	t.Run("creating the same id twice fails", func(t *testing.T) {
		is := is.New(t)

		b := newBook(uuid.New(), "A duplicated book")
		_, err := store.CreateBook(ctx, b)
		is.NoErr(err)

		_, err = store.CreateBook(ctx, b)
		is.True(err != nil)
	})

	t.Run("partial file metadata is rejected", func(t *testing.T) {
		is := is.New(t)

		b := newBook(uuid.New(), "A partial book")
		b.File.FileName = ""

		_, err := store.CreateBook(ctx, b)
		is.True(err != nil)
	})
}

func TestUpdateBook(t *testing.T) {
	store := newStore()

	t.Run("updates a book without errors", func(t *testing.T) {
		is := is.New(t)

		b := newBook(uuid.New(), "A new book to be updated")
		createdBook, err := store.CreateBook(ctx, b)
		is.NoErr(err)

		//Updating the created book.
		b.Name = "The book is now updated"
		b.Price = 50.0
		b.Cover = nil

		updatedBook, err := store.UpdateBook(ctx, b)
		is.NoErr(err)
		is.True(updatedBook.CreatedAt.Equal(createdBook.CreatedAt))
		is.True(updatedBook.UpdatedAt.After(createdBook.UpdatedAt))
		compareBooks(is, updatedBook, b)
	})

	t.Run("the owner never changes", func(t *testing.T) {
		is := is.New(t)

		owner := uuid.New()
		b := newBook(owner, "An owned book")
		_, err := store.CreateBook(ctx, b)
		is.NoErr(err)

		b.OwnerID = uuid.New()
		updatedBook, err := store.UpdateBook(ctx, b)
		is.NoErr(err)
		is.Equal(updatedBook.OwnerID, owner)
	})

	t.Run("Updates an non existing book should return a not found error", func(t *testing.T) {
		is := is.New(t)

		returnedBook, err := store.UpdateBook(ctx, newBook(uuid.New(), "A book that will not be stored"))
		is.True(errors.Is(err, book.ErrResponseBookNotFound))
		is.Equal(returnedBook.ID, uuid.Nil)
	})
}

func TestGetBook(t *testing.T) {
	store := newStore()

	t.Run("Gets a book by ID without errors", func(t *testing.T) {
		is := is.New(t)

		b := newBook(uuid.New(), "A book to be fetched")
		createdBook, err := store.CreateBook(ctx, b)
		is.NoErr(err)

		returnedBook, err := store.GetBookByID(ctx, b.ID)
		is.NoErr(err)
		is.Equal(returnedBook, createdBook)
	})

	t.Run("the returned book is a snapshot", func(t *testing.T) {
		is := is.New(t)

		b := newBook(uuid.New(), "A snapshot book")
		_, err := store.CreateBook(ctx, b)
		is.NoErr(err)

		first, err := store.GetBookByID(ctx, b.ID)
		is.NoErr(err)
		first.File.FileName = "changed.pdf"

		second, err := store.GetBookByID(ctx, b.ID)
		is.NoErr(err)
		is.Equal(second.File.FileName, b.File.FileName)
	})

	t.Run("Gets an non existing book should return a not found error", func(t *testing.T) {
		is := is.New(t)

		_, err := store.GetBookByID(ctx, uuid.New())
		is.True(errors.Is(err, book.ErrResponseBookNotFound))
	})
}

func TestDeleteBook(t *testing.T) {
	store := newStore()

	t.Run("deletes a book without errors", func(t *testing.T) {
		is := is.New(t)

		b := newBook(uuid.New(), "A book to be deleted")
		_, err := store.CreateBook(ctx, b)
		is.NoErr(err)

		is.NoErr(store.DeleteBook(ctx, b.ID))

		_, err = store.GetBookByID(ctx, b.ID)
		is.True(errors.Is(err, book.ErrResponseBookNotFound))
	})

	t.Run("deleting an non existing book should return a not found error", func(t *testing.T) {
		is := is.New(t)

		err := store.DeleteBook(ctx, uuid.New())
		is.True(errors.Is(err, book.ErrResponseBookNotFound))
	})
}

func TestListBooks(t *testing.T) {
	store := newStore()
	is := is.New(t)

	t.Run("List books without errors even if there is no books in the database", func(t *testing.T) {
		is := is.New(t)

		returnedBooks, err := store.ListBooks(ctx)
		is.NoErr(err)
		is.Equal(returnedBooks, []book.Book{})
	})

	ownerA := uuid.New()
	ownerB := uuid.New()
	listSize := 10
	for i := 0; i < listSize; i++ {
		owner := ownerA
		if i%2 == 1 {
			owner = ownerB
		}
		_, err := store.CreateBook(ctx, newBook(owner, fmt.Sprintf("Book number %06v", i)))
		is.NoErr(err)
	}

	t.Run("lists every book in public scope", func(t *testing.T) {
		is := is.New(t)

		returnedBooks, err := store.ListBooks(ctx)
		is.NoErr(err)
		is.Equal(len(returnedBooks), listSize)
	})

	t.Run("lists only the owner's books", func(t *testing.T) {
		is := is.New(t)

		returnedBooks, err := store.ListBooksByOwner(ctx, ownerA)
		is.NoErr(err)
		is.Equal(len(returnedBooks), listSize/2)
		for _, b := range returnedBooks {
			is.Equal(b.OwnerID, ownerA)
		}

		none, err := store.ListBooksByOwner(ctx, uuid.New())
		is.NoErr(err)
		is.Equal(len(none), 0)
	})
}

func compareBooks(is *is.I, a, b book.Book) {
	is.Helper()

	// Overwrite to be able to compare them.
	b.CreatedAt = a.CreatedAt
	b.UpdatedAt = a.UpdatedAt

	// Assert that they are equal.
	is.Equal(a, b)
}

func toPointer[T any](v T) *T {
	return &v
}
