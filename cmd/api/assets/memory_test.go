package assets_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/bookshelf-service/cmd/api/assets"
	"github.com/bookshelf-service/cmd/api/book"
	"github.com/matryer/is"
)

var ctx context.Context = context.Background()

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
var pdfBytes = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")

func newMemoryStore(policy assets.Policy) *assets.MemoryStore {
	store, err := assets.NewMemoryStore(policy)
	if err != nil {
		log.Fatalln(err)
	}
	return store
}

func TestPut(t *testing.T) {
	store := newMemoryStore(assets.Policy{})

	t.Run("stores a cover and returns a locator in the covers namespace", func(t *testing.T) {
		is := is.New(t)

		locator, err := store.Put(ctx, book.NamespaceCovers, pngBytes, "", "book-1")
		is.NoErr(err)
		is.True(strings.HasPrefix(locator, "covers/book-1-"))

		asset, err := store.Get(ctx, locator)
		is.NoErr(err)
		is.Equal(asset.Namespace, book.NamespaceCovers)
		is.Equal(asset.ContentType, "image/png")
		is.True(bytes.Equal(asset.Data, pngBytes))
	})

	t.Run("repeated uploads for the same association never collide", func(t *testing.T) {
		is := is.New(t)

		seen := map[string]bool{}
		for i := 0; i < 50; i++ {
			locator, err := store.Put(ctx, book.NamespaceFiles, pdfBytes, "application/pdf", "same-book")
			is.NoErr(err)
			is.True(!seen[locator])
			seen[locator] = true
		}
	})

	t.Run("generates an association when none is given", func(t *testing.T) {
		is := is.New(t)

		locator, err := store.Put(ctx, book.NamespaceFiles, pdfBytes, "", "")
		is.NoErr(err)
		is.True(strings.HasPrefix(locator, "files/tmp-"))
	})

	t.Run("a cover that is not an image is a storage failure", func(t *testing.T) {
		is := is.New(t)

		_, err := store.Put(ctx, book.NamespaceCovers, pdfBytes, "", "book-1")
		is.True(errors.Is(err, book.ErrResponseStorageFailure))
	})

	t.Run("a cover is typed by its bytes, not by the hint", func(t *testing.T) {
		is := is.New(t)

		locator, err := store.Put(ctx, book.NamespaceCovers, pngBytes, "text/html", "book-1")
		is.NoErr(err)

		asset, err := store.Get(ctx, locator)
		is.NoErr(err)
		is.Equal(asset.ContentType, "image/png")
	})

	t.Run("scriptable covers are rejected whatever the hint says", func(t *testing.T) {
		svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(document.cookie)</script></svg>`)
		html := []byte(`<html><body><script>alert(document.cookie)</script></body></html>`)

		for name, data := range map[string][]byte{"svg": svg, "html": html} {
			t.Run(name, func(t *testing.T) {
				is := is.New(t)

				_, err := store.Put(ctx, book.NamespaceCovers, data, "image/svg+xml", "book-1")
				is.True(errors.Is(err, book.ErrResponseStorageFailure))
			})
		}
	})

	t.Run("an empty upload is a storage failure", func(t *testing.T) {
		is := is.New(t)

		_, err := store.Put(ctx, book.NamespaceFiles, nil, "", "book-1")
		is.True(errors.Is(err, book.ErrResponseStorageFailure))
	})

	t.Run("an unknown namespace is a storage failure", func(t *testing.T) {
		is := is.New(t)

		_, err := store.Put(ctx, book.Namespace("avatars"), pngBytes, "", "book-1")
		is.True(errors.Is(err, book.ErrResponseStorageFailure))
	})
}

func TestPutQuota(t *testing.T) {
	is := is.New(t)
	store := newMemoryStore(assets.Policy{MaxBytes: 8})

	_, err := store.Put(ctx, book.NamespaceFiles, pdfBytes, "", "book-1")
	is.True(errors.Is(err, book.ErrResponseStorageFailure))
}

func TestGet(t *testing.T) {
	store := newMemoryStore(assets.Policy{})

	t.Run("a locator never stored is not found", func(t *testing.T) {
		is := is.New(t)

		_, err := store.Get(ctx, "files/nothing-1-abc")
		is.True(errors.Is(err, book.ErrResponseAssetNotFound))
	})

	t.Run("a deleted locator is not found", func(t *testing.T) {
		is := is.New(t)

		locator, err := store.Put(ctx, book.NamespaceFiles, pdfBytes, "", "book-2")
		is.NoErr(err)
		is.NoErr(store.Delete(ctx, locator))

		_, err = store.Get(ctx, locator)
		is.True(errors.Is(err, book.ErrResponseAssetNotFound))
	})
}

func TestDelete(t *testing.T) {
	is := is.New(t)
	store := newMemoryStore(assets.Policy{})

	locator, err := store.Put(ctx, book.NamespaceFiles, pdfBytes, "", "book-3")
	is.NoErr(err)

	is.NoErr(store.Delete(ctx, locator))
	is.NoErr(store.Delete(ctx, locator)) // second delete of the same locator
	is.NoErr(store.Delete(ctx, "files/never-stored-1-abc"))
}

func TestList(t *testing.T) {
	is := is.New(t)
	store := newMemoryStore(assets.Policy{})

	cover, err := store.Put(ctx, book.NamespaceCovers, pngBytes, "", "book-4")
	is.NoErr(err)
	file, err := store.Put(ctx, book.NamespaceFiles, pdfBytes, "", "book-4")
	is.NoErr(err)

	covers, err := store.List(ctx, book.NamespaceCovers)
	is.NoErr(err)
	is.Equal(len(covers), 1)
	is.Equal(covers[0].Locator, cover)
	is.True(!covers[0].StoredAt.IsZero())

	files, err := store.List(ctx, book.NamespaceFiles)
	is.NoErr(err)
	is.Equal(len(files), 1)
	is.Equal(files[0].Locator, file)
}
