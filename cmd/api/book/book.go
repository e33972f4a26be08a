package book

import (
	"time"

	"github.com/google/uuid"
)

const PriceMax = 99999.99

type Book struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	Category    string
	Price       float64
	Description string
	Cover       *string
	File        *FileAsset
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FileAsset is either absent from a Book or carries all three fields.
type FileAsset struct {
	Locator  string
	FileName string
	Size     int64
}

/* Reports whether the file metadata is fully populated. */
func (f FileAsset) Complete() bool {
	return f.Locator != "" && f.FileName != "" && f.Size > 0
}

/* Bytes received from a writer for a cover image or a book file. */
type Upload struct {
	Data        []byte
	ContentType string
	FileName    string
}

type Namespace string

const (
	NamespaceCovers Namespace = "covers"
	NamespaceFiles  Namespace = "files"
)

type Asset struct {
	Locator     string
	Namespace   Namespace
	ContentType string
	Data        []byte
}

type StoredAsset struct {
	Locator  string
	StoredAt time.Time
}

// Categories is the known set of genres accepted at entry points.
var Categories = []string{
	"Fiction",
	"Non-Fiction",
	"Fantasy",
	"Science Fiction",
	"Mystery",
	"Thriller",
	"Romance",
	"Horror",
	"Drama",
	"Poetry",
	"Biography",
	"History",
	"Self-Help",
	"Children",
	"Comics",
}

func KnownCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

type Stats struct {
	TotalBooks         int
	TotalValue         float64
	DistinctCategories int
}
