// Package assets stores cover images and book files under collision-free
// locators. Two backends are provided: MemoryStore on go-memdb and RedisStore
// on redis.
package assets

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bookshelf-service/cmd/api/book"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const DefaultMaxBytes = 50 << 20

// Policy is applied to every upload before it reaches a backend.
type Policy struct {
	MaxBytes int64
}

func (p Policy) maxBytes() int64 {
	if p.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return p.MaxBytes
}

/* Validates the upload and resolves its content type. */
func (p Policy) check(ns book.Namespace, data []byte, mimeHint string) (string, error) {
	if ns != book.NamespaceCovers && ns != book.NamespaceFiles {
		return "", book.ErrResponseStorageFailure.With(fmt.Sprintf("unknown namespace %q", ns))
	}
	if len(data) == 0 {
		return "", book.ErrResponseStorageFailure.With("empty upload")
	}
	if int64(len(data)) > p.maxBytes() {
		return "", book.ErrResponseStorageFailure.With(fmt.Sprintf("upload of %d bytes exceeds the %d bytes quota", len(data), p.maxBytes()))
	}

	// Covers are served inline, so their type always comes from the bytes.
	if ns == book.NamespaceCovers {
		detected := mimetype.Detect(data)
		if !strings.HasPrefix(detected.String(), "image/") || detected.Is("image/svg+xml") {
			return "", book.ErrResponseStorageFailure.With(fmt.Sprintf("cover must be a raster image, got %s", detected.String()))
		}
		return detected.String(), nil
	}

	contentType := mimeHint
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}
	return contentType, nil
}

// newLocator derives "{namespace}/{associationKey}-{unixNano}-{token}". The
// association key only makes the locator traceable; the timestamp and the
// random token keep repeated uploads for the same key apart.
func newLocator(ns book.Namespace, associationKey string, now time.Time) string {
	if associationKey == "" {
		associationKey = "tmp-" + uuid.NewString()
	}
	associationKey = strings.ReplaceAll(associationKey, "/", "_")
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s/%s-%d-%s", ns, associationKey, now.UnixNano(), token)
}

/* Splits a locator into its namespace and the time it was stored at. */
func parseLocator(locator string) (book.Namespace, time.Time, error) {
	nsPart, rest, found := strings.Cut(locator, "/")
	ns := book.Namespace(nsPart)
	if !found || (ns != book.NamespaceCovers && ns != book.NamespaceFiles) {
		return "", time.Time{}, fmt.Errorf("parsing locator %q: %w", locator, book.ErrResponseAssetNotFound)
	}

	parts := strings.Split(rest, "-")
	if len(parts) < 3 {
		return "", time.Time{}, fmt.Errorf("parsing locator %q: %w", locator, book.ErrResponseAssetNotFound)
	}
	nanos, err := strconv.ParseInt(parts[len(parts)-2], 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("parsing locator %q: %w", locator, book.ErrResponseAssetNotFound)
	}
	return ns, time.Unix(0, nanos).UTC(), nil
}
