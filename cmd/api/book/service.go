package book

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

type Repository interface {
	CreateBook(ctx context.Context, bookEntry Book) (Book, error)
	GetBookByID(ctx context.Context, id uuid.UUID) (Book, error)
	UpdateBook(ctx context.Context, bookEntry Book) (Book, error)
	DeleteBook(ctx context.Context, id uuid.UUID) error
	ListBooksByOwner(ctx context.Context, ownerID uuid.UUID) ([]Book, error)
	ListBooks(ctx context.Context) ([]Book, error)
}

type AssetStore interface {
	Put(ctx context.Context, ns Namespace, data []byte, mimeHint, associationKey string) (string, error)
	Get(ctx context.Context, locator string) (Asset, error)
	Delete(ctx context.Context, locator string) error
	List(ctx context.Context, ns Namespace) ([]StoredAsset, error)
}

type Notifier interface {
	BookCreated(ctx context.Context, b Book) error
}

type Service struct {
	repo                 Repository
	assets               AssetStore
	ntfy                 Notifier
	notificationsTimeout time.Duration
}

func NewService(repo Repository, assets AssetStore, ntfy Notifier, notificationsTimeout time.Duration) *Service {
	return &Service{
		repo:                 repo,
		assets:               assets,
		ntfy:                 ntfy,
		notificationsTimeout: notificationsTimeout,
	}
}

type CreateBookRequest struct {
	Name        string
	Category    string
	Price       *float64
	Description string
	Cover       *Upload
	File        *Upload
}

/* Uploads the assets first and only then stores the record that references them. */
func (s *Service) CreateBook(ctx context.Context, actorID uuid.UUID, req CreateBookRequest) (Book, error) {
	if actorID == uuid.Nil {
		return Book{}, ErrResponseUnauthenticated
	}

	fields := Fields{Name: req.Name, Category: req.Category, Price: req.Price, Description: req.Description}
	if err := ValidateFields(fields); err != nil {
		return Book{}, err
	}
	if req.File == nil {
		return Book{}, ErrFileRequired
	}
	if err := checkFile(req.File); err != nil {
		return Book{}, err
	}

	newBook := Book{
		ID:          uuid.New(),
		OwnerID:     actorID,
		Name:        req.Name,
		Category:    req.Category,
		Price:       roundCents(*req.Price),
		Description: req.Description,
	}

	if req.Cover != nil {
		locator, err := s.assets.Put(ctx, NamespaceCovers, req.Cover.Data, req.Cover.ContentType, newBook.ID.String())
		if err != nil {
			return Book{}, storageErr("cover upload", err)
		}
		newBook.Cover = &locator
	}

	fileLocator, err := s.assets.Put(ctx, NamespaceFiles, req.File.Data, req.File.ContentType, newBook.ID.String())
	if err != nil {
		if newBook.Cover != nil {
			s.releaseAsset(ctx, newBook.ID, *newBook.Cover)
		}
		return Book{}, storageErr("file upload", err)
	}
	newBook.File = &FileAsset{
		Locator:  fileLocator,
		FileName: req.File.FileName,
		Size:     int64(len(req.File.Data)),
	}

	createdBook, err := s.repo.CreateBook(ctx, newBook)
	if err != nil {
		log.Printf("[orphan] book %s not stored, assets left unreferenced: %v", newBook.ID, assetLocators(newBook))
		return Book{}, repoErr("CreateBook", err)
	}

	s.notifyCreated(ctx, createdBook)
	return createdBook, nil
}

type UpdateBookRequest struct {
	ID          uuid.UUID
	Name        string
	Category    string
	Price       *float64
	Description string
	Cover       *Upload
	File        *Upload
}

// A book file needs both bytes and the name it is downloaded under.
func checkFile(f *Upload) error {
	if len(f.Data) == 0 {
		return ErrFileRequired
	}
	if strings.TrimSpace(f.FileName) == "" {
		return ErrFileNameRequired
	}
	return nil
}

/* Replaces the editable fields and, when supplied, the cover and the book file. */
func (s *Service) UpdateBook(ctx context.Context, actorID uuid.UUID, req UpdateBookRequest) (Book, error) {
	stored, err := s.ownedBook(ctx, actorID, req.ID, "UpdateBook")
	if err != nil {
		return Book{}, err
	}

	fields := Fields{Name: req.Name, Category: req.Category, Price: req.Price, Description: req.Description}
	if err := ValidateFields(fields); err != nil {
		return Book{}, err
	}
	if req.File != nil {
		if err := checkFile(req.File); err != nil {
			return Book{}, err
		}
	}

	updated := stored
	updated.Name = req.Name
	updated.Category = req.Category
	updated.Price = roundCents(*req.Price)
	updated.Description = req.Description

	var replaced []string
	if req.Cover != nil {
		locator, err := s.assets.Put(ctx, NamespaceCovers, req.Cover.Data, req.Cover.ContentType, stored.ID.String())
		if err != nil {
			return Book{}, storageErr("cover upload", err)
		}
		updated.Cover = &locator
		if stored.Cover != nil {
			replaced = append(replaced, *stored.Cover)
		}
	}

	if req.File != nil {
		locator, err := s.assets.Put(ctx, NamespaceFiles, req.File.Data, req.File.ContentType, stored.ID.String())
		if err != nil {
			if req.Cover != nil {
				s.releaseAsset(ctx, stored.ID, *updated.Cover)
			}
			return Book{}, storageErr("file upload", err)
		}
		updated.File = &FileAsset{
			Locator:  locator,
			FileName: req.File.FileName,
			Size:     int64(len(req.File.Data)),
		}
		if stored.File != nil {
			replaced = append(replaced, stored.File.Locator)
		}
	}

	updatedBook, err := s.repo.UpdateBook(ctx, updated)
	if err != nil {
		if req.Cover != nil || req.File != nil {
			log.Printf("[orphan] book %s not updated, new assets left unreferenced", stored.ID)
		}
		return Book{}, repoErr("UpdateBook", err)
	}

	for _, locator := range replaced {
		s.releaseAsset(ctx, stored.ID, locator)
	}
	return updatedBook, nil
}

/* Removes the record for good; asset deletion failures are logged and never block it. */
func (s *Service) DeleteBook(ctx context.Context, actorID uuid.UUID, id uuid.UUID) error {
	stored, err := s.ownedBook(ctx, actorID, id, "DeleteBook")
	if err != nil {
		return err
	}

	for _, locator := range assetLocators(stored) {
		s.releaseAsset(ctx, stored.ID, locator)
	}

	err = s.repo.DeleteBook(ctx, stored.ID)
	if err != nil {
		return repoErr("DeleteBook", err)
	}
	return nil
}

/* Returns any book regardless of its owner. */
func (s *Service) GetBook(ctx context.Context, id uuid.UUID) (Book, error) {
	b, err := s.repo.GetBookByID(ctx, id)
	if err != nil {
		return Book{}, repoErr("GetBook", err)
	}
	return b, nil
}

func (s *Service) FetchAsset(ctx context.Context, locator string) (Asset, error) {
	asset, err := s.assets.Get(ctx, locator)
	if err != nil {
		if errors.Is(err, ErrResponseAssetNotFound) {
			return Asset{}, err
		}
		return Asset{}, storageErr("fetch", err)
	}
	return asset, nil
}

func (s *Service) ownedBook(ctx context.Context, actorID, id uuid.UUID, op string) (Book, error) {
	if actorID == uuid.Nil {
		return Book{}, ErrResponseUnauthenticated
	}
	stored, err := s.repo.GetBookByID(ctx, id)
	if err != nil {
		return Book{}, repoErr(op, err)
	}
	if stored.OwnerID != actorID {
		return Book{}, ErrResponseForbidden
	}
	return stored, nil
}

func (s *Service) releaseAsset(ctx context.Context, bookID uuid.UUID, locator string) {
	if err := s.assets.Delete(ctx, locator); err != nil {
		log.Printf("[orphan] book %s: deleting asset %s: %v", bookID, locator, err)
	}
}

func (s *Service) notifyCreated(ctx context.Context, b Book) {
	if s.ntfy == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notificationsTimeout)
	defer cancel()
	if err := s.ntfy.BookCreated(ctx, b); err != nil {
		log.Println("notifying book creation:", err)
	}
}

func assetLocators(b Book) []string {
	var locators []string
	if b.Cover != nil {
		locators = append(locators, *b.Cover)
	}
	if b.File != nil {
		locators = append(locators, b.File.Locator)
	}
	return locators
}

func repoErr(op string, err error) error {
	if errors.Is(err, ErrResponseBookNotFound) {
		return ErrResponseBookNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("timeout on call to %s: %w", op, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("canceled call to %s: %w", op, err)
	}
	return ErrResponseFromRespository.With(err.Error())
}

func storageErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, ErrResponseStorageFailure) {
		return err
	}
	return ErrResponseStorageFailure.With(fmt.Sprintf("%s: %v", op, err))
}
