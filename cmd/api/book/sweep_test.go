package book_test

import (
	"errors"
	"testing"
	"time"

	"github.com/bookshelf-service/cmd/api/book"
	bookmock "github.com/bookshelf-service/cmd/api/book/mocks"
	"github.com/google/uuid"
	"github.com/matryer/is"
	gomock "go.uber.org/mock/gomock"
)

func TestSweepOrphanAssets(t *testing.T) {

	t.Run("deletes unreferenced assets and keeps referenced ones", func(t *testing.T) {
		is := is.New(t)
		f := newFixture()

		createdBook, err := f.svc.CreateBook(ctx, uuid.New(), createRequest("Referenced"))
		is.NoErr(err)
		orphan, err := f.assets.Put(ctx, book.NamespaceFiles, pdfBytes, "application/pdf", uuid.NewString())
		is.NoErr(err)

		report, err := f.svc.SweepOrphanAssets(ctx, 0)
		is.NoErr(err)
		is.Equal(report, book.SweepReport{Scanned: 3, Deleted: 1})

		_, err = f.svc.FetchAsset(ctx, orphan)
		is.True(errors.Is(err, book.ErrResponseAssetNotFound))
		_, err = f.svc.FetchAsset(ctx, createdBook.File.Locator)
		is.NoErr(err)
		_, err = f.svc.FetchAsset(ctx, *createdBook.Cover)
		is.NoErr(err)
	})

	t.Run("keeps orphans younger than the grace period", func(t *testing.T) {
		is := is.New(t)
		f := newFixture()

		orphan, err := f.assets.Put(ctx, book.NamespaceCovers, pngBytes, "image/png", "")
		is.NoErr(err)

		report, err := f.svc.SweepOrphanAssets(ctx, time.Hour)
		is.NoErr(err)
		is.Equal(report, book.SweepReport{Scanned: 1})

		_, err = f.svc.FetchAsset(ctx, orphan)
		is.NoErr(err)
	})

	t.Run("counts failed deletions and goes on", func(t *testing.T) {
		is := is.New(t)
		ctrl := gomock.NewController(t)
		mockRepo := bookmock.NewMockRepository(ctrl)
		mockAssets := bookmock.NewMockAssetStore(ctrl)
		mS := book.NewService(mockRepo, mockAssets, nil, notificationsTimeout)

		old := time.Now().Add(-time.Hour)
		mockRepo.EXPECT().ListBooks(gomock.Any()).Return([]book.Book{}, nil)
		mockAssets.EXPECT().List(gomock.Any(), book.NamespaceCovers).Return([]book.StoredAsset{{Locator: "covers/a-1-a", StoredAt: old}}, nil)
		mockAssets.EXPECT().List(gomock.Any(), book.NamespaceFiles).Return([]book.StoredAsset{{Locator: "files/a-1-a", StoredAt: old}}, nil)
		mockAssets.EXPECT().Delete(gomock.Any(), "covers/a-1-a").Return(errors.New("storage unreachable"))
		mockAssets.EXPECT().Delete(gomock.Any(), "files/a-1-a").Return(nil)

		report, err := mS.SweepOrphanAssets(ctx, time.Minute)
		is.NoErr(err)
		is.Equal(report, book.SweepReport{Scanned: 2, Deleted: 1, Failed: 1})
	})
}
