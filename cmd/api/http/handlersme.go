package http

import (
	"net/http"

	"github.com/bookshelf-service/cmd/api/auth"
	"github.com/bookshelf-service/cmd/api/book"
)

/* Returns the books of the signed-in writer matching the query filter. */
func (h *BookHandler) listMyBooks(w http.ResponseWriter, r *http.Request) {
	actorID, err := auth.RequireActor(r.Context())
	if err != nil {
		handleError(err, w, r)
		return
	}

	filter, err := extractFilter(r.URL.Query())
	if err != nil {
		handleError(err, w, r)
		return
	}

	books, err := h.bookService.ListBooks(r.Context(), book.OwnedBy(actorID), filter)
	if err != nil {
		handleError(err, w, r)
		return
	}
	responseJSON(w, http.StatusOK, booksToResponse(books))
}

type StatsResponse struct {
	TotalBooks         int     `json:"total_books"`
	TotalValue         float64 `json:"total_value"`
	DistinctCategories int     `json:"distinct_categories"`
}

func (h *BookHandler) myStats(w http.ResponseWriter, r *http.Request) {
	actorID, err := auth.RequireActor(r.Context())
	if err != nil {
		handleError(err, w, r)
		return
	}

	stats, err := h.bookService.ComputeStats(r.Context(), actorID)
	if err != nil {
		handleError(err, w, r)
		return
	}
	responseJSON(w, http.StatusOK, StatsResponse{
		TotalBooks:         stats.TotalBooks,
		TotalValue:         stats.TotalValue,
		DistinctCategories: stats.DistinctCategories,
	})
}

func (h *BookHandler) myCategories(w http.ResponseWriter, r *http.Request) {
	actorID, err := auth.RequireActor(r.Context())
	if err != nil {
		handleError(err, w, r)
		return
	}

	categories, err := h.bookService.ListCategories(r.Context(), actorID)
	if err != nil {
		handleError(err, w, r)
		return
	}
	responseJSON(w, http.StatusOK, categories)
}
