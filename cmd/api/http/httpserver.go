package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bookshelf-service/cmd/api/auth"
	"github.com/gorilla/mux"
)

type ServerConfig struct {
	Port           int
	JWTSecret      string
	WriteRateLimit float64 // requests per second per client, 0 disables it
}

func NewServer(config ServerConfig, h *BookHandler) *http.Server {
	limiter := newWriteLimiter(config.WriteRateLimit)

	r := mux.NewRouter()
	r.Use(withRequestTimeout, auth.Middleware(config.JWTSecret))

	r.HandleFunc("/ping", ping).Methods(http.MethodGet)
	r.HandleFunc("/categories", knownCategories).Methods(http.MethodGet)

	r.HandleFunc("/books", h.listBooks).Methods(http.MethodGet)
	r.Handle("/books", limiter.wrap(h.createBook)).Methods(http.MethodPost)
	r.HandleFunc("/books/{id}", h.getBookById).Methods(http.MethodGet)
	r.Handle("/books/{id}", limiter.wrap(h.updateBook)).Methods(http.MethodPut)
	r.Handle("/books/{id}", limiter.wrap(h.deleteBook)).Methods(http.MethodDelete)
	r.HandleFunc("/books/{id}/file", h.downloadBookFile).Methods(http.MethodGet)

	r.HandleFunc("/me/books", h.listMyBooks).Methods(http.MethodGet)
	r.HandleFunc("/me/stats", h.myStats).Methods(http.MethodGet)
	r.HandleFunc("/me/categories", h.myCategories).Methods(http.MethodGet)

	r.HandleFunc("/assets/{locator:.+}", h.fetchAsset).Methods(http.MethodGet)

	server := http.Server{
		Addr:    fmt.Sprintf(":%d", config.Port),
		Handler: r,
	}
	return &server
}

/* Bounds every request by RequestTimeout. */
func withRequestTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

/* Tests the http server connection.  */
func ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
