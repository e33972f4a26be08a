package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"math"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bookshelf-service/cmd/api/auth"
	"github.com/bookshelf-service/cmd/api/book"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

//go:generate mockgen -source=handlers.go -destination=mocks/mocks.go -package=mocks

var RequestTimeout = 10 * time.Second

// MaxRequestBytes bounds a whole multipart request: a cover and a book file of
// the maximum asset size plus the form fields.
var MaxRequestBytes int64 = 101 << 20

const multipartMemory = 32 << 20

type ServiceAPI interface {
	CreateBook(ctx context.Context, actorID uuid.UUID, req book.CreateBookRequest) (book.Book, error)
	UpdateBook(ctx context.Context, actorID uuid.UUID, req book.UpdateBookRequest) (book.Book, error)
	DeleteBook(ctx context.Context, actorID uuid.UUID, id uuid.UUID) error
	GetBook(ctx context.Context, id uuid.UUID) (book.Book, error)
	ListBooks(ctx context.Context, scope book.Scope, filter book.Filter) ([]book.Book, error)
	ComputeStats(ctx context.Context, ownerID uuid.UUID) (book.Stats, error)
	ListCategories(ctx context.Context, ownerID uuid.UUID) ([]string, error)
	FetchAsset(ctx context.Context, locator string) (book.Asset, error)
}

type BookHandler struct {
	bookService ServiceAPI
}

func NewBookHandler(bookService ServiceAPI) *BookHandler {
	return &BookHandler{bookService: bookService}
}

type BookEntry struct {
	Name        string
	Category    string
	Price       string
	Description string
}

/* Validates the form, then stores the entry as a new book with its cover and file. */
func (h *BookHandler) createBook(w http.ResponseWriter, r *http.Request) {
	actorID, err := auth.RequireActor(r.Context())
	if err != nil {
		handleError(err, w, r)
		return
	}

	entry, cover, file, err := readBookForm(w, r)
	if err != nil {
		handleError(err, w, r)
		return
	}

	price, err := parsePrice(entry.Price)
	if err != nil {
		handleError(err, w, r)
		return
	}

	req := book.CreateBookRequest{
		Name:        entry.Name,
		Category:    entry.Category,
		Price:       price,
		Description: entry.Description,
		Cover:       cover,
		File:        file,
	}

	storedBook, err := h.bookService.CreateBook(r.Context(), actorID, req)
	if err != nil {
		handleError(err, w, r)
		return
	}

	responseJSON(w, http.StatusCreated, bookToResponse(storedBook))
}

/* Validates the form, then updates the asked book. Cover and file are replaced only when sent. */
func (h *BookHandler) updateBook(w http.ResponseWriter, r *http.Request) {
	actorID, err := auth.RequireActor(r.Context())
	if err != nil {
		handleError(err, w, r)
		return
	}

	id, err := isolateId(w, r)
	if err != nil {
		return
	}

	entry, cover, file, err := readBookForm(w, r)
	if err != nil {
		handleError(err, w, r)
		return
	}

	price, err := parsePrice(entry.Price)
	if err != nil {
		handleError(err, w, r)
		return
	}

	req := book.UpdateBookRequest{
		ID:          id,
		Name:        entry.Name,
		Category:    entry.Category,
		Price:       price,
		Description: entry.Description,
		Cover:       cover,
		File:        file,
	}

	updatedBook, err := h.bookService.UpdateBook(r.Context(), actorID, req)
	if err != nil {
		handleError(err, w, r)
		return
	}

	responseJSON(w, http.StatusOK, bookToResponse(updatedBook))
}

func (h *BookHandler) deleteBook(w http.ResponseWriter, r *http.Request) {
	actorID, err := auth.RequireActor(r.Context())
	if err != nil {
		handleError(err, w, r)
		return
	}

	id, err := isolateId(w, r)
	if err != nil {
		return
	}

	err = h.bookService.DeleteBook(r.Context(), actorID, id)
	if err != nil {
		handleError(err, w, r)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

/* Returns the book with that specific ID. */
func (h *BookHandler) getBookById(w http.ResponseWriter, r *http.Request) {
	id, err := isolateId(w, r)
	if err != nil {
		return
	}

	returnedBook, err := h.bookService.GetBook(r.Context(), id)
	if err != nil {
		handleError(err, w, r)
		return
	}

	responseJSON(w, http.StatusOK, bookToResponse(returnedBook))
}

/* Returns every published book matching the query filter, newest first. */
func (h *BookHandler) listBooks(w http.ResponseWriter, r *http.Request) {
	filter, err := extractFilter(r.URL.Query())
	if err != nil {
		handleError(err, w, r)
		return
	}

	books, err := h.bookService.ListBooks(r.Context(), book.PublicScope(), filter)
	if err != nil {
		handleError(err, w, r)
		return
	}
	responseJSON(w, http.StatusOK, booksToResponse(books))
}

/* Streams a stored cover or book file. */
func (h *BookHandler) fetchAsset(w http.ResponseWriter, r *http.Request) {
	locator := mux.Vars(r)["locator"]

	asset, err := h.bookService.FetchAsset(r.Context(), locator)
	if err != nil {
		handleError(err, w, r)
		return
	}

	disposition := ""
	if asset.Namespace == book.NamespaceFiles {
		disposition = "attachment"
	}
	writeAsset(w, asset, disposition)
}

/* Downloads the book file under the name the writer uploaded it with. */
func (h *BookHandler) downloadBookFile(w http.ResponseWriter, r *http.Request) {
	id, err := isolateId(w, r)
	if err != nil {
		return
	}

	storedBook, err := h.bookService.GetBook(r.Context(), id)
	if err != nil {
		handleError(err, w, r)
		return
	}
	if storedBook.File == nil {
		handleError(book.ErrResponseAssetNotFound, w, r)
		return
	}

	asset, err := h.bookService.FetchAsset(r.Context(), storedBook.File.Locator)
	if err != nil {
		handleError(err, w, r)
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": storedBook.File.FileName})
	if disposition == "" {
		disposition = "attachment"
	}
	writeAsset(w, asset, disposition)
}

func writeAsset(w http.ResponseWriter, asset book.Asset, disposition string) {
	w.Header().Set("content-type", asset.ContentType)
	w.Header().Set("content-length", strconv.Itoa(len(asset.Data)))
	w.Header().Set("x-content-type-options", "nosniff")
	if disposition != "" {
		w.Header().Set("content-disposition", disposition)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(asset.Data); err != nil {
		log.Println(err)
	}
}

/* Lists the genres a book can be published under. */
func knownCategories(w http.ResponseWriter, r *http.Request) {
	responseJSON(w, http.StatusOK, book.Categories)
}

/* Reads the multipart form of a create or update request. */
func readBookForm(w http.ResponseWriter, r *http.Request) (BookEntry, *book.Upload, *book.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBytes)
	err := r.ParseMultipartForm(multipartMemory)
	if err != nil {
		return BookEntry{}, nil, nil, book.ErrResponseEntryInvalidForm.With(err.Error())
	}

	entry := BookEntry{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Category:    strings.TrimSpace(r.FormValue("category")),
		Price:       strings.TrimSpace(r.FormValue("price")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	err = FilledFields(entry)
	if err != nil {
		return BookEntry{}, nil, nil, err
	}

	cover, err := readUpload(r, "cover")
	if err != nil {
		return BookEntry{}, nil, nil, err
	}
	file, err := readUpload(r, "file")
	if err != nil {
		return BookEntry{}, nil, nil, err
	}
	return entry, cover, file, nil
}

/* Verifies if all entry fields are filled and names the first blank one. */
func FilledFields(entry BookEntry) error {
	if entry.Name == "" {
		return book.ErrResponseValidation.With("name is required")
	}
	if entry.Category == "" {
		return book.ErrResponseValidation.With("category is required")
	}
	if entry.Price == "" {
		return book.ErrResponseValidation.With("price is required")
	}
	if entry.Description == "" {
		return book.ErrResponseValidation.With("description is required")
	}
	return nil
}

/* Returns nil when the part was not sent. */
func readUpload(r *http.Request, field string) (*book.Upload, error) {
	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, book.ErrResponseEntryInvalidForm.With(err.Error())
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, book.ErrResponseEntryInvalidForm.With(err.Error())
	}
	return &book.Upload{
		Data:        data,
		ContentType: partContentType(header),
		FileName:    header.Filename,
	}, nil
}

func partContentType(header *multipart.FileHeader) string {
	contentType := header.Header.Get("Content-Type")
	if contentType == "application/octet-stream" {
		return ""
	}
	return contentType
}

func parsePrice(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(price) {
		return nil, book.ErrResponseValidation.With("price must be a number")
	}
	return &price, nil
}

/* Isolates the ID from the URL. */
func isolateId(w http.ResponseWriter, r *http.Request) (id uuid.UUID, err error) {
	id, err = uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		log.Println(err)
		responseJSON(w, http.StatusBadRequest, book.ErrResponseIdInvalidFormat)
		return id, err
	}
	return id, nil
}

/* Validates and prepares the filter parameters of the query. */
func extractFilter(query url.Values) (book.Filter, error) {
	filter := book.Filter{
		Search:   strings.TrimSpace(query.Get("search")),
		Category: query.Get("category"),
	}

	var err error
	filter.MinPrice, err = priceParam(query.Get("min_price"))
	if err != nil {
		return book.Filter{}, err
	}
	filter.MaxPrice, err = priceParam(query.Get("max_price"))
	if err != nil {
		return book.Filter{}, err
	}
	return filter, nil
}

func priceParam(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(price) || price < 0 || price > book.PriceMax {
		return nil, book.ErrResponseQueryPriceInvalidFormat
	}
	return &price, nil
}

type FileResponse struct {
	URL      string `json:"url"`
	FileName string `json:"file_name"`
	Size     int64  `json:"size"`
}

type BookResponse struct {
	ID          uuid.UUID     `json:"id"`
	OwnerID     uuid.UUID     `json:"owner_id"`
	Name        string        `json:"name"`
	Category    string        `json:"category"`
	Price       float64       `json:"price"`
	Description string        `json:"description"`
	CoverURL    *string       `json:"cover_url,omitempty"`
	File        *FileResponse `json:"file,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

/*Copy the fields of a book object to an http layer struct with json tags*/
func bookToResponse(b book.Book) BookResponse {
	resp := BookResponse{
		ID:          b.ID,
		OwnerID:     b.OwnerID,
		Name:        b.Name,
		Category:    b.Category,
		Price:       b.Price,
		Description: b.Description,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
	if b.Cover != nil {
		coverURL := assetURL(*b.Cover)
		resp.CoverURL = &coverURL
	}
	if b.File != nil {
		resp.File = &FileResponse{
			URL:      "/books/" + b.ID.String() + "/file",
			FileName: b.File.FileName,
			Size:     b.File.Size,
		}
	}
	return resp
}

func booksToResponse(books []book.Book) []BookResponse {
	results := []BookResponse{}
	for _, b := range books {
		results = append(results, bookToResponse(b))
	}
	return results
}

func assetURL(locator string) string {
	return "/assets/" + locator
}

/*Writes a JSON response into a http.ResponseWriter. */
func responseJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		log.Println(err)
		return
	}
}

/* Maps an error from the service layer to its status code and JSON body. */
func handleError(err error, w http.ResponseWriter, r *http.Request) {
	log.Printf("%s %s: %v", r.Method, r.URL.Path, err)

	if errors.Is(err, context.DeadlineExceeded) {
		responseJSON(w, http.StatusGatewayTimeout, book.ErrResponseRequestTimeout.With(context.DeadlineExceeded.Error()))
		return
	}
	if errors.Is(err, context.Canceled) {
		responseJSON(w, http.StatusGatewayTimeout, book.ErrResponseRequestTimeout.With(context.Canceled.Error()))
		return
	}

	var errR book.ErrResponse
	if !errors.As(err, &errR) {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	switch errR.Code {
	case book.ErrResponseValidation.Code,
		book.ErrResponseEntryInvalidForm.Code,
		book.ErrResponseIdInvalidFormat.Code,
		book.ErrResponseQueryPriceInvalidFormat.Code:
		responseJSON(w, http.StatusBadRequest, errR)
	case book.ErrResponseUnauthenticated.Code:
		responseJSON(w, http.StatusUnauthorized, errR)
	case book.ErrResponseForbidden.Code:
		responseJSON(w, http.StatusForbidden, errR)
	case book.ErrResponseBookNotFound.Code, book.ErrResponseAssetNotFound.Code:
		responseJSON(w, http.StatusNotFound, errR)
	case book.ErrResponseStorageFailure.Code:
		responseJSON(w, http.StatusBadGateway, errR)
	case book.ErrResponseTooManyRequests.Code:
		responseJSON(w, http.StatusTooManyRequests, errR)
	case book.ErrResponseFromRespository.Code:
		responseJSON(w, http.StatusInternalServerError, book.ErrResponseFromRespository)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
}
