package book

import (
	"fmt"
)

type ErrResponse struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_message"`
}

func (e ErrResponse) Error() string {
	return e.Message
}

// Is matches on the code, so an ErrResponse carrying a detailed message
// still matches its base value.
func (e ErrResponse) Is(target error) bool {
	t, ok := target.(ErrResponse)
	return ok && t.Code == e.Code
}

/* Returns a copy of e with detail appended to its message. */
func (e ErrResponse) With(detail string) ErrResponse {
	return ErrResponse{Code: e.Code, Message: e.Message + detail}
}

var ErrResponseValidation = ErrResponse{100, "invalid book entry: "}
var ErrResponseBookNotFound = ErrResponse{101, "book not found"}
var ErrResponseEntryInvalidForm = ErrResponse{102, "invalid form request."}
var ErrResponseIdInvalidFormat = ErrResponse{103, "the endpoint is not a valid format ID. Must be /books/{uuid}"}
var ErrResponseQueryPriceInvalidFormat = ErrResponse{104, "query parameters 'min_price' and 'max_price' must be floats between 0 and 99999.99"}
var ErrResponseFromRespository = ErrResponse{108, "error from repository: "}
var ErrResponseRequestTimeout = ErrResponse{109, "error from context:"}
var ErrResponseUnauthenticated = ErrResponse{120, "sign in to continue"}
var ErrResponseForbidden = ErrResponse{121, "permission denied: the book belongs to another writer"}
var ErrResponseStorageFailure = ErrResponse{122, "storage failure: "}
var ErrResponseAssetNotFound = ErrResponse{123, "asset not found"}
var ErrResponseTooManyRequests = ErrResponse{124, "too many requests, try again later"}

var ErrFileRequired = ErrResponseValidation.With("file required")
var ErrFileNameRequired = ErrResponseValidation.With("file name required")

type ErrNotificationFailed struct {
	statusCode int
}

func (e ErrNotificationFailed) Error() string {
	return fmt.Sprintf("ntfy wrong response - want: 200 OK, got: %d", e.statusCode)
}

func NewErrNotificationFailed(statusCode int) ErrNotificationFailed {
	return ErrNotificationFailed{statusCode: statusCode}
}
