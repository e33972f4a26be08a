package auth_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bookshelf-service/cmd/api/auth"
	"github.com/bookshelf-service/cmd/api/book"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/matryer/is"
)

const secret = "test-secret"

/* Signs a token whose subject is not necessarily a writer id. */
func mustToken(t *testing.T, sub string) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Sub: sub,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestToken(t *testing.T) {

	t.Run("parses a token it generated", func(t *testing.T) {
		is := is.New(t)

		actorID := uuid.New()
		token, err := auth.GenerateToken(secret, actorID, time.Hour)
		is.NoErr(err)

		claims, err := auth.ParseToken(secret, token)
		is.NoErr(err)
		is.Equal(claims.Sub, actorID.String())
	})

	t.Run("rejects a token signed with another secret", func(t *testing.T) {
		is := is.New(t)

		token, err := auth.GenerateToken("another-secret", uuid.New(), time.Hour)
		is.NoErr(err)

		_, err = auth.ParseToken(secret, token)
		is.True(err != nil)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		is := is.New(t)

		token, err := auth.GenerateToken(secret, uuid.New(), -time.Minute)
		is.NoErr(err)

		_, err = auth.ParseToken(secret, token)
		is.True(err != nil)
	})
}

func TestRequireActor(t *testing.T) {
	is := is.New(t)

	_, err := auth.RequireActor(context.Background())
	is.True(errors.Is(err, book.ErrResponseUnauthenticated))

	actorID := uuid.New()
	got, err := auth.RequireActor(auth.ContextWithActor(context.Background(), actorID))
	is.NoErr(err)
	is.Equal(got, actorID)
}

func TestMiddleware(t *testing.T) {
	var seen uuid.UUID
	var authenticated bool
	handler := auth.Middleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, authenticated = auth.ActorFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("anonymous requests pass without an actor", func(t *testing.T) {
		is := is.New(t)

		response := httptest.NewRecorder()
		handler.ServeHTTP(response, httptest.NewRequest(http.MethodGet, "/books", nil))

		is.Equal(response.Code, http.StatusNoContent)
		is.True(!authenticated)
	})

	t.Run("a valid bearer token sets the actor", func(t *testing.T) {
		is := is.New(t)

		actorID := uuid.New()
		token, err := auth.GenerateToken(secret, actorID, time.Hour)
		is.NoErr(err)

		request := httptest.NewRequest(http.MethodGet, "/me/books", nil)
		request.Header.Set("Authorization", "Bearer "+token)
		response := httptest.NewRecorder()
		handler.ServeHTTP(response, request)

		is.Equal(response.Code, http.StatusNoContent)
		is.True(authenticated)
		is.Equal(seen, actorID)
	})

	t.Run("an invalid token is rejected", func(t *testing.T) {
		is := is.New(t)

		request := httptest.NewRequest(http.MethodGet, "/me/books", nil)
		request.Header.Set("Authorization", "Bearer not-a-token")
		response := httptest.NewRecorder()
		handler.ServeHTTP(response, request)

		is.Equal(response.Code, http.StatusUnauthorized)
		is.Equal(response.Header().Get("Content-Type"), "application/json")
		is.Equal(response.Body.String(), fmt.Sprintln(`{"error_code":120,"error_message":"sign in to continue"}`))
	})

	t.Run("a malformed authorization header gets the JSON error body", func(t *testing.T) {
		for _, header := range []string{"Basic dXNlcjpwYXNz", "Bearer " + mustToken(t, "not-a-uuid")} {
			is := is.New(t)

			request := httptest.NewRequest(http.MethodGet, "/me/books", nil)
			request.Header.Set("Authorization", header)
			response := httptest.NewRecorder()
			handler.ServeHTTP(response, request)

			is.Equal(response.Code, http.StatusUnauthorized)
			is.Equal(response.Header().Get("Content-Type"), "application/json")
			is.Equal(response.Body.String(), fmt.Sprintln(`{"error_code":120,"error_message":"sign in to continue"}`))
		}
	})
}
