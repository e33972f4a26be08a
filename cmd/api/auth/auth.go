// Package auth identifies the writer behind a request from an HS256 bearer token.
package auth

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/bookshelf-service/cmd/api/book"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Claims struct {
	Sub string `json:"sub"` // writer id
	jwt.RegisteredClaims
}

func GenerateToken(secret string, actorID uuid.UUID, ttl time.Duration) (string, error) {
	c := Claims{
		Sub: actorID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return t.SignedString([]byte(secret))
}

func ParseToken(secret, tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims, ok := t.Claims.(*Claims); ok && t.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}

type contextKey string

const actorIDKey contextKey = "actorID"

func ContextWithActor(ctx context.Context, actorID uuid.UUID) context.Context {
	return context.WithValue(ctx, actorIDKey, actorID)
}

// ActorFrom returns the authenticated writer of the request, if any.
func ActorFrom(ctx context.Context) (uuid.UUID, bool) {
	actorID, ok := ctx.Value(actorIDKey).(uuid.UUID)
	if !ok || actorID == uuid.Nil {
		return uuid.Nil, false
	}
	return actorID, true
}

func RequireActor(ctx context.Context) (uuid.UUID, error) {
	actorID, ok := ActorFrom(ctx)
	if !ok {
		return uuid.Nil, book.ErrResponseUnauthenticated
	}
	return actorID, nil
}

// Middleware authenticates requests carrying a bearer token and lets anonymous
// requests through untouched; handlers decide whether an actor is required.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !strings.HasPrefix(authHeader, "Bearer ") {
				unauthorized(w)
				return
			}

			claims, err := ParseToken(secret, strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				unauthorized(w)
				return
			}
			actorID, err := uuid.Parse(claims.Sub)
			if err != nil || actorID == uuid.Nil {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actorID)))
		})
	}
}

/* Answers with the same JSON error body the handlers use. */
func unauthorized(w http.ResponseWriter) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(book.ErrResponseUnauthenticated); err != nil {
		log.Println(err)
	}
}
