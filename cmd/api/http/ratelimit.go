package http

import (
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bookshelf-service/cmd/api/book"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// writeLimiter throttles write requests per client IP. Limiters idle for
// longer than idleAfter are dropped on the next request.
type writeLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	rate      rate.Limit
	burst     int
	idleAfter time.Duration
	lastPrune time.Time
}

/* A non-positive rps disables the limit. */
func newWriteLimiter(rps float64) *writeLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &writeLimiter{
		limiters:  make(map[string]*clientLimiter),
		rate:      limit,
		burst:     int(math.Max(1, math.Ceil(rps))),
		idleAfter: 5 * time.Minute,
		lastPrune: time.Now(),
	}
}

func (wl *writeLimiter) allow(key string) bool {
	wl.mu.Lock()
	defer wl.mu.Unlock()

	now := time.Now()
	if now.Sub(wl.lastPrune) > wl.idleAfter {
		for k, cl := range wl.limiters {
			if now.Sub(cl.lastSeen) > wl.idleAfter {
				delete(wl.limiters, k)
			}
		}
		wl.lastPrune = now
	}

	cl, ok := wl.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(wl.rate, wl.burst)}
		wl.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.Allow()
}

func (wl *writeLimiter) wrap(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !wl.allow(clientIP(r)) {
			handleError(book.ErrResponseTooManyRequests, w, r)
			return
		}
		next(w, r)
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
