package ratelimit_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/aranya-labs/backend-vastra/internal/ratelimit"
)

func newLimiter(t *testing.T) ratelimit.Limiter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return ratelimit.Limiter{Client: client, Prefix: "rl:"}
}

func TestMiddlewareBlocksOverLimit(t *testing.T) {
	handler := ratelimit.Handler{
		Limiter: newLimiter(t),
		Config: ratelimit.Config{
			Key:    func(*http.Request) string { return "checkout:user-1" },
			Window: time.Minute,
			Max:    2,
		},
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	wrapped := handler.Middleware(next)

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout", nil))
		statuses = append(statuses, rec.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
}

func TestMiddlewareSetsHeaders(t *testing.T) {
	handler := ratelimit.Handler{
		Limiter: newLimiter(t),
		Config: ratelimit.Config{
			Key:    func(*http.Request) string { return "checkout:user-2" },
			Window: time.Minute,
			Max:    5,
		},
	}
	rec := httptest.NewRecorder()
	handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {})).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout", nil))

	require.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
}

func TestMiddlewareFailsOpenWithoutRedis(t *testing.T) {
	handler := ratelimit.Handler{
		Limiter: ratelimit.Limiter{},
		Config: ratelimit.Config{
			Key:    func(*http.Request) string { return "k" },
			Window: time.Minute,
			Max:    1,
		},
	}
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })).
			ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}
