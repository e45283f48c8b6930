package resilience

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestBreakerOpensAfterFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := NewBreaker(4, 0.5, time.Hour)
	for i := 0; i < 4; i++ {
		if !b.Allow(ctx) {
			t.Fatalf("breaker should allow request %d while closed", i)
		}
		b.Report(ctx, false)
	}
	if b.Allow(ctx) {
		t.Fatal("breaker should be open after failure ratio exceeded")
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := NewBreaker(1, 0.5, 10*time.Millisecond)
	b.Report(ctx, false)
	if b.Allow(ctx) {
		t.Fatal("breaker should reject immediately after opening")
	}
	time.Sleep(20 * time.Millisecond)
	if !b.Allow(ctx) {
		t.Fatal("breaker should allow a probe after cool-off")
	}
	b.Report(ctx, true)
	if !b.Allow(ctx) {
		t.Fatal("breaker should close after a successful probe")
	}
}

func TestHTTPClientRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cl := HTTPClient{
		Client:      srv.Client(),
		Breaker:     NewBreaker(100, 0.99, time.Hour),
		BaseBackoff: time.Millisecond,
		MaxAttempts: 5,
	}
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := cl.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("expected success after retries: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}
