package fetch

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	f := New(time.Second, 3, time.Millisecond, nil)
	body, ok := f.Fetch("weather", server.URL)
	if !ok {
		t.Fatal("Fetch() ok = false, want true")
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("Fetch() body = %q", body)
	}
}

// TestFetch_RetriesTransientThenSucceeds verifies that 5xx responses are
// retried with exponential backoff and the call eventually succeeds.
func TestFetch_RetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	base := 20 * time.Millisecond
	f := New(time.Second, 3, base, nil)

	start := time.Now()
	_, ok := f.Fetch("weather", server.URL)
	elapsed := time.Since(start)

	if !ok {
		t.Fatal("Fetch() ok = false, want true after retries")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("upstream calls = %d, want 3", got)
	}
	// Backoff schedule is base, then 2*base between the three attempts.
	if want := 3 * base; elapsed < want {
		t.Errorf("elapsed = %v, want >= %v (backoff honored)", elapsed, want)
	}
}

// TestFetch_ClientErrorNoRetry verifies that a 4xx response fails
// immediately without consuming the retry budget.
func TestFetch_ClientErrorNoRetry(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"400 bad request", http.StatusBadRequest},
		{"401 unauthorized", http.StatusUnauthorized},
		{"404 not found", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			f := New(time.Second, 3, time.Millisecond, nil)
			_, ok := f.Fetch("weather", server.URL)
			if ok {
				t.Fatal("Fetch() ok = true, want false")
			}
			if got := calls.Load(); got != 1 {
				t.Errorf("upstream calls = %d, want 1 (no retry on 4xx)", got)
			}
		})
	}
}

func TestFetch_RateLimitedRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	f := New(time.Second, 3, time.Millisecond, nil)
	_, ok := f.Fetch("weather", server.URL)
	if ok {
		t.Fatal("Fetch() ok = true, want false after exhausting retries")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("upstream calls = %d, want 3 (429 retried)", got)
	}
}

// TestFetch_TransportErrorRetried verifies that connection-level failures
// follow the same retry schedule as 429/5xx.
func TestFetch_TransportErrorRetried(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close() // connection refused from here on

	f := New(time.Second, 3, time.Millisecond, nil)
	start := time.Now()
	_, ok := f.Fetch("weather", url)
	if ok {
		t.Fatal("Fetch() ok = true, want false")
	}
	if elapsed := time.Since(start); elapsed < 3*time.Millisecond {
		t.Errorf("elapsed = %v, want backoff between attempts", elapsed)
	}
}
