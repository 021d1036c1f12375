// Package fetch implements the retrying HTTP GET used for every upstream
// OpenWeather call. Failures surface as an absence result, never an error:
// callers treat "no data" as a first-class outcome.
package fetch

import (
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pogodabot/weatherbot/internal/observability"
)

// Fetcher issues GET requests with bounded retries and exponential backoff.
// Client errors (4xx) fail immediately; 429, 5xx and transport-level errors
// are retried up to the attempt budget.
type Fetcher struct {
	client    *http.Client
	attempts  int
	baseDelay time.Duration
	logger    *zap.Logger
}

// New creates a Fetcher. timeout bounds each individual attempt, attempts is
// the total attempt budget (not extra retries), baseDelay is the first
// backoff gap; subsequent gaps double.
func New(timeout time.Duration, attempts int, baseDelay time.Duration, logger *zap.Logger) *Fetcher {
	if attempts <= 0 {
		attempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		attempts:  attempts,
		baseDelay: baseDelay,
		logger:    logger,
	}
}

// Fetch performs a GET against url. endpoint is a short name used only for
// metrics and logs. Returns the response body and true on any 2xx/3xx
// status, or nil and false after the retry budget is exhausted or on a
// non-retryable failure.
func (f *Fetcher) Fetch(endpoint, url string) ([]byte, bool) {
	delay := f.baseDelay
	for attempt := 1; attempt <= f.attempts; attempt++ {
		if attempt > 1 {
			observability.UpstreamRetriesTotal.Inc()
			time.Sleep(delay)
			delay *= 2
		}

		body, retryable, ok := f.attemptOnce(endpoint, url)
		if ok {
			return body, true
		}
		if !retryable {
			return nil, false
		}
		f.logger.Debug("upstream attempt failed",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt),
			zap.Int("budget", f.attempts))
	}
	f.logger.Warn("upstream retries exhausted", zap.String("endpoint", endpoint))
	return nil, false
}

// attemptOnce performs a single GET. Returns (body, retryable, ok).
func (f *Fetcher) attemptOnce(endpoint, url string) ([]byte, bool, bool) {
	start := time.Now()
	resp, err := f.client.Get(url)
	duration := time.Since(start).Seconds()
	if err != nil {
		// DNS failures, connection resets and timeouts are all transient
		// from the caller's point of view.
		observability.UpstreamRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		observability.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(duration)
		return nil, true, false
	}
	defer resp.Body.Close()

	observability.UpstreamRequestsTotal.WithLabelValues(endpoint, statusLabel(resp.StatusCode)).Inc()
	observability.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(duration)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, false
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// Bad input or bad key; retrying cannot help.
		return nil, false, false
	case resp.StatusCode >= 500:
		return nil, true, false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, false
	}
	return body, false, true
}

func statusLabel(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 400:
		return "success"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	default:
		return "server_error"
	}
}
