package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"soundcrate/internal/circuitbreaker"
	"soundcrate/internal/metrics"
)

// HTTPProvider implements Provider for http(s) preview URLs
type HTTPProvider struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.Breaker
	metrics        *metrics.Metrics
	maxRetries     int
	retryDelay     time.Duration
}

type openResult struct {
	body  io.ReadCloser
	total int64
}

// NewHTTPProvider creates a new HTTP fetch provider. The client timeout
// covers the whole transfer, not just the connect, so a stalled body read
// cannot hang the worker.
func NewHTTPProvider(fetchTimeout time.Duration, maxRetries int, retryDelay time.Duration, m *metrics.Metrics, cb *circuitbreaker.Breaker) *HTTPProvider {
	return &HTTPProvider{
		client:         &http.Client{Timeout: fetchTimeout},
		circuitBreaker: cb,
		metrics:        m,
		maxRetries:     maxRetries,
		retryDelay:     retryDelay,
	}
}

// Open issues a GET for rawURL and returns the body stream plus the
// reported Content-Length (-1 when the server did not report one).
func (p *HTTPProvider) Open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	start := time.Now()
	var resultLabel string
	defer func() {
		duration := time.Since(start)
		p.metrics.FetchDuration.WithLabelValues("http", resultLabel).Observe(duration.Seconds())
	}()

	// Execute with circuit breaker
	result, err := p.circuitBreaker.Execute(func() (interface{}, error) {
		// Retry loop with exponential backoff
		var lastErr error
		for attempt := 0; attempt <= p.maxRetries; attempt++ {
			if attempt > 0 {
				// Exponential backoff: retryDelay * 2^(attempt-1)
				delay := p.retryDelay * time.Duration(1<<(attempt-1))
				select {
				case <-ctx.Done():
					resultLabel = "error"
					return nil, ctx.Err()
				case <-time.After(delay):
				}
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				resultLabel = "error"
				return nil, err
			}

			resp, err := p.client.Do(req)
			if err != nil {
				lastErr = err
				if !isRetryableError(err) || attempt == p.maxRetries {
					break
				}
				continue
			}

			if resp.StatusCode >= 400 {
				resp.Body.Close()
				lastErr = fmt.Errorf("bad status: %d", resp.StatusCode)
				// Server errors may be transient; client errors are not
				if resp.StatusCode < 500 || attempt == p.maxRetries {
					break
				}
				continue
			}

			resultLabel = "success"
			return openResult{body: resp.Body, total: resp.ContentLength}, nil
		}

		resultLabel = "error"
		return nil, fmt.Errorf("fetch failed: %w", lastErr)
	})

	if err != nil {
		return nil, -1, err
	}

	res := result.(openResult)
	return res.body, res.total, nil
}

// isRetryableError determines if a transport error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are not retryable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	// Connection resets, DNS hiccups and similar transport failures are
	// worth another attempt
	return true
}

// HealthCheck reports healthy as long as the client exists; there is no
// single upstream host to probe because preview URLs are caller-supplied.
func (p *HTTPProvider) HealthCheck(ctx context.Context) error {
	if p.client == nil {
		return fmt.Errorf("http client not initialized")
	}
	return nil
}
