package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"soundcrate/internal/circuitbreaker"
	"soundcrate/internal/config"
	"soundcrate/internal/metrics"
)

// Provider opens a byte stream for one remote sample source.
type Provider interface {
	// Open connects to rawURL and returns the body stream plus the total
	// length in bytes, or -1 when the source did not report a length.
	Open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error)

	// HealthCheck performs a lightweight connectivity check
	HealthCheck(ctx context.Context) error
}

// Fetcher dispatches preview URLs to the provider matching their scheme.
// http(s) URLs go to the HTTP provider; s3:// URLs go to the S3 provider
// when one is configured.
type Fetcher struct {
	httpProvider Provider
	s3Provider   Provider
}

// New creates a fetcher from configuration. The S3 provider is only wired
// when S3 credentials or an endpoint are configured.
func New(ctx context.Context, cfg *config.Config, m *metrics.Metrics, cb *circuitbreaker.Breaker) (*Fetcher, error) {
	f := &Fetcher{
		httpProvider: NewHTTPProvider(cfg.FetchTimeout, cfg.FetchMaxRetries, cfg.FetchRetryDelay, m, cb),
	}

	if cfg.S3Endpoint != "" || cfg.S3AccessKeyID != "" {
		s3p, err := NewS3Provider(ctx, cfg, m, cb)
		if err != nil {
			return nil, fmt.Errorf("s3 provider init: %w", err)
		}
		f.s3Provider = s3p
	}

	return f, nil
}

// Open resolves the provider for rawURL's scheme and opens the stream.
func (f *Fetcher) Open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, -1, fmt.Errorf("invalid preview url: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		return f.httpProvider.Open(ctx, rawURL)
	case "s3":
		if f.s3Provider == nil {
			return nil, -1, fmt.Errorf("s3 preview url but no s3 provider configured")
		}
		return f.s3Provider.Open(ctx, rawURL)
	default:
		return nil, -1, fmt.Errorf("unsupported url scheme: %q", u.Scheme)
	}
}

// HealthCheck checks every configured provider.
func (f *Fetcher) HealthCheck(ctx context.Context) error {
	if err := f.httpProvider.HealthCheck(ctx); err != nil {
		return err
	}
	if f.s3Provider != nil {
		return f.s3Provider.HealthCheck(ctx)
	}
	return nil
}
