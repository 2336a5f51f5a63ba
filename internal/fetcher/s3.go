package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"soundcrate/internal/circuitbreaker"
	appconfig "soundcrate/internal/config"
	"soundcrate/internal/metrics"
)

// S3Provider implements Provider for s3://bucket/key preview URLs,
// typically a private sample mirror on S3-compatible storage.
type S3Provider struct {
	client         *s3.Client
	circuitBreaker *circuitbreaker.Breaker
	metrics        *metrics.Metrics
	maxRetries     int
	retryDelay     time.Duration
}

// NewS3Provider creates a new S3-compatible fetch provider
func NewS3Provider(ctx context.Context, cfg *appconfig.Config, m *metrics.Metrics, cb *circuitbreaker.Breaker) (*S3Provider, error) {
	region := cfg.S3Region
	if region == "" || region == "auto" {
		// Works for MinIO and AWS when the caller doesn't care
		region = "us-east-1"
	}

	cfgOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	// Static credentials (typical for MinIO and many S3-compatible providers)
	if cfg.S3AccessKeyID != "" && cfg.S3SecretAccessKey != "" {
		cfgOpts = append(cfgOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.S3AccessKeyID,
				cfg.S3SecretAccessKey,
				"",
			),
		))
	}

	// Custom endpoint (MinIO, Wasabi, etc.)
	if cfg.S3Endpoint != "" {
		endpoint := cfg.S3Endpoint
		cfgOpts = append(cfgOpts, config.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(
				func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
					if service == s3.ServiceID {
						return aws.Endpoint{
							URL:               endpoint,
							HostnameImmutable: true,
						}, nil
					}
					return aws.Endpoint{}, &aws.EndpointNotFoundError{}
				},
			),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, err
	}

	usePathStyle := cfg.S3UsePathStyle

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = usePathStyle
	})

	return &S3Provider{
		client:         client,
		circuitBreaker: cb,
		metrics:        m,
		maxRetries:     cfg.FetchMaxRetries,
		retryDelay:     cfg.FetchRetryDelay,
	}, nil
}

// Open fetches an object addressed as s3://bucket/key
func (p *S3Provider) Open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	start := time.Now()
	var resultLabel string
	defer func() {
		duration := time.Since(start)
		p.metrics.FetchDuration.WithLabelValues("s3", resultLabel).Observe(duration.Seconds())
	}()

	bucket, key, err := splitS3URL(rawURL)
	if err != nil {
		resultLabel = "error"
		return nil, -1, err
	}

	// Execute with circuit breaker
	result, err := p.circuitBreaker.Execute(func() (interface{}, error) {
		// Retry loop with exponential backoff
		var lastErr error
		for attempt := 0; attempt <= p.maxRetries; attempt++ {
			if attempt > 0 {
				delay := p.retryDelay * time.Duration(1<<(attempt-1))
				select {
				case <-ctx.Done():
					resultLabel = "error"
					return nil, ctx.Err()
				case <-time.After(delay):
				}
			}

			output, err := p.client.GetObject(ctx, &s3.GetObjectInput{
				Bucket: aws.String(bucket),
				Key:    aws.String(key),
			})
			if err == nil {
				total := int64(-1)
				if output.ContentLength != nil {
					total = *output.ContentLength
				}
				resultLabel = "success"
				return openResult{body: output.Body, total: total}, nil
			}

			lastErr = err

			// NoSuchKey and similar API errors fail fast; transport
			// errors get another attempt
			if !isRetryableError(err) || strings.Contains(err.Error(), "NoSuchKey") || attempt == p.maxRetries {
				break
			}
		}

		resultLabel = "error"
		return nil, lastErr
	})

	if err != nil {
		return nil, -1, err
	}

	res := result.(openResult)
	return res.body, res.total, nil
}

// splitS3URL parses s3://bucket/key into its components
func splitS3URL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid s3 url: %w", err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid s3 url: %s", rawURL)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("s3 url missing key: %s", rawURL)
	}
	return u.Host, key, nil
}

// HealthCheck performs a lightweight connectivity check to S3
func (p *S3Provider) HealthCheck(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := p.client.ListBuckets(checkCtx, &s3.ListBucketsInput{})
	if err != nil {
		return fmt.Errorf("s3 connectivity check failed: %w", err)
	}
	return nil
}
