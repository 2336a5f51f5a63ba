package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"soundcrate/internal/circuitbreaker"
	"soundcrate/internal/config"
	"soundcrate/internal/metrics"
	"soundcrate/internal/models"
)

// Client is the external search collaborator: a query in, a list of sound
// descriptors out. The rest of the system treats it as a black box.
type Client interface {
	Search(ctx context.Context, query string) ([]models.SoundDescriptor, error)
}

// HTTPClient talks to a Freesound-style search API over HTTP, with a
// circuit breaker and an optional Redis response cache in front of the
// rate-limited upstream.
type HTTPClient struct {
	logger         *zap.Logger
	metrics        *metrics.Metrics
	circuitBreaker *circuitbreaker.Breaker
	client         *http.Client
	baseURL        string
	token          string
	cache          *Cache // nil when caching is disabled
}

// NewHTTPClient creates a search client. cache may be nil.
func NewHTTPClient(logger *zap.Logger, m *metrics.Metrics, cb *circuitbreaker.Breaker, cfg *config.Config, cache *Cache) *HTTPClient {
	return &HTTPClient{
		logger:         logger,
		metrics:        m,
		circuitBreaker: cb,
		client:         &http.Client{Timeout: cfg.SearchTimeout},
		baseURL:        cfg.SearchAPIURL,
		token:          cfg.SearchAPIToken,
		cache:          cache,
	}
}

type searchResponse struct {
	Results []models.SoundDescriptor `json:"results"`
}

// Search queries the remote API for sounds matching query.
func (c *HTTPClient) Search(ctx context.Context, query string) ([]models.SoundDescriptor, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("search api not configured")
	}

	if c.cache != nil {
		if sounds, ok := c.cache.Get(ctx, query); ok {
			c.metrics.SearchCacheTotal.WithLabelValues("hit").Inc()
			return sounds, nil
		}
		c.metrics.SearchCacheTotal.WithLabelValues("miss").Inc()
	}

	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		reqURL := fmt.Sprintf("%s?query=%s", c.baseURL, url.QueryEscape(query))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Token "+c.token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("search request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("search api status: %d", resp.StatusCode)
		}

		var parsed searchResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return nil, fmt.Errorf("decode search response: %w", err)
		}
		return parsed.Results, nil
	})

	if err != nil {
		c.metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	sounds := result.([]models.SoundDescriptor)
	c.metrics.SearchRequestsTotal.WithLabelValues("success").Inc()

	if c.cache != nil {
		c.cache.Set(ctx, query, sounds)
	}

	c.logger.Debug("search completed", zap.String("query", query), zap.Int("results", len(sounds)))
	return sounds, nil
}
