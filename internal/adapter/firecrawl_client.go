// Package adapter provides clients for external data providers.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pop-scanner/internal/circuitbreaker"
	"github.com/pop-scanner/internal/config"
	"github.com/pop-scanner/internal/errors"
	"github.com/pop-scanner/internal/logging"
	"github.com/pop-scanner/internal/retry"
	"github.com/pop-scanner/internal/storage"
)

// PageFetcher turns a search URL into extractable page text. An empty result
// with a nil error means the page yielded nothing usable.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
	// Configured reports whether a live fetch is possible at all. When
	// false the scraper goes straight to its synthetic fallback.
	Configured() bool
}

// FirecrawlClient fetches search pages through the Firecrawl scrape API,
// which renders the page and returns a markdown projection of its content.
type FirecrawlClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cache   *storage.PageCache
	retry   *retry.Config
	breaker *circuitbreaker.CircuitBreaker
}

// NewFirecrawlClient creates a Firecrawl client. A nil cache disables page
// caching; an empty API key is a valid unconfigured state, not an error.
func NewFirecrawlClient(cfg *config.FirecrawlConfig, cache *storage.PageCache) *FirecrawlClient {
	return &FirecrawlClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		cache:   cache,
		retry:   retry.DefaultConfig(),
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig("firecrawl")),
	}
}

// Configured reports whether an API key is present.
func (c *FirecrawlClient) Configured() bool {
	return c.apiKey != ""
}

type scrapeRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type scrapeResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// FetchPage fetches one search-results page as markdown, consulting the page
// cache first. Transport failures are retried with backoff before being
// surfaced as provider errors. A fully exhausted fetch counts as one failure
// against the circuit breaker; once the breaker opens, fetches fail fast and
// scrape runs fall back to synthetic data until the provider recovers.
func (c *FirecrawlClient) FetchPage(ctx context.Context, url string) (string, error) {
	if !c.Configured() {
		return "", errors.NewProviderError("firecrawl", fmt.Errorf("no API key configured"))
	}

	logger := logging.FromContext(ctx)

	if c.cache != nil {
		if text, found, err := c.cache.Get(ctx, url); err != nil {
			logger.WithError(err).Warn("Page cache read failed, fetching live")
		} else if found {
			logger.WithField("url", url).Debug("Page cache hit")
			return text, nil
		}
	}

	var markdown string
	err := c.breaker.Execute(ctx, func() error {
		return retry.Do(ctx, c.retry, func(ctx context.Context, attempt int) error {
			text, err := c.scrape(ctx, url)
			if err != nil {
				return err
			}
			markdown = text
			return nil
		})
	})
	if err != nil {
		return "", errors.NewProviderError("firecrawl", err)
	}

	if c.cache != nil && markdown != "" {
		if err := c.cache.Set(ctx, url, markdown); err != nil {
			logger.WithError(err).Warn("Page cache write failed")
		}
	}

	return markdown, nil
}

func (c *FirecrawlClient) scrape(ctx context.Context, url string) (string, error) {
	body, err := json.Marshal(scrapeRequest{URL: url, Formats: []string{"markdown"}})
	if err != nil {
		return "", fmt.Errorf("failed to encode scrape request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/scrape", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build scrape request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("scrape request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read scrape response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("scrape API returned status %d", resp.StatusCode)
	}

	var decoded scrapeResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode scrape response: %w", err)
	}
	if !decoded.Success {
		return "", fmt.Errorf("scrape API reported failure: %s", decoded.Error)
	}

	return decoded.Data.Markdown, nil
}

// SetRetryConfig overrides the retry policy, used by tests to avoid real
// backoff delays.
func (c *FirecrawlClient) SetRetryConfig(cfg *retry.Config) {
	c.retry = cfg
}

// SetHTTPClient overrides the HTTP client, used by tests.
func (c *FirecrawlClient) SetHTTPClient(client *http.Client) {
	c.client = client
}

// SetCircuitBreaker overrides the breaker, used by tests to control
// thresholds.
func (c *FirecrawlClient) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	c.breaker = cb
}

var _ PageFetcher = (*FirecrawlClient)(nil)
