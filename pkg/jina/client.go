// Package jina provides a client for the Jina AI reader and search API.
package jina

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/resilience"
)

// Client defines the Jina AI Reader operations.
type Client interface {
	// Read fetches a URL via Jina AI Reader and returns the page as text.
	Read(ctx context.Context, targetURL string) (*ReadResponse, error)
	// Search performs a web search via Jina AI Search and returns results in rank order.
	Search(ctx context.Context, query string) (*SearchResponse, error)
}

// ReadResponse is the parsed Jina API response.
type ReadResponse struct {
	Code int      `json:"code"`
	Data ReadData `json:"data"`
}

// ReadData holds the content from Jina.
type ReadData struct {
	Title   string    `json:"title"`
	URL     string    `json:"url"`
	Content string    `json:"content"`
	Usage   ReadUsage `json:"usage"`
}

// ReadUsage tracks token consumption.
type ReadUsage struct {
	Tokens int `json:"tokens"`
}

// SearchResponse is the parsed Jina Search API response.
type SearchResponse struct {
	Code int            `json:"code"`
	Data []SearchResult `json:"data"`
}

// SearchResult represents a single search result.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

// Option configures the Jina client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithSearchBaseURL sets a custom search base URL (for testing).
func WithSearchBaseURL(url string) Option {
	return func(c *httpClient) {
		c.searchBaseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetry overrides the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	apiKey        string
	baseURL       string
	searchBaseURL string
	http          *http.Client
	retry         resilience.RetryConfig
}

// NewClient creates a new Jina AI Reader client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:        apiKey,
		baseURL:       "https://r.jina.ai",
		searchBaseURL: "https://s.jina.ai",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rawResponse struct {
	body   []byte
	status int
}

// do executes a GET with backoff on 429/5xx and network errors. The final
// status is returned even when it is a retryable one.
func (c *httpClient) do(ctx context.Context, reqURL string, markdown bool) (rawResponse, error) {
	cfg := c.retry
	cfg.OnRetry = resilience.LogRetries("jina", reqURL)

	var last rawResponse
	_, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return struct{}{}, eris.Wrap(err, "jina: create request")
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		req.Header.Set("Accept", "application/json")
		if markdown {
			req.Header.Set("X-Return-Format", "markdown")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return struct{}{}, resilience.NewTransientError(eris.Wrap(err, "jina: send request"), 0)
		}
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return struct{}{}, eris.Wrap(readErr, "jina: read response body")
		}

		last = rawResponse{body: body, status: resp.StatusCode}
		if resilience.RetryableStatus(resp.StatusCode) {
			return struct{}{}, resilience.NewTransientError(
				eris.Errorf("jina: status %d: %s", resp.StatusCode, string(body)), resp.StatusCode)
		}
		return struct{}{}, nil
	})
	if err != nil && last.status == 0 {
		return last, err
	}
	return last, nil
}

func (c *httpClient) Read(ctx context.Context, targetURL string) (*ReadResponse, error) {
	raw, err := c.do(ctx, fmt.Sprintf("%s/%s", c.baseURL, targetURL), true)
	if err != nil {
		return nil, eris.Wrap(err, "jina: request failed")
	}

	if raw.status != http.StatusOK {
		return nil, statusError("jina: unexpected status", raw)
	}

	var result ReadResponse
	if err := json.Unmarshal(raw.body, &result); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal response")
	}

	return &result, nil
}

func (c *httpClient) Search(ctx context.Context, query string) (*SearchResponse, error) {
	raw, err := c.do(ctx, fmt.Sprintf("%s/%s", c.searchBaseURL, url.QueryEscape(query)), false)
	if err != nil {
		return nil, eris.Wrap(err, "jina: search request failed")
	}

	// Jina returns 422 when no results are available for the query.
	// Treat this as empty results rather than an error.
	if raw.status == http.StatusUnprocessableEntity {
		return &SearchResponse{Code: 422}, nil
	}

	if raw.status != http.StatusOK {
		return nil, statusError("jina: search unexpected status", raw)
	}

	var result SearchResponse
	if err := json.Unmarshal(raw.body, &result); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal search response")
	}

	return &result, nil
}

func statusError(prefix string, raw rawResponse) error {
	err := eris.Errorf("%s %d: %s", prefix, raw.status, string(raw.body))
	if resilience.RetryableStatus(raw.status) {
		return resilience.NewTransientError(err, raw.status)
	}
	return err
}
