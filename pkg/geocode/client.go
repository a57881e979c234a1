// Package geocode resolves free-form addresses to coordinates with the
// Google Geocoding API.
package geocode

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Client geocodes addresses.
type Client interface {
	// Geocode resolves a single free-form address or place name.
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude         float64
	Longitude        float64
	FormattedAddress string
	Quality          string // "rooftop", "range", "centroid", "approximate"
	Matched          bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithBaseURL overrides the Geocoding API endpoint.
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		g.baseURL = u
	}
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type geocoder struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	limiter    *rate.Limiter

	mu    sync.Mutex
	cache map[string]*Result
}

// NewClient creates a new geocoding Client with the given options.
func NewClient(apiKey string, opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiKey:     apiKey,
		baseURL:    googleGeocodeURL,
		limiter:    rate.NewLimiter(10, 10),
		cache:      make(map[string]*Result),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode returns a cached result when the same address was resolved before.
// An unmatched address is not an error.
func (g *geocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	key := cacheKey(address)
	if r, ok := g.lookup(key); ok {
		return r, nil
	}
	r, err := g.geocodeGoogle(ctx, address)
	if err != nil {
		return nil, err
	}
	g.store(key, r)
	return r, nil
}
