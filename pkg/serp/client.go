// Package serp is a client for SerpAPI's Google web and Google Maps engines.
// Web results feed the rank tracker; Maps results feed the geo grid.
package serp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/resilience"
)

const defaultBaseURL = "https://serpapi.com"

// Client runs SerpAPI searches.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	Maps(ctx context.Context, req MapsRequest) (*MapsResponse, error)
}

// SearchRequest is a Google web search.
type SearchRequest struct {
	Query    string
	Location string
	Num      int
}

// MapsRequest is a Google Maps search centered on a coordinate.
type MapsRequest struct {
	Query string
	Lat   float64
	Lng   float64
	Zoom  int
}

// SearchResponse holds the organic results and the local pack.
type SearchResponse struct {
	OrganicResults []OrganicResult `json:"organic_results"`
	LocalResults   LocalPack       `json:"local_results"`
	Error          string          `json:"error,omitempty"`
}

// OrganicResult is one web result.
type OrganicResult struct {
	Position      int    `json:"position"`
	Title         string `json:"title"`
	Link          string `json:"link"`
	DisplayedLink string `json:"displayed_link"`
	Snippet       string `json:"snippet"`
}

// LocalPack is the map block shown with web results.
type LocalPack struct {
	Places []LocalPlace `json:"places"`
}

// LocalPlace is one business in a local pack or Maps result list.
type LocalPlace struct {
	Position       int            `json:"position"`
	Title          string         `json:"title"`
	PlaceID        string         `json:"place_id"`
	Rating         float64        `json:"rating"`
	Reviews        int            `json:"reviews"`
	Address        string         `json:"address"`
	Phone          string         `json:"phone"`
	Type           string         `json:"type"`
	Website        string         `json:"website"`
	Links          PlaceLinks     `json:"links"`
	GPSCoordinates GPSCoordinates `json:"gps_coordinates"`
	Hours          string         `json:"hours"`
}

// WebsiteLink returns the place's website from either response shape.
func (p LocalPlace) WebsiteLink() string {
	if p.Website != "" {
		return p.Website
	}
	return p.Links.Website
}

// PlaceLinks are the action links on a local-pack entry.
type PlaceLinks struct {
	Website    string `json:"website"`
	Directions string `json:"directions"`
}

// GPSCoordinates is a place location.
type GPSCoordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// MapsResponse is the google_maps engine result list.
type MapsResponse struct {
	LocalResults []LocalPlace `json:"local_results"`
	Error        string       `json:"error,omitempty"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a SerpAPI client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, in SearchRequest) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("engine", "google")
	q.Set("q", in.Query)
	if in.Location != "" {
		q.Set("location", in.Location)
	}
	num := in.Num
	if num <= 0 {
		num = 20
	}
	q.Set("num", strconv.Itoa(num))

	var out SearchResponse
	if err := c.get(ctx, q, &out); err != nil {
		return nil, err
	}
	if out.Error != "" && !noResults(out.Error) {
		return nil, eris.Errorf("serp: search %q: %s", in.Query, out.Error)
	}
	return &out, nil
}

func (c *httpClient) Maps(ctx context.Context, in MapsRequest) (*MapsResponse, error) {
	zoom := in.Zoom
	if zoom <= 0 {
		zoom = 14
	}
	q := url.Values{}
	q.Set("engine", "google_maps")
	q.Set("type", "search")
	q.Set("q", in.Query)
	q.Set("ll", fmt.Sprintf("@%.6f,%.6f,%dz", in.Lat, in.Lng, zoom))

	var out MapsResponse
	if err := c.get(ctx, q, &out); err != nil {
		return nil, err
	}
	if out.Error != "" && !noResults(out.Error) {
		return nil, eris.Errorf("serp: maps %q: %s", in.Query, out.Error)
	}
	return &out, nil
}

// SerpAPI reports an empty result page as an error string.
func noResults(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "hasn't returned any results")
}

func (c *httpClient) get(ctx context.Context, q url.Values, out any) error {
	if c.apiKey == "" {
		return eris.New("serp: api key not configured")
	}
	q.Set("api_key", c.apiKey)
	q.Set("output", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+q.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "serp: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "serp: send request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "serp: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("serp: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.RetryableStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "serp: unmarshal response")
	}
	return nil
}
