// Package google is a small client for the Places API (v1) text search.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/resilience"
)

const defaultBaseURL = "https://places.googleapis.com/v1"

// fieldMask is the set of place fields every search requests.
var fieldMask = strings.Join([]string{
	"places.id",
	"places.displayName",
	"places.formattedAddress",
	"places.rating",
	"places.userRatingCount",
	"places.nationalPhoneNumber",
	"places.websiteUri",
	"places.regularOpeningHours",
	"places.businessStatus",
	"places.types",
	"places.photos",
	"places.location",
	"places.googleMapsUri",
}, ",")

// Client performs Google Places API operations.
type Client interface {
	TextSearch(ctx context.Context, req TextSearchRequest) (*TextSearchResponse, error)
}

// TextSearchRequest is a Places text query, optionally biased to a circle.
type TextSearchRequest struct {
	Query      string
	MaxResults int
	Bias       *Circle
}

// Circle is a location bias area.
type Circle struct {
	Lat          float64
	Lng          float64
	RadiusMeters float64
}

// TextSearchResponse is the response from Places Text Search.
type TextSearchResponse struct {
	Places []Place `json:"places"`
}

// Place represents a place returned by the API.
type Place struct {
	ID                  string        `json:"id"`
	DisplayName         DisplayName   `json:"displayName"`
	FormattedAddress    string        `json:"formattedAddress"`
	Rating              float64       `json:"rating"`
	UserRatingCount     int           `json:"userRatingCount"`
	NationalPhoneNumber string        `json:"nationalPhoneNumber"`
	WebsiteURI          string        `json:"websiteUri"`
	RegularOpeningHours *OpeningHours `json:"regularOpeningHours,omitempty"`
	BusinessStatus      string        `json:"businessStatus"`
	Types               []string      `json:"types"`
	Photos              []Photo       `json:"photos"`
	Location            *LatLng       `json:"location,omitempty"`
	GoogleMapsURI       string        `json:"googleMapsUri"`
}

// HasRating reports whether the API returned any rating data.
func (p Place) HasRating() bool {
	return p.UserRatingCount > 0 || p.Rating > 0
}

// DisplayName holds the place's display name.
type DisplayName struct {
	Text string `json:"text"`
}

// OpeningHours is the regular weekly schedule.
type OpeningHours struct {
	OpenNow             *bool    `json:"openNow,omitempty"`
	WeekdayDescriptions []string `json:"weekdayDescriptions"`
}

// Photo is a photo reference; only the count is used.
type Photo struct {
	Name string `json:"name"`
}

// LatLng is a coordinate in the Places schema.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
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

// NewClient creates a Google Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type textSearchRequest struct {
	TextQuery      string        `json:"textQuery"`
	MaxResultCount int           `json:"maxResultCount,omitempty"`
	LocationBias   *locationBias `json:"locationBias,omitempty"`
}

type locationBias struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center LatLng  `json:"center"`
	Radius float64 `json:"radius"`
}

func (c *httpClient) TextSearch(ctx context.Context, in TextSearchRequest) (*TextSearchResponse, error) {
	if c.apiKey == "" {
		return nil, eris.New("google: api key not configured")
	}
	payload := textSearchRequest{TextQuery: in.Query, MaxResultCount: in.MaxResults}
	if in.Bias != nil {
		payload.LocationBias = &locationBias{Circle: circle{
			Center: LatLng{Latitude: in.Bias.Lat, Longitude: in.Bias.Lng},
			Radius: in.Bias.RadiusMeters,
		}}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "google: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "google: create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "google: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("google: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.RetryableStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var result TextSearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "google: unmarshal response")
	}

	return &result, nil
}
