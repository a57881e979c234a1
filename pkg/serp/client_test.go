package serp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/resilience"
)

func TestSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "google", q.Get("engine"))
		assert.Equal(t, "pizza Brooklyn, NY", q.Get("q"))
		assert.Equal(t, "Brooklyn, NY", q.Get("location"))
		assert.Equal(t, "20", q.Get("num"))
		assert.Equal(t, "test-key", q.Get("api_key"))

		_, _ = w.Write([]byte(`{
			"organic_results":[
				{"position":1,"title":"Best Pizza","link":"https://bestpizza.example/"},
				{"position":2,"title":"Joe's","link":"https://www.joespizza.example/menu"}
			],
			"local_results":{"places":[
				{"position":1,"title":"Joe's Pizza","rating":4.6,"reviews":210,"links":{"website":"https://joespizza.example"}}
			]}
		}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := c.Search(context.Background(), SearchRequest{Query: "pizza Brooklyn, NY", Location: "Brooklyn, NY"})
	require.NoError(t, err)
	require.Len(t, resp.OrganicResults, 2)
	assert.Equal(t, "https://www.joespizza.example/menu", resp.OrganicResults[1].Link)
	require.Len(t, resp.LocalResults.Places, 1)
	assert.Equal(t, "https://joespizza.example", resp.LocalResults.Places[0].WebsiteLink())
	assert.Equal(t, 210, resp.LocalResults.Places[0].Reviews)
}

func TestSearch_NoResultsIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Google hasn't returned any results for this query."}`))
	}))
	defer srv.Close()

	resp, err := NewClient("k", WithBaseURL(srv.URL)).Search(context.Background(), SearchRequest{Query: "zzz"})
	require.NoError(t, err)
	assert.Empty(t, resp.OrganicResults)
}

func TestSearch_APIErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Invalid API key."}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Search(context.Background(), SearchRequest{Query: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestSearch_Statuses(t *testing.T) {
	tests := []struct {
		status        int
		wantTransient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
		{http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := NewClient("k", WithBaseURL(srv.URL)).Search(context.Background(), SearchRequest{Query: "x"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "unexpected status")
			assert.Equal(t, tt.wantTransient, resilience.IsTransient(err))
		})
	}
}

func TestMaps_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "google_maps", q.Get("engine"))
		assert.Equal(t, "search", q.Get("type"))
		assert.Equal(t, "@40.700000,-73.900000,14z", q.Get("ll"))

		_, _ = w.Write([]byte(`{"local_results":[
			{"position":1,"title":"Best Pizza","website":"https://bestpizza.example","gps_coordinates":{"latitude":40.71,"longitude":-73.91}},
			{"position":2,"title":"Joe's Pizza","website":"https://joespizza.example"}
		]}`))
	}))
	defer srv.Close()

	resp, err := NewClient("k", WithBaseURL(srv.URL)).Maps(context.Background(), MapsRequest{Query: "pizza", Lat: 40.7, Lng: -73.9})
	require.NoError(t, err)
	require.Len(t, resp.LocalResults, 2)
	assert.Equal(t, "https://joespizza.example", resp.LocalResults[1].WebsiteLink())
	assert.InDelta(t, 40.71, resp.LocalResults[0].GPSCoordinates.Latitude, 1e-9)
}

func TestMissingKey(t *testing.T) {
	_, err := NewClient("").Maps(context.Background(), MapsRequest{Query: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key not configured")
}

func TestMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Search(context.Background(), SearchRequest{Query: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}
