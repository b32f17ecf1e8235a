package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gruenerator-assist-api/internal/config"
	"gruenerator-assist-api/internal/domain/repository"
)

func newTestSearcher(endpoint string) *WebSearcher {
	return NewWebSearcher(config.WebSearchConfig{
		Endpoint: endpoint,
		APIKey:   "test-key",
		Timeout:  2 * time.Second,
		Limit:    8,
	})
}

func TestWebSearcher_Search(t *testing.T) {
	var gotAuth string
	var gotReq webSearchRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(webSearchResponse{
			Results: []repository.RawResult{
				{"title": "Klimapolitik 2026", "url": "https://example.org/klima", "snippet": "inhalt", "score": 0.9},
				{"title": "Zweiter Treffer", "snippet": "mehr inhalt"},
			},
		})
	}))
	defer srv.Close()

	s := newTestSearcher(srv.URL)
	results, err := s.Search(context.Background(), repository.SearchQuery{Query: "klimapolitik", Limit: 5})

	require.NoError(t, err)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "klimapolitik", gotReq.Query)
	assert.Equal(t, 5, gotReq.Limit)
	require.Len(t, results, 2)
	assert.Equal(t, "Klimapolitik 2026", results[0]["title"])
	assert.Equal(t, "https://example.org/klima", results[0]["url"])
}

func TestWebSearcher_LimitCappedByConfig(t *testing.T) {
	var gotReq webSearchRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(webSearchResponse{})
	}))
	defer srv.Close()

	s := newTestSearcher(srv.URL)

	// Limit 0 und Limit über dem Maximum fallen beide auf das Konfigurationslimit zurück
	_, err := s.Search(context.Background(), repository.SearchQuery{Query: "a"})
	require.NoError(t, err)
	assert.Equal(t, 8, gotReq.Limit)

	_, err = s.Search(context.Background(), repository.SearchQuery{Query: "a", Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, 8, gotReq.Limit)
}

func TestWebSearcher_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := newTestSearcher(srv.URL)
	_, err := s.Search(context.Background(), repository.SearchQuery{Query: "a"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=502")
}

func TestWebSearcher_MissingEndpoint(t *testing.T) {
	s := newTestSearcher("")
	_, err := s.Search(context.Background(), repository.SearchQuery{Query: "a"})
	require.Error(t, err)
}
