package scraper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeedDigest/internal/config"
)

var longText = strings.Repeat("Pełny tekst artykułu. ", 10)

func TestScrapeSendsRequestAndReturnsMarkdown(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer fc-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://example.com/a", req["url"])
		assert.Equal(t, "markdown", req["format"])
		assert.Equal(t, true, req["mainContentOnly"])

		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]string{"markdown": longText}})
	}))
	defer server.Close()

	client := NewClient(config.ScraperConfig{Endpoint: server.URL, APIKey: "fc-key"})
	content, err := client.Scrape(context.Background(), "https://example.com/a")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/a", content.SourceURL)
	assert.Equal(t, strings.TrimSpace(longText), content.Markdown)
}

func TestScrapeTopLevelMarkdown(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"markdown": longText})
	}))
	defer server.Close()

	content, err := NewClient(config.ScraperConfig{Endpoint: server.URL, APIKey: "k"}).
		Scrape(context.Background(), "https://example.com/b")
	require.NoError(t, err)
	assert.NotEmpty(t, content.Markdown)
}

func TestScrapeMissingCredentialFailsFast(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	_, err := NewClient(config.ScraperConfig{Endpoint: server.URL}).Scrape(context.Background(), "https://example.com")
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Zero(t, hits.Load())
}

func TestScrapeInsufficientContent(t *testing.T) {
	t.Parallel()

	cases := map[string]http.HandlerFunc{
		"short text": func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"markdown": strings.Repeat("x", 40)})
		},
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
		"not json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		},
		"empty": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success":true,"data":{}}`))
		},
	}

	for name, handler := range cases {
		handler := handler
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(handler)
			defer server.Close()

			_, err := NewClient(config.ScraperConfig{Endpoint: server.URL, APIKey: "k"}).
				Scrape(context.Background(), "https://example.com")
			assert.ErrorIs(t, err, ErrInsufficientContent)
		})
	}
}
