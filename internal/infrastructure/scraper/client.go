package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"FeedDigest/internal/config"
	"FeedDigest/internal/domain"
	"FeedDigest/internal/ports"
)

// MinContentLength is the shortest article text worth summarizing.
const MinContentLength = 100

var (
	// ErrMissingCredential means the scraping service API key is not configured.
	ErrMissingCredential = errors.New("scraper: api key not configured")
	// ErrInsufficientContent means no usable article text came back.
	ErrInsufficientContent = errors.New("scraper: insufficient content")
)

// Client calls a Firecrawl-compatible scrape endpoint.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.ContentScraper = (*Client)(nil)

type scrapeRequest struct {
	URL             string `json:"url"`
	Format          string `json:"format"`
	MainContentOnly bool   `json:"mainContentOnly"`
}

// Both the flat and the Firecrawl v1 envelope shapes are accepted.
type scrapeResponse struct {
	Markdown string `json:"markdown"`
	Data     *struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
}

// NewClient builds a client from configuration.
func NewClient(cfg config.ScraperConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		http:     &http.Client{Timeout: timeout},
	}
}

// Scrape returns the readability-extracted markdown of url.
// Missing credentials, HTTP failures and short results are all per-item failures.
func (c *Client) Scrape(ctx context.Context, url string) (domain.ScrapedContent, error) {
	if c.apiKey == "" {
		return domain.ScrapedContent{}, ErrMissingCredential
	}

	body, err := json.Marshal(scrapeRequest{
		URL:             url,
		Format:          "markdown",
		MainContentOnly: true,
	})
	if err != nil {
		return domain.ScrapedContent{}, fmt.Errorf("marshal scrape payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.ScrapedContent{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.ScrapedContent{}, fmt.Errorf("%w: scrape %s: %v", ErrInsufficientContent, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.ScrapedContent{}, fmt.Errorf("%w: scrape %s: %s: %s",
			ErrInsufficientContent, url, resp.Status, strings.TrimSpace(string(snippet)))
	}

	var payload scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.ScrapedContent{}, fmt.Errorf("%w: decode response for %s: %v", ErrInsufficientContent, url, err)
	}

	markdown := payload.Markdown
	if markdown == "" && payload.Data != nil {
		markdown = payload.Data.Markdown
	}
	markdown = strings.TrimSpace(markdown)

	if n := utf8.RuneCountInString(markdown); n < MinContentLength {
		return domain.ScrapedContent{}, fmt.Errorf("%w: %d characters for %s", ErrInsufficientContent, n, url)
	}

	return domain.ScrapedContent{SourceURL: url, Markdown: markdown}, nil
}
