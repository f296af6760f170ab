package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"FeedDigest/internal/config"
	"FeedDigest/internal/domain"
)

const feedFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <title>Test</title>
    <item>
      <title>S&amp;amp;P &#8222;ro&#347;nie&#8221;</title>
      <link>https://example.com/a</link>
      <pubDate>Mon, 01 Jan 2024 12:00:00 +0000</pubDate>
      <enclosure url="https://img.example.com/a.jpg" type="image/jpeg" length="1"/>
      <media:content url="https://img.example.com/a-media.jpg" medium="image"/>
    </item>
    <item>
      <title>Media content</title>
      <link>https://example.com/b</link>
      <pubDate>not a date</pubDate>
      <media:content url="https://img.example.com/b.jpg" medium="image"/>
      <media:thumbnail url="https://img.example.com/b-thumb.jpg"/>
    </item>
    <item>
      <title>Thumbnail in group</title>
      <guid>https://example.com/c</guid>
      <media:group>
        <media:thumbnail url="https://img.example.com/c-thumb.jpg"/>
      </media:group>
    </item>
    <item>
      <title>No link</title>
      <guid isPermaLink="false">opaque-1</guid>
    </item>
    <item>
      <title>Image in description</title>
      <link>https://example.com/e</link>
      <description><![CDATA[<p><img src="https://img.example.com/e.png"/>Lead</p>]]></description>
    </item>
    <item>
      <title>Sixth item is beyond the cap</title>
      <link>https://example.com/f</link>
    </item>
  </channel>
</rss>`

func testFeedsConfig() config.FeedsConfig {
	return config.FeedsConfig{
		ItemLimit:      5,
		FallbackImages: map[string]string{"Sport": "https://img.example.com/sport.jpg"},
		DefaultImage:   "https://img.example.com/default.jpg",
	}
}

func TestRSSFetcherFetch(t *testing.T) {
	t.Parallel()

	var gotUA, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedFixture))
	}))
	defer server.Close()

	fetcher := NewRSSFetcher(server.Client(), testFeedsConfig())
	items, err := fetcher.Fetch(context.Background(), domain.Source{FeedURL: server.URL, Name: "Test", Category: "sport"})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}

	if !strings.Contains(gotUA, "FeedDigest") {
		t.Fatalf("unexpected user agent %q", gotUA)
	}
	if !strings.Contains(gotAccept, "application/rss+xml") {
		t.Fatalf("unexpected accept header %q", gotAccept)
	}

	// Five blocks considered, the one without a link dropped.
	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d: %+v", len(items), items)
	}

	first := items[0]
	if first.Title != "S&P „rośnie”" {
		t.Fatalf("unexpected decoded title: %q", first.Title)
	}
	if first.ImageURL != "https://img.example.com/a.jpg" {
		t.Fatalf("enclosure should win, got %s", first.ImageURL)
	}
	if first.PublishedAt == nil || !first.PublishedAt.Equal(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected published date: %v", first.PublishedAt)
	}
	if first.SourceName != "Test" || first.Category != "sport" {
		t.Fatalf("unexpected source metadata: %+v", first)
	}

	if items[1].ImageURL != "https://img.example.com/b.jpg" {
		t.Fatalf("media:content should win over thumbnail, got %s", items[1].ImageURL)
	}
	if items[1].PublishedAt != nil {
		t.Fatalf("invalid date should yield nil, got %v", items[1].PublishedAt)
	}

	if items[2].URL != "https://example.com/c" || items[2].ImageURL != "https://img.example.com/c-thumb.jpg" {
		t.Fatalf("unexpected grouped thumbnail item: %+v", items[2])
	}

	if items[3].ImageURL != "https://img.example.com/e.png" {
		t.Fatalf("expected description image, got %s", items[3].ImageURL)
	}
}

func TestRSSFetcherFallbackImage(t *testing.T) {
	t.Parallel()

	body := `<rss version="2.0"><channel><title>x</title>
<item><title>Plain</title><link>https://example.com/p</link></item>
</channel></rss>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	fetcher := NewRSSFetcher(server.Client(), testFeedsConfig())

	items, err := fetcher.Fetch(context.Background(), domain.Source{FeedURL: server.URL, Category: "SPORT"})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(items) != 1 || items[0].ImageURL != "https://img.example.com/sport.jpg" {
		t.Fatalf("expected category fallback, got %+v", items)
	}

	items, err = fetcher.Fetch(context.Background(), domain.Source{FeedURL: server.URL, Category: "unknown"})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(items) != 1 || items[0].ImageURL != "https://img.example.com/default.jpg" {
		t.Fatalf("expected default fallback, got %+v", items)
	}
}

func TestRSSFetcherNonSuccessStatus(t *testing.T) {
	t.Parallel()

	cases := map[int]ErrorType{
		http.StatusTooManyRequests:     ErrTypeRateLimited,
		http.StatusNotFound:            ErrTypeNotFound,
		http.StatusBadGateway:          ErrTypeUpstream,
		http.StatusForbidden:           ErrTypeUnexpected,
		http.StatusInternalServerError: ErrTypeUpstream,
	}

	for status, want := range cases {
		status, want := status, want
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			}))
			defer server.Close()

			items, err := NewRSSFetcher(server.Client(), testFeedsConfig()).
				Fetch(context.Background(), domain.Source{FeedURL: server.URL})
			if len(items) != 0 {
				t.Fatalf("expected no items, got %d", len(items))
			}

			var fetchErr *FetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("expected *FetchError, got %v", err)
			}
			if fetchErr.Type != want || fetchErr.StatusCode != status {
				t.Fatalf("unexpected classification: %+v", fetchErr)
			}
		})
	}
}

func TestRSSFetcherMalformedFeed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not xml at all"))
	}))
	defer server.Close()

	_, err := NewRSSFetcher(server.Client(), testFeedsConfig()).
		Fetch(context.Background(), domain.Source{FeedURL: server.URL})

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Type != ErrTypeParse {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	if got := parseDate("2024-03-05 10:11:12"); got == nil || got.Day() != 5 {
		t.Fatalf("expected permissive parse, got %v", got)
	}
	if got := parseDate(""); got != nil {
		t.Fatalf("empty date should be nil, got %v", got)
	}
	if got := parseDate("yesterday"); got != nil {
		t.Fatalf("garbage date should be nil, got %v", got)
	}
}
