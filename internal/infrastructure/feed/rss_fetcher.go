package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"FeedDigest/internal/config"
	"FeedDigest/internal/domain"
	"FeedDigest/internal/htmlentity"
	"FeedDigest/internal/ports"
)

const (
	defaultItemLimit = 5
	defaultUserAgent = "FeedDigest/1.0 (+news ingestion)"
	acceptFeeds      = "application/rss+xml, application/xml, text/xml;q=0.9, */*;q=0.8"
	maxFeedBytes     = 5 << 20
)

// Layouts tried when the feed parser could not make sense of a date.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// RSSFetcher downloads one feed and turns its first items into candidates.
type RSSFetcher struct {
	client         *http.Client
	userAgent      string
	itemLimit      int
	fallbackImages map[string]string
	defaultImage   string
}

var _ ports.FeedFetcher = (*RSSFetcher)(nil)

// NewRSSFetcher wires an HTTP client; the item limit defaults to 5.
func NewRSSFetcher(client *http.Client, cfg config.FeedsConfig) *RSSFetcher {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	f := &RSSFetcher{
		client:         client,
		userAgent:      cfg.UserAgent,
		itemLimit:      cfg.ItemLimit,
		fallbackImages: make(map[string]string, len(cfg.FallbackImages)),
		defaultImage:   cfg.DefaultImage,
	}
	if f.userAgent == "" {
		f.userAgent = defaultUserAgent
	}
	if f.itemLimit <= 0 {
		f.itemLimit = defaultItemLimit
	}
	for category, image := range cfg.FallbackImages {
		f.fallbackImages[strings.ToLower(strings.TrimSpace(category))] = image
	}
	return f
}

// Fetch returns up to itemLimit candidates. On failure it returns no items and a *FetchError.
func (f *RSSFetcher) Fetch(ctx context.Context, source domain.Source) ([]domain.CandidateItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.FeedURL, http.NoBody)
	if err != nil {
		return nil, networkError(fmt.Errorf("build request: %w", err), source.FeedURL)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptFeeds)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, networkError(err, source.FeedURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, classifyStatus(resp.StatusCode, source.FeedURL)
	}

	parsed, err := gofeed.NewParser().Parse(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, parseError(err, source.FeedURL)
	}

	return f.extractItems(parsed, source), nil
}

func (f *RSSFetcher) extractItems(parsed *gofeed.Feed, source domain.Source) []domain.CandidateItem {
	entries := parsed.Items
	if len(entries) > f.itemLimit {
		entries = entries[:f.itemLimit]
	}

	items := make([]domain.CandidateItem, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		item, ok := f.parseEntry(entry, source)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	return items
}

func (f *RSSFetcher) parseEntry(entry *gofeed.Item, source domain.Source) (domain.CandidateItem, bool) {
	title := strings.TrimSpace(htmlentity.Decode(entry.Title))
	link := extractLink(entry)
	if title == "" || link == "" {
		return domain.CandidateItem{}, false
	}

	image := extractImage(entry)
	if image == "" {
		image = f.fallbackImage(source.Category)
	}

	return domain.CandidateItem{
		Title:       title,
		URL:         link,
		SourceName:  source.Name,
		Category:    source.Category,
		ImageURL:    image,
		PublishedAt: publishedAt(entry),
	}, true
}

func (f *RSSFetcher) fallbackImage(category string) string {
	if image, ok := f.fallbackImages[strings.ToLower(strings.TrimSpace(category))]; ok && image != "" {
		return image
	}
	return f.defaultImage
}

// extractLink prefers <link>, falling back to a GUID that looks like a URL.
func extractLink(entry *gofeed.Item) string {
	if link := strings.TrimSpace(entry.Link); link != "" {
		return link
	}
	guid := strings.TrimSpace(entry.GUID)
	if strings.HasPrefix(guid, "http://") || strings.HasPrefix(guid, "https://") {
		return guid
	}
	return ""
}

func publishedAt(entry *gofeed.Item) *time.Time {
	if entry.PublishedParsed != nil {
		t := entry.PublishedParsed.UTC()
		return &t
	}
	if entry.UpdatedParsed != nil {
		t := entry.UpdatedParsed.UTC()
		return &t
	}
	return parseDate(entry.Published)
}

func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t := parsed.UTC()
			return &t
		}
	}
	return nil
}

// extractImage walks enclosure, media:content, media:thumbnail, then <img> in the body.
func extractImage(entry *gofeed.Item) string {
	for _, enc := range entry.Enclosures {
		if enc == nil || strings.TrimSpace(enc.URL) == "" {
			continue
		}
		if enc.Type == "" || strings.HasPrefix(strings.ToLower(enc.Type), "image/") {
			return strings.TrimSpace(enc.URL)
		}
	}

	media := entry.Extensions["media"]
	if url := mediaURL(media, "content"); url != "" {
		return url
	}
	if url := mediaURL(media, "thumbnail"); url != "" {
		return url
	}

	if entry.Image != nil && strings.TrimSpace(entry.Image.URL) != "" {
		return strings.TrimSpace(entry.Image.URL)
	}

	for _, body := range []string{entry.Description, entry.Content} {
		if url := firstImageSrc(body); url != "" {
			return url
		}
	}
	return ""
}

// mediaURL looks for a media RSS element by name, including inside <media:group>.
func mediaURL(media map[string][]ext.Extension, name string) string {
	for _, el := range media[name] {
		if url := strings.TrimSpace(el.Attrs["url"]); url != "" {
			return url
		}
	}
	for _, group := range media["group"] {
		if url := mediaURL(group.Children, name); url != "" {
			return url
		}
	}
	return ""
}

func firstImageSrc(body string) string {
	if !strings.Contains(body, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}
