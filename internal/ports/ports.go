package ports

import (
	"context"
	"time"

	"FeedDigest/internal/domain"
)

// ArticleSource pulls candidate items from every configured feed.
type ArticleSource interface {
	FetchAll(ctx context.Context) domain.FetchReport
}

// FeedFetcher retrieves and parses a single feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, source domain.Source) ([]domain.CandidateItem, error)
}

// ArticleRepository is the durable store: existing URLs for dedup, inserts for results.
type ArticleRepository interface {
	ExistingURLs(ctx context.Context, urls []string) (map[string]struct{}, error)
	Insert(ctx context.Context, article domain.ProcessedArticle) error
}

// ContentScraper fetches full article text through an external extraction service.
type ContentScraper interface {
	Scrape(ctx context.Context, url string) (domain.ScrapedContent, error)
}

// Summarizer generates an abstract of an article.
type Summarizer interface {
	Summarize(ctx context.Context, title, content string) (domain.SummaryAttempt, error)
}

// FactChecker checks one candidate summary against the source text.
type FactChecker interface {
	Check(ctx context.Context, title string, source domain.ScrapedContent, summary string, attempt int) (domain.VerificationAttempt, error)
}

// Notifier publishes run reports to Telegram or other channels.
type Notifier interface {
	PublishReport(ctx context.Context, report string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
