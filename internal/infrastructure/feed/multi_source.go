package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"FeedDigest/internal/domain"
	"FeedDigest/internal/ports"
)

// MultiSource implements ArticleSource by fetching every configured feed concurrently.
type MultiSource struct {
	fetcher     ports.FeedFetcher
	sources     []domain.Source
	timeout     time.Duration
	concurrency int
	logger      *slog.Logger
}

var _ ports.ArticleSource = (*MultiSource)(nil)

// MultiSourceOptions tunes the fan-out. Zero values mean no per-source timeout and no limit.
type MultiSourceOptions struct {
	Timeout     time.Duration
	Concurrency int
}

// NewMultiSource wires a fetcher with config-defined sources.
func NewMultiSource(fetcher ports.FeedFetcher, sources []domain.Source, opts MultiSourceOptions, log *slog.Logger) *MultiSource {
	return &MultiSource{
		fetcher:     fetcher,
		sources:     sources,
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		logger:      log,
	}
}

type sourceResult struct {
	items []domain.CandidateItem
	err   error
}

// FetchAll runs one fetch per source. A failing source contributes no items and
// is reported in FetchReport.Failures; it never affects the other sources.
func (s *MultiSource) FetchAll(ctx context.Context) domain.FetchReport {
	s.debug("fetch all", "sources", len(s.sources))

	results := make([]sourceResult, len(s.sources))

	var g errgroup.Group
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i, source := range s.sources {
		g.Go(func() error {
			results[i] = s.fetchOne(ctx, source)
			return nil
		})
	}
	_ = g.Wait()

	var report domain.FetchReport
	for i, res := range results {
		source := s.sources[i]
		if res.err != nil {
			s.warn("source failed", "source", source.Name, "feed", source.FeedURL, "error", res.err)
			report.Failures = append(report.Failures, domain.SourceFailure{Source: source, Err: res.err})
			continue
		}
		s.debug("source produced items", "source", source.Name, "count", len(res.items))
		report.Items = append(report.Items, res.items...)
	}

	s.debug("fetch all done", "total_items", len(report.Items), "failed_sources", len(report.Failures))
	return report
}

func (s *MultiSource) fetchOne(ctx context.Context, source domain.Source) (res sourceResult) {
	defer func() {
		if r := recover(); r != nil {
			res = sourceResult{err: fmt.Errorf("fetch %s panicked: %v", source.Name, r)}
		}
	}()

	if s.fetcher == nil {
		return sourceResult{err: fmt.Errorf("feed fetcher is not configured")}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	items, err := s.fetcher.Fetch(ctx, source)
	if err != nil {
		return sourceResult{err: err}
	}
	for i := range items {
		if items[i].SourceName == "" {
			items[i].SourceName = source.Name
		}
		if items[i].Category == "" {
			items[i].Category = source.Category
		}
	}
	return sourceResult{items: items}
}

func (s *MultiSource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *MultiSource) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
