package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"FeedDigest/internal/domain"
)

type fakeSource struct {
	report domain.FetchReport
}

func (f *fakeSource) FetchAll(context.Context) domain.FetchReport {
	return f.report
}

// memRepo behaves like the store: inserted URLs become existing URLs.
type memRepo struct {
	mu          sync.Mutex
	stored      map[string]domain.ProcessedArticle
	existingErr error
	insertErr   map[string]error
	inserts     int
}

func newMemRepo(existing ...string) *memRepo {
	r := &memRepo{stored: map[string]domain.ProcessedArticle{}, insertErr: map[string]error{}}
	for _, url := range existing {
		r.stored[url] = domain.ProcessedArticle{URL: url}
	}
	return r
}

func (r *memRepo) ExistingURLs(_ context.Context, urls []string) (map[string]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.existingErr != nil {
		return nil, r.existingErr
	}
	out := map[string]struct{}{}
	for _, url := range urls {
		if _, ok := r.stored[url]; ok {
			out[url] = struct{}{}
		}
	}
	return out, nil
}

func (r *memRepo) Insert(_ context.Context, article domain.ProcessedArticle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserts++
	if err := r.insertErr[article.URL]; err != nil {
		return err
	}
	if _, ok := r.stored[article.URL]; ok {
		return errors.New("duplicate url")
	}
	r.stored[article.URL] = article
	return nil
}

type fakeScraper struct {
	calls []string
	fn    func(url string) (domain.ScrapedContent, error)
}

func (f *fakeScraper) Scrape(_ context.Context, url string) (domain.ScrapedContent, error) {
	f.calls = append(f.calls, url)
	if f.fn != nil {
		return f.fn(url)
	}
	return domain.ScrapedContent{SourceURL: url, Markdown: "full text of " + url}, nil
}

type fakeSummarizer struct {
	fn func(title string) (domain.SummaryAttempt, error)
}

func (f *fakeSummarizer) Summarize(_ context.Context, title, _ string) (domain.SummaryAttempt, error) {
	if f.fn != nil {
		return f.fn(title)
	}
	return domain.SummaryAttempt{Text: "summary of " + title, AttemptNumber: 1}, nil
}

// scriptedChecker replays results in order and records the summaries it was shown.
type scriptedChecker struct {
	script    []checkResult
	summaries []string
	sources   []domain.ScrapedContent
}

type checkResult struct {
	attempt domain.VerificationAttempt
	err     error
}

func verifiedResult() checkResult {
	return checkResult{attempt: domain.VerificationAttempt{Status: domain.VerificationVerified, IsValid: true, ClaimsChecked: 3, ClaimsVerified: 3}}
}

func rejectedResult(corrected string) checkResult {
	return checkResult{attempt: domain.VerificationAttempt{
		Status: domain.VerificationRejected, Errors: []string{"unsupported claim"},
		CorrectedSummary: corrected, ClaimsChecked: 3, ClaimsVerified: 2, ClaimsRejected: 1,
	}}
}

func pendingResult() checkResult {
	return checkResult{attempt: domain.VerificationAttempt{Status: domain.VerificationPending}}
}

func (c *scriptedChecker) Check(_ context.Context, _ string, source domain.ScrapedContent, summary string, _ int) (domain.VerificationAttempt, error) {
	c.summaries = append(c.summaries, summary)
	c.sources = append(c.sources, source)
	i := len(c.summaries) - 1
	if i >= len(c.script) {
		return verifiedResult().attempt, nil
	}
	return c.script[i].attempt, c.script[i].err
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func candidates(n int) []domain.CandidateItem {
	items := make([]domain.CandidateItem, n)
	for i := range items {
		items[i] = domain.CandidateItem{
			Title:      "Article " + string(rune('A'+i)),
			URL:        "https://news.example/" + string(rune('a'+i)),
			SourceName: "Example",
			Category:   "polska",
		}
	}
	return items
}

var fixedNow = time.Date(2026, 10, 15, 6, 0, 0, 0, time.UTC)
