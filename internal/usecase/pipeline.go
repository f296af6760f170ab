package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"FeedDigest/internal/domain"
	"FeedDigest/internal/pacing"
	"FeedDigest/internal/ports"
)

// Policy bounds a run and paces calls to the rate-limited services.
type Policy struct {
	BatchSize      int
	PacingBase     time.Duration
	PacingStep     time.Duration
	VerifyDelay    time.Duration
	VerifyAttempts int
	ContentCap     int
}

// DefaultPolicy matches the limits the external services were tuned for.
func DefaultPolicy() Policy {
	return Policy{
		BatchSize:      10,
		PacingBase:     500 * time.Millisecond,
		PacingStep:     200 * time.Millisecond,
		VerifyDelay:    time.Second,
		VerifyAttempts: 3,
		ContentCap:     10000,
	}
}

// PacingDelay is the wait before summarizing the item at index within the batch.
func (p Policy) PacingDelay(index int) time.Duration {
	return p.PacingBase + time.Duration(index)*p.PacingStep
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.ArticleSource
	Repository ports.ArticleRepository
	Scraper    ports.ContentScraper
	Summarizer ports.Summarizer
	Checker    ports.FactChecker
	Logger     *slog.Logger
	Policy     Policy
	// Sleep, Now and NewRunID default to real time and random UUIDs.
	Sleep    pacing.SleepFunc
	Now      func() time.Time
	NewRunID func() string
}

// Pipeline implements the article-ingestion workflow.
type Pipeline struct {
	source     ports.ArticleSource
	repository ports.ArticleRepository
	scraper    ports.ContentScraper
	summarizer ports.Summarizer
	verifier   *VerificationLoop
	logger     *slog.Logger
	policy     Policy
	sleep      pacing.SleepFunc
	now        func() time.Time
	newRunID   func() string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		source:     deps.Source,
		repository: deps.Repository,
		scraper:    deps.Scraper,
		summarizer: deps.Summarizer,
		logger:     deps.Logger,
		policy:     deps.Policy,
		sleep:      deps.Sleep,
		now:        deps.Now,
		newRunID:   deps.NewRunID,
	}
	if p.policy.BatchSize <= 0 {
		p.policy.BatchSize = DefaultPolicy().BatchSize
	}
	if p.sleep == nil {
		p.sleep = pacing.Sleep
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newRunID == nil {
		p.newRunID = uuid.NewString
	}
	p.verifier = NewVerificationLoop(deps.Checker, p.policy.VerifyAttempts, p.policy.VerifyDelay, p.sleep, deps.Logger)
	return p
}

type itemOutcome int

const (
	outcomeProcessed itemOutcome = iota
	outcomeFailed
	outcomeRateLimited
)

var (
	errSourceMissing     = errors.New("article source is not configured")
	errRepositoryMissing = errors.New("article repository is not configured")
)

// Run executes one bounded batch: fetch, dedup, then process at most BatchSize
// novel items one by one. Item failures are counted, never returned; the error
// is reserved for run-level failures such as an unreachable store.
func (p *Pipeline) Run(ctx context.Context) (domain.RunResult, error) {
	result := domain.RunResult{RunID: p.newRunID()}
	log := p.logger
	if log != nil {
		log = log.With("run_id", result.RunID)
	}

	if p.source == nil {
		return result, errSourceMissing
	}
	if p.repository == nil {
		return result, errRepositoryMissing
	}

	report := p.source.FetchAll(ctx)
	result.TotalFetched = len(report.Items)
	result.SourceFailures = report.Failures

	existing, err := p.repository.ExistingURLs(ctx, candidateURLs(report.Items))
	if err != nil {
		return result, fmt.Errorf("load existing urls: %w", err)
	}

	novel := Deduplicate(report.Items, existing)
	result.NewArticles = len(novel)

	batch := novel
	if len(batch) > p.policy.BatchSize {
		batch = batch[:p.policy.BatchSize]
	}
	logInfo(log, "batch selected", "fetched", result.TotalFetched, "novel", len(novel),
		"batch", len(batch), "failed_sources", len(report.Failures))

	for i, item := range batch {
		switch p.processItem(ctx, log, i, item) {
		case outcomeProcessed:
			result.Processed++
		case outcomeRateLimited:
			result.RateLimited++
			result.Failed++
		default:
			result.Failed++
		}
	}

	result.Success = true
	result.Timestamp = p.now().UTC()
	logInfo(log, "run finished", "processed", result.Processed, "failed", result.Failed, "rate_limited", result.RateLimited)
	return result, nil
}

func (p *Pipeline) processItem(ctx context.Context, log *slog.Logger, index int, item domain.CandidateItem) (outcome itemOutcome) {
	if log != nil {
		log = log.With("url", item.URL, "source", item.SourceName)
	}
	defer func() {
		if r := recover(); r != nil {
			logWarn(log, "item panicked", "panic", r)
			outcome = outcomeFailed
		}
	}()

	if p.scraper == nil || p.summarizer == nil {
		logWarn(log, "skip item", "reason", "scraper or summarizer not configured")
		return outcomeFailed
	}

	content, err := p.scraper.Scrape(ctx, item.URL)
	if err != nil {
		logWarn(log, "skip item", "stage", "scrape", "error", err)
		return outcomeFailed
	}

	if err := p.sleep(ctx, p.policy.PacingDelay(index)); err != nil {
		logWarn(log, "skip item", "stage", "pacing", "error", err)
		return outcomeFailed
	}

	summary, err := p.summarizer.Summarize(ctx, item.Title, content.Markdown)
	if err != nil {
		logWarn(log, "skip item", "stage", "summarize", "error", err)
		return outcomeRateLimited
	}

	verification := p.verifier.Run(ctx, item.Title, content, summary.Text)

	article := domain.ProcessedArticle{
		URL:                item.URL,
		Title:              item.Title,
		SourceName:         item.SourceName,
		Category:           item.Category,
		ImageURL:           item.ImageURL,
		FullContent:        truncateRunes(content.Markdown, p.policy.ContentCap),
		FinalSummary:       verification.Summary,
		PublishedAt:        item.PublishedAt,
		VerificationStatus: verification.Status,
		VerificationLog:    verification.Log,
	}
	if err := p.repository.Insert(ctx, article); err != nil {
		logWarn(log, "skip item", "stage", "persist", "error", err)
		return outcomeFailed
	}

	logInfo(log, "article stored", "verification", verification.Status, "attempts", len(verification.Log))
	return outcomeProcessed
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

func logInfo(log *slog.Logger, msg string, args ...any) {
	if log != nil {
		log.Info(msg, args...)
	}
}

func logWarn(log *slog.Logger, msg string, args ...any) {
	if log != nil {
		log.Warn(msg, args...)
	}
}
