package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"FeedDigest/internal/config"
	"FeedDigest/internal/domain"
	"FeedDigest/internal/infrastructure/factcheck"
	"FeedDigest/internal/infrastructure/feed"
	"FeedDigest/internal/infrastructure/httpapi"
	"FeedDigest/internal/infrastructure/llm"
	"FeedDigest/internal/infrastructure/scheduler"
	"FeedDigest/internal/infrastructure/scraper"
	"FeedDigest/internal/infrastructure/storage"
	"FeedDigest/internal/infrastructure/telegram"
	"FeedDigest/internal/logging"
	"FeedDigest/internal/metrics"
	"FeedDigest/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *sql.DB
	repo     *storage.PostgresRepository
	pipeline *usecase.Pipeline
	metrics  *metrics.Metrics
	notifier *telegram.Notifier
}

// New builds the application; the database connection is opened lazily.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.Open(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	repo := storage.NewPostgresRepository(db)

	fetcher := feed.NewRSSFetcher(nil, cfg.Feeds)
	source := feed.NewMultiSource(fetcher, sources(cfg.Feeds.Sources), feed.MultiSourceOptions{
		Timeout:     cfg.Feeds.Timeout,
		Concurrency: cfg.Feeds.Concurrency,
	}, baseLogger.With("component", "feeds"))

	summarizer := llm.NewSummarizer(cfg.LLM, llm.WithLogger(baseLogger.With("component", "llm")))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Repository: repo,
		Scraper:    scraper.NewClient(cfg.Scraper),
		Summarizer: summarizer,
		Checker:    factcheck.NewClient(cfg.Verifier),
		Logger:     baseLogger.With("component", "pipeline"),
		Policy:     policy(cfg.Pipeline),
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		db:       db,
		repo:     repo,
		pipeline: pipeline,
		metrics:  metrics.New(),
		notifier: telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID),
	}, nil
}

// RunOnce executes one batch, records metrics and posts the run report.
func (a *Application) RunOnce(ctx context.Context) (domain.RunResult, error) {
	result, err := a.pipeline.Run(ctx)
	a.metrics.ObserveRun(result, err)

	if err != nil {
		a.logger.Error("run failed", "run_id", result.RunID, "error", err)
	} else {
		a.logger.Info("run completed", "run_id", result.RunID, "fetched", result.TotalFetched,
			"new", result.NewArticles, "processed", result.Processed, "failed", result.Failed,
			"rate_limited", result.RateLimited)
	}

	if a.notifier.Enabled() {
		if notifyErr := a.notifier.PublishReport(ctx, usecase.FormatReport(result, err)); notifyErr != nil {
			a.logger.Warn("run report not delivered", "run_id", result.RunID, "error", notifyErr)
		}
	}

	return result, err
}

// Serve exposes the HTTP trigger and, when a cron expression is configured,
// runs the pipeline on schedule until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	router := httpapi.NewRouter(httpapi.Options{
		Server:   a.cfg.Server,
		Run:      a.RunOnce,
		Gatherer: a.metrics.Registry(),
		Logger:   a.logger.With("component", "http"),
	})

	var sched *usecase.Scheduler
	if spec := a.cfg.Scheduler.CronExpression; spec != "" {
		if err := scheduler.Validate(spec); err != nil {
			return err
		}
		driver := scheduler.NewCronScheduler(spec, a.cfg.Scheduler.Location(), a.logger.With("component", "scheduler"))
		sched = usecase.NewScheduler(driver, a.RunOnce)
	}

	g, gctx := errgroup.WithContext(ctx)
	if sched != nil {
		if err := sched.Start(gctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		g.Go(func() error {
			<-gctx.Done()
			return sched.Stop(context.Background())
		})
	}
	g.Go(func() error {
		return httpapi.Serve(gctx, a.cfg.Server.Addr, router, a.logger.With("component", "http"))
	})

	return g.Wait()
}

// Migrate creates the articles table if it does not exist.
func (a *Application) Migrate(ctx context.Context) error {
	return a.repo.EnsureSchema(ctx)
}

// Close releases the database handle.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func sources(cfg []config.SourceConfig) []domain.Source {
	out := make([]domain.Source, 0, len(cfg))
	for _, s := range cfg {
		out = append(out, domain.Source{FeedURL: s.FeedURL, Name: s.Name, Category: s.Category})
	}
	return out
}

func policy(cfg config.PipelineConfig) usecase.Policy {
	p := usecase.DefaultPolicy()
	if cfg.BatchSize > 0 {
		p.BatchSize = cfg.BatchSize
	}
	if cfg.PacingBase > 0 {
		p.PacingBase = cfg.PacingBase
	}
	if cfg.PacingStep > 0 {
		p.PacingStep = cfg.PacingStep
	}
	if cfg.VerifyDelay > 0 {
		p.VerifyDelay = cfg.VerifyDelay
	}
	if cfg.VerifyAttempts > 0 {
		p.VerifyAttempts = cfg.VerifyAttempts
	}
	if cfg.ContentCap > 0 {
		p.ContentCap = cfg.ContentCap
	}
	return p
}
