package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"FeedDigest/internal/domain"
	"FeedDigest/internal/ports"
)

const (
	articlesTable      = "articles"
	uniqueViolationSQL = "23505"
)

// ErrDuplicateArticle is returned when a row for the URL already exists.
var ErrDuplicateArticle = errors.New("article already stored")

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const schemaSQL = `CREATE TABLE IF NOT EXISTS articles (
    id                  BIGSERIAL PRIMARY KEY,
    url                 TEXT NOT NULL,
    title               TEXT NOT NULL,
    source_name         TEXT NOT NULL,
    category            TEXT NOT NULL DEFAULT '',
    image_url           TEXT NOT NULL DEFAULT '',
    full_content        TEXT NOT NULL,
    summary             TEXT NOT NULL,
    published_at        TIMESTAMPTZ NULL,
    verification_status TEXT NOT NULL,
    verification_log    JSONB NOT NULL DEFAULT '[]'::jsonb,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS articles_url_key ON articles (url);`

// PostgresRepository persists processed articles into Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.ArticleRepository = (*PostgresRepository)(nil)

// Open returns a lazily connecting Postgres handle.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the articles table and its URL uniqueness constraint.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// ExistingURLs returns the subset of urls that already have a stored article.
func (r *PostgresRepository) ExistingURLs(ctx context.Context, urls []string) (map[string]struct{}, error) {
	result := make(map[string]struct{})
	if r.db == nil {
		return nil, errors.New("database is not configured")
	}
	// No candidates means no lookup, but an unreachable store still fails the run.
	if len(urls) == 0 {
		if err := r.db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("ping database: %w", err)
		}
		return result, nil
	}

	query, args, err := psql.Select("url").
		From(articlesTable).
		Where("url = ANY(?)", pq.Array(urls)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build existing urls query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query existing urls: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		result[url] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// Insert creates the article row. Existing rows are never updated.
func (r *PostgresRepository) Insert(ctx context.Context, article domain.ProcessedArticle) error {
	if r.db == nil {
		return errors.New("database is not configured")
	}

	verificationLog := article.VerificationLog
	if verificationLog == nil {
		verificationLog = []domain.VerificationAttempt{}
	}
	logJSON, err := json.Marshal(verificationLog)
	if err != nil {
		return fmt.Errorf("marshal verification log: %w", err)
	}

	query, args, err := psql.Insert(articlesTable).
		Columns(
			"url", "title", "source_name", "category", "image_url",
			"full_content", "summary", "published_at",
			"verification_status", "verification_log",
		).
		Values(
			article.URL, article.Title, article.SourceName, article.Category, article.ImageURL,
			article.FullContent, article.FinalSummary, nullTime(article.PublishedAt),
			string(article.VerificationStatus), string(logJSON),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolationSQL {
			return fmt.Errorf("insert %s: %w", article.URL, ErrDuplicateArticle)
		}
		return fmt.Errorf("insert %s: %w", article.URL, err)
	}

	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
