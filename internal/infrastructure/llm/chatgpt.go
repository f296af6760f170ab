package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"FeedDigest/internal/config"
	"FeedDigest/internal/domain"
	"FeedDigest/internal/pacing"
	"FeedDigest/internal/ports"
)

const (
	// MaxPromptContent bounds how much article text is sent per request.
	MaxPromptContent   = 8000
	defaultMaxAttempts = 3
	defaultMaxTokens   = 1024
	defaultTimeout     = 60 * time.Second
)

var (
	// ErrNoSummary is matched by every GenerationError.
	ErrNoSummary = errors.New("llm: no summary produced")
	// ErrMissingCredential means the API key is not configured.
	ErrMissingCredential = errors.New("llm: api key not configured")
)

// BackoffFunc returns the wait after the failed attempt with zero-based index attempt.
type BackoffFunc func(attempt int, rateLimited bool) time.Duration

// DefaultBackoff waits 2^attempt × 3s after a 429 and 2^attempt × 1s after other failures.
func DefaultBackoff(attempt int, rateLimited bool) time.Duration {
	base := time.Second
	if rateLimited {
		base = 3 * time.Second
	}
	return base << attempt
}

// StatusError is a non-success HTTP response from the chat API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat completion: http %d: %s", e.StatusCode, e.Body)
}

// RateLimited reports whether the service answered 429.
func (e *StatusError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// GenerationError is returned once every attempt has failed.
type GenerationError struct {
	Attempts    int
	RateLimited bool
	Err         error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("llm: no summary after %d attempts (rate limited: %t): %v", e.Attempts, e.RateLimited, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrNoSummary) hold for every GenerationError.
func (e *GenerationError) Is(target error) bool { return target == ErrNoSummary }

// Summarizer implements ports.Summarizer backed by OpenAI-compatible chat APIs.
type Summarizer struct {
	endpoint    string
	model       string
	apiKey      string
	maxTokens   int
	maxAttempts int
	httpClient  *http.Client
	backoff     BackoffFunc
	sleep       pacing.SleepFunc
	logger      *slog.Logger
}

var _ ports.Summarizer = (*Summarizer)(nil)

// Option customizes the summarizer.
type Option func(*Summarizer)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Summarizer) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithMaxAttempts overrides the attempt budget (defaults to 3).
func WithMaxAttempts(attempts int) Option {
	return func(s *Summarizer) {
		if attempts > 0 {
			s.maxAttempts = attempts
		}
	}
}

// WithBackoff overrides the delay policy between attempts.
func WithBackoff(backoff BackoffFunc) Option {
	return func(s *Summarizer) {
		if backoff != nil {
			s.backoff = backoff
		}
	}
}

// WithSleeper overrides how retry waits are performed (useful for tests).
func WithSleeper(sleep pacing.SleepFunc) Option {
	return func(s *Summarizer) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// WithLogger attaches a logger for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Summarizer) {
		s.logger = logger
	}
}

// NewSummarizer builds a summarizer from configuration.
func NewSummarizer(cfg config.LLMConfig, opts ...Option) *Summarizer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	s := &Summarizer{
		endpoint:    strings.TrimSpace(cfg.Endpoint),
		model:       strings.TrimSpace(cfg.Model),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		maxTokens:   cfg.MaxTokens,
		maxAttempts: cfg.MaxAttempts,
		httpClient:  &http.Client{Timeout: timeout},
		backoff:     DefaultBackoff,
		sleep:       pacing.Sleep,
	}
	if s.maxTokens <= 0 {
		s.maxTokens = defaultMaxTokens
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = defaultMaxAttempts
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Summarize asks the model for an abstract, retrying with backoff.
// Exhausting the attempts returns a *GenerationError.
func (s *Summarizer) Summarize(ctx context.Context, title, content string) (domain.SummaryAttempt, error) {
	if s.apiKey == "" {
		return domain.SummaryAttempt{}, &GenerationError{Err: ErrMissingCredential}
	}

	payload := chatRequest{
		Model:       s.model,
		Messages:    []chatMessage{{Role: "user", Content: BuildPrompt(title, content)}},
		MaxTokens:   s.maxTokens,
		Temperature: 0,
	}

	var (
		lastErr     error
		rateLimited bool
	)
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		text, err := s.complete(ctx, payload)
		if err == nil {
			return domain.SummaryAttempt{Text: text, AttemptNumber: attempt + 1}, nil
		}
		lastErr = err

		var statusErr *StatusError
		limited := errors.As(err, &statusErr) && statusErr.RateLimited()
		rateLimited = rateLimited || limited

		if attempt == s.maxAttempts-1 {
			break
		}

		delay := s.backoff(attempt, limited)
		s.debug("summary attempt failed", "attempt", attempt+1, "rate_limited", limited, "retry_in", delay, "error", err)
		if sleepErr := s.sleep(ctx, delay); sleepErr != nil {
			return domain.SummaryAttempt{}, &GenerationError{Attempts: attempt + 1, RateLimited: rateLimited, Err: sleepErr}
		}
	}

	return domain.SummaryAttempt{}, &GenerationError{Attempts: s.maxAttempts, RateLimited: rateLimited, Err: lastErr}
}

func (s *Summarizer) complete(ctx context.Context, payload chatRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var completion chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	for _, choice := range completion.Choices {
		if text := strings.TrimSpace(choice.Message.Content); text != "" {
			return text, nil
		}
	}
	return "", errors.New("chat completion: empty content")
}

func (s *Summarizer) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
