package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"FeedDigest/internal/domain"
	"FeedDigest/internal/pacing"
	"FeedDigest/internal/ports"
)

const defaultVerifyAttempts = 3

// VerificationOutcome is the terminal state of the verification loop for one article.
type VerificationOutcome struct {
	Status  domain.VerificationStatus
	Summary string
	Log     []domain.VerificationAttempt
}

// VerificationLoop checks a summary against its source, accepting corrected
// summaries offered by the checker, for at most maxAttempts calls.
type VerificationLoop struct {
	checker     ports.FactChecker
	maxAttempts int
	delay       time.Duration
	sleep       pacing.SleepFunc
	logger      *slog.Logger
}

// NewVerificationLoop builds a loop; maxAttempts <= 0 means 3 and a nil sleep means real time.
func NewVerificationLoop(checker ports.FactChecker, maxAttempts int, delay time.Duration, sleep pacing.SleepFunc, logger *slog.Logger) *VerificationLoop {
	if maxAttempts <= 0 {
		maxAttempts = defaultVerifyAttempts
	}
	if sleep == nil {
		sleep = pacing.Sleep
	}
	return &VerificationLoop{
		checker:     checker,
		maxAttempts: maxAttempts,
		delay:       delay,
		sleep:       sleep,
		logger:      logger,
	}
}

// Run always terminates within maxAttempts with verified, rejected or pending.
// The returned log holds one entry per attempt, numbered from 1.
// A rejection without a corrected summary retries the unchanged summary.
func (l *VerificationLoop) Run(ctx context.Context, title string, source domain.ScrapedContent, summary string) VerificationOutcome {
	outcome := VerificationOutcome{
		Status:  domain.VerificationPending,
		Summary: summary,
		Log:     make([]domain.VerificationAttempt, 0, l.maxAttempts),
	}

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		result := l.attempt(ctx, title, source, outcome.Summary, attempt)
		outcome.Log = append(outcome.Log, result)

		switch {
		case result.Status == domain.VerificationVerified && result.IsValid:
			outcome.Status = domain.VerificationVerified
			return outcome
		case result.Status == domain.VerificationPending:
			outcome.Status = domain.VerificationPending
		default:
			outcome.Status = domain.VerificationRejected
			if result.CorrectedSummary != "" && attempt < l.maxAttempts {
				outcome.Summary = result.CorrectedSummary
			}
		}

		l.debug("verification attempt", "attempt", attempt, "status", result.Status,
			"claims_checked", result.ClaimsChecked, "claims_rejected", result.ClaimsRejected)
	}

	return outcome
}

func (l *VerificationLoop) attempt(ctx context.Context, title string, source domain.ScrapedContent, summary string, attempt int) domain.VerificationAttempt {
	if err := l.sleep(ctx, l.delay); err != nil {
		return pendingAttempt(attempt, err)
	}
	if l.checker == nil {
		return pendingAttempt(attempt, errors.New("verification service is not configured"))
	}

	result, err := l.checker.Check(ctx, title, source, summary, attempt)
	if err != nil {
		return pendingAttempt(attempt, err)
	}
	result.AttemptNumber = attempt
	if result.Status == "" {
		result.Status = domain.VerificationPending
	}
	return result
}

func pendingAttempt(attempt int, err error) domain.VerificationAttempt {
	return domain.VerificationAttempt{
		AttemptNumber:    attempt,
		Status:           domain.VerificationPending,
		Errors:           []string{err.Error()},
		FabricatedClaims: []string{},
	}
}

func (l *VerificationLoop) debug(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Debug(msg, args...)
	}
}
