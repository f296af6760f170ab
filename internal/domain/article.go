package domain

import "time"

// Source is one configured feed.
type Source struct {
	FeedURL  string
	Name     string
	Category string
}

// CandidateItem is a feed entry not yet confirmed to be new or content-complete.
type CandidateItem struct {
	Title       string
	URL         string
	SourceName  string
	Category    string
	ImageURL    string
	PublishedAt *time.Time
}

// SourceFailure records a feed that contributed nothing to a run.
type SourceFailure struct {
	Source Source
	Err    error
}

// FetchReport is the fan-in result of fetching every configured source.
type FetchReport struct {
	Items    []CandidateItem
	Failures []SourceFailure
}

// ScrapedContent is the full article text used as ground truth during verification.
type ScrapedContent struct {
	SourceURL string
	Markdown  string
}

// SummaryAttempt is the abstract produced by the text-generation service.
type SummaryAttempt struct {
	Text          string
	AttemptNumber int
}

// VerificationStatus is the outcome of one verification attempt or of the whole loop.
type VerificationStatus string

const (
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
	VerificationPending  VerificationStatus = "pending"
)

// VerificationAttempt is one entry of the per-article audit log.
type VerificationAttempt struct {
	AttemptNumber    int                `json:"attemptNumber"`
	Status           VerificationStatus `json:"status"`
	IsValid          bool               `json:"isValid"`
	Errors           []string           `json:"errors"`
	CorrectedSummary string             `json:"correctedSummary,omitempty"`
	ClaimsChecked    int                `json:"claimsChecked"`
	ClaimsVerified   int                `json:"claimsVerified"`
	ClaimsRejected   int                `json:"claimsRejected"`
	FabricatedClaims []string           `json:"fabricatedClaims"`
}

// ProcessedArticle is persisted once per distinct URL.
type ProcessedArticle struct {
	URL                string
	Title              string
	SourceName         string
	Category           string
	ImageURL           string
	FullContent        string
	FinalSummary       string
	PublishedAt        *time.Time
	VerificationStatus VerificationStatus
	VerificationLog    []VerificationAttempt
}

// RunResult summarizes one pipeline run.
type RunResult struct {
	Success        bool            `json:"success"`
	RunID          string          `json:"runId"`
	TotalFetched   int             `json:"totalFetched"`
	NewArticles    int             `json:"newArticles"`
	Processed      int             `json:"processed"`
	Failed         int             `json:"failed"`
	RateLimited    int             `json:"rateLimited"`
	Timestamp      time.Time       `json:"timestamp"`
	SourceFailures []SourceFailure `json:"-"`
}
