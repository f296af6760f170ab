package factcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"FeedDigest/internal/config"
	"FeedDigest/internal/domain"
	"FeedDigest/internal/ports"
)

// Client talks to the verification service that checks summaries against their source.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.FactChecker = (*Client)(nil)

// Request is the verification service input.
type Request struct {
	Title           string `json:"title"`
	OriginalContent string `json:"originalContent"`
	AISummary       string `json:"aiSummary"`
	AttemptNumber   int    `json:"attemptNumber"`
}

type response struct {
	Status           string   `json:"status"`
	IsValid          bool     `json:"isValid"`
	Errors           []string `json:"errors"`
	CorrectedSummary string   `json:"correctedSummary"`
	ClaimsChecked    int      `json:"claimsChecked"`
	ClaimsVerified   int      `json:"claimsVerified"`
	ClaimsRejected   int      `json:"claimsRejected"`
	FabricatedClaims []string `json:"fabricatedClaims"`
}

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.VerifierConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		http:     &http.Client{Timeout: timeout},
	}
}

// Check sends one summary for verification against the scraped source text.
func (c *Client) Check(ctx context.Context, title string, source domain.ScrapedContent, summary string, attempt int) (domain.VerificationAttempt, error) {
	return c.Verify(ctx, Request{
		Title:           title,
		OriginalContent: source.Markdown,
		AISummary:       summary,
		AttemptNumber:   attempt,
	})
}

// Verify posts the request and converts the reply into a typed attempt.
// Statuses the service does not document are reported as pending.
func (c *Client) Verify(ctx context.Context, in Request) (domain.VerificationAttempt, error) {
	if strings.TrimSpace(c.endpoint) == "" {
		return domain.VerificationAttempt{}, fmt.Errorf("verification endpoint not configured")
	}

	var out response
	if err := c.post(ctx, in, &out); err != nil {
		return domain.VerificationAttempt{}, err
	}

	return domain.VerificationAttempt{
		AttemptNumber:    in.AttemptNumber,
		Status:           normalizeStatus(out.Status),
		IsValid:          out.IsValid,
		Errors:           nonNil(out.Errors),
		CorrectedSummary: strings.TrimSpace(out.CorrectedSummary),
		ClaimsChecked:    out.ClaimsChecked,
		ClaimsVerified:   out.ClaimsVerified,
		ClaimsRejected:   out.ClaimsRejected,
		FabricatedClaims: nonNil(out.FabricatedClaims),
	}, nil
}

func normalizeStatus(raw string) domain.VerificationStatus {
	switch status := domain.VerificationStatus(strings.ToLower(strings.TrimSpace(raw))); status {
	case domain.VerificationVerified, domain.VerificationRejected:
		return status
	default:
		return domain.VerificationPending
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func (c *Client) post(ctx context.Context, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
