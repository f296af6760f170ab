package feed

import (
	"fmt"
	"net/http"
)

// ErrorType classifies why a feed contributed no items.
type ErrorType string

const (
	ErrTypeRateLimited ErrorType = "rate_limited"
	ErrTypeNotFound    ErrorType = "not_found"
	ErrTypeUpstream    ErrorType = "upstream_failure"
	ErrTypeNetwork     ErrorType = "network"
	ErrTypeParse       ErrorType = "parse_error"
	ErrTypeUnexpected  ErrorType = "unexpected"
)

// FetchError is a source-level failure. It never aborts a run.
type FetchError struct {
	Type       ErrorType
	StatusCode int
	URL        string
	Cause      error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("feed %s: HTTP %d for %s", e.Type, e.StatusCode, e.URL)
	}
	return fmt.Sprintf("feed %s: %v for %s", e.Type, e.Cause, e.URL)
}

func (e *FetchError) Unwrap() error { return e.Cause }

func classifyStatus(statusCode int, url string) *FetchError {
	cause := fmt.Errorf("HTTP %d", statusCode)

	errType := ErrTypeUnexpected
	switch {
	case statusCode == http.StatusTooManyRequests:
		errType = ErrTypeRateLimited
	case statusCode == http.StatusNotFound || statusCode == http.StatusGone:
		errType = ErrTypeNotFound
	case statusCode >= http.StatusInternalServerError:
		errType = ErrTypeUpstream
	}
	return &FetchError{Type: errType, StatusCode: statusCode, URL: url, Cause: cause}
}

func networkError(cause error, url string) *FetchError {
	return &FetchError{Type: ErrTypeNetwork, URL: url, Cause: cause}
}

func parseError(cause error, url string) *FetchError {
	return &FetchError{Type: ErrTypeParse, URL: url, Cause: cause}
}
