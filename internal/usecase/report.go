package usecase

import (
	"fmt"
	"strings"
	"time"

	"FeedDigest/internal/domain"
)

// markdownEscaper escapes the legacy Telegram Markdown entity markers.
var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// FormatReport renders a run for chat notifications. Interpolated values are
// escaped so error text and URLs cannot break the Markdown entities.
func FormatReport(result domain.RunResult, runErr error) string {
	var b strings.Builder

	if runErr != nil {
		fmt.Fprintf(&b, "*FeedDigest run failed*\nRun: %s\nError: %s\n", escapeMarkdown(result.RunID), escapeMarkdown(runErr.Error()))
		return b.String()
	}

	fmt.Fprintf(&b, "*FeedDigest run %s*\n", result.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "Fetched: %d\nNew: %d\nProcessed: %d\nFailed: %d\nRate limited: %d\n",
		result.TotalFetched, result.NewArticles, result.Processed, result.Failed, result.RateLimited)

	if len(result.SourceFailures) > 0 {
		b.WriteString("Failed sources:\n")
		for _, failure := range result.SourceFailures {
			fmt.Fprintf(&b, "- %s: %s\n", escapeMarkdown(failure.Source.Name), escapeMarkdown(errorText(failure.Err)))
		}
	}

	return b.String()
}

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
