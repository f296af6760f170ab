package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeedDigest/internal/domain"
	"FeedDigest/internal/infrastructure/feed"
)

func TestFormatReport(t *testing.T) {
	t.Parallel()

	result := domain.RunResult{
		Success: true, RunID: "r1", TotalFetched: 15, NewArticles: 4, Processed: 3, Failed: 1, RateLimited: 1,
		Timestamp:      fixedNow,
		SourceFailures: []domain.SourceFailure{{Source: domain.Source{Name: "TVP Sport"}, Err: errors.New("http 503")}},
	}

	report := FormatReport(result, nil)

	assert.Contains(t, report, "2026-10-15T06:00:00Z")
	assert.Contains(t, report, "Fetched: 15\nNew: 4\nProcessed: 3\nFailed: 1\nRate limited: 1\n")
	assert.Contains(t, report, "- TVP Sport: http 503")
}

func TestFormatReportRunError(t *testing.T) {
	t.Parallel()

	report := FormatReport(domain.RunResult{RunID: "r2"}, errors.New("load existing urls: dial tcp"))

	assert.Contains(t, report, "run failed")
	assert.Contains(t, report, "Run: r2")
	assert.Contains(t, report, "dial tcp")
}

func TestFormatReportEscapesMarkdown(t *testing.T) {
	t.Parallel()

	upstream := &feed.FetchError{Type: feed.ErrTypeUpstream, StatusCode: 503, URL: "https://x.pl/rss_main.xml"}
	result := domain.RunResult{
		Success: true, Timestamp: fixedNow,
		SourceFailures: []domain.SourceFailure{{Source: domain.Source{Name: "TVP_Sport*"}, Err: upstream}},
	}

	report := FormatReport(result, nil)

	assert.Contains(t, report, `- TVP\_Sport\*: feed upstream\_failure: HTTP 503 for https://x.pl/rss\_main.xml`)
	assert.Equal(t, 0, unescapedMarkers(report, '_'))
	assert.Equal(t, 2, unescapedMarkers(report, '*'), "only the heading is bold")
}

func TestFormatReportRunErrorEscapesMarkdown(t *testing.T) {
	t.Parallel()

	report := FormatReport(domain.RunResult{RunID: "run_1"}, errors.New("load existing urls: pq: relation \"articles_url_key\" [x]"))

	assert.Contains(t, report, `Run: run\_1`)
	assert.Contains(t, report, `articles\_url\_key`)
	assert.Contains(t, report, `\[x]`)
	assert.Equal(t, 0, unescapedMarkers(report, '_'))
}

// unescapedMarkers counts occurrences of marker not preceded by a backslash.
func unescapedMarkers(s string, marker byte) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == marker && (i == 0 || s[i-1] != '\\') {
			n++
		}
	}
	return n
}

type fakeDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *fakeDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *fakeDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerRunsPipelineOnTick(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	runs := 0
	s := NewScheduler(driver, func(context.Context) (domain.RunResult, error) {
		runs++
		return domain.RunResult{Success: true}, nil
	})

	require.NoError(t, s.Start(context.Background()))
	require.NotNil(t, driver.job)
	driver.job(fixedNow)
	driver.job(fixedNow.Add(time.Hour))
	require.NoError(t, s.Stop(context.Background()))

	assert.Equal(t, 2, runs)
	assert.True(t, driver.stopped)
}

func TestSchedulerWithoutDriver(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil, nil)
	assert.NoError(t, s.Start(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
}
