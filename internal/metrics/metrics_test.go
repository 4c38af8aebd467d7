package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thomaskoefod/ainews/internal/metrics"
)

func TestHandlerExposesRecordedValues(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.ObserveRequest(http.MethodGet, "/articles", http.StatusOK, 15*time.Millisecond)
	m.ObserveScrape(false, 2*time.Second)
	m.ArticleInserted("Khaleej Times")
	m.ArticleInserted("Khaleej Times")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)

	assert.Contains(t, out, `ainews_http_requests_total{method="GET",route="/articles",status="200"} 1`)
	assert.Contains(t, out, `ainews_scrape_runs_total{result="failure"} 1`)
	assert.Contains(t, out, `ainews_articles_inserted_total{source="Khaleej Times"} 2`)
}

func TestNilMetricsIsSafe(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
		m.ObserveScrape(true, time.Second)
		m.ArticleInserted("x")
	})
}
