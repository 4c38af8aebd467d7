package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thomaskoefod/ainews/internal/api"
	"github.com/thomaskoefod/ainews/internal/config"
	"github.com/thomaskoefod/ainews/internal/database"
	"github.com/thomaskoefod/ainews/internal/logger"
	"github.com/thomaskoefod/ainews/internal/metrics"
	"github.com/thomaskoefod/ainews/internal/scraper"
	"github.com/thomaskoefod/ainews/pkg/models"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type stubScraper struct {
	inserted int
	err      error
	calls    int
}

func (s *stubScraper) Scrape(context.Context) (int, error) {
	s.calls++
	return s.inserted, s.err
}

type listBody struct {
	Count   int                     `json:"count"`
	Offset  int                     `json:"offset"`
	Limit   int                     `json:"limit"`
	Results []models.ArticlePreview `json:"results"`
}

type testServer struct {
	router  *gin.Engine
	db      *database.DB
	scraper *stubScraper
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := &stubScraper{}
	cfg := config.Default().Server
	cfg.RateLimitRPS = 0

	h := api.NewHandler(db, s, logger.NewNop())
	return &testServer{
		router:  api.NewRouter(cfg, h, metrics.New(), logger.NewNop()),
		db:      db,
		scraper: s,
	}
}

func (ts *testServer) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, httptest.NewRequest(method, target, http.NoBody))
	return rec
}

func (ts *testServer) seed(t *testing.T, articles ...models.Article) []models.Article {
	t.Helper()
	for i := range articles {
		require.NoError(t, ts.db.InsertArticle(context.Background(), &articles[i]))
	}
	return articles
}

func day(d int) *time.Time {
	t := time.Date(2024, 6, d, 12, 0, 0, 0, time.UTC)
	return &t
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestWelcome(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Welcome to the AI News API"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestListArticles_Pagination(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	for i := 1; i <= 25; i++ {
		ts.seed(t, models.Article{
			Title:       fmt.Sprintf("Story %d", i),
			URL:         fmt.Sprintf("https://news.test/%d", i),
			Source:      "Khaleej Times",
			PublishedAt: day(i),
		})
	}

	rec := ts.do(t, http.MethodGet, "/articles")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[listBody](t, rec)
	assert.Equal(t, 25, body.Count)
	assert.Equal(t, 10, body.Limit)
	require.Len(t, body.Results, 10)
	assert.Equal(t, "Story 25", body.Results[0].Title)

	seen := map[int64]bool{}
	for page := 1; page <= 3; page++ {
		rec := ts.do(t, http.MethodGet, fmt.Sprintf("/articles?limit=10&page=%d", page))
		require.Equal(t, http.StatusOK, rec.Code)
		for _, a := range decode[listBody](t, rec).Results {
			assert.False(t, seen[a.ID], "article %d returned twice", a.ID)
			seen[a.ID] = true
		}
	}
	assert.Len(t, seen, 25)

	rec = ts.do(t, http.MethodGet, "/articles?offset=20&limit=100")
	body = decode[listBody](t, rec)
	assert.Equal(t, 20, body.Offset)
	assert.Len(t, body.Results, 5)
}

func TestListArticles_BadParameters(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	for _, target := range []string{
		"/articles?limit=0",
		"/articles?limit=101",
		"/articles?limit=ten",
		"/articles?page=0",
		"/articles?page=9223372036854775807&limit=100",
		"/articles?offset=-1",
		"/articles?start_date=06/01/2024",
		"/articles?start_date=2024-06-10&end_date=2024-06-01",
	} {
		rec := ts.do(t, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Contains(t, rec.Body.String(), `"field"`, target)
	}
}

func TestListArticles_Filters(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.seed(t,
		models.Article{Title: "GPU shortage", URL: "https://a.test/1", Source: "Khaleej Times", PublishedAt: day(1)},
		models.Article{Title: "Chatbots in schools", URL: "https://a.test/2", Source: "Gulf News", PublishedAt: day(5)},
		models.Article{Title: "Chatbot regulation", URL: "https://a.test/3", Source: "Khaleej Times", PublishedAt: day(10)},
	)

	body := decode[listBody](t, ts.do(t, http.MethodGet, "/articles?source=Gulf%20News"))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "Gulf News", body.Results[0].Source)

	body = decode[listBody](t, ts.do(t, http.MethodGet, "/articles?query=chatbot"))
	assert.Equal(t, 2, body.Count)

	body = decode[listBody](t, ts.do(t, http.MethodGet, "/articles?start_date=2024-06-05&end_date=2024-06-10"))
	assert.Equal(t, 2, body.Count, "both bounds include their whole day")
}

func TestGetArticle(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	seeded := ts.seed(t, models.Article{Title: "One", URL: "https://a.test/1", Source: "S", Content: "Body"})

	rec := ts.do(t, http.MethodGet, fmt.Sprintf("/articles/%d", seeded[0].ID))
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[models.Article](t, rec)
	assert.Equal(t, "Body", got.Content)

	rec = ts.do(t, http.MethodGet, "/articles/9999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Article not found"}`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/articles/abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.seed(t, models.Article{
		Title:   "Dubai bets on machine learning",
		URL:     "https://a.test/ml",
		Source:  "S",
		Content: strings.Repeat("x", 200) + " machine learning " + strings.Repeat("y", 200),
	})

	rec := ts.do(t, http.MethodGet, "/search")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode[listBody](t, ts.do(t, http.MethodGet, "/search?q=Machine"))
	require.Len(t, body.Results, 1)
	snip := body.Results[0].Snippet
	assert.True(t, strings.HasPrefix(snip, "..."))
	assert.Contains(t, snip, "machine learning")

	body = decode[listBody](t, ts.do(t, http.MethodGet, "/search?q=blockchain"))
	assert.Zero(t, body.Count)
	assert.NotNil(t, body.Results)
	assert.Empty(t, body.Results)
}

func TestSourcesAndStats(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	assert.JSONEq(t, `{"sources":[]}`, ts.do(t, http.MethodGet, "/sources").Body.String())

	ts.seed(t,
		models.Article{Title: "A", URL: "https://a.test/1", Source: "Beta"},
		models.Article{Title: "B", URL: "https://a.test/2", Source: "Alpha"},
		models.Article{Title: "C", URL: "https://a.test/3", Source: "Alpha"},
	)
	assert.JSONEq(t, `{"sources":["Alpha","Beta"]}`, ts.do(t, http.MethodGet, "/sources").Body.String())

	stats := decode[models.Stats](t, ts.do(t, http.MethodGet, "/stats"))
	assert.Equal(t, 3, stats.TotalArticles)
	assert.Equal(t, map[string]int{"Alpha": 2, "Beta": 1}, stats.BySource)
	assert.NotNil(t, stats.LatestUpdate)
}

func TestScrape(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.scraper.inserted = 4

	rec := ts.do(t, http.MethodPost, "/scrape")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","inserted":4,"message":"Successfully scraped 4 articles."}`, rec.Body.String())
	assert.Equal(t, 1, ts.scraper.calls)

	ts.scraper.inserted = 0
	rec = ts.do(t, http.MethodPost, "/scrape")
	assert.Contains(t, rec.Body.String(), "No new articles")

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/scrape").Code)
}

func TestScrape_Failure(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.scraper.inserted = 2
	ts.scraper.err = &scraper.ScrapeError{Inserted: 2, Err: errors.New("listing unavailable")}

	rec := ts.do(t, http.MethodPost, "/scrape")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "error", body["status"])
	assert.EqualValues(t, 2, body["inserted"])
	assert.Contains(t, body["error"], "listing unavailable")
}

func TestClearCache(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	require.NoError(t, ts.db.SaveCachedResponse(context.Background(), "https://a.test/", "body"))

	rec := ts.do(t, http.MethodPost, "/cache/clear")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.EqualValues(t, 1, body["cleared"])
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	ts.do(t, http.MethodGet, "/articles")
	rec = ts.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/articles"`)
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/articles", http.NoBody)
	req.Header.Set("Origin", "https://frontend.test")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
