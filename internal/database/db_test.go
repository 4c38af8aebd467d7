package database_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thomaskoefod/ainews/internal/database"
	"github.com/thomaskoefod/ainews/pkg/models"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "data", "ainews.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func publishedAt(day int) *time.Time {
	t := time.Date(2025, time.March, day, 9, 0, 0, 0, time.UTC)
	return &t
}

func seedArticles(t *testing.T, db *database.DB, n int, source string) []models.Article {
	t.Helper()

	articles := make([]models.Article, 0, n)
	for i := 1; i <= n; i++ {
		a := models.Article{
			Title:       fmt.Sprintf("%s story %d", source, i),
			URL:         fmt.Sprintf("https://example.com/%s/%d", source, i),
			Source:      source,
			Content:     fmt.Sprintf("Body of story %d", i),
			PublishedAt: publishedAt(i),
		}
		require.NoError(t, db.InsertArticle(context.Background(), &a))
		articles = append(articles, a)
	}
	return articles
}

func TestNew_CreatesDirectoryAndSchema(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "ainews.db")
	db, err := database.New(path)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)

	// Opening again must not fail on the existing schema.
	again, err := database.New(path)
	require.NoError(t, err)
	again.Close()
}

func TestInsertArticle_AssignsID(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	a := models.Article{Title: "GPT news", URL: "https://example.com/a", Source: "Khaleej Times"}
	require.NoError(t, db.InsertArticle(ctx, &a))
	assert.Positive(t, a.ID)
	assert.False(t, a.ScrapedAt.IsZero())

	got, err := db.GetArticle(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "GPT news", got.Title)
	assert.Equal(t, "https://example.com/a", got.URL)
	assert.Nil(t, got.PublishedAt)
}

func TestInsertArticle_DuplicateURL(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	first := models.Article{Title: "first", URL: "https://example.com/dup", Source: "s"}
	require.NoError(t, db.InsertArticle(ctx, &first))

	second := models.Article{Title: "second", URL: "https://example.com/dup", Source: "s"}
	err := db.InsertArticle(ctx, &second)
	assert.ErrorIs(t, err, database.ErrArticleExists)
	assert.Zero(t, second.ID)

	articles, total, err := db.ListArticles(ctx, models.ArticleFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, articles, 1)
	assert.Equal(t, "first", articles[0].Title, "stored article must not be mutated")
}

func TestGetArticle_NotFound(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	_, err := db.GetArticle(context.Background(), 4242)
	assert.True(t, errors.Is(err, database.ErrNotFound))
}

func TestArticleExists(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	seedArticles(t, db, 1, "kt")

	ok, err := db.ArticleExists(ctx, "https://example.com/kt/1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.ArticleExists(ctx, "https://example.com/kt/2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListArticles_PagesCoverEverythingOnce(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	seedArticles(t, db, 7, "kt")

	// Undated articles sort after dated ones.
	undated := models.Article{Title: "undated", URL: "https://example.com/undated", Source: "kt"}
	require.NoError(t, db.InsertArticle(ctx, &undated))

	seen := map[int64]int{}
	var order []int64
	for offset := 0; ; offset += 3 {
		page, total, err := db.ListArticles(ctx, models.ArticleFilter{Offset: offset, Limit: 3})
		require.NoError(t, err)
		assert.Equal(t, 8, total)
		assert.LessOrEqual(t, len(page), 3)
		if len(page) == 0 {
			break
		}
		for _, a := range page {
			seen[a.ID]++
			order = append(order, a.ID)
		}
	}

	assert.Len(t, seen, 8)
	for id, n := range seen {
		assert.Equal(t, 1, n, "article %d returned more than once", id)
	}
	assert.Equal(t, undated.ID, order[len(order)-1])

	// Same call twice yields the same order.
	first, _, err := db.ListArticles(ctx, models.ArticleFilter{Limit: 8})
	require.NoError(t, err)
	second, _, err := db.ListArticles(ctx, models.ArticleFilter{Limit: 8})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "kt story 7", first[0].Title)
}

func TestListArticles_SourceFilter(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	seedArticles(t, db, 3, "alpha")
	seedArticles(t, db, 2, "beta")

	articles, total, err := db.ListArticles(ctx, models.ArticleFilter{Source: "beta"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, a := range articles {
		assert.Equal(t, "beta", a.Source)
	}
}

func TestListArticles_Query(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	seedArticles(t, db, 2, "kt")

	special := models.Article{
		Title:   "OpenAI unveils new Model",
		URL:     "https://example.com/openai",
		Source:  "kt",
		Content: "Discount of 50% announced",
	}
	require.NoError(t, db.InsertArticle(ctx, &special))

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "title case-insensitive", query: "openai", want: 1},
		{name: "content match", query: "discount", want: 1},
		{name: "percent is literal", query: "50%", want: 1},
		{name: "underscore is literal", query: "story_1", want: 0},
		{name: "absent keyword", query: "blockchain", want: 0},
		{name: "matches many", query: "story", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			articles, total, err := db.ListArticles(ctx, models.ArticleFilter{Query: tt.query})
			require.NoError(t, err)
			assert.Equal(t, tt.want, total)
			assert.Len(t, articles, tt.want)
		})
	}
}

func TestListArticles_DateRange(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	seedArticles(t, db, 5, "kt")

	from := time.Date(2025, time.March, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.March, 4, 0, 0, 0, 0, time.UTC)

	articles, total, err := db.ListArticles(context.Background(), models.ArticleFilter{From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, articles, 2)
	assert.Equal(t, "kt story 3", articles[0].Title)
	assert.Equal(t, "kt story 2", articles[1].Title)
}

func TestListSources(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	seedArticles(t, db, 2, "zeta")
	seedArticles(t, db, 1, "alpha")

	sources, err := db.ListSources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, sources)
}

func TestListSources_Empty(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	sources, err := db.ListSources(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, sources)
	assert.Empty(t, sources)
}

func TestStats(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	stats, err := db.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalArticles)
	assert.Nil(t, stats.LatestUpdate)

	seedArticles(t, db, 2, "alpha")
	seedArticles(t, db, 1, "beta")

	stats, err = db.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalArticles)
	assert.Equal(t, map[string]int{"alpha": 2, "beta": 1}, stats.BySource)
	require.NotNil(t, stats.LatestUpdate)
	assert.WithinDuration(t, time.Now(), *stats.LatestUpdate, time.Minute)
}

func TestReset(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	before := seedArticles(t, db, 2, "kt")
	require.NoError(t, db.SaveCachedResponse(ctx, "https://example.com/page", "<html></html>"))

	require.NoError(t, db.Reset(ctx))

	_, total, err := db.ListArticles(ctx, models.ArticleFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = db.GetCachedResponse(ctx, "https://example.com/page", time.Hour)
	assert.ErrorIs(t, err, database.ErrNotFound)

	// Ids are not reused after a reset.
	a := models.Article{Title: "after", URL: "https://example.com/after", Source: "kt"}
	require.NoError(t, db.InsertArticle(ctx, &a))
	assert.Greater(t, a.ID, before[len(before)-1].ID)
}

func TestRemove(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ainews.db")
	db, err := database.New(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	require.NoError(t, database.Remove(path))
	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.ErrorIs(t, database.Remove(path), os.ErrNotExist)
}
