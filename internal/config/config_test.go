package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thomaskoefod/ainews/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "ainews.db", cfg.Database.Path)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "Khaleej Times", cfg.Scraper.SourceName)
	assert.Equal(t, "https://www.khaleejtimes.com", cfg.Scraper.BaseURL)
	assert.Equal(t, []string{"AI"}, cfg.Scraper.SearchTerms)
	assert.Equal(t, 3, cfg.Scraper.Pages)
	assert.Equal(t, 10, cfg.Scraper.MaxArticlesPerPage)
	assert.Equal(t, 24*time.Hour, cfg.Scraper.CacheTTL)
	assert.NotEmpty(t, cfg.Scraper.UserAgents)
	assert.NotEmpty(t, cfg.Scraper.Selectors.Cards)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/custom.db
scraper:
  search_terms: ["AI", "artificial intelligence"]
  pages: 5
  request_delay: 500ms
  selectors:
    cards: div.result
feeds:
  - url: https://example.com/rss
    name: Example
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom.db", cfg.Database.Path)
	assert.Equal(t, []string{"AI", "artificial intelligence"}, cfg.Scraper.SearchTerms)
	assert.Equal(t, 5, cfg.Scraper.Pages)
	assert.Equal(t, 500*time.Millisecond, cfg.Scraper.RequestDelay)
	assert.Equal(t, "div.result", cfg.Scraper.Selectors.Cards)
	assert.NotEmpty(t, cfg.Scraper.Selectors.CardLink, "unset selectors keep defaults")
	require.Len(t, cfg.Feeds, 1)
	assert.Equal(t, "Example", cfg.Feeds[0].Name)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":9000\"\n")
	t.Setenv("AINEWS_ADDR", ":7000")
	t.Setenv("AINEWS_PAGES", "2")
	t.Setenv("AINEWS_CACHE_TTL", "1h")
	t.Setenv("AINEWS_SEARCH_TERMS", "AI, machine learning")
	t.Setenv("AINEWS_IGNORE_ROBOTS", "yes")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, 2, cfg.Scraper.Pages)
	assert.Equal(t, time.Hour, cfg.Scraper.CacheTTL)
	assert.Equal(t, []string{"AI", "machine learning"}, cfg.Scraper.SearchTerms)
	assert.True(t, cfg.Scraper.IgnoreRobots)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_Invalid(t *testing.T) {
	path := writeConfig(t, `
scraper:
  base_url: not-a-url
  pages: -1
feeds:
  - url: https://example.com/rss
`)

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scraper.base_url")
	assert.Contains(t, err.Error(), "scraper.pages")
	assert.Contains(t, err.Error(), "feeds[0].name")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	require.NoError(t, config.Save(config.Default(), path))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Scraper, cfg.Scraper)
}

func TestResolvePath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/etc/ainews.yaml")

	assert.Equal(t, "explicit.yaml", config.ResolvePath("explicit.yaml"))
	assert.Equal(t, "/etc/ainews.yaml", config.ResolvePath(""))
}
