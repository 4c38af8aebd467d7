package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/thomaskoefod/ainews/internal/logger"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Feeds    []FeedConfig   `yaml:"feeds"`
	Logging  logger.Config  `yaml:"logging"`
	UI       UIConfig       `yaml:"ui"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" env:"AINEWS_DB_PATH"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"AINEWS_ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"AINEWS_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"AINEWS_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins" env:"AINEWS_CORS_ORIGINS"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" env:"AINEWS_RATE_LIMIT_RPS"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" env:"AINEWS_RATE_LIMIT_BURST"`
}

type ScraperConfig struct {
	SourceName         string         `yaml:"source_name"`
	BaseURL            string         `yaml:"base_url" env:"AINEWS_BASE_URL"`
	SearchPath         string         `yaml:"search_path"`
	SearchTerms        []string       `yaml:"search_terms" env:"AINEWS_SEARCH_TERMS"`
	Pages              int            `yaml:"pages" env:"AINEWS_PAGES"`
	MaxArticlesPerPage int            `yaml:"max_articles_per_page" env:"AINEWS_MAX_ARTICLES_PER_PAGE"`
	Selectors          SelectorConfig `yaml:"selectors"`
	UserAgents         []string       `yaml:"user_agents"`
	RequestTimeout     time.Duration  `yaml:"request_timeout" env:"AINEWS_REQUEST_TIMEOUT"`
	RequestDelay       time.Duration  `yaml:"request_delay" env:"AINEWS_REQUEST_DELAY"`
	MaxRetries         int            `yaml:"max_retries" env:"AINEWS_MAX_RETRIES"`
	CacheTTL           time.Duration  `yaml:"cache_ttl" env:"AINEWS_CACHE_TTL"`
	IgnoreRobots       bool           `yaml:"ignore_robots" env:"AINEWS_IGNORE_ROBOTS"`
}

// SelectorConfig holds the CSS selectors used to pick listings and article fields.
type SelectorConfig struct {
	Cards         string `yaml:"cards"`
	CardLink      string `yaml:"card_link"`
	ContentArea   string `yaml:"content_area"`
	AreaLinks     string `yaml:"area_links"`
	FallbackLinks string `yaml:"fallback_links"`
	Title         string `yaml:"title"`
	Date          string `yaml:"date"`
	Content       string `yaml:"content"`
	Keywords      string `yaml:"keywords"`
}

type FeedConfig struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type UIConfig struct {
	PageSize     int    `yaml:"page_size"`
	GlamourStyle string `yaml:"glamour_style"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load reads configuration from file, applies defaults, then environment overrides.
// An empty path skips the file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (cfg *Config) setDefaults() {
	if cfg.Database.Path == "" {
		cfg.Database.Path = "ainews.db"
	}
	cfg.Database.Path = expandPath(cfg.Database.Path)

	s := &cfg.Server
	if s.Addr == "" {
		s.Addr = ":8000"
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 10 * time.Second
	}
	if s.WriteTimeout == 0 {
		// POST /scrape runs synchronously.
		s.WriteTimeout = 5 * time.Minute
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = 10 * time.Second
	}
	if len(s.CORSOrigins) == 0 {
		s.CORSOrigins = []string{"*"}
	}
	if s.RateLimitRPS == 0 {
		s.RateLimitRPS = 10
	}
	if s.RateLimitBurst == 0 {
		s.RateLimitBurst = 20
	}

	sc := &cfg.Scraper
	if sc.SourceName == "" {
		sc.SourceName = "Khaleej Times"
	}
	if sc.BaseURL == "" {
		sc.BaseURL = "https://www.khaleejtimes.com"
	}
	if sc.SearchPath == "" {
		sc.SearchPath = "/search"
	}
	if len(sc.SearchTerms) == 0 {
		sc.SearchTerms = []string{"AI"}
	}
	if sc.Pages == 0 {
		sc.Pages = 3
	}
	if sc.MaxArticlesPerPage == 0 {
		sc.MaxArticlesPerPage = 10
	}
	if len(sc.UserAgents) == 0 {
		sc.UserAgents = defaultUserAgents
	}
	if sc.RequestTimeout == 0 {
		sc.RequestTimeout = 15 * time.Second
	}
	if sc.RequestDelay == 0 {
		sc.RequestDelay = 2 * time.Second
	}
	if sc.MaxRetries == 0 {
		sc.MaxRetries = 3
	}
	if sc.CacheTTL == 0 {
		sc.CacheTTL = 24 * time.Hour
	}
	sc.Selectors.setDefaults()

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.UI.PageSize == 0 {
		cfg.UI.PageSize = 100
	}
	if cfg.UI.GlamourStyle == "" {
		cfg.UI.GlamourStyle = "dark"
	}
}

func (s *SelectorConfig) setDefaults() {
	if s.Cards == "" {
		s.Cards = "article.story-card, div.story-card, div.search-result-card, div.card, " +
			"article.listing-normal-teasers, article.card-article-list-item, article.list-card-block"
	}
	if s.CardLink == "" {
		s.CardLink = "h2 a, h3 a, .headline a, .title a"
	}
	if s.ContentArea == "" {
		s.ContentArea = "div.main-content, div.search-results, div.content-area"
	}
	if s.AreaLinks == "" {
		s.AreaLinks = `a[href*="/article/"], a[href*="/news/"]`
	}
	if s.FallbackLinks == "" {
		s.FallbackLinks = `a[href*="/article/"], a[href*="/news/"], a[href*="/technology/"]`
	}
	if s.Title == "" {
		s.Title = "h1.article-title, h1.headline, div.article-header h1, h1.story-headline"
	}
	if s.Date == "" {
		s.Date = "time, span.date, div.timestamp-latnw-nf, span.timestamp, div.article-info time, div.publish-date"
	}
	if s.Content == "" {
		s.Content = "div.article-body, div.article-paragraph-wrapper, div.col-lg-9, div.col-md-9, article"
	}
	if s.Keywords == "" {
		s.Keywords = `meta[name="keywords"], a.tag, span.tag, div.tags a`
	}
}

// Validate reports every invalid setting at once.
func (cfg *Config) Validate() error {
	var errs []error

	if _, err := parseAbsoluteURL(cfg.Scraper.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("scraper.base_url: %w", err))
	}
	if cfg.Scraper.Pages < 1 {
		errs = append(errs, errors.New("scraper.pages must be at least 1"))
	}
	if cfg.Scraper.MaxArticlesPerPage < 1 {
		errs = append(errs, errors.New("scraper.max_articles_per_page must be at least 1"))
	}
	if cfg.Scraper.MaxRetries < 1 {
		errs = append(errs, errors.New("scraper.max_retries must be at least 1"))
	}
	if cfg.Server.RateLimitRPS < 0 {
		errs = append(errs, errors.New("server.rate_limit_rps must not be negative"))
	}
	for i, f := range cfg.Feeds {
		if _, err := parseAbsoluteURL(f.URL); err != nil {
			errs = append(errs, fmt.Errorf("feeds[%d].url: %w", i, err))
		}
		if f.Name == "" {
			errs = append(errs, fmt.Errorf("feeds[%d].name is required", i))
		}
	}

	return errors.Join(errs...)
}

func parseAbsoluteURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute URL", raw)
	}
	return u, nil
}

// Save writes configuration to file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "ainews", "config.yaml")
}

// ResolvePath picks the config file to load: the explicit flag, then CONFIG_PATH,
// then ./config.yaml, then DefaultConfigPath. It returns "" when none exists.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	for _, candidate := range []string{"config.yaml", DefaultConfigPath()} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
}
