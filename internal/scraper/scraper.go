// Package scraper collects articles from the configured news site's search
// listings and stores the ones not seen before.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/thomaskoefod/ainews/internal/config"
	"github.com/thomaskoefod/ainews/internal/database"
	"github.com/thomaskoefod/ainews/internal/logger"
	"github.com/thomaskoefod/ainews/internal/metrics"
	"github.com/thomaskoefod/ainews/pkg/models"
)

// ScrapeError reports a run that stopped early. Articles inserted before the
// failure stay stored.
type ScrapeError struct {
	Inserted int
	Err      error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape stopped after %d new articles: %v", e.Inserted, e.Err)
}

func (e *ScrapeError) Unwrap() error { return e.Err }

// Store is the part of the database the scraper writes to.
type Store interface {
	ArticleExists(ctx context.Context, url string) (bool, error)
	InsertArticle(ctx context.Context, a *models.Article) error
}

// Getter fetches a page body. *fetch.Fetcher satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) (string, error)
}

// FeedSource ingests additional sources after the site. *feed.Fetcher satisfies it.
type FeedSource interface {
	FetchAll(ctx context.Context) int
}

type Scraper struct {
	cfg     config.ScraperConfig
	base    *url.URL
	store   Store
	getter  Getter
	feeds   FeedSource
	metrics *metrics.Metrics
	log     logger.Logger
}

type Option func(*Scraper)

func WithFeeds(f FeedSource) Option {
	return func(s *Scraper) { s.feeds = f }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scraper) { s.metrics = m }
}

func New(cfg config.ScraperConfig, store Store, getter Getter, log logger.Logger, opts ...Option) (*Scraper, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	s := &Scraper{
		cfg:    cfg,
		base:   base,
		store:  store,
		getter: getter,
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Scrape runs one pass over every search term and then the configured feeds.
// It returns the number of newly stored articles.
func (s *Scraper) Scrape(ctx context.Context) (int, error) {
	start := time.Now()
	s.log.Info("Starting scrape",
		logger.String("source", s.cfg.SourceName),
		logger.Strings("terms", s.cfg.SearchTerms),
		logger.Int("pages", s.cfg.Pages),
	)

	inserted, err := s.scrapeSite(ctx)
	if err == nil && s.feeds != nil {
		inserted += s.feeds.FetchAll(ctx)
	}

	elapsed := time.Since(start)
	s.metrics.ObserveScrape(err == nil, elapsed)

	if err != nil {
		s.log.Error("Scrape failed",
			logger.Int("inserted", inserted),
			logger.Duration("elapsed", elapsed),
			logger.Error(err),
		)
		return inserted, err
	}

	s.log.Info("Scrape finished",
		logger.Int("inserted", inserted),
		logger.Duration("elapsed", elapsed),
	)
	return inserted, nil
}

func (s *Scraper) scrapeSite(ctx context.Context) (int, error) {
	seen := make(map[string]struct{})
	inserted := 0

	for _, term := range s.cfg.SearchTerms {
		for page := 1; page <= s.cfg.Pages; page++ {
			n, err := s.scrapePage(ctx, term, page, seen)
			inserted += n
			if err != nil {
				return inserted, &ScrapeError{Inserted: inserted, Err: err}
			}
			if n == 0 {
				s.log.Info("No new articles on page, moving on",
					logger.String("term", term),
					logger.Int("page", page),
				)
				break
			}
		}
	}
	return inserted, nil
}

func (s *Scraper) scrapePage(ctx context.Context, term string, page int, seen map[string]struct{}) (int, error) {
	listURL := s.listingURL(term, page)
	s.log.Info("Scraping listing", logger.String("url", listURL), logger.Int("page", page))

	body, err := s.getter.Get(ctx, listURL)
	if err != nil {
		return 0, fmt.Errorf("fetching listing %s: %w", listURL, err)
	}

	links, err := ParseListing(body, s.base, s.cfg.Selectors)
	if err != nil {
		return 0, fmt.Errorf("parsing listing %s: %w", listURL, err)
	}
	if len(links) == 0 {
		s.log.Warn("No articles found on listing, selectors may need updating", logger.String("url", listURL))
	}

	count := 0
	for _, link := range links {
		if count >= s.cfg.MaxArticlesPerPage {
			break
		}
		if err := ctx.Err(); err != nil {
			return count, err
		}
		if _, ok := seen[link.URL]; ok {
			continue
		}
		seen[link.URL] = struct{}{}

		exists, err := s.store.ArticleExists(ctx, link.URL)
		if err != nil {
			return count, fmt.Errorf("checking %s: %w", link.URL, err)
		}
		if exists {
			continue
		}

		stored, err := s.scrapeArticle(ctx, link)
		if err != nil {
			return count, err
		}
		if stored {
			count++
		}
	}
	return count, nil
}

// scrapeArticle fetches and stores one article. Fetch and parse failures are
// logged and reported as not stored; only storage failures are returned.
func (s *Scraper) scrapeArticle(ctx context.Context, link Link) (bool, error) {
	body, err := s.getter.Get(ctx, link.URL)
	if err != nil {
		s.log.Warn("Skipping article", logger.String("url", link.URL), logger.Error(err))
		return false, nil
	}

	article, err := ParseArticle(body, link, s.cfg.SourceName, s.cfg.Selectors)
	if err != nil {
		s.log.Warn("Skipping unparseable article", logger.String("url", link.URL), logger.Error(err))
		return false, nil
	}

	if err := s.store.InsertArticle(ctx, article); err != nil {
		if errors.Is(err, database.ErrArticleExists) {
			return false, nil
		}
		return false, fmt.Errorf("storing %s: %w", link.URL, err)
	}

	s.metrics.ArticleInserted(article.Source)
	s.log.Info("Stored article",
		logger.Int64("id", article.ID),
		logger.String("title", article.Title),
	)
	return true, nil
}

func (s *Scraper) listingURL(term string, page int) string {
	u := s.base.JoinPath(s.cfg.SearchPath)
	q := url.Values{"q": {term}}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	return u.String()
}
