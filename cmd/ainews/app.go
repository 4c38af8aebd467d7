package main

import (
	"fmt"

	"github.com/thomaskoefod/ainews/internal/config"
	"github.com/thomaskoefod/ainews/internal/database"
	"github.com/thomaskoefod/ainews/internal/feed"
	"github.com/thomaskoefod/ainews/internal/fetch"
	"github.com/thomaskoefod/ainews/internal/logger"
	"github.com/thomaskoefod/ainews/internal/metrics"
	"github.com/thomaskoefod/ainews/internal/scraper"
)

// app holds the components shared by the commands.
type app struct {
	db      *database.DB
	metrics *metrics.Metrics
	scraper *scraper.Scraper
}

func newApp(cfg *config.Config, log logger.Logger) (*app, error) {
	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	fetcher := fetch.New(fetchConfig(cfg.Scraper), db, log.With(logger.String("component", "fetch")))

	opts := []scraper.Option{scraper.WithMetrics(m)}
	if len(cfg.Feeds) > 0 {
		feeds := feed.NewFetcher(cfg.Feeds, db, fetcher, m, log.With(logger.String("component", "feed")))
		opts = append(opts, scraper.WithFeeds(feeds))
	}

	s, err := scraper.New(cfg.Scraper, db, fetcher, log.With(logger.String("component", "scraper")), opts...)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating scraper: %w", err)
	}

	return &app{db: db, metrics: m, scraper: s}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func fetchConfig(sc config.ScraperConfig) fetch.Config {
	return fetch.Config{
		UserAgents:   sc.UserAgents,
		Timeout:      sc.RequestTimeout,
		Delay:        sc.RequestDelay,
		MaxRetries:   sc.MaxRetries,
		CacheTTL:     sc.CacheTTL,
		IgnoreRobots: sc.IgnoreRobots,
	}
}
