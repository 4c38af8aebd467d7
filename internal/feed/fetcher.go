// Package feed ingests RSS and Atom feeds into the article store.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/thomaskoefod/ainews/internal/config"
	"github.com/thomaskoefod/ainews/internal/database"
	"github.com/thomaskoefod/ainews/internal/htmltext"
	"github.com/thomaskoefod/ainews/internal/logger"
	"github.com/thomaskoefod/ainews/internal/metrics"
	"github.com/thomaskoefod/ainews/pkg/models"
)

type Store interface {
	InsertArticle(ctx context.Context, a *models.Article) error
}

// Getter fetches a document body. *fetch.Fetcher satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) (string, error)
}

type Fetcher struct {
	feeds   []config.FeedConfig
	store   Store
	getter  Getter
	parser  *gofeed.Parser
	metrics *metrics.Metrics
	log     logger.Logger
}

func NewFetcher(feeds []config.FeedConfig, store Store, getter Getter, m *metrics.Metrics, log logger.Logger) *Fetcher {
	return &Fetcher{
		feeds:   feeds,
		store:   store,
		getter:  getter,
		parser:  gofeed.NewParser(),
		metrics: m,
		log:     log,
	}
}

// FetchFeed fetches and parses an RSS or Atom feed
func (f *Fetcher) FetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	body, err := f.getter.Get(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetching feed %s: %w", feedURL, err)
	}
	parsed, err := f.parser.ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", feedURL, err)
	}
	return parsed, nil
}

// FetchAndStore fetches a feed and stores its new items.
func (f *Fetcher) FetchAndStore(ctx context.Context, feed config.FeedConfig) (int, error) {
	parsed, err := f.FetchFeed(ctx, feed.URL)
	if err != nil {
		return 0, err
	}

	newArticles := 0
	for _, item := range parsed.Items {
		article := convertToArticle(item, feed.Name)
		if article == nil {
			continue
		}

		if err := f.store.InsertArticle(ctx, article); err != nil {
			if errors.Is(err, database.ErrArticleExists) {
				continue
			}
			return newArticles, fmt.Errorf("storing %s: %w", article.URL, err)
		}
		f.metrics.ArticleInserted(article.Source)
		newArticles++
	}

	return newArticles, nil
}

// FetchAll ingests every configured feed. A failing feed is logged and skipped.
func (f *Fetcher) FetchAll(ctx context.Context) int {
	totalNew := 0
	for _, feed := range f.feeds {
		count, err := f.FetchAndStore(ctx, feed)
		totalNew += count
		if err != nil {
			f.log.Warn("Feed ingestion failed",
				logger.String("feed", feed.Name),
				logger.String("url", feed.URL),
				logger.Error(err),
			)
			continue
		}
		f.log.Info("Feed ingested",
			logger.String("feed", feed.Name),
			logger.Int("new_articles", count),
		)
	}
	return totalNew
}

// convertToArticle converts a gofeed.Item to our Article model. Items
// without a link or title are dropped.
func convertToArticle(item *gofeed.Item, source string) *models.Article {
	title := strings.TrimSpace(item.Title)
	link := strings.TrimSpace(item.Link)
	if title == "" || link == "" {
		return nil
	}

	var publishedAt *time.Time
	if item.PublishedParsed != nil {
		t := item.PublishedParsed.UTC()
		publishedAt = &t
	} else if item.UpdatedParsed != nil {
		t := item.UpdatedParsed.UTC()
		publishedAt = &t
	}

	// Prefer content over description
	content := item.Content
	if content == "" {
		content = item.Description
	}

	return &models.Article{
		Title:       htmltext.StripTags(title),
		URL:         link,
		Source:      source,
		Content:     htmltext.ToMarkdown(content),
		Keywords:    strings.Join(item.Categories, ","),
		PublishedAt: publishedAt,
	}
}
