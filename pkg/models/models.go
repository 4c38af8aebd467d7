package models

import "time"

type Article struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	Content     string     `json:"content,omitempty"`
	Keywords    string     `json:"keywords,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	ScrapedAt   time.Time  `json:"scraped_at"`
}

// ArticlePreview is the list/search representation of an article.
type ArticlePreview struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	Content     string     `json:"content,omitempty"`
	Keywords    string     `json:"keywords,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Snippet     string     `json:"snippet,omitempty"`
}

// ArticleFilter narrows ListArticles. Zero values mean "no filter".
type ArticleFilter struct {
	Offset int
	Limit  int
	Source string
	Query  string
	From   *time.Time
	To     *time.Time
}

type Stats struct {
	TotalArticles int            `json:"total_articles"`
	BySource      map[string]int `json:"by_source"`
	LatestUpdate  *time.Time     `json:"latest_update"`
}

type CachedResponse struct {
	URLHash   string    `json:"url_hash"`
	URL       string    `json:"url"`
	Body      string    `json:"body"`
	FetchedAt time.Time `json:"fetched_at"`
}
