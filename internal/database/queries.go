package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thomaskoefod/ainews/pkg/models"
)

const articleColumns = "id, title, url, source, content, keywords, published_at, scraped_at"

// likeEscaper escapes LIKE wildcards so user queries match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type rowScanner interface {
	Scan(dest ...any) error
}

// InsertArticle inserts a new article and sets its ID.
// It returns ErrArticleExists if an article with the same URL is already stored.
func (db *DB) InsertArticle(ctx context.Context, article *models.Article) error {
	if article.ScrapedAt.IsZero() {
		article.ScrapedAt = time.Now()
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO articles (title, url, source, content, keywords, published_at, scraped_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO NOTHING`,
		article.Title, article.URL, article.Source, article.Content, article.Keywords,
		nullTime(article.PublishedAt), article.ScrapedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting article: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return ErrArticleExists
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}

	article.ID = id
	return nil
}

// GetArticle retrieves a single article
func (db *DB) GetArticle(ctx context.Context, id int64) (*models.Article, error) {
	row := db.QueryRowContext(ctx, "SELECT "+articleColumns+" FROM articles WHERE id = ?", id)

	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying article: %w", err)
	}

	return article, nil
}

// ArticleExists reports whether an article with the given URL is stored.
func (db *DB) ArticleExists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM articles WHERE url = ?)", url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking article url: %w", err)
	}
	return exists, nil
}

// ListArticles returns one page of articles matching filter together with the
// total number of matches. Articles are ordered newest first, undated last, then
// by id descending, so pages are stable while the data is unchanged.
// From is inclusive and To is exclusive.
func (db *DB) ListArticles(ctx context.Context, filter models.ArticleFilter) ([]models.Article, int, error) {
	var (
		where []string
		args  []any
	)

	if filter.Query != "" {
		term := "%" + likeEscaper.Replace(filter.Query) + "%"
		where = append(where, `(title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')`)
		args = append(args, term, term)
	}
	if filter.Source != "" {
		where = append(where, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.From != nil {
		where = append(where, "published_at >= ?")
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		where = append(where, "published_at < ?")
		args = append(args, filter.To.UTC())
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting articles: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := max(filter.Offset, 0)

	query := "SELECT " + articleColumns + " FROM articles" + clause +
		" ORDER BY published_at IS NULL, published_at DESC, id DESC LIMIT ? OFFSET ?"

	rows, err := db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying articles: %w", err)
	}
	defer rows.Close()

	articles := []models.Article{}
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning article: %w", err)
		}
		articles = append(articles, *article)
	}

	return articles, total, rows.Err()
}

// ListSources returns the distinct source names, sorted.
func (db *DB) ListSources(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT DISTINCT source FROM articles ORDER BY source")
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	sources := []string{}
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		sources = append(sources, source)
	}

	return sources, rows.Err()
}

// Stats summarizes the article table.
func (db *DB) Stats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{BySource: map[string]int{}}

	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&stats.TotalArticles); err != nil {
		return nil, fmt.Errorf("counting articles: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT source, COUNT(*) FROM articles GROUP BY source")
	if err != nil {
		return nil, fmt.Errorf("querying source counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			source string
			count  int
		)
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("scanning source count: %w", err)
		}
		stats.BySource[source] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating source counts: %w", err)
	}

	var latest sql.NullTime
	err = db.QueryRowContext(ctx, "SELECT scraped_at FROM articles ORDER BY scraped_at DESC LIMIT 1").Scan(&latest)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("querying latest update: %w", err)
	}
	if latest.Valid {
		stats.LatestUpdate = &latest.Time
	}

	return stats, nil
}

func scanArticle(s rowScanner) (*models.Article, error) {
	var (
		article   models.Article
		published sql.NullTime
	)

	err := s.Scan(&article.ID, &article.Title, &article.URL, &article.Source,
		&article.Content, &article.Keywords, &published, &article.ScrapedAt)
	if err != nil {
		return nil, err
	}

	if published.Valid {
		article.PublishedAt = &published.Time
	}
	return &article, nil
}
