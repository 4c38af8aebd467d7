package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/thomaskoefod/ainews/pkg/models"
)

// HashURL returns the request_cache key for a URL.
func HashURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// GetCachedResponse returns the cached body for url if it is younger than maxAge.
// It returns ErrNotFound when nothing fresh is cached.
func (db *DB) GetCachedResponse(ctx context.Context, url string, maxAge time.Duration) (*models.CachedResponse, error) {
	var resp models.CachedResponse
	err := db.QueryRowContext(ctx,
		"SELECT url_hash, url, body, fetched_at FROM request_cache WHERE url_hash = ?",
		HashURL(url),
	).Scan(&resp.URLHash, &resp.URL, &resp.Body, &resp.FetchedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying cached response: %w", err)
	}

	if time.Since(resp.FetchedAt) > maxAge {
		return nil, ErrNotFound
	}
	return &resp, nil
}

// SaveCachedResponse stores or replaces the cached body for a URL.
func (db *DB) SaveCachedResponse(ctx context.Context, url, body string) error {
	_, err := db.ExecContext(ctx,
		"INSERT OR REPLACE INTO request_cache (url_hash, url, body, fetched_at) VALUES (?, ?, ?, ?)",
		HashURL(url), url, body, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving cached response: %w", err)
	}
	return nil
}

// ClearCacheOlderThan removes cache entries fetched more than age ago.
func (db *DB) ClearCacheOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age).UTC()
	result, err := db.ExecContext(ctx, "DELETE FROM request_cache WHERE fetched_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("clearing old cache entries: %w", err)
	}
	return result.RowsAffected()
}

// ClearCache removes every cache entry.
func (db *DB) ClearCache(ctx context.Context) (int64, error) {
	result, err := db.ExecContext(ctx, "DELETE FROM request_cache")
	if err != nil {
		return 0, fmt.Errorf("clearing cache: %w", err)
	}
	return result.RowsAffected()
}
