// Package fetch retrieves web pages politely: robots.txt is honored, requests to
// a host are spaced out, transient failures are retried with backoff, and
// bodies are cached.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/thomaskoefod/ainews/internal/logger"
	"github.com/thomaskoefod/ainews/pkg/models"
)

const maxBodyBytes = 10 << 20

var ErrDisallowed = errors.New("disallowed by robots.txt")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Cache stores response bodies by URL. *database.DB satisfies it.
type Cache interface {
	GetCachedResponse(ctx context.Context, url string, maxAge time.Duration) (*models.CachedResponse, error)
	SaveCachedResponse(ctx context.Context, url, body string) error
}

type Config struct {
	UserAgents     []string
	Timeout        time.Duration
	Delay          time.Duration
	MaxRetries     int
	BackoffInitial time.Duration
	CacheTTL       time.Duration
	IgnoreRobots   bool
}

type Fetcher struct {
	cfg     Config
	client  *http.Client
	cache   Cache
	limiter *HostLimiter
	robots  *RobotsChecker
	log     logger.Logger
}

type Option func(*Fetcher)

// WithHTTPClient replaces the default client, e.g. for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// New creates a Fetcher. cache may be nil to disable response caching.
func New(cfg Config, cache Cache, log logger.Logger, opts ...Option) *Fetcher {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.BackoffInitial == 0 {
		cfg.BackoffInitial = time.Second
	}
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = []string{"ainews/1.0"}
	}

	f := &Fetcher{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		cache:   cache,
		limiter: NewHostLimiter(cfg.Delay),
		log:     log,
	}
	for _, opt := range opts {
		opt(f)
	}

	if !cfg.IgnoreRobots {
		f.robots = NewRobotsChecker(f.client, f.cfg.UserAgents[0], cfg.CacheTTL)
	}
	return f
}

// Get returns the body of url, from the cache when a fresh copy exists.
func (f *Fetcher) Get(ctx context.Context, url string) (string, error) {
	if f.cache != nil && f.cfg.CacheTTL > 0 {
		if cached, err := f.cache.GetCachedResponse(ctx, url, f.cfg.CacheTTL); err == nil {
			f.log.Debug("Using cached response", logger.String("url", url))
			return cached.Body, nil
		}
	}

	if f.robots != nil {
		allowed, err := f.robots.IsAllowed(ctx, url)
		if err != nil {
			return "", err
		}
		if !allowed {
			return "", fmt.Errorf("%s: %w", url, ErrDisallowed)
		}
	}

	if err := f.limiter.Wait(ctx, url); err != nil {
		return "", fmt.Errorf("waiting to fetch %s: %w", url, err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.cfg.BackoffInitial
	bo.MaxInterval = 30 * time.Second

	body, err := backoff.Retry(ctx, func() (string, error) {
		return f.do(ctx, url)
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(f.cfg.MaxRetries)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			f.log.Warn("Retrying request",
				logger.String("url", url),
				logger.Duration("wait", wait),
				logger.Error(err),
			)
		}),
	)
	if err != nil {
		return "", err
	}

	if f.cache != nil && f.cfg.CacheTTL > 0 {
		if err := f.cache.SaveCachedResponse(ctx, url, body); err != nil {
			f.log.Warn("Failed to cache response", logger.String("url", url), logger.Error(err))
		}
	}

	return body, nil
}

func (f *Fetcher) do(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}
	f.setHeaders(req)

	f.log.Debug("Fetching URL", logger.String("url", url))
	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", backoff.Permanent(fmt.Errorf("fetching %s: %w", url, err))
		}
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{URL: url, StatusCode: resp.StatusCode}
		if statusErr.Retryable() {
			return "", statusErr
		}
		return "", backoff.Permanent(statusErr)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", url, err)
	}
	return string(data), nil
}

func (f *Fetcher) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.cfg.UserAgents[rand.IntN(len(f.cfg.UserAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("DNT", "1")
}
