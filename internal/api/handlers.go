package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/thomaskoefod/ainews/internal/logger"
	"github.com/thomaskoefod/ainews/pkg/models"
)

// Store is the read side of the database plus cache maintenance.
// *database.DB satisfies it.
type Store interface {
	GetArticle(ctx context.Context, id int64) (*models.Article, error)
	ListArticles(ctx context.Context, filter models.ArticleFilter) ([]models.Article, int, error)
	ListSources(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (*models.Stats, error)
	ClearCache(ctx context.Context) (int64, error)
	PingContext(ctx context.Context) error
}

// Scraper runs one synchronous scrape. *scraper.Scraper satisfies it.
type Scraper interface {
	Scrape(ctx context.Context) (int, error)
}

type Handler struct {
	store   Store
	scraper Scraper
	log     logger.Logger
}

func NewHandler(store Store, s Scraper, log logger.Logger) *Handler {
	return &Handler{store: store, scraper: s, log: log}
}

type listResponse struct {
	Count   int                     `json:"count"`
	Offset  int                     `json:"offset"`
	Limit   int                     `json:"limit"`
	Results []models.ArticlePreview `json:"results"`
}

func (h *Handler) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the AI News API"})
}

// ListArticles handles GET /articles.
func (h *Handler) ListArticles(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.list(c, filter)
}

// Search handles GET /search. Unlike /articles it requires a query.
func (h *Handler) Search(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if filter.Query == "" {
		h.respondError(c, invalid("q", "q is required"))
		return
	}
	h.list(c, filter)
}

func (h *Handler) list(c *gin.Context, filter models.ArticleFilter) {
	articles, total, err := h.store.ListArticles(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, fmt.Errorf("listing articles: %w", err))
		return
	}

	c.JSON(http.StatusOK, listResponse{
		Count:   total,
		Offset:  filter.Offset,
		Limit:   filter.Limit,
		Results: previews(articles, filter.Query),
	})
}

func (h *Handler) GetArticle(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	article, err := h.store.GetArticle(c.Request.Context(), id)
	if err != nil {
		h.log.Debug("Article lookup failed", logger.Int64("id", id), logger.Error(err))
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

func (h *Handler) Sources(c *gin.Context) {
	sources, err := h.store.ListSources(c.Request.Context())
	if err != nil {
		h.respondError(c, fmt.Errorf("listing sources: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources})
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		h.respondError(c, fmt.Errorf("computing stats: %w", err))
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Scrape handles POST /scrape and blocks until the run finishes.
func (h *Handler) Scrape(c *gin.Context) {
	inserted, err := h.scraper.Scrape(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	message := "No new articles to scrape."
	if inserted > 0 {
		message = fmt.Sprintf("Successfully scraped %d articles.", inserted)
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"inserted": inserted,
		"message":  message,
	})
}

func (h *Handler) ClearCache(c *gin.Context) {
	cleared, err := h.store.ClearCache(c.Request.Context())
	if err != nil {
		h.respondError(c, fmt.Errorf("clearing cache: %w", err))
		return
	}

	h.log.Info("Cleared response cache", logger.Int64("entries", cleared))
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"cleared": cleared,
		"message": fmt.Sprintf("Cleared %d cache entries.", cleared),
	})
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.PingContext(ctx); err != nil {
		h.log.Warn("Health check failed", logger.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
