// Package api serves the article store over HTTP.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/thomaskoefod/ainews/internal/config"
	"github.com/thomaskoefod/ainews/internal/logger"
	"github.com/thomaskoefod/ainews/internal/metrics"
)

// NewRouter wires middleware and routes. m may be nil, in which case
// /metrics is not registered.
func NewRouter(cfg config.ServerConfig, h *Handler, m *metrics.Metrics, log logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(
		RequestIDMiddleware(),
		RecoveryMiddleware(log),
		LoggerMiddleware(log),
		CORSMiddleware(cfg.CORSOrigins),
		MetricsMiddleware(m),
	)

	r.GET("/health", h.Health)
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	limited := r.Group("/", RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))
	limited.GET("/", h.Welcome)
	limited.GET("/articles", h.ListArticles)
	limited.GET("/articles/:id", h.GetArticle)
	limited.GET("/search", h.Search)
	limited.GET("/sources", h.Sources)
	limited.GET("/stats", h.Stats)
	limited.POST("/scrape", h.Scrape)
	limited.POST("/cache/clear", h.ClearCache)

	return r
}
