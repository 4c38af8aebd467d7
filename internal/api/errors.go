package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thomaskoefod/ainews/internal/database"
	"github.com/thomaskoefod/ainews/internal/logger"
	"github.com/thomaskoefod/ainews/internal/scraper"
)

// ValidationError reports a bad request parameter.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// respondError maps err to a status code and writes the JSON error body.
func (h *Handler) respondError(c *gin.Context, err error) {
	var (
		validationErr *ValidationError
		scrapeErr     *scraper.ScrapeError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validationErr.Message,
			"field": validationErr.Field,
		})
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
	case errors.As(err, &scrapeErr):
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":   "error",
			"inserted": scrapeErr.Inserted,
			"error":    "Error during scraping: " + scrapeErr.Err.Error(),
		})
	default:
		_ = c.Error(err)
		h.log.Error("Request failed", logger.String("path", c.FullPath()), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
