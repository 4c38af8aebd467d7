package api

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/thomaskoefod/ainews/pkg/models"
)

const (
	defaultLimit = 10
	maxLimit     = 100
	dateLayout   = "2006-01-02"
)

// parseFilter reads pagination and filter parameters from the query string.
// offset wins over page when both are given. end_date includes the whole day.
func parseFilter(c *gin.Context) (models.ArticleFilter, error) {
	filter := models.ArticleFilter{
		Limit:  defaultLimit,
		Source: strings.TrimSpace(c.Query("source")),
		Query:  strings.TrimSpace(c.Query("q")),
	}
	if filter.Query == "" {
		filter.Query = strings.TrimSpace(c.Query("query"))
	}

	if raw, ok := c.GetQuery("limit"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			return filter, invalid("limit", "limit must be an integer between 1 and 100")
		}
		filter.Limit = n
	}

	if raw, ok := c.GetQuery("page"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return filter, invalid("page", "page must be a positive integer")
		}
		if n > math.MaxInt/filter.Limit+1 {
			return filter, invalid("page", "page is out of range")
		}
		filter.Offset = (n - 1) * filter.Limit
	}

	if raw, ok := c.GetQuery("offset"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, invalid("offset", "offset must be a non-negative integer")
		}
		filter.Offset = n
	}

	from, err := parseDateParam(c, "start_date")
	if err != nil {
		return filter, err
	}
	filter.From = from

	to, err := parseDateParam(c, "end_date")
	if err != nil {
		return filter, err
	}
	if to != nil {
		next := to.AddDate(0, 0, 1)
		filter.To = &next
	}

	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return filter, invalid("end_date", "end_date must not be before start_date")
	}

	return filter, nil
}

func parseDateParam(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, invalid(name, name+" must be a date in YYYY-MM-DD format")
	}
	return &t, nil
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, invalid("id", "id must be a positive integer")
	}
	return id, nil
}
