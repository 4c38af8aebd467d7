package api

import (
	"strings"
	"unicode"

	"github.com/thomaskoefod/ainews/pkg/models"
)

const (
	snippetLength = 150
	snippetWindow = 75
)

func toPreview(a models.Article, query string) models.ArticlePreview {
	return models.ArticlePreview{
		ID:          a.ID,
		Title:       a.Title,
		URL:         a.URL,
		Source:      a.Source,
		Content:     a.Content,
		Keywords:    a.Keywords,
		PublishedAt: a.PublishedAt,
		Snippet:     snippet(a.Content, query),
	}
}

// snippet returns the start of content, or the text around the first
// case-insensitive match of query when there is one.
func snippet(content, query string) string {
	runes := []rune(content)

	if query != "" {
		q := []rune(query)
		if i := indexFold(runes, q); i >= 0 {
			start := max(0, i-snippetWindow)
			end := min(len(runes), i+len(q)+snippetWindow)
			return "..." + string(runes[start:end]) + "..."
		}
	}

	if len(runes) > snippetLength {
		return string(runes[:snippetLength]) + "..."
	}
	return content
}

func indexFold(s, sub []rune) int {
	if len(sub) == 0 {
		return -1
	}
	for i := 0; i+len(sub) <= len(s); i++ {
		if equalFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

func equalFold(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] && unicode.ToLower(a[i]) != unicode.ToLower(b[i]) {
			return false
		}
	}
	return true
}

func previews(articles []models.Article, query string) []models.ArticlePreview {
	out := make([]models.ArticlePreview, 0, len(articles))
	query = strings.TrimSpace(query)
	for _, a := range articles {
		out = append(out, toPreview(a, query))
	}
	return out
}
