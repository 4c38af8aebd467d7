package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/thomaskoefod/ainews/pkg/models"
)

type articleItem struct {
	article models.Article
}

func (i articleItem) Title() string {
	return i.article.Title
}

func (i articleItem) Description() string {
	return fmt.Sprintf("%s | %s", i.article.Source, publishedLabel(i.article))
}

func (i articleItem) FilterValue() string {
	return i.article.Title + " " + i.article.Source
}

var _ list.Item = articleItem{}

func publishedLabel(a models.Article) string {
	if a.PublishedAt == nil {
		return "undated"
	}
	return a.PublishedAt.Format("Jan 2, 2006")
}
