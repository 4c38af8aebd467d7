// Package htmltext turns scraped HTML fragments into readable markdown text.
package htmltext

import (
	"html"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/microcosm-cc/bluemonday"
)

var (
	// ugc keeps structural markup (paragraphs, lists, links) and drops scripts, styles and handlers.
	ugc    = bluemonday.UGCPolicy()
	strict = bluemonday.StrictPolicy()

	blankLines = regexp.MustCompile(`\n{3,}`)
)

// ToMarkdown sanitizes an HTML fragment and converts it to markdown.
// If conversion fails the tag-stripped text is returned instead.
func ToMarkdown(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}

	clean := ugc.Sanitize(fragment)
	converter := md.NewConverter("", true, nil)
	out, err := converter.ConvertString(clean)
	if err != nil {
		return StripTags(fragment)
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(out, "\n\n"))
}

// StripTags removes every tag and collapses whitespace. The result is plain
// text, so entities escaped by the sanitizer are decoded again.
func StripTags(fragment string) string {
	return strings.Join(strings.Fields(html.UnescapeString(strict.Sanitize(fragment))), " ")
}
