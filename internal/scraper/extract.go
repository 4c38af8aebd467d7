package scraper

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/thomaskoefod/ainews/internal/config"
	"github.com/thomaskoefod/ainews/internal/htmltext"
	"github.com/thomaskoefod/ainews/pkg/models"
)

// Link is an article reference found on a listing page.
type Link struct {
	URL   string
	Title string
}

// ParseListing extracts article links from a search results page. Cards are
// tried first, then links inside the main content area, then matching links
// anywhere in the document. Relative links resolve against base.
func ParseListing(html string, base *url.URL, sel config.SelectorConfig) ([]Link, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing listing html: %w", err)
	}

	var candidates []Link

	doc.Find(sel.Cards).Each(func(_ int, card *goquery.Selection) {
		a := card.Find(sel.CardLink).First()
		if a.Length() == 0 {
			return
		}
		href, _ := a.Attr("href")
		candidates = append(candidates, Link{URL: href, Title: cleanText(a.Text())})
	})

	if len(candidates) == 0 {
		area := doc.Find(sel.ContentArea).First()
		candidates = anchors(area.Find(sel.AreaLinks))
	}
	if len(candidates) == 0 {
		candidates = anchors(doc.Find(sel.FallbackLinks))
	}

	seen := make(map[string]struct{}, len(candidates))
	links := make([]Link, 0, len(candidates))
	for _, c := range candidates {
		abs, ok := resolve(base, c.URL)
		if !ok {
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		links = append(links, Link{URL: abs, Title: c.Title})
	}
	return links, nil
}

func anchors(s *goquery.Selection) []Link {
	var out []Link
	s.Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		out = append(out, Link{URL: href, Title: cleanText(a.Text())})
	})
	return out
}

// resolve makes href absolute against base and drops anything that is not http(s).
func resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	u := base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	u.Fragment = ""
	return u.String(), true
}

// ParseArticle extracts an article from its page. link supplies the URL and
// the listing title used when the page has no recognisable headline.
func ParseArticle(html string, link Link, source string, sel config.SelectorConfig) (*models.Article, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing article html: %w", err)
	}

	title := cleanText(doc.Find(sel.Title).First().Text())
	if title == "" {
		title = link.Title
	}
	if title == "" {
		title = cleanText(doc.Find("title").First().Text())
	}
	if title == "" {
		return nil, fmt.Errorf("no title found for %s", link.URL)
	}

	return &models.Article{
		Title:       title,
		URL:         link.URL,
		Source:      source,
		Content:     extractContent(doc, link, sel.Content),
		Keywords:    extractKeywords(doc, sel.Keywords),
		PublishedAt: extractDate(doc, sel.Date),
	}, nil
}

func extractContent(doc *goquery.Document, link Link, selector string) string {
	if body := doc.Find(selector).First(); body.Length() > 0 {
		if inner, err := body.Html(); err == nil {
			if text := htmltext.ToMarkdown(inner); text != "" {
				return text
			}
		}
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := cleanText(p.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) > 0 {
		return strings.Join(paragraphs, "\n\n")
	}

	return link.Title
}

func extractKeywords(doc *goquery.Document, selector string) string {
	var keywords []string
	seen := map[string]struct{}{}
	add := func(k string) {
		k = strings.TrimSpace(k)
		if k == "" {
			return
		}
		if _, dup := seen[strings.ToLower(k)]; dup {
			return
		}
		seen[strings.ToLower(k)] = struct{}{}
		keywords = append(keywords, k)
	}

	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "meta" {
			content, _ := s.Attr("content")
			for _, k := range strings.Split(content, ",") {
				add(k)
			}
			return
		}
		add(cleanText(s.Text()))
	})
	return strings.Join(keywords, ",")
}

func extractDate(doc *goquery.Document, selector string) *time.Time {
	var found *time.Time
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw, ok := s.Attr("datetime")
		if !ok || strings.TrimSpace(raw) == "" {
			raw = s.Text()
		}
		if t, ok := parseDate(raw); ok {
			found = &t
			return false
		}
		return true
	})
	if found == nil {
		if raw, ok := doc.Find(`meta[property="article:published_time"]`).Attr("content"); ok {
			if t, ok := parseDate(raw); ok {
				found = &t
			}
		}
	}
	return found
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"Mon 2 Jan 2006, 3:04 PM",
	"Mon 2 Jan 2006, 3:04PM",
	"Mon, Jan 2, 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"02/01/2006",
}

// parseDate tries each known layout and returns the time in UTC.
func parseDate(raw string) (time.Time, bool) {
	raw = cleanText(raw)
	raw = strings.TrimPrefix(raw, "Published: ")
	raw = strings.TrimPrefix(raw, "Last updated: ")
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
