// Package tui is an interactive terminal browser over the article store.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/thomaskoefod/ainews/internal/config"
	"github.com/thomaskoefod/ainews/pkg/models"
)

type View int

const (
	ViewArticleList View = iota
	ViewArticleDetail
	ViewHelp
)

// Store is the read side of the database. *database.DB satisfies it.
type Store interface {
	ListArticles(ctx context.Context, filter models.ArticleFilter) ([]models.Article, int, error)
}

// Scraper runs one scrape. *scraper.Scraper satisfies it.
type Scraper interface {
	Scrape(ctx context.Context) (int, error)
}

type Model struct {
	cfg       config.UIConfig
	store     Store
	scraper   Scraper
	view      View
	prevView  View
	total     int
	list      list.Model
	viewport  viewport.Model
	selected  *models.Article
	width     int
	height    int
	scraping  bool
	err       error
	statusMsg string

	// scrapeErr outlives list reloads so a failed scrape stays visible
	// until the next one starts.
	scrapeErr error

	// openURL is swapped out in tests.
	openURL func(string) error
}

type articlesLoadedMsg struct {
	articles []models.Article
	total    int
}

type scrapeDoneMsg struct {
	inserted int
	err      error
}

type errorMsg struct {
	err error
}

type statusMsg string

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))
)

func New(cfg config.UIConfig, store Store, s Scraper) Model {
	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "AI News"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	return Model{
		cfg:      cfg,
		store:    store,
		scraper:  s,
		view:     ViewArticleList,
		list:     l,
		viewport: viewport.New(0, 0),
		openURL:  openBrowser,
	}
}

// Run starts the program and blocks until the user quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return loadArticles(m.store, m.cfg.PageSize)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 3
		if m.selected != nil {
			m.viewport.SetContent(m.renderArticle(*m.selected))
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case articlesLoadedMsg:
		m.total = msg.total
		items := make([]list.Item, len(msg.articles))
		for i, article := range msg.articles {
			items[i] = articleItem{article}
		}
		cmd := m.list.SetItems(items)
		m.err = nil
		m.statusMsg = fmt.Sprintf("Showing %d of %d articles", len(msg.articles), msg.total)
		return m, cmd

	case scrapeDoneMsg:
		m.scraping = false
		if msg.err != nil {
			m.scrapeErr = msg.err
			// Articles stored before the failure are still worth showing.
			return m, loadArticles(m.store, m.cfg.PageSize)
		}
		status := statusMsg(fmt.Sprintf("Scrape stored %d new articles", msg.inserted))
		return m, tea.Batch(
			loadArticles(m.store, m.cfg.PageSize),
			func() tea.Msg { return status },
		)

	case errorMsg:
		m.err = msg.err
		return m, nil

	case statusMsg:
		m.statusMsg = string(msg)
		return m, nil
	}

	var cmd tea.Cmd
	if m.view == ViewArticleDetail {
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.view {
	case ViewArticleList:
		return m.handleListKeys(msg)
	case ViewArticleDetail:
		return m.handleDetailKeys(msg)
	case ViewHelp:
		return m.handleHelpKeys(msg)
	}
	return m, nil
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// While filtering, every key belongs to the filter input.
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "enter":
		if i, ok := m.list.SelectedItem().(articleItem); ok {
			article := i.article
			m.selected = &article
			m.view = ViewArticleDetail
			m.viewport.SetContent(m.renderArticle(article))
			m.viewport.GotoTop()
			return m, nil
		}

	case "r":
		m.statusMsg = "Refreshing articles..."
		return m, loadArticles(m.store, m.cfg.PageSize)

	case "f":
		if m.scraping || m.scraper == nil {
			return m, nil
		}
		m.scraping = true
		m.scrapeErr = nil
		m.statusMsg = "Scraping new articles..."
		return m, runScrape(m.scraper)

	case "o":
		if i, ok := m.list.SelectedItem().(articleItem); ok {
			return m, m.open(i.article.URL)
		}

	case "?":
		m.prevView = m.view
		m.view = ViewHelp
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "esc", "backspace":
		m.view = ViewArticleList
		m.selected = nil
		return m, nil

	case "o":
		if m.selected != nil {
			return m, m.open(m.selected.URL)
		}

	case "?":
		m.prevView = m.view
		m.view = ViewHelp
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleHelpKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "?", "q":
		m.view = m.prevView
		return m, nil
	}
	return m, nil
}

func (m Model) open(url string) tea.Cmd {
	openURL := m.openURL
	return func() tea.Msg {
		if err := openURL(url); err != nil {
			return errorMsg{fmt.Errorf("opening browser: %w", err)}
		}
		return statusMsg("Opened in browser")
	}
}

func (m Model) View() string {
	switch m.view {
	case ViewArticleList:
		return m.renderList()
	case ViewArticleDetail:
		return m.renderDetail()
	case ViewHelp:
		return m.renderHelp()
	}
	return ""
}

func (m Model) statusLine() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}
	if m.scrapeErr != nil {
		return errorStyle.Render(fmt.Sprintf("Scrape failed: %v", m.scrapeErr))
	}
	if m.statusMsg != "" {
		return statusStyle.Render(m.statusMsg)
	}
	return ""
}

func (m Model) renderList() string {
	var s strings.Builder

	s.WriteString(m.list.View())
	s.WriteString("\n")
	s.WriteString(m.statusLine())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("enter: read • o: open browser • r: refresh • f: scrape • ?: help • q: quit"))

	return s.String()
}

func (m Model) renderDetail() string {
	var s strings.Builder

	s.WriteString(m.viewport.View())
	s.WriteString("\n")
	s.WriteString(m.statusLine())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render(fmt.Sprintf("%3.f%% • ↑/↓: scroll • o: open browser • esc: back • q: quit",
		m.viewport.ScrollPercent()*100)))

	return s.String()
}

func (m Model) renderHelp() string {
	help := `
AI News - Keyboard Shortcuts

Article List:
  ↑/↓, j/k     Navigate articles
  enter        Read article
  o            Open article in browser
  r            Refresh article list
  f            Scrape for new articles
  /            Filter articles
  q, ctrl+c    Quit

Article Detail:
  ↑/↓, pgup/pgdn  Scroll
  o               Open article in browser
  esc             Back to list
  q, ctrl+c       Quit

General:
  ?            Show/hide this help
`
	return help + "\n" + helpStyle.Render("Press ? or esc to close help")
}

// renderArticle renders the article as markdown through glamour, falling
// back to the raw markdown if rendering fails.
func (m Model) renderArticle(a models.Article) string {
	doc := articleMarkdown(a)

	width := m.width
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.cfg.GlamourStyle),
		glamour.WithWordWrap(width-2),
	)
	if err != nil {
		return doc
	}
	out, err := r.Render(doc)
	if err != nil {
		return doc
	}
	return out
}

func articleMarkdown(a models.Article) string {
	var s strings.Builder

	fmt.Fprintf(&s, "# %s\n\n", a.Title)
	fmt.Fprintf(&s, "*%s · %s*\n\n", a.Source, publishedLabel(a))
	if a.Content != "" {
		s.WriteString(a.Content)
		s.WriteString("\n\n")
	}
	if a.Keywords != "" {
		fmt.Fprintf(&s, "**Keywords:** %s\n\n", strings.ReplaceAll(a.Keywords, ",", ", "))
	}
	fmt.Fprintf(&s, "<%s>\n", a.URL)

	return s.String()
}

func loadArticles(store Store, limit int) tea.Cmd {
	return func() tea.Msg {
		articles, total, err := store.ListArticles(context.Background(), models.ArticleFilter{Limit: limit})
		if err != nil {
			return errorMsg{err}
		}
		return articlesLoadedMsg{articles: articles, total: total}
	}
}

func runScrape(s Scraper) tea.Cmd {
	return func() tea.Msg {
		inserted, err := s.Scrape(context.Background())
		return scrapeDoneMsg{inserted: inserted, err: err}
	}
}
