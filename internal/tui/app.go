// Package tui is the interactive front end over the order tracker. Requests
// run as tea.Cmds so the screen stays responsive while they are in flight;
// the tracker decides which responses still apply.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/client"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/download"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/model"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/tracker"
)

// focus is the panel receiving key presses.
type focus int

const (
	focusOrder focus = iota
	focusSearch
	focusResults
)

type refreshDoneMsg struct{ err error }

type searchDoneMsg struct {
	query string
	res   model.SearchResults
	err   error
}

type selectDoneMsg struct {
	orderID string
	err     error
}

type downloadDoneMsg struct {
	res download.Result
	err error
}

// resultItem adapts a search summary to list.Item.
type resultItem struct {
	summary model.SearchResultSummary
}

func (i resultItem) Title() string {
	return fmt.Sprintf("%s · %s", i.summary.PatientName, i.summary.Medication)
}

func (i resultItem) Description() string {
	parts := []string{i.summary.Status.Label(), "MRN " + i.summary.PatientMRN, i.summary.OrderID}
	if i.summary.CreatedAt != nil {
		parts = append(parts, i.summary.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return strings.Join(parts, " · ")
}

func (i resultItem) FilterValue() string { return i.summary.OrderID }

// Option customizes App construction.
type Option func(*App)

// WithSaver enables the download key.
func WithSaver(s download.Saver) Option {
	return func(a *App) { a.saver = &s }
}

// WithLogger sets the logger. The TUI owns the terminal, so it should write
// to a file.
func WithLogger(log zerolog.Logger) Option {
	return func(a *App) { a.log = log }
}

// WithQuery pre-fills the search box.
func WithQuery(q string) Option {
	return func(a *App) { a.input.SetValue(q) }
}

// App is the bubbletea model.
type App struct {
	ctx   context.Context
	tr    *tracker.Tracker
	saver *download.Saver
	log   zerolog.Logger

	focus   focus
	input   textinput.Model
	results list.Model
	spin    spinner.Model

	selecting   int
	downloading bool
	notice      string
	errMsg      string

	width  int
	height int
}

// New builds the App. ctx bounds every request the App issues.
func New(ctx context.Context, tr *tracker.Tracker, opts ...Option) *App {
	input := textinput.New()
	input.Placeholder = "Search by patient, MRN, medication, or order id"
	input.CharLimit = 128
	input.Prompt = "🔍 "

	results := list.New(nil, list.NewDefaultDelegate(), 40, 10)
	results.Title = "Search results"
	results.SetShowHelp(false)
	results.SetShowStatusBar(false)
	results.SetFilteringEnabled(false)

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = busyStyle

	a := &App{
		ctx:     ctx,
		tr:      tr,
		log:     zerolog.Nop(),
		input:   input,
		results: results,
		spin:    spin,
	}
	for _, opt := range opts {
		opt(a)
	}
	if res, _, ok := tr.Searcher.Results(); ok {
		a.setResults(res)
	}
	return a
}

// Query is the current search box text.
func (a *App) Query() string {
	return a.input.Value()
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.spin.Tick
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.results.SetSize(max(20, msg.Width/2-4), max(5, msg.Height-12))
		a.input.Width = max(20, msg.Width/2-8)
		return a, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd
	case refreshDoneMsg:
		a.handleRefreshDone(msg)
		return a, nil
	case searchDoneMsg:
		a.handleSearchDone(msg)
		return a, nil
	case selectDoneMsg:
		a.handleSelectDone(msg)
		return a, nil
	case downloadDoneMsg:
		a.handleDownloadDone(msg)
		return a, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		switch a.focus {
		case focusSearch:
			return a.updateSearch(msg)
		case focusResults:
			return a.updateResults(msg)
		default:
			return a.updateOrder(msg)
		}
	}
	if a.focus == focusSearch {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) updateOrder(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "r":
		return a, a.startRefresh()
	case "/", "s":
		a.focus = focusSearch
		return a, a.input.Focus()
	case "tab":
		if len(a.results.Items()) > 0 {
			a.focus = focusResults
		}
	case "d":
		return a, a.startDownload()
	}
	return a, nil
}

func (a *App) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.input.Blur()
		a.focus = focusOrder
		return a, nil
	case "tab":
		a.input.Blur()
		a.focus = focusResults
		return a, nil
	case "enter":
		return a, a.startSearch()
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) updateResults(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "tab":
		a.focus = focusOrder
		return a, nil
	case "/":
		a.focus = focusSearch
		return a, a.input.Focus()
	case "enter":
		item, ok := a.results.SelectedItem().(resultItem)
		if !ok {
			return a, nil
		}
		return a, a.startSelect(item.summary.OrderID)
	}
	var cmd tea.Cmd
	a.results, cmd = a.results.Update(msg)
	return a, cmd
}

func (a *App) startRefresh() tea.Cmd {
	if a.tr.Store.Snapshot().OrderID() == "" {
		a.notice = "No order to refresh yet"
		return nil
	}
	if a.tr.Refresher.Busy() {
		return nil
	}
	a.errMsg = ""
	return func() tea.Msg {
		return refreshDoneMsg{err: a.tr.Refresher.Refresh(a.ctx)}
	}
}

func (a *App) startSearch() tea.Cmd {
	query := a.input.Value()
	if strings.TrimSpace(query) == "" {
		a.errMsg = tracker.ErrEmptyQuery.Error()
		return nil
	}
	if a.tr.Searcher.Busy() {
		return nil
	}
	a.errMsg = ""
	a.notice = ""
	return func() tea.Msg {
		res, err := a.tr.Searcher.Search(a.ctx, query)
		return searchDoneMsg{query: query, res: res, err: err}
	}
}

func (a *App) startSelect(orderID string) tea.Cmd {
	a.selecting++
	a.errMsg = ""
	return func() tea.Msg {
		return selectDoneMsg{orderID: orderID, err: a.tr.Selector.Select(a.ctx, orderID)}
	}
}

func (a *App) startDownload() tea.Cmd {
	if a.saver == nil || a.downloading {
		return nil
	}
	ref, err := a.tr.Exporter.Resolve()
	if err != nil {
		a.notice = "Care plan is not ready to download"
		return nil
	}
	orderID := a.tr.Store.Snapshot().OrderID()
	a.downloading = true
	saver := *a.saver
	return func() tea.Msg {
		res, err := saver.Save(a.ctx, orderID, ref)
		return downloadDoneMsg{res: res, err: err}
	}
}

func (a *App) handleRefreshDone(msg refreshDoneMsg) {
	switch {
	case msg.err == nil, errors.Is(msg.err, tracker.ErrStale):
	case errors.Is(msg.err, tracker.ErrInFlight), errors.Is(msg.err, tracker.ErrNoActiveOrder):
	default:
		// The record itself carries the failure; this is only logged.
		a.log.Warn().Err(msg.err).Msg("refresh failed")
	}
}

func (a *App) handleSearchDone(msg searchDoneMsg) {
	if msg.err != nil {
		if !errors.Is(msg.err, tracker.ErrInFlight) {
			a.errMsg = "Search failed: " + client.Description(msg.err)
			a.log.Warn().Err(msg.err).Str("query", msg.query).Msg("search failed")
		}
		return
	}
	a.setResults(msg.res)
	if msg.res.Count == 0 {
		a.notice = "No orders found"
		return
	}
	a.notice = fmt.Sprintf("%d order(s) found", msg.res.Count)
	a.input.Blur()
	a.focus = focusResults
}

func (a *App) handleSelectDone(msg selectDoneMsg) {
	if a.selecting > 0 {
		a.selecting--
	}
	if msg.err != nil && !errors.Is(msg.err, tracker.ErrStale) {
		a.log.Warn().Err(msg.err).Str("order_id", msg.orderID).Msg("select failed")
		return
	}
	if msg.err == nil {
		a.focus = focusOrder
	}
}

func (a *App) handleDownloadDone(msg downloadDoneMsg) {
	a.downloading = false
	if msg.err != nil {
		a.errMsg = "Download failed: " + client.Description(msg.err)
		a.log.Warn().Err(msg.err).Msg("download failed")
		if msg.res.Path == "" {
			return
		}
	}
	a.notice = "Saved " + msg.res.Path
	if msg.res.ArchiveKey != "" {
		a.notice += " (archived as " + msg.res.ArchiveKey + ")"
	}
}

func (a *App) setResults(res model.SearchResults) {
	items := make([]list.Item, 0, len(res.Orders))
	for _, o := range res.Orders {
		items = append(items, resultItem{summary: o})
	}
	a.results.SetItems(items)
	a.results.ResetSelected()
}

func (a *App) busy() []string {
	var out []string
	if a.tr.Submitter.Busy() {
		out = append(out, "submitting")
	}
	if a.tr.Refresher.Busy() {
		out = append(out, "refreshing")
	}
	if a.tr.Searcher.Busy() {
		out = append(out, "searching")
	}
	if a.selecting > 0 {
		out = append(out, "loading order")
	}
	if a.downloading {
		out = append(out, "downloading")
	}
	return out
}
