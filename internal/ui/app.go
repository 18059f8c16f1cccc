package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/newscli/internal/article"
	"github.com/abelbrown/newscli/internal/feed"
	"github.com/abelbrown/newscli/internal/otel"
	"github.com/abelbrown/newscli/internal/sources"
	"github.com/abelbrown/newscli/internal/tone"
)

// Pane identifies a focusable column.
type Pane int

const (
	PaneSources Pane = iota
	PaneArticles
	PaneDetail
	paneCount
)

// AppConfig holds the commands the App runs. Every field is optional.
// IMPORTANT: App does NOT hold the cache, the coordinator or the store. It
// receives records via messages.
type AppConfig struct {
	// Context is the parent of every article fetch context.
	Context context.Context

	Sources []sources.Source

	LoadSnapshots func() tea.Cmd
	RefreshSource func(src sources.Source) tea.Cmd
	RefreshAll    func() tea.Cmd
	MarkRead      func(id string) tea.Cmd

	// LoadArticle resolves the full text of s; force bypasses the cache.
	// The returned message must be an ArticleLoaded carrying seq.
	LoadArticle func(ctx context.Context, s feed.Summary, seq int, force bool) tea.Cmd

	// ScoreSummary scores the summary text. Called synchronously, so it must
	// be cheap (the cache memoizes it).
	ScoreSummary func(s feed.Summary) tone.Score

	// Events feeds the debug overlay; nil hides it.
	Events *otel.Ring

	// MirrorEnabled changes the hint shown for blocked articles.
	MirrorEnabled bool
}

type sourceState struct {
	src       sources.Source
	items     []feed.Summary
	err       error
	refreshed time.Time
	loading   bool
}

// detailState tracks the full-text request for one article.
type detailState struct {
	id      string
	seq     int
	pending bool
	cancel  context.CancelFunc
	loaded  bool
	result  article.Result
	score   tone.Score
	err     error
}

// App is the root Bubble Tea model.
type App struct {
	cfg  AppConfig
	keys keyMap

	sources   []sourceState
	read      map[string]bool
	pane      Pane
	srcCursor int
	artCursor int

	detail detailState
	seq    int

	viewport viewport.Model
	spinner  spinner.Model

	err       error
	notice    string
	showDebug bool
	width     int
	height    int
	ready     bool
}

// NewAppWithConfig creates an App showing cfg.Sources.
func NewAppWithConfig(cfg AppConfig) App {
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	states := make([]sourceState, len(cfg.Sources))
	for i, src := range cfg.Sources {
		states[i] = sourceState{src: src}
	}
	return App{
		cfg:      cfg,
		keys:     defaultKeys(),
		sources:  states,
		read:     make(map[string]bool),
		viewport: viewport.New(0, 0),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

// Init loads saved snapshots and starts the spinner.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.spinner.Tick}
	if a.cfg.LoadSnapshots != nil {
		cmds = append(cmds, a.cfg.LoadSnapshots())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.resize()
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		if a.detail.pending {
			a.syncDetail(false)
		}
		return a, cmd

	case SnapshotLoaded:
		if i := a.indexOf(msg.Source); i >= 0 && msg.Err == nil && a.sources[i].refreshed.IsZero() {
			a.sources[i].items = msg.Summaries
			a.mergeRead(msg.Read)
			a.clampCursor()
			a.syncDetail(true)
		}
		return a, nil

	case RefreshStarted:
		for i := range a.sources {
			a.sources[i].loading = true
		}
		return a, nil

	case SourceRefreshed:
		i := a.indexOf(msg.Source)
		if i < 0 {
			return a, nil
		}
		s := &a.sources[i]
		s.loading = false
		s.err = msg.Err
		if msg.Err == nil {
			s.items = msg.Summaries
			s.refreshed = msg.At
			a.mergeRead(msg.Read)
		}
		if i == a.srcCursor {
			if msg.Err != nil {
				a.err = fmt.Errorf("%s: %w", s.src.Name, msg.Err)
			}
			a.clampCursor()
			a.syncDetail(false)
		}
		return a, nil

	case ArticleLoaded:
		if msg.Seq != a.detail.seq || msg.ID != a.detail.id {
			return a, nil // answer for an abandoned request
		}
		if a.detail.cancel != nil {
			a.detail.cancel()
			a.detail.cancel = nil
		}
		a.detail.pending = false
		a.detail.err = msg.Err
		if msg.Err == nil {
			a.detail.loaded = true
			a.detail.result = msg.Result
			a.detail.score = msg.Score
		}
		a.syncDetail(true)
		return a, nil

	case ItemMarkedRead:
		a.read[msg.ID] = true
		return a, nil
	}

	return a, nil
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Clear any existing error on key press
	a.err = nil
	a.notice = ""

	switch {
	case key.Matches(msg, a.keys.Quit):
		a.cancelFetch()
		return a, tea.Quit

	case key.Matches(msg, a.keys.Debug):
		if a.cfg.Events != nil {
			a.showDebug = !a.showDebug
		}
		return a, nil

	case key.Matches(msg, a.keys.NextPane):
		a.pane = (a.pane + 1) % paneCount
		return a, nil

	case key.Matches(msg, a.keys.PrevPane):
		a.pane = (a.pane + paneCount - 1) % paneCount
		return a, nil

	case key.Matches(msg, a.keys.Down):
		a.move(1)
		return a, nil

	case key.Matches(msg, a.keys.Up):
		a.move(-1)
		return a, nil

	case key.Matches(msg, a.keys.Open):
		if a.pane == PaneSources {
			a.pane = PaneArticles
			return a, nil
		}
		return a.open(false)

	case key.Matches(msg, a.keys.Refetch):
		return a.open(true)

	case key.Matches(msg, a.keys.Refresh):
		if a.cfg.RefreshSource == nil || len(a.sources) == 0 {
			return a, nil
		}
		s := &a.sources[a.srcCursor]
		s.loading = true
		return a, a.cfg.RefreshSource(s.src)

	case key.Matches(msg, a.keys.RefreshAll):
		if a.cfg.RefreshAll == nil {
			return a, nil
		}
		for i := range a.sources {
			a.sources[i].loading = true
		}
		return a, a.cfg.RefreshAll()

	case key.Matches(msg, a.keys.Cancel):
		switch {
		case a.showDebug:
			a.showDebug = false
		case a.detail.pending:
			a.cancelFetch()
			a.notice = "fetch cancelled"
			a.syncDetail(false)
		case a.pane == PaneDetail:
			a.pane = PaneArticles
		}
		return a, nil
	}

	return a, nil
}

// move shifts the cursor of the focused pane. The detail pane scrolls.
func (a *App) move(delta int) {
	switch a.pane {
	case PaneSources:
		next := a.srcCursor + delta
		if next < 0 || next >= len(a.sources) {
			return
		}
		a.srcCursor = next
		a.artCursor = 0
		a.syncDetail(true)

	case PaneArticles:
		next := a.artCursor + delta
		if next < 0 || next >= len(a.items()) {
			return
		}
		a.artCursor = next
		a.syncDetail(true)

	case PaneDetail:
		if delta > 0 {
			a.viewport.LineDown(delta)
		} else {
			a.viewport.LineUp(-delta)
		}
	}
}

// open starts the full-text fetch for the selected article and marks it
// read. An article already loaded is not fetched again unless forced.
func (a App) open(force bool) (tea.Model, tea.Cmd) {
	s, ok := a.Selected()
	if !ok {
		return a, nil
	}
	a.pane = PaneDetail

	var cmds []tea.Cmd
	if a.cfg.MarkRead != nil && !a.read[s.ID] {
		cmds = append(cmds, a.cfg.MarkRead(s.ID))
	}

	if a.cfg.LoadArticle != nil && (force || !a.detailFor(s.ID) || (!a.detail.pending && !a.detail.loaded)) {
		a.cancelFetch()
		a.seq++
		ctx, cancel := context.WithCancel(a.cfg.Context)
		a.detail = detailState{id: s.ID, seq: a.seq, pending: true, cancel: cancel}
		cmds = append(cmds, a.cfg.LoadArticle(ctx, s, a.seq, force), a.spinner.Tick)
	}
	a.syncDetail(true)
	return a, tea.Batch(cmds...)
}

// cancelFetch abandons a pending full-text request. Its late answer is
// ignored because the sequence number no longer matches.
func (a *App) cancelFetch() {
	if a.detail.cancel != nil {
		a.detail.cancel()
	}
	if a.detail.pending {
		a.detail = detailState{}
	}
}

// syncDetail keeps the detail state on the selected article, cancelling a
// request for an article the cursor moved away from, and refreshes the
// viewport.
func (a *App) syncDetail(top bool) {
	s, ok := a.Selected()
	if a.detail.id != "" && (!ok || !a.detailFor(s.ID)) {
		a.cancelFetch()
		a.detail = detailState{}
	}
	if !ok {
		a.viewport.SetContent("")
		return
	}

	summaryScore := tone.Score{FlaggedTerms: []string{}}
	if a.cfg.ScoreSummary != nil {
		summaryScore = a.cfg.ScoreSummary(s)
	}
	a.viewport.SetContent(renderDetailBody(s, a.detail, summaryScore, a.spinner.View(), a.cfg.MirrorEnabled, a.viewport.Width))
	if top {
		a.viewport.GotoTop()
	}
}

func (a *App) resize() {
	_, _, detailW := a.columnWidths()
	a.viewport.Width = detailW - paneChrome
	a.viewport.Height = a.bodyHeight() - paneVChrome - 1
	if a.viewport.Width < 1 {
		a.viewport.Width = 1
	}
	if a.viewport.Height < 1 {
		a.viewport.Height = 1
	}
	a.syncDetail(false)
}

func (a App) detailFor(id string) bool {
	return a.detail.id == id
}

func (a App) indexOf(src sources.Source) int {
	for i := range a.sources {
		if a.sources[i].src.URL == src.URL {
			return i
		}
	}
	return -1
}

func (a *App) mergeRead(read map[string]bool) {
	for id, r := range read {
		if r {
			a.read[id] = true
		}
	}
}

func (a *App) clampCursor() {
	if n := len(a.items()); a.artCursor >= n {
		a.artCursor = max(n-1, 0)
	}
}

func (a App) items() []feed.Summary {
	if a.srcCursor >= len(a.sources) {
		return nil
	}
	return a.sources[a.srcCursor].items
}

// Selected returns the article under the cursor.
func (a App) Selected() (feed.Summary, bool) {
	items := a.items()
	if a.artCursor < 0 || a.artCursor >= len(items) {
		return feed.Summary{}, false
	}
	return items[a.artCursor], true
}

// Pane returns the focused pane (for testing).
func (a App) Pane() Pane {
	return a.pane
}

// Cursor returns the article cursor position (for testing).
func (a App) Cursor() int {
	return a.artCursor
}

// SourceCursor returns the source cursor position (for testing).
func (a App) SourceCursor() int {
	return a.srcCursor
}

// Pending reports whether a full-text fetch is in flight (for testing).
func (a App) Pending() bool {
	return a.detail.pending
}

// Items returns the articles of the selected source (for testing).
func (a App) Items() []feed.Summary {
	return a.items()
}

// IsRead reports whether id has been marked read (for testing).
func (a App) IsRead(id string) bool {
	return a.read[id]
}
