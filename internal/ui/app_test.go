package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/newscli/internal/article"
	"github.com/abelbrown/newscli/internal/feed"
	"github.com/abelbrown/newscli/internal/otel"
	"github.com/abelbrown/newscli/internal/sources"
	"github.com/abelbrown/newscli/internal/tone"
)

var (
	srcA = sources.Source{Name: "Alpha News", URL: "https://alpha.example/rss"}
	srcB = sources.Source{Name: "Beta Wire", URL: "https://beta.example/rss"}
)

type loadCall struct {
	ctx   context.Context
	id    string
	seq   int
	force bool
}

// mockCmd records which injected commands the App ran.
type mockCmd struct {
	snapshots  int
	refreshed  []sources.Source
	refreshAll int
	marked     []string
	loads      []loadCall
}

func (m *mockCmd) config() AppConfig {
	return AppConfig{
		Sources: []sources.Source{srcA, srcB},
		LoadSnapshots: func() tea.Cmd {
			m.snapshots++
			return func() tea.Msg { return nil }
		},
		RefreshSource: func(src sources.Source) tea.Cmd {
			m.refreshed = append(m.refreshed, src)
			return func() tea.Msg { return nil }
		},
		RefreshAll: func() tea.Cmd {
			m.refreshAll++
			return func() tea.Msg { return nil }
		},
		MarkRead: func(id string) tea.Cmd {
			m.marked = append(m.marked, id)
			return func() tea.Msg { return ItemMarkedRead{ID: id} }
		},
		LoadArticle: func(ctx context.Context, s feed.Summary, seq int, force bool) tea.Cmd {
			m.loads = append(m.loads, loadCall{ctx: ctx, id: s.ID, seq: seq, force: force})
			return func() tea.Msg { return nil }
		},
		ScoreSummary: func(s feed.Summary) tone.Score {
			sc := tone.NewScorer(tone.DefaultLexicon()).Score(s.SummaryText)
			sc.ArticleID, sc.Basis = s.ID, tone.BasisSummary
			return sc
		},
	}
}

func summaries(src sources.Source, titles ...string) []feed.Summary {
	out := make([]feed.Summary, len(titles))
	for i, title := range titles {
		link := src.URL + "/" + title
		out[i] = feed.Summary{
			ID:          feed.ArticleID(link),
			Title:       title,
			Link:        link,
			SummaryText: "Summary of " + title + ".",
			Source:      src,
		}
	}
	return out
}

func press(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, a App, msg tea.Msg) (App, tea.Cmd) {
	t.Helper()
	model, cmd := a.Update(msg)
	updated, ok := model.(App)
	require.True(t, ok)
	return updated, cmd
}

// loadedApp returns an App with three articles for srcA, focused on the
// article list.
func loadedApp(t *testing.T, m *mockCmd) App {
	t.Helper()
	app := NewAppWithConfig(m.config())
	app, _ = send(t, app, tea.WindowSizeMsg{Width: 140, Height: 40})
	app, _ = send(t, app, SourceRefreshed{Source: srcA, Summaries: summaries(srcA, "one", "two", "three"), At: time.Now()})
	app, _ = send(t, app, press("enter"))
	require.Equal(t, PaneArticles, app.Pane())
	return app
}

func TestAppInit(t *testing.T) {
	mock := &mockCmd{}
	app := NewAppWithConfig(mock.config())

	cmd := app.Init()
	assert.NotNil(t, cmd)
	assert.Equal(t, 1, mock.snapshots)
}

func TestAppInitWithoutCommands(t *testing.T) {
	app := NewAppWithConfig(AppConfig{})
	assert.NotNil(t, app.Init(), "spinner tick still runs")
	assert.Equal(t, "Loading...", app.View())
}

func TestAppNavigation(t *testing.T) {
	app := loadedApp(t, &mockCmd{})

	app, _ = send(t, app, press("j"))
	assert.Equal(t, 1, app.Cursor())
	app, _ = send(t, app, press("j"))
	app, _ = send(t, app, press("j"))
	assert.Equal(t, 2, app.Cursor(), "j at bottom stays at bottom")

	app, _ = send(t, app, press("k"))
	assert.Equal(t, 1, app.Cursor())
	app, _ = send(t, app, press("k"))
	app, _ = send(t, app, press("k"))
	assert.Equal(t, 0, app.Cursor(), "k at top stays at top")
}

func TestAppPaneCycling(t *testing.T) {
	app := NewAppWithConfig((&mockCmd{}).config())
	assert.Equal(t, PaneSources, app.Pane())

	app, _ = send(t, app, press("tab"))
	assert.Equal(t, PaneArticles, app.Pane())
	app, _ = send(t, app, press("tab"))
	assert.Equal(t, PaneDetail, app.Pane())
	app, _ = send(t, app, press("tab"))
	assert.Equal(t, PaneSources, app.Pane())
	app, _ = send(t, app, press("shift+tab"))
	assert.Equal(t, PaneDetail, app.Pane())
}

func TestAppSourceNavigationResetsArticleCursor(t *testing.T) {
	app := loadedApp(t, &mockCmd{})
	app, _ = send(t, app, press("j"))
	require.Equal(t, 1, app.Cursor())

	app, _ = send(t, app, press("shift+tab"))
	app, _ = send(t, app, press("j"))
	assert.Equal(t, 1, app.SourceCursor())
	assert.Equal(t, 0, app.Cursor())
	assert.Empty(t, app.Items(), "second source has not been refreshed")
}

func TestAppOpenStartsFetchAndMarksRead(t *testing.T) {
	mock := &mockCmd{}
	app := loadedApp(t, mock)
	want := app.Items()[0]

	app, cmd := send(t, app, press("enter"))
	assert.NotNil(t, cmd)
	assert.Equal(t, PaneDetail, app.Pane())
	assert.True(t, app.Pending())
	require.Len(t, mock.loads, 1)
	assert.Equal(t, want.ID, mock.loads[0].id)
	assert.Equal(t, 1, mock.loads[0].seq)
	assert.False(t, mock.loads[0].force)
	assert.Equal(t, []string{want.ID}, mock.marked)

	// Enter again while the fetch is pending does not start another one.
	app, _ = send(t, app, press("enter"))
	assert.Len(t, mock.loads, 1)

	app, _ = send(t, app, ItemMarkedRead{ID: want.ID})
	assert.True(t, app.IsRead(want.ID))
}

func TestAppArticleLoadedShowsFullText(t *testing.T) {
	mock := &mockCmd{}
	app := loadedApp(t, mock)
	app, _ = send(t, app, press("enter"))
	s, _ := app.Selected()

	text := "The full body of the article, fetched directly from the site."
	app, _ = send(t, app, ArticleLoaded{
		ID:     s.ID,
		Seq:    1,
		Result: article.Result{ArticleID: s.ID, Status: article.OK, Via: article.ViaDirect, FullText: &text},
		Score:  tone.Score{ArticleID: s.ID, TextKey: "k", FlaggedTerms: []string{}, Basis: tone.BasisFullText},
	})

	assert.False(t, app.Pending())
	view := app.View()
	assert.Contains(t, view, "full text via direct")
	assert.Contains(t, view, "fetched directly")

	// A loaded article is not fetched again on enter.
	app, _ = send(t, app, press("shift+tab"))
	app, _ = send(t, app, press("enter"))
	assert.Len(t, mock.loads, 1)
}

func TestAppBlockedArticleShowsSummary(t *testing.T) {
	app := loadedApp(t, &mockCmd{})
	app, _ = send(t, app, press("enter"))
	s, _ := app.Selected()

	app, _ = send(t, app, ArticleLoaded{
		ID:  s.ID,
		Seq: 1,
		Result: article.Result{
			ArticleID: s.ID, Status: article.Blocked, Via: article.ViaNone,
			Err: &article.BlockedError{Link: s.Link, StatusCode: 403},
		},
	})

	view := app.View()
	assert.Contains(t, view, "HTTP 403")
	assert.Contains(t, view, "Summary of one.")
	assert.Contains(t, view, "Subjectivity")
	assert.Contains(t, view, "NEWSCLI_MIRROR_ON_403")
}

func TestAppMovingAwayCancelsPendingFetch(t *testing.T) {
	mock := &mockCmd{}
	app := loadedApp(t, mock)
	first, _ := app.Selected()
	app, _ = send(t, app, press("enter"))
	require.True(t, app.Pending())

	app, _ = send(t, app, press("shift+tab"))
	app, _ = send(t, app, press("j"))

	require.Len(t, mock.loads, 1)
	assert.ErrorIs(t, mock.loads[0].ctx.Err(), context.Canceled)
	assert.False(t, app.Pending())

	// The late answer for the abandoned article is ignored.
	text := "late"
	app, _ = send(t, app, ArticleLoaded{ID: first.ID, Seq: 1, Result: article.Result{Status: article.OK, FullText: &text}})
	assert.NotContains(t, app.View(), "full text via")
}

func TestAppEscCancelsPendingFetch(t *testing.T) {
	mock := &mockCmd{}
	app := loadedApp(t, mock)
	app, _ = send(t, app, press("enter"))

	app, _ = send(t, app, press("esc"))
	assert.False(t, app.Pending())
	assert.ErrorIs(t, mock.loads[0].ctx.Err(), context.Canceled)
	assert.Equal(t, PaneDetail, app.Pane(), "first esc only cancels")
	assert.Contains(t, app.View(), "fetch cancelled")

	app, _ = send(t, app, press("esc"))
	assert.Equal(t, PaneArticles, app.Pane())

	// Opening again starts a fresh fetch.
	app, _ = send(t, app, press("enter"))
	require.Len(t, mock.loads, 2)
	assert.Equal(t, 2, mock.loads[1].seq)
	assert.True(t, app.Pending())
}

func TestAppRefetchForces(t *testing.T) {
	mock := &mockCmd{}
	app := loadedApp(t, mock)
	app, _ = send(t, app, press("enter"))
	s, _ := app.Selected()
	app, _ = send(t, app, ArticleLoaded{ID: s.ID, Seq: 1, Result: article.Result{Status: article.Failed}})

	app, _ = send(t, app, press("F"))
	require.Len(t, mock.loads, 2)
	assert.True(t, mock.loads[1].force)
	assert.True(t, app.Pending())
}

func TestAppRefreshKeys(t *testing.T) {
	mock := &mockCmd{}
	app := loadedApp(t, mock)

	_, cmd := send(t, app, press("r"))
	assert.NotNil(t, cmd)
	assert.Equal(t, []sources.Source{srcA}, mock.refreshed)

	_, cmd = send(t, app, press("R"))
	assert.NotNil(t, cmd)
	assert.Equal(t, 1, mock.refreshAll)
}

func TestAppRefreshErrorKeepsPreviousItems(t *testing.T) {
	app := loadedApp(t, &mockCmd{})
	app, _ = send(t, app, SourceRefreshed{Source: srcA, Err: errors.New("HTTP 503"), At: time.Now()})

	assert.Len(t, app.Items(), 3)
	assert.Contains(t, app.View(), "HTTP 503")
}

func TestAppSnapshotDoesNotOverrideRefresh(t *testing.T) {
	app := loadedApp(t, &mockCmd{})
	app, _ = send(t, app, SnapshotLoaded{Source: srcA, Summaries: summaries(srcA, "stale")})
	assert.Len(t, app.Items(), 3)

	fresh := NewAppWithConfig((&mockCmd{}).config())
	read := map[string]bool{summaries(srcA, "old")[0].ID: true}
	fresh, _ = send(t, fresh, SnapshotLoaded{Source: srcA, Summaries: summaries(srcA, "old"), Read: read})
	require.Len(t, fresh.Items(), 1)
	assert.True(t, fresh.IsRead(fresh.Items()[0].ID))
}

func TestAppRefreshShrinksListClampsCursor(t *testing.T) {
	app := loadedApp(t, &mockCmd{})
	app, _ = send(t, app, press("j"))
	app, _ = send(t, app, press("j"))
	require.Equal(t, 2, app.Cursor())

	app, _ = send(t, app, SourceRefreshed{Source: srcA, Summaries: summaries(srcA, "only"), At: time.Now()})
	assert.Equal(t, 0, app.Cursor())
}

func TestAppQuit(t *testing.T) {
	mock := &mockCmd{}
	app := loadedApp(t, mock)
	app, _ = send(t, app, press("enter"))

	_, cmd := send(t, app, press("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.ErrorIs(t, mock.loads[0].ctx.Err(), context.Canceled)
}

func TestAppViewRendersPanes(t *testing.T) {
	app := loadedApp(t, &mockCmd{})
	view := app.View()

	for _, want := range []string{"Sources", "Alpha News", "Beta Wire", "one", "three", "Tone", "enter loads full text"} {
		assert.Contains(t, view, want)
	}
	lines := strings.Split(view, "\n")
	assert.LessOrEqual(t, len(lines), 40)
}

func TestAppDebugOverlay(t *testing.T) {
	ring := otel.NewRing(16)
	ring.Push(otel.Event{Kind: otel.KindArticleBlocked, Time: time.Now(), Source: "Alpha News"})
	cfg := (&mockCmd{}).config()
	cfg.Events = ring
	app := NewAppWithConfig(cfg)
	app, _ = send(t, app, tea.WindowSizeMsg{Width: 120, Height: 30})

	app, _ = send(t, app, press("?"))
	view := app.View()
	assert.Contains(t, view, "[DEBUG]")
	assert.Contains(t, view, "1 blocked")

	app, _ = send(t, app, press("?"))
	assert.NotContains(t, app.View(), "[DEBUG]")

	// Without a ring the key does nothing.
	plain := NewAppWithConfig((&mockCmd{}).config())
	plain, _ = send(t, plain, tea.WindowSizeMsg{Width: 120, Height: 30})
	plain, _ = send(t, plain, press("?"))
	assert.NotContains(t, plain.View(), "[DEBUG]")
}
