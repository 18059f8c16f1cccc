package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Frame sizes of a bordered, padded pane.
const (
	paneChrome  = 4 // border + horizontal padding
	paneVChrome = 2 // border
)

// columnWidths splits the terminal width into sources, articles and detail.
func (a App) columnWidths() (int, int, int) {
	src := a.width / 5
	if src < 18 {
		src = 18
	}
	if src > 28 {
		src = 28
	}
	art := (a.width - src) * 2 / 5
	detail := a.width - src - art
	return src, art, detail
}

// bodyHeight is the height left for the panes after the message line and
// the status bar.
func (a App) bodyHeight() int {
	h := a.height - 2
	if h < paneVChrome+2 {
		h = paneVChrome + 2
	}
	return h
}

func (a App) frame(p Pane, width, height int) lipgloss.Style {
	style := PaneStyle
	if a.pane == p {
		style = FocusedPaneStyle
	}
	return style.Width(width - 2).Height(height - paneVChrome)
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}
	if a.showDebug {
		return debugOverlay(a.cfg.Events, a.width, a.height-1) + "\n" + debugStatusBar(a.width)
	}

	srcW, artW, detailW := a.columnWidths()
	h := a.bodyHeight()
	inner := h - paneVChrome - 1 // minus the pane title line

	srcPane := PaneTitle.Render("Sources") + "\n" +
		renderSourceList(a.sources, a.read, a.srcCursor, srcW-paneChrome, inner, a.spinner.View())

	artTitle := "Articles"
	if a.srcCursor < len(a.sources) {
		artTitle = a.sources[a.srcCursor].src.Name
	}
	artPane := PaneTitle.Render(artTitle) + "\n" +
		renderArticleList(a.items(), a.read, a.artCursor, artW-paneChrome, inner, time.Now())

	detailPane := PaneTitle.Render("Article") + "\n" + a.viewport.View()

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		a.frame(PaneSources, srcW, h).Render(srcPane),
		a.frame(PaneArticles, artW, h).Render(artPane),
		a.frame(PaneDetail, detailW, h).Render(detailPane),
	)

	parts := []string{body}
	switch {
	case a.err != nil:
		parts = append(parts, ErrorStyle.Width(a.width).Render("Error: "+a.err.Error()))
	default:
		parts = append(parts, StatusBarText.Width(a.width).Render(" "+a.notice))
	}
	parts = append(parts, RenderStatusBar(a.statusText(), a.keys.hints(), a.width))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// statusText is the left side of the status bar.
func (a App) statusText() string {
	loading := 0
	for _, s := range a.sources {
		if s.loading {
			loading++
		}
	}
	switch {
	case loading > 0:
		return fmt.Sprintf("%s refreshing %d source(s)", a.spinner.View(), loading)
	case a.detail.pending:
		return a.spinner.View() + " fetching article"
	}
	if a.srcCursor < len(a.sources) {
		s := a.sources[a.srcCursor]
		switch {
		case s.err != nil:
			return s.src.Name + ": " + s.err.Error()
		case !s.refreshed.IsZero():
			return fmt.Sprintf("%d/%d · updated %s", a.artCursor+1, len(s.items), s.refreshed.Local().Format("15:04"))
		case len(s.items) > 0:
			return fmt.Sprintf("%d/%d · saved snapshot", a.artCursor+1, len(s.items))
		}
	}
	return "newscli"
}
