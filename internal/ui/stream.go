package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/abelbrown/newscli/internal/feed"
)

// calcScrollOffset returns the first visible row so that cursor stays on
// screen in a list of visible rows.
func calcScrollOffset(cursor, visible int) int {
	if visible < 1 || cursor < visible {
		return 0
	}
	return cursor - visible + 1
}

// renderSourceList renders one line per source: a state marker, the name
// and unread/total counts.
func renderSourceList(states []sourceState, read map[string]bool, cursor, width, height int, spin string) string {
	if len(states) == 0 {
		return HelpStyle.Render("No sources configured.")
	}

	var b strings.Builder
	offset := calcScrollOffset(cursor, height)
	for i := offset; i < len(states) && i < offset+height; i++ {
		st := states[i]
		marker := " "
		switch {
		case st.loading:
			marker = spin
		case st.err != nil:
			marker = ErrorStyle.Padding(0).Render("!")
		}

		unread := 0
		for _, it := range st.items {
			if !read[it.ID] {
				unread++
			}
		}
		count := ""
		if len(st.items) > 0 {
			count = fmt.Sprintf("%d/%d", unread, len(st.items))
		}

		nameWidth := width - 2 - runewidth.StringWidth(count) - 1
		name := runewidth.FillRight(runewidth.Truncate(st.src.Name, max(nameWidth, 1), "…"), max(nameWidth, 1))

		var line string
		if i == cursor {
			line = marker + " " + SelectedItem.Render(name+" "+count)
		} else {
			style := NormalItem
			if unread == 0 && len(st.items) > 0 {
				style = ReadItem
			}
			line = marker + " " + style.Render(name) + " " + MetaItem.Render(count)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// renderArticleList renders the summaries of the selected source, newest
// first as the feed parser sorted them.
func renderArticleList(items []feed.Summary, read map[string]bool, cursor, width, height int, now time.Time) string {
	if len(items) == 0 {
		return HelpStyle.Render("No articles yet. Press 'r' to refresh.")
	}

	var b strings.Builder
	offset := calcScrollOffset(cursor, height)
	for i := offset; i < len(items) && i < offset+height; i++ {
		b.WriteString(renderItemLine(items[i], read[items[i].ID], i == cursor, width, now))
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// renderItemLine renders a single article line: unread dot, title, age.
func renderItemLine(item feed.Summary, read, selected bool, width int, now time.Time) string {
	dot := "•"
	if read {
		dot = " "
	}
	age := ""
	if item.Published != nil {
		age = formatAgeShort(now.Sub(*item.Published))
	}

	titleWidth := width - 2 - runewidth.StringWidth(age) - 1
	if titleWidth < 8 {
		titleWidth = 8
	}
	title := runewidth.FillRight(runewidth.Truncate(item.Title, titleWidth, "…"), titleWidth)

	switch {
	case selected:
		return SelectedItem.Render(dot + " " + title + " " + age)
	case read:
		return ReadItem.Render(dot+" "+title) + " " + MetaItem.Render(age)
	default:
		return NormalItem.Render(dot+" "+title) + " " + MetaItem.Render(age)
	}
}

// formatAgeShort renders an article age as 5m, 3h or 2d. Future dates from
// skewed feed clocks read as "now".
func formatAgeShort(age time.Duration) string {
	switch {
	case age < time.Minute:
		return "now"
	case age < time.Hour:
		return fmt.Sprintf("%dm", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd", int(age.Hours()/24))
	}
}

// RenderStatusBar renders the bottom status bar with key hints.
func RenderStatusBar(left string, hints []key.Binding, width int) string {
	keys := make([]string, 0, len(hints))
	for _, h := range hints {
		help := h.Help()
		keys = append(keys, StatusBarKey.Render(help.Key)+StatusBarText.Render(":"+help.Desc))
	}
	keyHints := strings.Join(keys, " ")

	// Calculate padding to fill width
	leftWidth := lipgloss.Width(left)
	rightWidth := lipgloss.Width(keyHints)
	padding := width - leftWidth - rightWidth - 2
	if padding < 1 {
		// Not enough room: drop the hints rather than wrap.
		return StatusBar.Width(width).Render(runewidth.Truncate(left, max(width-2, 1), "…"))
	}

	return StatusBar.Width(width).Render(left + strings.Repeat(" ", padding) + keyHints)
}
