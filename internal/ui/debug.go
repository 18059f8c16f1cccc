package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/abelbrown/newscli/internal/otel"
)

// debugPanelChrome is the number of terminal lines consumed by DebugPanel's
// border (top + bottom = 2) and vertical padding (top + bottom = 2).
// Must be updated if DebugPanel style changes.
const debugPanelChrome = 4

// debugOverlay renders pipeline counts and recent events. Pure function.
// Returns empty string if ring is nil.
func debugOverlay(ring *otel.Ring, width, height int) string {
	if ring == nil {
		return ""
	}

	stats := ring.Counts()
	recent := ring.Last(20)

	var lines []string
	lines = append(lines, DebugHeaderStyle.Render("Pipeline"))
	lines = append(lines, fmt.Sprintf("  Feeds:     %d ok, %d retried, %d failed",
		stats[otel.KindFeedComplete], stats[otel.KindFeedRetry], stats[otel.KindFeedError]))
	lines = append(lines, fmt.Sprintf("  Articles:  %d ok, %d mirrored, %d blocked, %d failed, %d cancelled",
		stats[otel.KindArticleComplete], stats[otel.KindArticleMirror], stats[otel.KindArticleBlocked],
		stats[otel.KindArticleFailed], stats[otel.KindArticleCancel]))
	lines = append(lines, fmt.Sprintf("  Cache:     %d hit, %d miss, %d shared, %d scored",
		stats[otel.KindCacheHit], stats[otel.KindCacheMiss], stats[otel.KindCacheShared], stats[otel.KindScore]))
	lines = append(lines, fmt.Sprintf("  Buffer:    %d / %d events", ring.Len(), ring.Cap()))
	lines = append(lines, "")

	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range recent {
		line := fmt.Sprintf("  %6s  %-18s", formatAge(time.Since(e.Time)), string(e.Kind))
		if e.Source != "" {
			line += "  " + runewidth.Truncate(e.Source, 16, "…")
		}
		if e.Status != "" {
			line += "  " + e.Status
		}
		if e.Msg != "" {
			line += "  " + runewidth.Truncate(e.Msg, 40, "…")
		}
		if e.Err != "" {
			line += "  ERR:" + runewidth.Truncate(e.Err, 30, "…")
		}
		lines = append(lines, line)
	}

	// Truncate to fit terminal height (subtract chrome added by DebugPanel border/padding)
	maxHeight := height - debugPanelChrome
	if maxHeight < 1 {
		maxHeight = 1
	}
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	panelWidth := 96
	if panelWidth > width-4 {
		panelWidth = width - 4
	}
	if panelWidth < 20 {
		panelWidth = 20
	}

	return DebugPanel.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

// formatAge formats a duration as a compact human string.
// Handles negative durations from clock skew by clamping to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

// debugStatusBar renders the status bar for the debug overlay.
func debugStatusBar(width int) string {
	keys := StatusBarKey.Render("?") + StatusBarText.Render(":close")
	return StatusBar.Width(width).Render("  [DEBUG]  " + keys)
}
