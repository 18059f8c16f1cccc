package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/newscli/internal/article"
	"github.com/abelbrown/newscli/internal/feed"
	"github.com/abelbrown/newscli/internal/tone"
)

const mirrorHint = "set NEWSCLI_MIRROR_ON_403=1 to retry blocked sites through a text mirror"

// renderDetailBody renders the scrollable content of the detail pane. A
// blocked or failed article shows its summary and the summary score, never
// an empty pane.
func renderDetailBody(s feed.Summary, d detailState, summaryScore tone.Score, spin string, mirror bool, width int) string {
	if width < 10 {
		width = 10
	}
	wrap := lipgloss.NewStyle().Width(width)

	var lines []string
	lines = append(lines, wrap.Inherit(DetailTitle).Render(s.Title))
	if meta := detailMeta(s, d); meta != "" {
		lines = append(lines, MetaItem.Render(meta))
	}
	if s.Link != "" {
		lines = append(lines, LinkStyle.Render(s.Link))
	}
	lines = append(lines, "")

	lines = append(lines, wrap.Render(fetchStatusLine(d, spin, mirror)))

	score := summaryScore
	if d.loaded && d.score.TextKey != "" {
		score = d.score
	}
	lines = append(lines, wrap.Render(scoreLine(score)))
	lines = append(lines, "")

	lines = append(lines, wrap.Render(bodyText(s, d)))
	return strings.Join(lines, "\n")
}

func detailMeta(s feed.Summary, d detailState) string {
	parts := []string{s.Source.Name}
	switch {
	case d.loaded && d.result.Byline != nil:
		parts = append(parts, *d.result.Byline)
	case s.Author != nil:
		parts = append(parts, *s.Author)
	}
	if s.Published != nil {
		parts = append(parts, s.Published.Local().Format("2006-01-02 15:04"))
	}
	return strings.Join(nonEmpty(parts), " · ")
}

// fetchStatusLine says where the body text came from.
func fetchStatusLine(d detailState, spin string, mirror bool) string {
	switch {
	case d.pending:
		return BadgePending.Render(spin + " fetching full text (esc cancels)")
	case d.err != nil:
		return BadgeFailed.Render("fetch interrupted: "+d.err.Error()) + "\n" + BadgePending.Render("showing summary")
	case !d.loaded:
		return BadgePending.Render("summary · enter loads full text")
	}

	r := d.result
	switch r.Status {
	case article.OK:
		return BadgeOK.Render("full text via " + r.Via.String())
	case article.Blocked:
		msg := "site blocked the request"
		var be *article.BlockedError
		if errors.As(r.Err, &be) && be.StatusCode != 0 {
			msg = fmt.Sprintf("site blocked the request (HTTP %d)", be.StatusCode)
		}
		if mirror {
			msg += "; mirror also failed"
		}
		line := BadgeBlocked.Render(msg + "; showing summary")
		if !mirror {
			line += "\n" + MetaItem.Render(mirrorHint)
		}
		return line
	case article.Failed:
		msg := "could not fetch the article"
		if r.Err != nil {
			msg += ": " + r.Err.Error()
		}
		return BadgeFailed.Render(msg + "; showing summary")
	}
	return BadgePending.Render("summary")
}

func scoreLine(sc tone.Score) string {
	toneStyle := ToneBalanced
	switch {
	case sc.Tone <= -0.2:
		toneStyle = ToneCritical
	case sc.Tone >= 0.2:
		toneStyle = ToneFavorable
	}
	line := toneStyle.Render(fmt.Sprintf("Tone %+.2f %s", sc.Tone, sc.ToneHint())) +
		MetaItem.Render(" · ") +
		fmt.Sprintf("Subjectivity %.2f %s", sc.Subjectivity, sc.SubjectivityHint())
	if sc.Basis != "" {
		line += MetaItem.Render(" (" + strings.ReplaceAll(sc.Basis, "_", " ") + ")")
	}
	if len(sc.FlaggedTerms) > 0 {
		line += "\n" + MetaItem.Render("Flagged: "+strings.Join(sc.FlaggedTerms, ", "))
	}
	return line
}

// bodyText prefers fetched full text, then the feed's content element when
// it says more than the description, then the description.
func bodyText(s feed.Summary, d detailState) string {
	if d.loaded && d.result.Status == article.OK && d.result.HasText() {
		return *d.result.FullText
	}
	text := strings.TrimSpace(s.SummaryText)
	if s.ContentHTML != nil {
		if content := feed.PlainText(*s.ContentHTML); len(content) > len(text) {
			text = content
		}
	}
	if text == "" {
		return HelpStyle.Render("(no summary provided)")
	}
	return text
}

func nonEmpty(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
