// Package digest writes scored summaries as a syndication feed, so a
// refresh can be read in any feed reader with the tone values attached.
package digest

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/abelbrown/newscli/internal/feed"
	"github.com/abelbrown/newscli/internal/tone"
)

// Format names an output syndication format.
type Format string

const (
	FormatAtom Format = "atom"
	FormatRSS  Format = "rss"
	FormatJSON Format = "json"
)

// ParseFormat accepts atom, rss or json in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatAtom, FormatRSS, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("digest: unknown format %q (want atom, rss or json)", s)
}

// Entry is one summary with the score shown next to it.
type Entry struct {
	Summary feed.Summary
	Score   tone.Score
}

// Build assembles the feed document. Entries keep their order.
func Build(title string, entries []Entry, now time.Time) *feeds.Feed {
	doc := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: "https://github.com/abelbrown/newscli"},
		Description: "Headlines with heuristic tone and subjectivity",
		Created:     now,
	}

	for _, e := range entries {
		s := e.Summary
		created := now
		if s.Published != nil {
			created = *s.Published
		}
		item := &feeds.Item{
			Id:          s.ID,
			IsPermaLink: "false",
			Title:       s.Title,
			Link:        &feeds.Link{Href: s.Link},
			Description: Describe(s, e.Score),
			Created:     created,
		}
		if s.Author != nil {
			item.Author = &feeds.Author{Name: *s.Author}
		}
		doc.Items = append(doc.Items, item)
	}
	return doc
}

// Write renders entries in format to w.
func Write(w io.Writer, format Format, title string, entries []Entry, now time.Time) error {
	doc := Build(title, entries, now)
	var err error
	switch format {
	case FormatAtom:
		err = doc.WriteAtom(w)
	case FormatRSS:
		err = doc.WriteRss(w)
	case FormatJSON:
		err = doc.WriteJSON(w)
	default:
		return fmt.Errorf("digest: unknown format %q", format)
	}
	if err != nil {
		return fmt.Errorf("digest: write %s: %w", format, err)
	}
	return nil
}

// Describe is the item description: the summary text, then a line with the
// source name and the score.
func Describe(s feed.Summary, score tone.Score) string {
	var b strings.Builder
	if text := strings.TrimSpace(s.SummaryText); text != "" {
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "[%s] Tone %+.2f (%s), subjectivity %.2f (%s)",
		s.Source.Name, score.Tone, score.ToneHint(), score.Subjectivity, score.SubjectivityHint())
	if len(score.FlaggedTerms) > 0 {
		fmt.Fprintf(&b, "; flagged: %s", strings.Join(score.FlaggedTerms, ", "))
	}
	if score.Basis != "" {
		fmt.Fprintf(&b, "; scored on %s", strings.ReplaceAll(score.Basis, "_", " "))
	}
	return b.String()
}
