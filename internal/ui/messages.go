// Package ui provides the Bubble Tea TUI for newscli.
package ui

import (
	"time"

	"github.com/abelbrown/newscli/internal/article"
	"github.com/abelbrown/newscli/internal/feed"
	"github.com/abelbrown/newscli/internal/sources"
	"github.com/abelbrown/newscli/internal/tone"
)

// SnapshotLoaded carries the summaries saved for a source by an earlier
// session. A later SourceRefreshed for the same source replaces them.
type SnapshotLoaded struct {
	Source    sources.Source
	Summaries []feed.Summary
	Read      map[string]bool
	Err       error
}

// SourceRefreshed is sent when a source refresh finishes. On error the
// previous summaries stay on screen.
type SourceRefreshed struct {
	Source    sources.Source
	Summaries []feed.Summary
	Read      map[string]bool
	Err       error
	At        time.Time
}

// RefreshStarted is sent when a refresh of all sources begins.
type RefreshStarted struct{}

// ArticleLoaded is sent when a full-text fetch resolves. Seq identifies the
// request so a late answer for an abandoned fetch is ignored.
type ArticleLoaded struct {
	ID     string
	Seq    int
	Result article.Result
	Score  tone.Score
	Err    error
}

// ItemMarkedRead is sent when an article has been marked as read.
type ItemMarkedRead struct {
	ID string
}
