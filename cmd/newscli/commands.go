package main

import (
	"context"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/newscli/internal/feed"
	"github.com/abelbrown/newscli/internal/otel"
	"github.com/abelbrown/newscli/internal/sources"
	"github.com/abelbrown/newscli/internal/ui"
)

// programRef forwards messages to a tea.Program that is created after the
// model's commands are wired. Messages sent before it is set are dropped.
type programRef struct {
	p atomic.Pointer[tea.Program]
}

func (r *programRef) Set(p *tea.Program) { r.p.Store(p) }

func (r *programRef) Send(msg tea.Msg) {
	if p := r.p.Load(); p != nil {
		p.Send(msg)
	}
}

// uiConfig binds the UI's commands to the coordinator and the article cache.
func uiConfig(ctx context.Context, a *app, prog *programRef) ui.AppConfig {
	return ui.AppConfig{
		Context:       ctx,
		Sources:       a.coord.Sources(),
		MirrorEnabled: a.articles.MirrorEnabled(),
		Events:        a.ring,
		ScoreSummary:  a.cache.ScoreSummary,

		// Snapshots are read off the UI goroutine and delivered in source
		// order.
		LoadSnapshots: func() tea.Cmd {
			return func() tea.Msg {
				snaps := a.coord.LoadSnapshots()
				if len(snaps) == 0 {
					return nil
				}
				cmds := make([]tea.Cmd, len(snaps))
				for i, s := range snaps {
					cmds[i] = func() tea.Msg { return s }
				}
				return tea.Sequence(cmds...)()
			}
		},

		RefreshSource: func(src sources.Source) tea.Cmd {
			return func() tea.Msg {
				return a.coord.RefreshSource(ctx, src)
			}
		},

		// Results stream to the program one source at a time.
		RefreshAll: func() tea.Cmd {
			return func() tea.Msg {
				a.coord.RefreshAll(ctx, prog)
				return nil
			}
		},

		MarkRead: func(id string) tea.Cmd {
			return func() tea.Msg {
				// The mark holds for this session even if it was not saved.
				if err := a.coord.MarkRead(id); err != nil {
					a.logger.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindStoreError, Comp: "store", ArticleID: id, Err: err.Error()})
				}
				return ui.ItemMarkedRead{ID: id}
			}
		},

		LoadArticle: func(ctx context.Context, s feed.Summary, seq int, force bool) tea.Cmd {
			return func() tea.Msg {
				get := a.cache.GetOrFetch
				if force {
					get = a.cache.Refresh
				}
				res, score, err := get(ctx, s)
				return ui.ArticleLoaded{ID: s.ID, Seq: seq, Result: res, Score: score, Err: err}
			}
		},
	}
}
