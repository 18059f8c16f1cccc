package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abelbrown/newscli/internal/digest"
	"github.com/abelbrown/newscli/internal/feed"
	"github.com/abelbrown/newscli/internal/filter"
	"github.com/abelbrown/newscli/internal/ui"
)

// digestOptions selects what a digest contains.
type digestOptions struct {
	format    string
	source    string        // one source by name; empty for all
	since     time.Duration // 0 keeps everything
	perSource int           // 0 keeps everything
}

// runDigest refreshes once and writes the summaries, deduplicated across
// sources and scored on their summary text, as a feed document. Failed
// sources are reported on stderr; the digest fails only when no source
// could be read.
func runDigest(ctx context.Context, a *app, opts digestOptions, w io.Writer) error {
	f, err := digest.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	title := "newscli digest"
	var results []ui.SourceRefreshed
	if opts.source != "" {
		src, ok := a.registry.ByName(opts.source)
		if !ok {
			return fmt.Errorf("unknown source %q", opts.source)
		}
		title = "newscli: " + src.Name
		results = []ui.SourceRefreshed{a.coord.RefreshSource(ctx, src)}
	} else {
		results = a.coord.RefreshAll(ctx, nil)
	}

	var summaries []feed.Summary
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "newscli: %s: %v\n", r.Source.Name, r.Err)
			errs = append(errs, r.Err)
			continue
		}
		summaries = append(summaries, r.Summaries...)
	}
	if len(results) > 0 && len(errs) == len(results) {
		return fmt.Errorf("no source could be refreshed: %w", errors.Join(errs...))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now()
	summaries = filter.Dedup(summaries)
	if opts.since > 0 {
		summaries = filter.ByAge(summaries, opts.since, now)
	}
	if opts.perSource > 0 {
		summaries = filter.LimitPerSource(summaries, opts.perSource)
	}

	entries := make([]digest.Entry, len(summaries))
	for i, s := range summaries {
		entries[i] = digest.Entry{Summary: s, Score: a.cache.ScoreSummary(s)}
	}
	return digest.Write(w, f, title, entries, now)
}
