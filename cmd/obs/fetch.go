package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/abelbrown/newscli/internal/article"
	"github.com/abelbrown/newscli/internal/feed"
	"github.com/abelbrown/newscli/internal/otel"
	"github.com/abelbrown/newscli/internal/tone"
)

func runFetch() {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	mirror := fs.Bool("mirror", false, "Use the text mirror for blocked sites even if the config disables it")
	timeout := fs.Duration("timeout", 0, "Per-request timeout (default: article_timeout from config)")
	preview := fs.Int("preview", 400, "Characters of full text to print (0 for all)")
	verbose := fs.Bool("v", false, "Print retrieval events to stderr")
	fs.Parse(os.Args[1:])

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: obs fetch [--mirror] [--timeout D] [--preview N] [-v] <url>")
		os.Exit(1)
	}
	link := fs.Arg(0)

	cfg := loadConfig()
	if *timeout <= 0 {
		*timeout = cfg.ArticleTimeout
	}

	logger := otel.NewNullLogger()
	if *verbose {
		logger = otel.NewLogger(os.Stderr)
	}
	defer logger.Close()

	fetcher := article.NewFetcher(*timeout,
		article.WithLogger(logger),
		article.WithMirror(cfg.MirrorOnBlock || *mirror, cfg.MirrorPrefix),
		article.WithBackoff(cfg.RetryBackoff),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	start := time.Now()
	res, err := fetcher.Fetch(ctx, feed.ArticleID(link), link)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cancelled: %v\n", err)
		os.Exit(1)
	}
	writeResult(os.Stdout, res, time.Since(start), newScorer(cfg), *preview)
	if res.Status != article.OK {
		os.Exit(2)
	}
}

// writeResult prints a retrieval outcome and, for full text, its score.
func writeResult(w io.Writer, res article.Result, took time.Duration, scorer *tone.Scorer, preview int) {
	fmt.Fprintf(w, "Article:  %s\n", res.ArticleID)
	fmt.Fprintf(w, "Status:   %s (%s)\n", res.Status, took.Round(time.Millisecond))

	switch res.Status {
	case article.OK:
		fmt.Fprintf(w, "Via:      %s\n", res.Via)
	case article.Blocked:
		var be *article.BlockedError
		if errors.As(res.Err, &be) {
			fmt.Fprintf(w, "HTTP:     %d\n", be.StatusCode)
			if be.MirrorErr != nil {
				fmt.Fprintf(w, "Mirror:   %v\n", be.MirrorErr)
			}
		}
		fmt.Fprintf(w, "Error:    %v\n", res.Err)
		return
	default:
		fmt.Fprintf(w, "Error:    %v\n", res.Err)
		return
	}

	fmt.Fprintf(w, "Title:    %s\n", res.Title)
	if res.Byline != nil {
		fmt.Fprintf(w, "Byline:   %s\n", *res.Byline)
	}
	if !res.HasText() {
		return
	}
	text := *res.FullText
	fmt.Fprintf(w, "Length:   %d chars\n\n", len([]rune(text)))

	writeScore(w, scorer.Score(text))
	fmt.Fprintln(w)
	if preview > 0 {
		text = truncate(text, preview)
	}
	fmt.Fprintln(w, text)
}
