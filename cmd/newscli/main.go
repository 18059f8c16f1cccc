// Command newscli is a terminal news reader: it refreshes RSS/Atom sources,
// fetches full article text on demand (falling back to the summary when a
// site refuses), and shows a heuristic tone and subjectivity reading.
//
// Usage:
//
//	newscli                         Run the TUI
//	newscli -digest atom|rss|json   Refresh once and print a scored feed
//	newscli -digest rss -source BBC Limit the digest to one source
//	newscli -digest atom -since 24h -per-source 10
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/abelbrown/newscli/internal/article"
	"github.com/abelbrown/newscli/internal/cache"
	"github.com/abelbrown/newscli/internal/config"
	"github.com/abelbrown/newscli/internal/coord"
	"github.com/abelbrown/newscli/internal/feed"
	"github.com/abelbrown/newscli/internal/httpclient"
	"github.com/abelbrown/newscli/internal/otel"
	"github.com/abelbrown/newscli/internal/sources"
	"github.com/abelbrown/newscli/internal/store"
	"github.com/abelbrown/newscli/internal/tone"
	"github.com/abelbrown/newscli/internal/ui"
)

// app bundles the wired components shared by the TUI and digest modes.
type app struct {
	cfg      *config.Config
	logger   *otel.Logger
	ring     *otel.Ring
	registry *sources.Registry
	store    *store.Store // nil when persistence is off or unavailable
	articles *article.Fetcher
	cache    *cache.Cache
	coord    *coord.Coordinator
}

func main() {
	var digestOpts digestOptions
	flag.StringVar(&digestOpts.format, "digest", "", "print a scored feed (atom, rss or json) instead of running the TUI")
	flag.StringVar(&digestOpts.source, "source", "", "with -digest, only this source (by name)")
	flag.DurationVar(&digestOpts.since, "since", 0, "with -digest, drop summaries older than this (e.g. 24h)")
	flag.IntVar(&digestOpts.perSource, "per-source", 0, "with -digest, keep at most this many summaries per source")
	flag.Parse()

	// An optional .env in the working directory. Real environment variables
	// win over it.
	_ = godotenv.Load()

	a, cleanup, err := setup()
	if err != nil {
		log.Fatalf("newscli: %v", err)
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if digestOpts.format != "" {
		if err := runDigest(ctx, a, digestOpts, os.Stdout); err != nil {
			a.logger.Error(otel.KindError, "main", err)
			fmt.Fprintf(os.Stderr, "newscli: %v\n", err)
			cleanup()
			os.Exit(1)
		}
		return
	}

	runTUI(ctx, a)
}

// setup loads configuration and wires every component. The returned cleanup
// closes the store and flushes the event log.
func setup() (*app, func(), error) {
	cfg, cfgErr := config.Load()
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, nil, fmt.Errorf("create data directory: %w", err)
	}

	logger, closeLog := openEventLog(cfg.EventLogPath())
	ring := otel.NewRing(otel.DefaultRingSize)
	logger.SetRing(ring)
	logger.Info(otel.KindStartup, "main", "newscli starting")
	if cfgErr != nil {
		logger.Error(otel.KindConfigError, "config", cfgErr)
	}

	overrides, warnings := config.ReadSourceOverrides(cfg.SourcesFile)
	registry, loadWarnings := sources.Load(sources.Defaults(), overrides)
	for _, w := range append(warnings, loadWarnings...) {
		logger.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindConfigError, Comp: "registry", Err: w.Error()})
	}
	logger.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindRegistryLoad, Comp: "registry", Count: registry.Len()})

	lexicon := tone.DefaultLexicon()
	if cfg.LexiconFile != "" {
		lx, err := tone.LoadLexicon(cfg.LexiconFile)
		if err != nil {
			logger.Error(otel.KindConfigError, "tone", err)
		} else {
			lexicon = lx
		}
	}

	var st *store.Store
	if cfg.Persist {
		s, err := store.Open(cfg.DatabasePath())
		if err != nil {
			// Reading still works without persistence.
			logger.Error(otel.KindStoreError, "store", err)
		} else {
			st = s
		}
	}

	limiter := httpclient.NewHostLimiter(cfg.HostInterval)
	feeds := feed.NewFetcher(cfg.FeedTimeout,
		feed.WithLimiter(limiter),
		feed.WithLogger(logger),
		feed.WithBackoff(cfg.RetryBackoff),
		feed.WithMaxItems(cfg.MaxItems),
	)
	articles := article.NewFetcher(cfg.ArticleTimeout,
		article.WithLimiter(limiter),
		article.WithLogger(logger),
		article.WithMirror(cfg.MirrorOnBlock, cfg.MirrorPrefix),
		article.WithBackoff(cfg.RetryBackoff),
	)

	opts := []coord.Option{
		coord.WithLogger(logger),
		coord.WithTimeout(cfg.FeedTimeout),
		coord.WithInterval(cfg.RefreshInterval),
		coord.WithLimit(cfg.MaxConcurrentFeeds),
	}
	if st != nil {
		opts = append(opts, coord.WithStore(st))
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		ring:     ring,
		registry: registry,
		store:    st,
		articles: articles,
		cache:    cache.New(articles, tone.NewScorer(lexicon), logger),
		coord:    coord.NewCoordinator(feeds, registry.All(), opts...),
	}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			if st != nil {
				if err := st.Close(); err != nil {
					logger.Error(otel.KindStoreError, "store", err)
				}
			}
			logger.Info(otel.KindShutdown, "main", "newscli stopped")
			closeLog()
		})
	}
	return a, cleanup, nil
}

// openEventLog opens the JSONL event log, falling back to a discarding
// logger when the file cannot be opened.
func openEventLog(path string) (*otel.Logger, func()) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "newscli: event log disabled: %v\n", err)
		l := otel.NewNullLogger()
		return l, l.Close
	}
	l := otel.NewLogger(f)
	return l, func() {
		l.Close()
		f.Close()
	}
}

func runTUI(ctx context.Context, a *app) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prog := &programRef{}
	model := ui.NewAppWithConfig(uiConfig(ctx, a, prog))
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	prog.Set(program)

	a.coord.Start(ctx, prog)

	// Run UI (blocks until quit)
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		a.logger.Error(otel.KindError, "main", err)
		log.Printf("Error running program: %v", err)
	}

	// Graceful shutdown
	cancel()
	a.coord.Wait()
}
