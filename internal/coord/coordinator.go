// Package coord provides background refresh coordination for newscli.
package coord

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/newscli/internal/feed"
	"github.com/abelbrown/newscli/internal/otel"
	"github.com/abelbrown/newscli/internal/sources"
	"github.com/abelbrown/newscli/internal/store"
	"github.com/abelbrown/newscli/internal/ui"
)

const (
	defaultTimeout  = 20 * time.Second
	defaultInterval = 10 * time.Minute
	defaultLimit    = 5
)

// fetcher interface for dependency injection (testing).
type fetcher interface {
	Fetch(ctx context.Context, src sources.Source) ([]feed.Summary, error)
}

// Notifier receives refresh results. *tea.Program satisfies it.
type Notifier interface {
	Send(msg tea.Msg)
}

// Coordinator manages background refreshes of the configured sources.
// Uses context cancellation as the ONLY stop mechanism.
type Coordinator struct {
	fetcher  fetcher
	store    *store.Store // optional: nil disables persistence
	logger   *otel.Logger
	sources  []sources.Source // IMMUTABLE: set at construction, never modified
	timeout  time.Duration
	interval time.Duration
	limit    int
	now      func() time.Time
	wg       sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithStore saves snapshots and refresh status to s.
func WithStore(s *store.Store) Option {
	return func(c *Coordinator) { c.store = s }
}

// WithLogger sets the event logger.
func WithLogger(l *otel.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithTimeout bounds each source refresh.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithInterval sets the periodic refresh interval; 0 disables it.
func WithInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.interval = d }
}

// WithLimit caps concurrent source refreshes.
func WithLimit(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.limit = n
		}
	}
}

// NewCoordinator creates a Coordinator with the real feed fetcher.
func NewCoordinator(f *feed.Fetcher, srcs []sources.Source, opts ...Option) *Coordinator {
	return NewCoordinatorWithFetcher(f, srcs, opts...)
}

// NewCoordinatorWithFetcher allows injecting a custom fetcher (for testing).
func NewCoordinatorWithFetcher(f fetcher, srcs []sources.Source, opts ...Option) *Coordinator {
	// Copy sources slice to ensure immutability
	sourcesCopy := make([]sources.Source, len(srcs))
	copy(sourcesCopy, srcs)

	c := &Coordinator{
		fetcher:  f,
		sources:  sourcesCopy,
		timeout:  defaultTimeout,
		interval: defaultInterval,
		limit:    defaultLimit,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = otel.NewNullLogger()
	}
	return c
}

// Sources returns a copy of the coordinated sources.
func (c *Coordinator) Sources() []sources.Source {
	out := make([]sources.Source, len(c.sources))
	copy(out, c.sources)
	return out
}

// Start begins background refreshing. Call with a cancellable context.
// Performs an initial refresh immediately, then one per interval.
func (c *Coordinator) Start(ctx context.Context, n Notifier) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		c.RefreshAll(ctx, n)
		if c.interval <= 0 {
			return
		}

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.RefreshAll(ctx, n)
			}
		}
	}()
}

// Wait blocks until the background goroutine exits.
// Call after canceling the context passed to Start.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// RefreshAll refreshes every source in parallel and returns the results in
// source order. Each completion is also sent to n as it happens (order
// non-deterministic); n may be nil. A failing source never stops the others.
func (c *Coordinator) RefreshAll(ctx context.Context, n Notifier) []ui.SourceRefreshed {
	if n != nil {
		n.Send(ui.RefreshStarted{})
	}

	results := make([]ui.SourceRefreshed, len(c.sources))
	var g errgroup.Group
	g.SetLimit(c.limit)

	for i, src := range c.sources {
		g.Go(func() error {
			// Early exit if context cancelled
			if ctx.Err() != nil {
				results[i] = ui.SourceRefreshed{Source: src, Err: ctx.Err(), At: c.now()}
				return nil
			}
			results[i] = c.RefreshSource(ctx, src)
			if n != nil {
				n.Send(results[i])
			}
			return nil // never fail the group - errors reported per-source
		})
	}

	_ = g.Wait()
	return results
}

// RefreshSource fetches one source under the refresh timeout and records
// the outcome in the store when one is configured.
func (c *Coordinator) RefreshSource(ctx context.Context, src sources.Source) ui.SourceRefreshed {
	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	items, err := c.fetcher.Fetch(fetchCtx, src)
	msg := ui.SourceRefreshed{Source: src, Summaries: items, Err: err, At: c.now()}

	if c.store == nil || ctx.Err() != nil {
		return msg
	}
	if err == nil {
		if serr := c.store.SaveSnapshot(src, items, msg.At); serr != nil {
			c.storeError(src, serr)
		}
		msg.Read = c.readSet(src, items)
	}
	if serr := c.store.RecordRefresh(src, len(items), err, msg.At); serr != nil {
		c.storeError(src, serr)
	}
	return msg
}

// LoadSnapshots returns the saved summaries of every source that has some.
// Without a store it returns nil.
func (c *Coordinator) LoadSnapshots() []ui.SnapshotLoaded {
	if c.store == nil {
		return nil
	}
	var out []ui.SnapshotLoaded
	for _, src := range c.sources {
		items, err := c.store.LoadSnapshot(src)
		if err != nil {
			c.storeError(src, err)
			continue
		}
		if len(items) == 0 {
			continue
		}
		out = append(out, ui.SnapshotLoaded{Source: src, Summaries: items, Read: c.readSet(src, items)})
	}
	return out
}

// MarkRead records a read mark. Without a store it is a no-op.
func (c *Coordinator) MarkRead(id string) error {
	if c.store == nil {
		return nil
	}
	return c.store.MarkRead(id)
}

func (c *Coordinator) readSet(src sources.Source, items []feed.Summary) map[string]bool {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	read, err := c.store.ReadSet(ids)
	if err != nil {
		c.storeError(src, err)
		return nil
	}
	return read
}

func (c *Coordinator) storeError(src sources.Source, err error) {
	c.logger.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindStoreError, Comp: "coord", Source: src.Name, Err: err.Error()})
}
