package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/abelbrown/newscli/internal/httpclient"
	"github.com/abelbrown/newscli/internal/otel"
	"github.com/abelbrown/newscli/internal/sources"
)

// maxFeedBytes bounds how much of a feed response is read.
const maxFeedBytes = 8 << 20

// ErrHTMLInsteadOfFeed is wrapped by FetchError when a feed URL serves a web
// page rather than a syndication document.
var ErrHTMLInsteadOfFeed = errors.New("got HTML instead of a feed")

// FetchError reports a feed that could not be retrieved.
type FetchError struct {
	Source     string
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch feed %s: HTTP %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("fetch feed %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher retrieves and parses feeds.
type Fetcher struct {
	client   *http.Client
	limiter  *httpclient.HostLimiter
	logger   *otel.Logger
	backoff  time.Duration
	maxItems int
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets the HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithLimiter sets per-host pacing.
func WithLimiter(l *httpclient.HostLimiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

// WithLogger sets the event logger.
func WithLogger(l *otel.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// WithBackoff sets the pause before the single transport-error retry.
func WithBackoff(d time.Duration) Option {
	return func(f *Fetcher) { f.backoff = d }
}

// WithMaxItems caps entries per feed.
func WithMaxItems(n int) Option {
	return func(f *Fetcher) { f.maxItems = n }
}

// NewFetcher creates a Fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: timeout},
		backoff:  500 * time.Millisecond,
		maxItems: DefaultMaxItems,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = otel.NewNullLogger()
	}
	return f
}

// Fetch retrieves src and parses it. Failures to retrieve are *FetchError,
// failures to parse are *ParseError. When the primary URL fails and the
// source has a Fallback, the fallback is tried once.
func (f *Fetcher) Fetch(ctx context.Context, src sources.Source) ([]Summary, error) {
	start := time.Now()
	f.logger.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindFeedStart, Comp: "feed", Source: src.Name, URL: src.URL})

	raw, err := f.download(ctx, src, src.URL)
	if err != nil && src.Fallback != "" && ctx.Err() == nil {
		f.logger.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindFeedRetry, Comp: "feed", Source: src.Name, URL: src.Fallback, Err: err.Error(), Msg: "fallback url"})
		raw, err = f.download(ctx, src, src.Fallback)
	}
	if err != nil {
		f.logger.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindFeedError, Comp: "feed", Source: src.Name, Err: err.Error(), Dur: time.Since(start)})
		return nil, err
	}

	items, err := ParseN(raw, src, f.maxItems)
	if err != nil {
		f.logger.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindFeedError, Comp: "feed", Source: src.Name, Err: err.Error(), Dur: time.Since(start)})
		return nil, err
	}

	f.logger.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindFeedComplete, Comp: "feed", Source: src.Name, Count: len(items), Dur: time.Since(start)})
	return items, nil
}

// download makes at most two attempts: a transport error is retried after
// the backoff, a 403/429 is retried at once with the alternate User-Agent.
func (f *Fetcher) download(ctx context.Context, src sources.Source, rawURL string) ([]byte, error) {
	var lastErr error
	alternate := false
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			f.logger.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindFeedRetry, Comp: "feed", Source: src.Name, URL: rawURL, Err: lastErr.Error()})
		}

		raw, status, err := f.get(ctx, rawURL, alternate)
		if err == nil {
			return raw, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = &FetchError{Source: src.Name, URL: rawURL, StatusCode: status, Err: err}
		if attempt == 1 {
			break
		}

		switch {
		case status == http.StatusForbidden || status == http.StatusTooManyRequests:
			alternate = true
		case status == 0 && !errors.Is(err, ErrHTMLInsteadOfFeed):
			if err := sleep(ctx, f.backoff); err != nil {
				return nil, err
			}
		default:
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (f *Fetcher) get(ctx context.Context, rawURL string, alternate bool) ([]byte, int, error) {
	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	httpclient.SetHeaders(req, httpclient.AcceptFeed, alternate)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("read body: %w", err)
	}
	if looksLikeHTML(resp.Header.Get("Content-Type"), raw) {
		return nil, 0, ErrHTMLInsteadOfFeed
	}
	return raw, resp.StatusCode, nil
}

var feedPrefixes = [][]byte{[]byte("<?xml"), []byte("<rss"), []byte("<feed"), []byte("<rdf"), []byte("{")}

func looksLikeHTML(contentType string, raw []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(raw[:min(len(raw), 512)]))
	for _, p := range feedPrefixes {
		if bytes.HasPrefix(head, p) {
			return false
		}
	}
	if bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html")) {
		return true
	}
	return strings.Contains(strings.ToLower(contentType), "text/html")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
