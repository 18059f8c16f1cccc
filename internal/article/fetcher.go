package article

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
)

// DefaultMirrorPrefix is the text mirror used when none is configured.
const DefaultMirrorPrefix = "https://r.jina.ai/"

// maxArticleBytes bounds how much of a page is read.
const maxArticleBytes = 4 << 20

var (
	errEmptyBody = errors.New("no extractable text")
	errNotHTML   = errors.New("response is not an HTML page")
)

// statusError is a non-2xx answer.
type statusError struct {
	code int
}

func (e *statusError) Error() string { return fmt.Sprintf("HTTP %d", e.code) }

// MirrorURL builds the mirror request target for link.
func MirrorURL(prefix, link string) string {
	if prefix == "" {
		prefix = DefaultMirrorPrefix
	}
	return prefix + strings.TrimSpace(link)
}

// Fetcher runs the retrieval policy. It holds no per-article state; caching
// and single flight belong to the caller.
type Fetcher struct {
	client       *http.Client
	limiter      *httpclient.HostLimiter
	logger       *otel.Logger
	mirror       bool
	mirrorPrefix string
	backoff      time.Duration
	now          func() time.Time
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

// WithMirror enables the mirror fallback for blocked articles. An empty
// prefix selects DefaultMirrorPrefix.
func WithMirror(enabled bool, prefix string) Option {
	return func(f *Fetcher) {
		f.mirror = enabled
		if prefix != "" {
			f.mirrorPrefix = prefix
		}
	}
}

// WithBackoff sets the pause before the single retry.
func WithBackoff(d time.Duration) Option {
	return func(f *Fetcher) { f.backoff = d }
}

// NewFetcher creates a Fetcher with the given per-request timeout. The mirror
// is off unless WithMirror enables it.
func NewFetcher(timeout time.Duration, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:       &http.Client{Timeout: timeout},
		mirrorPrefix: DefaultMirrorPrefix,
		backoff:      500 * time.Millisecond,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = otel.NewNullLogger()
	}
	return f
}

// MirrorEnabled reports whether blocked articles go to the mirror.
func (f *Fetcher) MirrorEnabled() bool {
	return f.mirror
}

// Fetch resolves link's full text. It returns a terminal Result (OK,
// Blocked or Failed) and a nil error, or ctx.Err() and a zero Result when
// ctx ends first.
func (f *Fetcher) Fetch(ctx context.Context, articleID, link string) (Result, error) {
	start := time.Now()
	f.logger.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindArticleStart, Comp: "article", ArticleID: articleID, URL: link})

	content, code, err := f.get(ctx, link, true)
	if err == nil {
		return f.ok(articleID, content, ViaDirect, start), nil
	}
	if stop := f.stopped(ctx, err, articleID, start); stop != nil {
		return Result{}, stop
	}

	if !isBlock(code) {
		f.logger.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindArticleRetry, Comp: "article", ArticleID: articleID, URL: link, Code: code, Err: err.Error()})
		if err := sleep(ctx, f.backoff); err != nil {
			f.stopped(ctx, err, articleID, start)
			return Result{}, err
		}
		content, code, err = f.get(ctx, link, true)
		if err == nil {
			return f.ok(articleID, content, ViaDirect, start), nil
		}
		if stop := f.stopped(ctx, err, articleID, start); stop != nil {
			return Result{}, stop
		}
		if !isBlock(code) {
			return f.failed(articleID, link, err, start), nil
		}
	}

	return f.blocked(ctx, articleID, link, code, start)
}

func (f *Fetcher) blocked(ctx context.Context, articleID, link string, code int, start time.Time) (Result, error) {
	blockErr := &BlockedError{Link: link, StatusCode: code}
	if f.mirror {
		target := MirrorURL(f.mirrorPrefix, link)
		f.logger.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindArticleMirror, Comp: "article", ArticleID: articleID, URL: target, Code: code})

		content, _, err := f.get(ctx, target, false)
		if err == nil {
			return f.ok(articleID, content, ViaMirror, start), nil
		}
		if stop := f.stopped(ctx, err, articleID, start); stop != nil {
			return Result{}, stop
		}
		blockErr.MirrorErr = err
	}

	f.logger.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindArticleBlocked, Comp: "article", ArticleID: articleID, URL: link, Code: code, Err: blockErr.Error(), Dur: time.Since(start)})
	return Result{
		ArticleID: articleID,
		Status:    Blocked,
		Via:       ViaNone,
		FetchedAt: f.now(),
		Err:       blockErr,
	}, nil
}

func (f *Fetcher) ok(articleID string, c Content, via Via, start time.Time) Result {
	text := c.Text
	f.logger.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindArticleComplete, Comp: "article", ArticleID: articleID, Status: OK.String(), Via: via.String(), Count: len(text), Dur: time.Since(start)})
	return Result{
		ArticleID: articleID,
		Status:    OK,
		FullText:  &text,
		Title:     c.Title,
		Byline:    c.Byline,
		Via:       via,
		FetchedAt: f.now(),
	}
}

func (f *Fetcher) failed(articleID, link string, err error, start time.Time) Result {
	failErr := &FetchFailedError{Link: link, Err: err}
	f.logger.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindArticleFailed, Comp: "article", ArticleID: articleID, URL: link, Err: failErr.Error(), Dur: time.Since(start)})
	return Result{
		ArticleID: articleID,
		Status:    Failed,
		Via:       ViaNone,
		FetchedAt: f.now(),
		Err:       failErr,
	}
}

// stopped reports whether the run must end without a Result: ctx has
// ended, or err says the host could not be reached before ctx's deadline
// so no request was made. It returns the error to hand back, or nil.
func (f *Fetcher) stopped(ctx context.Context, err error, articleID string, start time.Time) error {
	stop := ctx.Err()
	if stop == nil && errors.Is(err, httpclient.ErrPacingDeadline) {
		stop = err
	}
	if stop != nil {
		f.logger.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindArticleCancel, Comp: "article", ArticleID: articleID, Err: stop.Error(), Dur: time.Since(start)})
	}
	return stop
}

// get performs one GET and extracts the page. The status code is 0 when no
// response arrived. Direct fetches require something that looks like HTML;
// mirror responses are usually plain text.
func (f *Fetcher) get(ctx context.Context, rawURL string, requireHTML bool) (Content, int, error) {
	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return Content{}, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Content{}, 0, fmt.Errorf("create request: %w", err)
	}
	httpclient.SetHeaders(req, httpclient.AcceptHTML, false)

	resp, err := f.client.Do(req)
	if err != nil {
		return Content{}, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return Content{}, resp.StatusCode, &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxArticleBytes))
	if err != nil {
		return Content{}, 0, fmt.Errorf("read body: %w", err)
	}
	if requireHTML && !looksLikeHTML(resp.Header.Get("Content-Type"), body) {
		return Content{}, resp.StatusCode, errNotHTML
	}

	content := Extract(string(body))
	if strings.TrimSpace(content.Text) == "" {
		return Content{}, resp.StatusCode, errEmptyBody
	}
	return content, resp.StatusCode, nil
}

func looksLikeHTML(contentType string, body []byte) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml") {
		return true
	}
	return bytes.HasPrefix(bytes.TrimSpace(body), []byte("<"))
}

func isBlock(code int) bool {
	return code == http.StatusForbidden || code == http.StatusTooManyRequests
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
