// Package httpclient holds the HTTP plumbing shared by the feed and article
// fetchers: a default client, browser-like request headers and per-host
// request pacing.
package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a single request made with Default().
const DefaultTimeout = 20 * time.Second

const (
	desktopUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	alternateUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Accept values for the two kinds of documents we request.
const (
	AcceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	AcceptFeed = "application/rss+xml,application/atom+xml,application/xml;q=0.9,*/*;q=0.8"
)

// referers lists hosts that reject requests without a plausible Referer.
var referers = map[string]string{
	"mothership.sg":     "https://mothership.sg/",
	"straitstimes.com":  "https://www.straitstimes.com/",
	"theindependent.sg": "https://theindependent.sg/",
}

// Default returns a client with DefaultTimeout that follows redirects.
func Default() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

// SetHeaders applies browser-like headers to req. Brotli is deliberately not
// advertised: net/http only decodes gzip transparently. alternate switches to
// a second desktop User-Agent, used when the first one was refused.
func SetHeaders(req *http.Request, accept string, alternate bool) {
	ua := desktopUA
	if alternate {
		ua = alternateUA
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-SG,en;q=0.9")
	if ref := RefererFor(req.URL.Hostname()); ref != "" {
		req.Header.Set("Referer", ref)
	}
}

// RefererFor returns the Referer a host expects, or "".
func RefererFor(host string) string {
	host = strings.ToLower(host)
	for suffix, ref := range referers {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return ref
		}
	}
	return ""
}

// HostLimiter paces requests per host. The zero value is not usable; create
// one with NewHostLimiter.
type HostLimiter struct {
	mu       sync.Mutex
	every    time.Duration
	limiters map[string]*rate.Limiter
}

// NewHostLimiter allows one request per host every interval. An interval
// <= 0 disables pacing.
func NewHostLimiter(every time.Duration) *HostLimiter {
	return &HostLimiter{every: every, limiters: make(map[string]*rate.Limiter)}
}

// ErrPacingDeadline is returned by HostLimiter.Wait when the host's next
// slot falls after ctx's deadline. No request was made. It matches
// context.DeadlineExceeded under errors.Is.
var ErrPacingDeadline = fmt.Errorf("httpclient: host pacing would outlast the deadline: %w", context.DeadlineExceeded)

// Wait blocks until a request to rawURL's host may proceed or ctx ends. It
// fails fast with ErrPacingDeadline when the wait cannot finish in time.
func (h *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	if h == nil || h.every <= 0 {
		return ctx.Err()
	}
	if err := h.limiter(hostOf(rawURL)).Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return ErrPacingDeadline
	}
	return nil
}

func (h *HostLimiter) limiter(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Every(h.every), 1)
		h.limiters[host] = l
	}
	return l
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
