package feed

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/newscli/internal/sources"
)

const twoItemRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <item>
      <title>Article 1</title>
      <link>http://example.com/article1</link>
      <description>First article</description>
      <pubDate>Mon, 01 Jan 2024 12:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Article 2</title>
      <link>http://example.com/article2</link>
      <description>Second article</description>
      <pubDate>Mon, 01 Jan 2024 11:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func newTestFetcher() *Fetcher {
	return NewFetcher(5*time.Second, WithBackoff(time.Millisecond))
}

func TestFetcherFetch(t *testing.T) {
	var ua atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(twoItemRSS))
	}))
	defer server.Close()

	src := sources.Source{Name: "Test Feed", URL: server.URL}
	items, err := newTestFetcher().Fetch(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Article 1", items[0].Title)
	assert.Equal(t, "http://example.com/article1", items[0].Link)
	assert.Equal(t, "Test Feed", items[0].Source.Name)
	assert.Contains(t, ua.Load().(string), "Mozilla/5.0")
}

func TestFetcherFetch404IsFetchError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestFetcher().Fetch(context.Background(), sources.Source{Name: "Gone", URL: server.URL})
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe), "want *FetchError, got %T", err)
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	assert.Equal(t, int32(1), calls.Load(), "a 404 is not retried")
}

func TestFetcherFetchInvalidXMLIsParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte("<rss><channel><item>"))
	}))
	defer server.Close()

	_, err := newTestFetcher().Fetch(context.Background(), sources.Source{Name: "Broken", URL: server.URL})
	require.Error(t, err)

	var pe *ParseError
	assert.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
	var fe *FetchError
	assert.False(t, errors.As(err, &fe))
}

func TestFetcherFetchHTMLIsFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<!DOCTYPE html><html><body>Login</body></html>"))
	}))
	defer server.Close()

	_, err := newTestFetcher().Fetch(context.Background(), sources.Source{Name: "Paywall", URL: server.URL})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHTMLInsteadOfFeed))
}

func TestFetcherRetriesBlockWithAlternateAgent(t *testing.T) {
	var calls atomic.Int32
	var agents []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		agents = append(agents, r.Header.Get("User-Agent"))
		if n == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(twoItemRSS))
	}))
	defer server.Close()

	items, err := newTestFetcher().Fetch(context.Background(), sources.Source{Name: "Picky", URL: server.URL})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	require.Len(t, agents, 2)
	assert.NotEqual(t, agents[0], agents[1])
}

func TestFetcherRetriesTransportErrorOnce(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		w.Write([]byte(twoItemRSS))
	}))
	defer server.Close()

	items, err := newTestFetcher().Fetch(context.Background(), sources.Source{Name: "Flaky", URL: server.URL})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetcherUsesFallbackURL(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer primary.Close()
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(twoItemRSS))
	}))
	defer fallback.Close()

	src := sources.Source{Name: "AP", URL: primary.URL, Fallback: fallback.URL}
	items, err := newTestFetcher().Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestFetcherUnreachableHost(t *testing.T) {
	// Reserve a port and close it so the dial is refused.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()

	_, err = newTestFetcher().Fetch(context.Background(), sources.Source{Name: "Down", URL: "http://" + addr + "/rss"})
	var fe *FetchError
	require.True(t, errors.As(err, &fe), "want *FetchError, got %T: %v", err, err)
	assert.Zero(t, fe.StatusCode)
}

func TestFetcherRespectsCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := newTestFetcher().Fetch(ctx, sources.Source{Name: "Slow", URL: server.URL})
	assert.ErrorIs(t, err, context.Canceled)
}
