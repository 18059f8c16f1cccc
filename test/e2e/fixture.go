// Package e2e drives the newscli binary in a pseudo-terminal.
package e2e

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abelbrown/newscli/internal/feed"
	"github.com/abelbrown/newscli/internal/sources"
	"github.com/abelbrown/newscli/internal/store"
)

const fixtureRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Fixture</title>
    <item>
      <title>Fixture Item One</title>
      <link>%s/story</link>
      <description>A deterministic item for UI tests.</description>
      <pubDate>%s</pubDate>
    </item>
  </channel>
</rss>`

// newFixtureServer serves one feed at /rss and its article at /story.
func newFixtureServer() *httptest.Server {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rss":
			w.Header().Set("Content-Type", "application/rss+xml")
			fmt.Fprintf(w, fixtureRSS, srv.URL, time.Now().Add(-10*time.Minute).UTC().Format(time.RFC1123Z))
		case "/story":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprintf(w, "<html><head><title>Fixture Item One</title></head><body><article><p>%s</p></article></body></html>",
				strings.Repeat("The fixture council met on Tuesday and approved the fixture budget. ", 8))
		default:
			http.NotFound(w, r)
		}
	}))
	return srv
}

// seedDataDir writes a config, a sources file pointing at feedURL and a
// saved snapshot of that source into dataDir. It returns the source.
func seedDataDir(dataDir, feedURL string) (sources.Source, error) {
	src := sources.Source{Name: "Fixture", URL: feedURL}

	config := "feed_timeout: 2s\narticle_timeout: 2s\nrefresh_interval: 0s\nhost_interval: 0s\n"
	if err := os.WriteFile(filepath.Join(dataDir, "config.yaml"), []byte(config), 0o644); err != nil {
		return src, err
	}
	list := fmt.Sprintf(`[{"name": %q, "url": %q}]`, src.Name, src.URL)
	if err := os.WriteFile(filepath.Join(dataDir, "sources.json"), []byte(list), 0o644); err != nil {
		return src, err
	}

	st, err := store.Open(filepath.Join(dataDir, "newscli.db"))
	if err != nil {
		return src, err
	}
	defer st.Close()

	link := strings.TrimSuffix(feedURL, "/rss") + "/story"
	published := time.Now().Add(-10 * time.Minute)
	items := []feed.Summary{{
		ID:          feed.ArticleID(link),
		Title:       "Fixture Item One",
		Link:        link,
		Published:   &published,
		SummaryText: "A deterministic item for UI tests.",
		Source:      src,
	}}
	return src, st.SaveSnapshot(src, items, time.Now())
}
