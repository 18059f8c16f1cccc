package feed

import (
	"errors"
	"testing"
	"time"

	"github.com/gorilla/feeds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/newscli/internal/sources"
)

var testSource = sources.Source{Name: "Test Feed", URL: "https://example.com/feed.xml"}

const unorderedRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Test Feed</title>
    <item>
      <title>Older</title>
      <link>https://example.com/older?utm_source=rss</link>
      <description>Older article</description>
      <pubDate>Mon, 01 Jan 2024 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Undated</title>
      <link>https://example.com/undated</link>
      <description>&lt;p&gt;No date &lt;b&gt;here&lt;/b&gt;&lt;/p&gt;</description>
    </item>
    <item>
      <title>Newest</title>
      <link>https://example.com/newest</link>
      <description>Newest article</description>
      <dc:creator>Jane Doe</dc:creator>
      <pubDate>Mon, 01 Jan 2024 12:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Tie A</title>
      <link>https://example.com/tie-a</link>
      <pubDate>Mon, 01 Jan 2024 11:00:00 GMT</pubDate>
      <content:encoded><![CDATA[<p>Body of tie A.</p>]]></content:encoded>
    </item>
    <item>
      <title>Tie B</title>
      <link>https://example.com/tie-b</link>
      <pubDate>Mon, 01 Jan 2024 11:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func titles(list []Summary) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.Title
	}
	return out
}

func TestParse_SortsNewestFirstWithStableTies(t *testing.T) {
	items, err := Parse([]byte(unorderedRSS), testSource)
	require.NoError(t, err)

	assert.Equal(t, []string{"Newest", "Tie A", "Tie B", "Older", "Undated"}, titles(items))
}

func TestParse_StableIDsAcrossParses(t *testing.T) {
	first, err := Parse([]byte(unorderedRSS), testSource)
	require.NoError(t, err)
	second, err := Parse([]byte(unorderedRSS), testSource)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Len(t, first[i].ID, 16)
	}

	// The tracking parameter does not take part in the id.
	older := first[3]
	assert.Equal(t, ArticleID("https://example.com/older"), older.ID)
}

func TestParse_OptionalFieldsRepresentAbsence(t *testing.T) {
	items, err := Parse([]byte(unorderedRSS), testSource)
	require.NoError(t, err)

	byTitle := make(map[string]Summary)
	for _, s := range items {
		byTitle[s.Title] = s
	}

	newest := byTitle["Newest"]
	require.NotNil(t, newest.Author)
	assert.Equal(t, "Jane Doe", *newest.Author)
	require.NotNil(t, newest.Published)
	assert.True(t, newest.Published.Equal(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)))

	undated := byTitle["Undated"]
	assert.Nil(t, undated.Published)
	assert.Nil(t, undated.Author)
	assert.Equal(t, "No date here", undated.SummaryText)
	assert.Equal(t, testSource, undated.Source)

	tieA := byTitle["Tie A"]
	require.NotNil(t, tieA.ContentHTML)
	assert.Equal(t, "Body of tie A.", tieA.SummaryText)
	assert.Nil(t, byTitle["Tie B"].ContentHTML)
	assert.Equal(t, "", byTitle["Tie B"].SummaryText)
}

func TestParse_AtomAndRSSFromSameFeed(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	src := &feeds.Feed{
		Title:   "Generated",
		Link:    &feeds.Link{Href: "https://gen.example/"},
		Created: now,
		Items: []*feeds.Item{
			{Title: "First", Link: &feeds.Link{Href: "https://gen.example/1"}, Description: "one", Created: now.Add(-time.Hour), Author: &feeds.Author{Name: "Ann"}},
			{Title: "Second", Link: &feeds.Link{Href: "https://gen.example/2"}, Description: "two", Created: now},
		},
	}

	rss, err := src.ToRss()
	require.NoError(t, err)
	atom, err := src.ToAtom()
	require.NoError(t, err)

	fromRSS, err := Parse([]byte(rss), testSource)
	require.NoError(t, err)
	fromAtom, err := Parse([]byte(atom), testSource)
	require.NoError(t, err)

	assert.Equal(t, []string{"Second", "First"}, titles(fromRSS))
	assert.Equal(t, []string{"Second", "First"}, titles(fromAtom))
	for i := range fromRSS {
		assert.Equal(t, fromRSS[i].ID, fromAtom[i].ID, "same link yields same id in both formats")
	}
}

func TestParse_MalformedInput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "   \n"},
		{"not_xml", "not valid xml"},
		{"truncated", `<?xml version="1.0"?><rss version="2.0"><channel><item><title>x`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw), testSource)
			require.Error(t, err)
			var pe *ParseError
			assert.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
		})
	}
}

func TestParseN_CapsEntries(t *testing.T) {
	items, err := ParseN([]byte(unorderedRSS), testSource, 2)
	require.NoError(t, err)
	// The cap applies in feed order before sorting.
	assert.Equal(t, []string{"Older", "Undated"}, titles(items))
}

func TestCanonicalLink(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "https://example.com/a/b", "https://example.com/a/b"},
		{"case", "HTTPS://Example.COM/a/B", "https://example.com/a/B"},
		{"tracking_stripped", "https://example.com/a?utm_source=x&utm_medium=y&fbclid=z", "https://example.com/a"},
		{"keeps_real_params_sorted", "https://example.com/a?z=1&utm_campaign=q&id=7", "https://example.com/a?id=7&z=1"},
		{"fragment_dropped", "https://example.com/a#comments", "https://example.com/a"},
		{"trailing_slash", "https://example.com/a/", "https://example.com/a"},
		{"root", "https://example.com/", "https://example.com"},
		{"default_port", "https://example.com:443/a", "https://example.com/a"},
		{"custom_port", "http://example.com:8080/a", "http://example.com:8080/a"},
		{"not_a_url", "  just text ", "just text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalLink(tt.in))
		})
	}
}

func TestArticleID_StableUnderTrackingNoise(t *testing.T) {
	a := ArticleID("https://example.com/story?utm_source=rss")
	b := ArticleID("https://EXAMPLE.com/story/#top")
	c := ArticleID("https://example.com/other")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short_string", "hello", 10, "hello"},
		{"exact_length", "hello", 5, "hello"},
		{"needs_truncation", "hello world", 8, "hello..."},
		{"maxLen_3", "hello", 3, "hel"},
		{"multibyte", "héllo wörld", 7, "héll..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncate(tt.input, tt.maxLen))
		})
	}
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "a b", PlainText("  a \n\t b "))
	assert.Equal(t, "One Two", PlainText("<p>One</p><p>Two</p>"))
	assert.Equal(t, "Fish & chips", PlainText("Fish &amp; chips"))
	assert.Equal(t, "kept", PlainText("<script>drop()</script>kept"))
}
