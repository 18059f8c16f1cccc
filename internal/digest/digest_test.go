package digest

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/newscli/internal/feed"
	"github.com/abelbrown/newscli/internal/sources"
	"github.com/abelbrown/newscli/internal/tone"
)

var src = sources.Source{Name: "Example", URL: "https://example.com/rss"}

func sampleEntries() []Entry {
	pub := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	author := "Jane Roe"
	scorer := tone.NewScorer(tone.DefaultLexicon())

	critical := feed.Summary{
		ID:          feed.ArticleID("https://example.com/a"),
		Title:       "Council response criticised",
		Link:        "https://example.com/a",
		Published:   &pub,
		Author:      &author,
		SummaryText: "Critics say the council clearly failed residents and the rollout was a disaster that should never have happened at all.",
		Source:      src,
	}
	plain := feed.Summary{
		ID:          feed.ArticleID("https://example.com/b"),
		Title:       "Bridge reopens",
		Link:        "https://example.com/b",
		SummaryText: "Short.",
		Source:      src,
	}

	s1 := scorer.Score(critical.SummaryText)
	s1.ArticleID, s1.Basis = critical.ID, tone.BasisSummary
	s2 := scorer.Score(plain.SummaryText)
	s2.ArticleID, s2.Basis = plain.ID, tone.BasisSummary
	return []Entry{{Summary: critical, Score: s1}, {Summary: plain, Score: s2}}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"atom": FormatAtom, " RSS ": FormatRSS, "Json": FormatJSON} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("opml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestWriteRSSRoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatRSS, "newscli digest", sampleEntries(), now))

	parsed, err := feed.Parse(buf.Bytes(), sources.Source{Name: "digest", URL: "file://digest"})
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	byLink := map[string]feed.Summary{}
	for _, s := range parsed {
		byLink[s.Link] = s
	}
	a := byLink["https://example.com/a"]
	assert.Equal(t, "Council response criticised", a.Title)
	assert.Contains(t, a.SummaryText, "Critical lean")
	assert.Contains(t, a.SummaryText, "disaster")
	require.NotNil(t, a.Published)
	assert.True(t, a.Published.Equal(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)))

	b := byLink["https://example.com/b"]
	assert.Contains(t, b.SummaryText, "Mostly neutral language")
}

func TestWriteAtomRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatAtom, "newscli digest", sampleEntries(), time.Now()))
	assert.Contains(t, buf.String(), "<feed")

	parsed, err := feed.Parse(buf.Bytes(), src)
	require.NoError(t, err)
	assert.Len(t, parsed, 2)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, "newscli digest", sampleEntries(), time.Now()))

	var doc struct {
		Title string `json:"title"`
		Items []struct {
			URL     string `json:"url"`
			Summary string `json:"summary"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "newscli digest", doc.Title)
	require.Len(t, doc.Items, 2)
	assert.Equal(t, "https://example.com/a", doc.Items[0].URL)
}

func TestWriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, Format("opml"), "x", nil, time.Now()))
}

func TestDescribe(t *testing.T) {
	s := feed.Summary{Title: "T", SummaryText: "  body  ", Source: src}
	score := tone.Score{Tone: -0.5, Subjectivity: 0.6, FlaggedTerms: []string{"clearly", "disaster"}, Basis: tone.BasisFullText}

	assert.Equal(t,
		"body\n\n[Example] Tone -0.50 (Critical lean), subjectivity 0.60 (Strongly opinionated tone); flagged: clearly, disaster; scored on full text",
		Describe(s, score))

	bare := Describe(feed.Summary{Source: src}, tone.Score{FlaggedTerms: []string{}})
	assert.Equal(t, "[Example] Tone +0.00 (Balanced), subjectivity 0.00 (Mostly neutral language)", bare)
}
