package ui

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abelbrown/newscli/internal/article"
	"github.com/abelbrown/newscli/internal/feed"
	"github.com/abelbrown/newscli/internal/tone"
)

func strPtr(s string) *string { return &s }

func TestBodyTextPreference(t *testing.T) {
	s := feed.Summary{SummaryText: "Short description."}
	assert.Equal(t, "Short description.", bodyText(s, detailState{}))

	s.ContentHTML = strPtr("<p>A much longer content element that says more than the description.</p>")
	assert.Equal(t, "A much longer content element that says more than the description.", bodyText(s, detailState{}))

	full := detailState{loaded: true, result: article.Result{Status: article.OK, FullText: strPtr("Full article text.")}}
	assert.Equal(t, "Full article text.", bodyText(s, full))

	blocked := detailState{loaded: true, result: article.Result{Status: article.Blocked}}
	assert.Contains(t, bodyText(s, blocked), "much longer content")

	assert.Contains(t, bodyText(feed.Summary{}, detailState{}), "no summary provided")
}

func TestFetchStatusLine(t *testing.T) {
	assert.Contains(t, fetchStatusLine(detailState{pending: true}, "*", false), "* fetching full text")
	assert.Contains(t, fetchStatusLine(detailState{}, "", false), "enter loads full text")
	assert.Contains(t, fetchStatusLine(detailState{err: errors.New("boom")}, "", false), "showing summary")

	mirrored := detailState{loaded: true, result: article.Result{Status: article.OK, Via: article.ViaMirror}}
	assert.Contains(t, fetchStatusLine(mirrored, "", true), "full text via mirror")

	blocked := detailState{loaded: true, result: article.Result{
		Status: article.Blocked,
		Err:    &article.BlockedError{StatusCode: 429, MirrorErr: errors.New("mirror 502")},
	}}
	withMirror := fetchStatusLine(blocked, "", true)
	assert.Contains(t, withMirror, "HTTP 429")
	assert.Contains(t, withMirror, "mirror also failed")
	assert.NotContains(t, withMirror, mirrorHint)
	assert.Contains(t, fetchStatusLine(blocked, "", false), mirrorHint)

	failed := detailState{loaded: true, result: article.Result{
		Status: article.Failed,
		Err:    &article.FetchFailedError{Link: "https://x.test", Err: errors.New("timeout")},
	}}
	assert.Contains(t, fetchStatusLine(failed, "", false), "could not fetch the article")
}

func TestScoreLine(t *testing.T) {
	line := scoreLine(tone.Score{Tone: -0.5, Subjectivity: 0.7, FlaggedTerms: []string{"disaster"}, Basis: tone.BasisFullText})
	assert.Contains(t, line, "Tone -0.50 Critical lean")
	assert.Contains(t, line, "Subjectivity 0.70 Strongly opinionated tone")
	assert.Contains(t, line, "(full text)")
	assert.Contains(t, line, "Flagged: disaster")

	neutral := scoreLine(tone.Score{FlaggedTerms: []string{}})
	assert.Contains(t, neutral, "Balanced")
	assert.NotContains(t, neutral, "Flagged")
}

func TestDetailMetaPrefersByline(t *testing.T) {
	s := feed.Summary{Source: srcA, Author: strPtr("Feed Author")}
	assert.Equal(t, "Alpha News · Feed Author", detailMeta(s, detailState{}))

	d := detailState{loaded: true, result: article.Result{Byline: strPtr("By Jane Roe")}}
	assert.Equal(t, "Alpha News · By Jane Roe", detailMeta(s, d))
}
