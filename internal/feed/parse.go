// Package feed fetches syndication documents and turns them into article
// summaries.
//
// Parsing is delegated to gofeed, which handles RSS 0.9x/1.0/2.0, Atom and
// JSON Feed. Each parse is a fresh snapshot: summaries are never merged
// with a previous refresh.
package feed

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/abelbrown/newscli/internal/sources"
)

// DefaultMaxItems caps the entries taken from one feed document.
const DefaultMaxItems = 200

// summaryMaxRunes caps SummaryText when it is derived from content.
const summaryMaxRunes = 500

// ErrEmptyFeed is wrapped by ParseError when the body is empty.
var ErrEmptyFeed = errors.New("empty feed document")

// ParseError reports a feed body that could not be parsed.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse feed %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse turns raw feed bytes into summaries ordered by published time,
// newest first. Entries without a date keep their feed order after the
// dated ones. Ties keep feed order.
func Parse(raw []byte, src sources.Source) ([]Summary, error) {
	return ParseN(raw, src, DefaultMaxItems)
}

// ParseN is Parse with an explicit entry cap; maxItems <= 0 means no cap.
func ParseN(raw []byte, src sources.Source, maxItems int) ([]Summary, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &ParseError{Source: src.Name, Err: ErrEmptyFeed}
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, &ParseError{Source: src.Name, Err: err}
	}

	entries := parsed.Items
	if maxItems > 0 && len(entries) > maxItems {
		entries = entries[:maxItems]
	}

	out := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		out = append(out, convertEntry(entry, src))
	}

	SortNewestFirst(out)
	return out, nil
}

// SortNewestFirst orders summaries by Published descending. The sort is
// stable so equal or missing dates keep their relative order.
func SortNewestFirst(list []Summary) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].Published, list[j].Published
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}

func convertEntry(entry *gofeed.Item, src sources.Source) Summary {
	link := strings.TrimSpace(entry.Link)
	if link == "" && len(entry.Links) > 0 {
		link = strings.TrimSpace(entry.Links[0])
	}

	title := strings.TrimSpace(PlainText(entry.Title))
	if title == "" {
		title = "(untitled)"
	}

	s := Summary{
		ID:     generateID(entry, link),
		Title:  title,
		Link:   link,
		Source: src,
	}

	if entry.PublishedParsed != nil {
		t := entry.PublishedParsed.UTC()
		s.Published = &t
	} else if entry.UpdatedParsed != nil {
		t := entry.UpdatedParsed.UTC()
		s.Published = &t
	}

	if name := authorName(entry); name != "" {
		s.Author = &name
	}

	if content := strings.TrimSpace(entry.Content); content != "" {
		s.ContentHTML = &content
	}

	// Prefer the description; fall back to a clipped content body.
	summary := strings.TrimSpace(PlainText(entry.Description))
	if summary == "" && s.ContentHTML != nil {
		summary = truncate(PlainText(*s.ContentHTML), summaryMaxRunes)
	}
	s.SummaryText = summary

	return s
}

func authorName(entry *gofeed.Item) string {
	if entry.Author != nil {
		if name := strings.TrimSpace(entry.Author.Name); name != "" {
			return name
		}
	}
	for _, p := range entry.Authors {
		if p == nil {
			continue
		}
		if name := strings.TrimSpace(p.Name); name != "" {
			return name
		}
	}
	return ""
}

// generateID hashes the canonical link. Entries without a link fall back to
// the GUID, then to title plus published time.
func generateID(entry *gofeed.Item, link string) string {
	if link != "" {
		return ArticleID(link)
	}
	if entry.GUID != "" {
		return hashString(entry.GUID)
	}
	key := entry.Title
	if entry.PublishedParsed != nil {
		key += entry.PublishedParsed.UTC().Format(time.RFC3339)
	}
	return hashString(key)
}

var spaceRe = regexp.MustCompile(`\s+`)

// PlainText strips markup from a feed field and collapses whitespace.
// Strings without markup are only whitespace-normalized.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
	}
	doc.Find("script, style").Remove()
	doc.Find("p, br, div, li, h1, h2, h3, h4, blockquote").AfterHtml(" ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(doc.Text(), " "))
}
