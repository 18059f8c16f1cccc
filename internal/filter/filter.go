// Package filter provides pure filter functions for summaries.
// All functions are simple: []Summary in, []Summary out. No side effects,
// and the relative order of the kept summaries never changes.
package filter

import (
	"strings"
	"time"

	"github.com/abelbrown/newscli/internal/feed"
	"github.com/abelbrown/newscli/internal/sources"
)

// commonPrefixes are prefixes commonly used in news titles that should be
// ignored when comparing titles for deduplication.
var commonPrefixes = []string{
	"breaking:",
	"update:",
	"updated:",
	"exclusive:",
	"just in:",
	"developing:",
	"watch:",
	"live:",
	"opinion:",
	"analysis:",
	"review:",
}

// ByAge removes summaries published before now-maxAge. Undated summaries
// are kept: the feed did not say how old they are.
func ByAge(items []feed.Summary, maxAge time.Duration, now time.Time) []feed.Summary {
	if len(items) == 0 {
		return []feed.Summary{}
	}

	cutoff := now.Add(-maxAge)
	result := make([]feed.Summary, 0, len(items))
	for _, item := range items {
		if item.Published == nil || !item.Published.Before(cutoff) {
			result = append(result, item)
		}
	}
	return result
}

// normalizeTitle normalizes a title for comparison by lowercasing and
// removing common news prefixes.
func normalizeTitle(title string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(title), " "))

	for _, prefix := range commonPrefixes {
		if strings.HasPrefix(normalized, prefix) {
			normalized = strings.TrimSpace(strings.TrimPrefix(normalized, prefix))
			break // Only remove one prefix
		}
	}
	return normalized
}

// Dedup removes summaries whose article ID (the canonical link) or
// normalized title was already seen. First occurrence wins, so a story
// syndicated by two sources is kept under the first one.
func Dedup(items []feed.Summary) []feed.Summary {
	if len(items) == 0 {
		return []feed.Summary{}
	}

	seenIDs := make(map[string]bool)
	seenTitles := make(map[string]bool)
	result := make([]feed.Summary, 0, len(items))

	for _, item := range items {
		if item.ID != "" && seenIDs[item.ID] {
			continue
		}
		title := normalizeTitle(item.Title)
		if title != "" && seenTitles[title] {
			continue
		}

		if item.ID != "" {
			seenIDs[item.ID] = true
		}
		if title != "" {
			seenTitles[title] = true
		}
		result = append(result, item)
	}
	return result
}

// LimitPerSource keeps the first maxPerSource summaries of each source.
// Feeds arrive newest first, so these are the most recent ones.
func LimitPerSource(items []feed.Summary, maxPerSource int) []feed.Summary {
	if len(items) == 0 || maxPerSource <= 0 {
		return []feed.Summary{}
	}

	counts := make(map[string]int)
	result := make([]feed.Summary, 0, len(items))
	for _, item := range items {
		key := sources.Key(item.Source.URL)
		if counts[key] >= maxPerSource {
			continue
		}
		counts[key]++
		result = append(result, item)
	}
	return result
}
