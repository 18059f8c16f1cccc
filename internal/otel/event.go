// Package otel provides structured observability for newscli.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and a background drain
// goroutine, so emitting from a fetch or refresh never blocks on disk.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Registry events
	KindRegistryLoad EventKind = "registry.load"
	KindConfigError  EventKind = "registry.config_error"

	// Feed events
	KindFeedStart    EventKind = "feed.start"
	KindFeedComplete EventKind = "feed.complete"
	KindFeedRetry    EventKind = "feed.retry"
	KindFeedError    EventKind = "feed.error"

	// Article events
	KindArticleStart    EventKind = "article.start"
	KindArticleComplete EventKind = "article.complete"
	KindArticleRetry    EventKind = "article.retry"
	KindArticleMirror   EventKind = "article.mirror"
	KindArticleBlocked  EventKind = "article.blocked"
	KindArticleFailed   EventKind = "article.failed"
	KindArticleCancel   EventKind = "article.cancel"

	// Cache events
	KindCacheHit    EventKind = "cache.hit"
	KindCacheMiss   EventKind = "cache.miss"
	KindCacheShared EventKind = "cache.shared"
	KindCacheReset  EventKind = "cache.reset"
	KindScore       EventKind = "score.computed"

	// Store events
	KindStoreError EventKind = "store.error"

	// System events
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"
)

// Event is the universal observability record. Every field except Kind and
// Time is optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"` // "feed", "article", "cache", "coord", "main"
	SessionID string         `json:"session_id,omitempty"`
	Source    string         `json:"source,omitempty"`
	ArticleID string         `json:"article_id,omitempty"`
	URL       string         `json:"url,omitempty"`
	Status    string         `json:"status,omitempty"`
	Via       string         `json:"via,omitempty"`
	Code      int            `json:"code,omitempty"` // HTTP status
	Count     int            `json:"count,omitempty"`
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	a := struct {
		alias
	}{alias: alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
