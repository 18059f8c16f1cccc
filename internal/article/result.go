// Package article resolves the full text of an article from its link.
//
// Retrieval follows a fixed policy. A direct GET that succeeds yields OK via
// ViaDirect. A 403 or 429 is a deliberate block: when the mirror is enabled
// one request goes to the text mirror (OK via ViaMirror, or Blocked), and
// otherwise the article is Blocked without a second request. Any other
// failure is retried exactly once after a short fixed backoff before the
// article is marked Failed. Cancellation produces no Result at all.
package article

import (
	"errors"
	"fmt"
	"time"
)

// Status is the retrieval state of an article.
type Status int

const (
	NotAttempted Status = iota
	OK
	Blocked
	Failed
)

func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case Blocked:
		return "blocked"
	case Failed:
		return "failed"
	default:
		return "not_attempted"
	}
}

// Terminal reports whether s is a settled outcome that is only left through
// a manual refresh.
func (s Status) Terminal() bool {
	return s != NotAttempted
}

// Via records which path produced the full text.
type Via int

const (
	ViaNone Via = iota
	ViaDirect
	ViaMirror
)

func (v Via) String() string {
	switch v {
	case ViaDirect:
		return "direct"
	case ViaMirror:
		return "mirror"
	default:
		return "none"
	}
}

// Result is the outcome of one run of the retrieval policy. It is never
// modified after it is returned.
type Result struct {
	ArticleID string
	Status    Status
	FullText  *string // set only when Status is OK
	Title     string
	Byline    *string
	Via       Via
	FetchedAt time.Time

	// Err explains a Blocked or Failed status: *BlockedError or
	// *FetchFailedError.
	Err error
}

// HasText reports whether the result carries usable full text.
func (r Result) HasText() bool {
	return r.Status == OK && r.FullText != nil && *r.FullText != ""
}

// Sentinels for errors.Is.
var (
	ErrBlocked     = errors.New("article blocked")
	ErrFetchFailed = errors.New("article fetch failed")
)

// BlockedError reports a publisher refusing automated access.
type BlockedError struct {
	Link       string
	StatusCode int

	// MirrorErr is set when the mirror was tried and failed too.
	MirrorErr error
}

func (e *BlockedError) Error() string {
	if e.MirrorErr != nil {
		return fmt.Sprintf("article %s blocked (HTTP %d); mirror: %v", e.Link, e.StatusCode, e.MirrorErr)
	}
	return fmt.Sprintf("article %s blocked (HTTP %d)", e.Link, e.StatusCode)
}

func (e *BlockedError) Is(target error) bool { return target == ErrBlocked }

func (e *BlockedError) Unwrap() error { return e.MirrorErr }

// FetchFailedError reports an article that could not be retrieved after the
// retry.
type FetchFailedError struct {
	Link string
	Err  error
}

func (e *FetchFailedError) Error() string {
	return fmt.Sprintf("fetch article %s: %v", e.Link, e.Err)
}

func (e *FetchFailedError) Is(target error) bool { return target == ErrFetchFailed }

func (e *FetchFailedError) Unwrap() error { return e.Err }
