// Package cache keeps fetched article text and tone scores for the session.
//
// At most one fetch per article runs at a time: concurrent callers for the
// same article share the in-flight fetch, each waiting under its own
// context. A cancelled fetch stores nothing. Terminal results are kept until
// Refresh is called for that article. Scores are keyed by a hash of the
// scored text and the lexicon version, so identical text is scored once.
package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/abelbrown/newscli/internal/article"
	"github.com/abelbrown/newscli/internal/feed"
	"github.com/abelbrown/newscli/internal/otel"
	"github.com/abelbrown/newscli/internal/tone"
)

// Fetcher resolves an article's full text. *article.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, articleID, link string) (article.Result, error)
}

// Cache is safe for concurrent use. Different articles never wait on each
// other.
type Cache struct {
	fetcher Fetcher
	scorer  *tone.Scorer
	logger  *otel.Logger

	group singleflight.Group

	mu      sync.RWMutex
	results map[string]article.Result // article id -> terminal result
	scores  map[string]tone.Score     // text key -> score without ArticleID/Basis
	latest  map[string]tone.Score     // article id -> score for its best text
}

// New creates an empty Cache. A nil logger discards events.
func New(fetcher Fetcher, scorer *tone.Scorer, logger *otel.Logger) *Cache {
	if logger == nil {
		logger = otel.NewNullLogger()
	}
	return &Cache{
		fetcher: fetcher,
		scorer:  scorer,
		logger:  logger,
		results: make(map[string]article.Result),
		scores:  make(map[string]tone.Score),
		latest:  make(map[string]tone.Score),
	}
}

// GetOrFetch returns the article's fetch result and the score of the best
// text available: the full text when the fetch succeeded, the summary
// otherwise. A cached terminal result is returned without network access.
//
// When ctx ends first the error is ctx.Err(), the result is NotAttempted and
// the score is the summary score.
func (c *Cache) GetOrFetch(ctx context.Context, s feed.Summary) (article.Result, tone.Score, error) {
	return c.resolve(ctx, s, false)
}

// Refresh runs the retrieval policy again for s even when a terminal result
// is cached. The previous result stays visible to other callers until the
// new one replaces it; a cancelled refresh leaves it in place.
func (c *Cache) Refresh(ctx context.Context, s feed.Summary) (article.Result, tone.Score, error) {
	c.logger.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindCacheReset, Comp: "cache", ArticleID: s.ID, Source: s.Source.Name})
	return c.resolve(ctx, s, true)
}

func (c *Cache) resolve(ctx context.Context, s feed.Summary, force bool) (article.Result, tone.Score, error) {
	for {
		if !force {
			if r, ok := c.Peek(s.ID); ok {
				c.logger.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindCacheHit, Comp: "cache", ArticleID: s.ID, Status: r.Status.String()})
				return r, c.scoreFor(s, r), nil
			}
			c.logger.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindCacheMiss, Comp: "cache", ArticleID: s.ID})
		}

		recheck := !force
		ch := c.group.DoChan(s.ID, func() (any, error) {
			return c.fetch(ctx, s, recheck)
		})

		select {
		case <-ctx.Done():
			return notAttempted(s.ID), c.scoreFor(s, notAttempted(s.ID)), ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				// The leader's context ended. A caller that is still live
				// starts a fetch of its own.
				var lc *leaderStopped
				if errors.As(res.Err, &lc) {
					if ctx.Err() == nil {
						force = false
						continue
					}
					return notAttempted(s.ID), c.scoreFor(s, notAttempted(s.ID)), lc.err
				}
				return notAttempted(s.ID), c.scoreFor(s, notAttempted(s.ID)), res.Err
			}
			if res.Shared {
				c.logger.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindCacheShared, Comp: "cache", ArticleID: s.ID})
			}
			r := res.Val.(article.Result)
			return r, c.scoreFor(s, r), nil
		}
	}
}

// leaderStopped marks a fetch abandoned because the leading caller's
// context ended, as opposed to an error every caller would hit.
type leaderStopped struct{ err error }

func (e *leaderStopped) Error() string { return e.err.Error() }
func (e *leaderStopped) Unwrap() error { return e.err }

// fetch runs under the leading caller's context. With recheck, a terminal
// result stored by a flight that finished after the caller's Peek is
// returned instead of fetching again.
func (c *Cache) fetch(ctx context.Context, s feed.Summary, recheck bool) (article.Result, error) {
	if recheck {
		if r, ok := c.Peek(s.ID); ok {
			return r, nil
		}
	}
	r, err := c.fetcher.Fetch(ctx, s.ID, s.Link)
	if err != nil {
		if ctx.Err() != nil {
			return article.Result{}, &leaderStopped{err: err}
		}
		return article.Result{}, err
	}
	if !r.Status.Terminal() {
		return notAttempted(s.ID), nil
	}
	r.ArticleID = s.ID

	c.mu.Lock()
	c.results[s.ID] = r
	c.mu.Unlock()
	return r, nil
}

// Peek returns the cached terminal result for id without fetching.
func (c *Cache) Peek(id string) (article.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.results[id]
	return r, ok
}

// PeekScore returns the most recent score computed for id.
func (c *Cache) PeekScore(id string) (tone.Score, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sc, ok := c.latest[id]
	return sc, ok
}

// Len reports how many articles hold a terminal result.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}

// ScoreSummary scores s's summary text, the floor every article has.
func (c *Cache) ScoreSummary(s feed.Summary) tone.Score {
	return c.scoreFor(s, notAttempted(s.ID))
}

// ScoreText scores text for article id, reusing an earlier score of the
// same text. Basis is left empty.
func (c *Cache) ScoreText(id, text string) tone.Score {
	key := tone.TextKey(c.scorer.Version(), text)

	c.mu.RLock()
	sc, ok := c.scores[key]
	c.mu.RUnlock()

	if !ok {
		start := time.Now()
		sc = c.scorer.Score(text)
		c.mu.Lock()
		c.scores[key] = sc
		c.mu.Unlock()
		c.logger.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindScore, Comp: "cache", ArticleID: id, Count: sc.WordCount, Dur: time.Since(start)})
	}

	sc.ArticleID = id
	sc.FlaggedTerms = append([]string{}, sc.FlaggedTerms...)
	return sc
}

func (c *Cache) scoreFor(s feed.Summary, r article.Result) tone.Score {
	text, basis := SummaryText(s), tone.BasisSummary
	if r.HasText() {
		text, basis = *r.FullText, tone.BasisFullText
	}
	sc := c.ScoreText(s.ID, text)
	sc.Basis = basis

	c.mu.Lock()
	c.latest[s.ID] = sc
	c.mu.Unlock()
	return sc
}

// SummaryText is the text scored when no full text is available: the
// summary, or the title when the feed carried no summary.
func SummaryText(s feed.Summary) string {
	if t := strings.TrimSpace(s.SummaryText); t != "" {
		return t
	}
	return strings.TrimSpace(s.Title)
}

func notAttempted(id string) article.Result {
	return article.Result{ArticleID: id, Status: article.NotAttempted, Via: article.ViaNone}
}
