package otel

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var decoded map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &decoded), "line %q", line)
		out = append(out, decoded)
	}
	return out
}

func TestEmitWritesValidJSONL(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindFeedStart, Level: LevelInfo, Comp: "feed", Source: "BBC World"})
	l.Close()

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "feed.start", lines[0]["kind"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "feed", lines[0]["comp"])
	assert.Equal(t, "BBC World", lines[0]["source"])
}

func TestEmitSetsTimeAndSessionID(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	before := time.Now()
	l.Emit(Event{Kind: KindStartup})
	l.Close()
	after := time.Now()

	var ev Event
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev))

	if ev.Time.Before(before) || ev.Time.After(after) {
		t.Errorf("time %v not in [%v, %v]", ev.Time, before, after)
	}
	assert.Len(t, ev.SessionID, 16)
	assert.Equal(t, l.SessionID(), ev.SessionID)
}

func TestDurToMs(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindArticleComplete, Dur: 1500 * time.Millisecond, Status: "ok", Via: "direct"})
	l.Close()

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, float64(1500), lines[0]["dur_ms"])
	assert.Equal(t, "ok", lines[0]["status"])
	assert.Equal(t, "direct", lines[0]["via"])
}

func TestOmitempty(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindStartup})
	l.Close()

	line := strings.TrimSpace(buf.String())
	for _, field := range []string{"dur_ms", "count", "source", "article_id", "url", "code", "err", "msg", "extra"} {
		assert.NotContains(t, line, `"`+field+`"`)
	}
}

func TestConcurrentEmit(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Emit(Event{Kind: KindCacheMiss, Comp: "cache"})
		}()
	}
	wg.Wait()
	l.Close()

	assert.Len(t, decodeLines(t, &buf), 100)
}

func TestCloseIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindStartup, Msg: "start"})
	l.Emit(Event{Kind: KindShutdown, Msg: "stop"})
	l.Close()
	l.Close()

	assert.Len(t, decodeLines(t, &buf), 2)

	// Emits after Close are dropped, not panicked.
	l.Emit(Event{Kind: KindStartup})
	assert.Equal(t, uint64(1), l.Dropped())
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Emit(Event{Kind: KindStartup})
	l.Close()
}

func TestDropCounter(t *testing.T) {
	bw := &blockingWriter{
		started: make(chan struct{}),
		block:   make(chan struct{}),
	}
	l := NewLogger(bw)

	// The first event is picked up by drain, which then blocks in Write.
	l.Emit(Event{Kind: KindFeedStart})
	<-bw.started

	for i := 0; i < queueSize+10; i++ {
		l.Emit(Event{Kind: KindFeedStart})
	}

	assert.NotZero(t, l.Dropped())

	close(bw.block)
	l.Close()
}

type blockingWriter struct {
	started chan struct{}
	block   chan struct{}
	once    sync.Once
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	w.once.Do(func() {
		close(w.started)
		<-w.block
	})
	return len(p), nil
}

func TestConvenienceHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Info(KindStartup, "main", "starting")
	l.Warn(KindConfigError, "registry", "entry 2: missing url")
	l.Error(KindFeedError, "feed", errors.New("dns failure"))
	l.Close()

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)

	tests := []struct {
		level string
		kind  string
		comp  string
	}{
		{"info", "sys.startup", "main"},
		{"warn", "registry.config_error", "registry"},
		{"error", "feed.error", "feed"},
	}
	for i, tt := range tests {
		assert.Equal(t, tt.level, lines[i]["level"], "line %d", i)
		assert.Equal(t, tt.kind, lines[i]["kind"], "line %d", i)
		assert.Equal(t, tt.comp, lines[i]["comp"], "line %d", i)
	}
	assert.Equal(t, "dns failure", lines[2]["err"])
}
