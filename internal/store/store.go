// Package store provides SQLite persistence for newscli: the latest summary
// snapshot of each source, read marks and per-source refresh status.
//
// The content cache is not persisted; full text is fetched again in a new
// session.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/abelbrown/newscli/internal/feed"
	"github.com/abelbrown/newscli/internal/sources"
)

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex // Protects all database operations
}

// SourceStatus is the outcome of the most recent refreshes of one source.
type SourceStatus struct {
	URL         string
	Name        string
	LastAttempt time.Time
	LastSuccess *time.Time
	ItemCount   int
	ErrorCount  int // consecutive failures, reset by a success
	LastError   string
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A second connection to ":memory:" would see a different database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS summaries (
		source_url TEXT NOT NULL,
		id TEXT NOT NULL,
		position INTEGER NOT NULL,
		source_name TEXT NOT NULL,
		title TEXT NOT NULL,
		link TEXT NOT NULL,
		published_at DATETIME,
		author TEXT,
		summary_text TEXT NOT NULL,
		content_html TEXT,
		fetched_at DATETIME NOT NULL,
		PRIMARY KEY (source_url, id)
	);

	CREATE INDEX IF NOT EXISTS idx_summaries_position ON summaries(source_url, position);

	CREATE TABLE IF NOT EXISTS read_marks (
		id TEXT PRIMARY KEY,
		read_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sources (
		url TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		last_attempt_at DATETIME NOT NULL,
		last_success_at DATETIME,
		item_count INTEGER DEFAULT 0,
		error_count INTEGER DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT ''
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SaveSnapshot replaces the stored summaries of src with items, keeping
// their order. A refresh is a fresh snapshot, so nothing is merged.
func (s *Store) SaveSnapshot(src sources.Source, items []feed.Summary, fetched time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	if _, err := sq.Delete("summaries").Where(sq.Eq{"source_url": src.URL}).RunWith(tx).Exec(); err != nil {
		return fmt.Errorf("clear snapshot %s: %w", src.Name, err)
	}

	if len(items) > 0 {
		ins := sq.Insert("summaries").Columns(
			"source_url", "id", "position", "source_name", "title", "link",
			"published_at", "author", "summary_text", "content_html", "fetched_at",
		)
		seen := make(map[string]bool, len(items))
		pos := 0
		for _, it := range items {
			// A feed may list one link twice; the first occurrence wins.
			if seen[it.ID] {
				continue
			}
			seen[it.ID] = true
			ins = ins.Values(
				src.URL, it.ID, pos, src.Name, it.Title, it.Link,
				nullTime(it.Published), nullString(it.Author), it.SummaryText, nullString(it.ContentHTML), fetched,
			)
			pos++
		}
		if _, err := ins.RunWith(tx).Exec(); err != nil {
			return fmt.Errorf("save snapshot %s: %w", src.Name, err)
		}
	}

	return tx.Commit()
}

// LoadSnapshot returns the stored summaries of src in their saved order, or
// nil when none were saved.
func (s *Store) LoadSnapshot(src sources.Source) ([]feed.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := sq.Select("id", "title", "link", "published_at", "author", "summary_text", "content_html").
		From("summaries").
		Where(sq.Eq{"source_url": src.URL}).
		OrderBy("position").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", src.Name, err)
	}
	defer rows.Close()

	var items []feed.Summary
	for rows.Next() {
		var (
			it        feed.Summary
			published sql.NullTime
			author    sql.NullString
			content   sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.Title, &it.Link, &published, &author, &it.SummaryText, &content); err != nil {
			return nil, err
		}
		if published.Valid {
			t := published.Time.UTC()
			it.Published = &t
		}
		it.Author = stringPtr(author)
		it.ContentHTML = stringPtr(content)
		it.Source = src
		items = append(items, it)
	}
	return items, rows.Err()
}

// MarkRead records that the article with id was opened.
func (s *Store) MarkRead(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := sq.Insert("read_marks").
		Columns("id", "read_at").
		Values(id, time.Now().UTC()).
		Suffix("ON CONFLICT(id) DO NOTHING").
		RunWith(s.db).
		Exec()
	return err
}

// ReadSet returns which of ids have been marked read.
func (s *Store) ReadSet(ids []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]bool)
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := sq.Select("id").From("read_marks").Where(sq.Eq{"id": ids}).RunWith(s.db).Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// RecordRefresh updates src's status after a refresh attempt. A nil
// refreshErr marks a success with itemCount summaries.
func (s *Store) RecordRefresh(src sources.Source, itemCount int, refreshErr error, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	at = at.UTC()
	ins := sq.Insert("sources").Columns("url", "name", "last_attempt_at", "last_success_at", "item_count", "error_count", "last_error")
	if refreshErr == nil {
		ins = ins.Values(src.URL, src.Name, at, at, itemCount, 0, "").
			Suffix(`ON CONFLICT(url) DO UPDATE SET
				name = excluded.name,
				last_attempt_at = excluded.last_attempt_at,
				last_success_at = excluded.last_success_at,
				item_count = excluded.item_count,
				error_count = 0,
				last_error = ''`)
	} else {
		ins = ins.Values(src.URL, src.Name, at, nil, 0, 1, refreshErr.Error()).
			Suffix(`ON CONFLICT(url) DO UPDATE SET
				name = excluded.name,
				last_attempt_at = excluded.last_attempt_at,
				error_count = sources.error_count + 1,
				last_error = excluded.last_error`)
	}
	_, err := ins.RunWith(s.db).Exec()
	return err
}

// SourceStatus returns the recorded status of the source at url.
func (s *Store) SourceStatus(url string) (SourceStatus, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := statusQuery().Where(sq.Eq{"url": url}).RunWith(s.db).QueryRow()
	st, err := scanStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SourceStatus{}, false, nil
	}
	if err != nil {
		return SourceStatus{}, false, err
	}
	return st, true, nil
}

// AllSourceStatus returns every recorded status ordered by name.
func (s *Store) AllSourceStatus() ([]SourceStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := statusQuery().OrderBy("name").RunWith(s.db).Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SourceStatus
	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func statusQuery() sq.SelectBuilder {
	return sq.Select("url", "name", "last_attempt_at", "last_success_at", "item_count", "error_count", "last_error").From("sources")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStatus(r scanner) (SourceStatus, error) {
	var (
		st      SourceStatus
		success sql.NullTime
	)
	if err := r.Scan(&st.URL, &st.Name, &st.LastAttempt, &success, &st.ItemCount, &st.ErrorCount, &st.LastError); err != nil {
		return SourceStatus{}, err
	}
	if success.Valid {
		t := success.Time
		st.LastSuccess = &t
	}
	return st, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
