// Package sources holds the ordered set of configured feed sources.
//
// A Registry is built once from the built-in defaults plus user overrides
// and is read-only afterwards; a refresh of the configuration builds a new
// Registry rather than mutating the old one.
package sources

import (
	"fmt"
	"net/url"
	"strings"
)

// Source is a named feed URL.
type Source struct {
	Name string
	URL  string

	// Fallback is an alternate feed URL tried when URL fails. Built-ins only.
	Fallback string
}

// Entry is one raw user override as read from the sources file.
type Entry struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// ConfigError reports a malformed override entry. It is a warning: the entry
// is skipped and loading continues.
type ConfigError struct {
	Index  int
	Name   string
	URL    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("source entry %d (%q): %s", e.Index, e.Name, e.Reason)
}

// Registry is an ordered, URL-unique list of sources. Safe for concurrent
// reads; it is never mutated after Load returns.
type Registry struct {
	list  []Source
	byKey map[string]int
}

// Defaults returns the built-in sources.
func Defaults() []Source {
	return []Source{
		{Name: "BBC World", URL: "https://feeds.bbci.co.uk/news/world/rss.xml"},
		{Name: "Reuters World", URL: "https://feeds.reuters.com/Reuters/worldNews"},
		{Name: "AP News", URL: "https://rsshub.app/apnews/topics/apf-topnews", Fallback: "https://apnews.com/apf-topnews?output=rss"},
		{Name: "Al Jazeera", URL: "https://www.aljazeera.com/xml/rss/all.xml"},
		{Name: "Hacker News", URL: "https://news.ycombinator.com/rss"},
	}
}

// Load merges builtIns and overrides into a Registry. Overrides are appended
// after the built-ins; duplicate URLs keep their first occurrence. Malformed
// overrides are skipped and returned as *ConfigError warnings.
func Load(builtIns []Source, overrides []Entry) (*Registry, []error) {
	r := &Registry{byKey: make(map[string]int, len(builtIns)+len(overrides))}

	for _, src := range builtIns {
		r.add(src)
	}

	var warnings []error
	for i, e := range overrides {
		name := strings.TrimSpace(e.Name)
		raw := strings.TrimSpace(e.URL)
		switch {
		case name == "" && raw == "":
			warnings = append(warnings, &ConfigError{Index: i, Reason: "missing name and url"})
			continue
		case name == "":
			warnings = append(warnings, &ConfigError{Index: i, URL: raw, Reason: "missing name"})
			continue
		case raw == "":
			warnings = append(warnings, &ConfigError{Index: i, Name: name, Reason: "missing url"})
			continue
		}
		if err := validateURL(raw); err != nil {
			warnings = append(warnings, &ConfigError{Index: i, Name: name, URL: raw, Reason: err.Error()})
			continue
		}
		r.add(Source{Name: name, URL: raw})
	}

	return r, warnings
}

func (r *Registry) add(src Source) {
	key := Key(src.URL)
	if _, dup := r.byKey[key]; dup {
		return
	}
	r.byKey[key] = len(r.list)
	r.list = append(r.list, src)
}

// All returns the sources in display order. The slice is a copy.
func (r *Registry) All() []Source {
	out := make([]Source, len(r.list))
	copy(out, r.list)
	return out
}

// Len returns the number of sources.
func (r *Registry) Len() int {
	return len(r.list)
}

// Lookup finds a source by URL using the same normalization as dedup.
func (r *Registry) Lookup(rawURL string) (Source, bool) {
	i, ok := r.byKey[Key(rawURL)]
	if !ok {
		return Source{}, false
	}
	return r.list[i], true
}

// ByName finds the first source with the given name (case-insensitive).
func (r *Registry) ByName(name string) (Source, bool) {
	for _, src := range r.list {
		if strings.EqualFold(src.Name, name) {
			return src, true
		}
	}
	return Source{}, false
}

// Key normalizes a feed URL for duplicate detection: case-insensitive and
// trailing-slash-insensitive.
func Key(rawURL string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(rawURL)), "/")
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url has no host")
	}
	return nil
}
