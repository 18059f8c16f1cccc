// Package config loads newscli settings: defaults, overlaid by an optional
// YAML file, overlaid by environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abelbrown/newscli/internal/sources"
)

const (
	configPathEnv   = "NEWSCLI_CONFIG"
	dataDirEnv      = "NEWSCLI_DATA_DIR"
	sourcesFileEnv  = "NEWSCLI_SOURCES"
	lexiconFileEnv  = "NEWSCLI_LEXICON"
	mirrorOnBlock   = "NEWSCLI_MIRROR_ON_403"
	mirrorPrefixEnv = "NEWSCLI_MIRROR_PREFIX"
	persistEnv      = "NEWSCLI_PERSIST"
)

// Config is the application configuration.
type Config struct {
	// DataDir holds the event log, the database and the default sources
	// file.
	DataDir string `yaml:"data_dir"`

	// SourcesFile lists user feed sources (JSON or YAML list of
	// {name, url}). Defaults to DataDir/sources.json.
	SourcesFile string `yaml:"sources_file"`

	// LexiconFile optionally replaces the scorer's term lists.
	LexiconFile string `yaml:"lexicon_file"`

	// MirrorOnBlock sends blocked articles (403/429) to the text mirror.
	MirrorOnBlock bool   `yaml:"mirror_on_block"`
	MirrorPrefix  string `yaml:"mirror_prefix"`

	FeedTimeout    time.Duration `yaml:"feed_timeout"`
	ArticleTimeout time.Duration `yaml:"article_timeout"`
	RetryBackoff   time.Duration `yaml:"retry_backoff"`

	MaxConcurrentFeeds int           `yaml:"max_concurrent_feeds"`
	RefreshInterval    time.Duration `yaml:"refresh_interval"` // 0 disables periodic refresh
	HostInterval       time.Duration `yaml:"host_interval"`    // per-host politeness delay
	MaxItems           int           `yaml:"max_items"`

	// Persist saves summary snapshots, read marks and source status.
	Persist bool `yaml:"persist"`
}

// Default returns the built-in configuration.
func Default() *Config {
	dir := defaultDataDir()
	return &Config{
		DataDir:            dir,
		SourcesFile:        filepath.Join(dir, "sources.json"),
		MirrorOnBlock:      false,
		MirrorPrefix:       "https://r.jina.ai/",
		FeedTimeout:        20 * time.Second,
		ArticleTimeout:     20 * time.Second,
		RetryBackoff:       500 * time.Millisecond,
		MaxConcurrentFeeds: 5,
		RefreshInterval:    10 * time.Minute,
		HostInterval:       250 * time.Millisecond,
		MaxItems:           200,
		Persist:            true,
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".newscli"
	}
	return filepath.Join(home, ".newscli")
}

// Path returns the config file location: $NEWSCLI_CONFIG, or config.yaml in
// the default data directory.
func Path() string {
	if p := os.Getenv(configPathEnv); p != "" {
		return p
	}
	return filepath.Join(defaultDataDir(), "config.yaml")
}

// Load reads the config file at Path (a missing file is fine) and applies
// environment overrides. When the file cannot be read or parsed the returned
// Config still holds defaults plus environment overrides, and the error says
// why the file was ignored.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom is Load with an explicit file path.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	fileErr := cfg.mergeFile(path)
	cfg.applyEnvOverrides()
	cfg.normalize()
	return cfg, fileErr
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	// Unmarshal over a copy so a bad file leaves the defaults intact.
	merged := *c
	dataDir := c.DataDir
	if err := yaml.Unmarshal(raw, &merged); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	// A relocated data directory moves the default sources file with it.
	if merged.DataDir != dataDir && merged.SourcesFile == c.SourcesFile {
		merged.SourcesFile = filepath.Join(merged.DataDir, "sources.json")
	}
	*c = merged
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(dataDirEnv); v != "" {
		if c.SourcesFile == filepath.Join(c.DataDir, "sources.json") {
			c.SourcesFile = filepath.Join(v, "sources.json")
		}
		c.DataDir = v
	}
	if v := os.Getenv(sourcesFileEnv); v != "" {
		c.SourcesFile = v
	}
	if v := os.Getenv(lexiconFileEnv); v != "" {
		c.LexiconFile = v
	}
	if v, ok := os.LookupEnv(mirrorOnBlock); ok {
		c.MirrorOnBlock = Truthy(v)
	}
	if v := os.Getenv(mirrorPrefixEnv); v != "" {
		c.MirrorPrefix = v
	}
	if v, ok := os.LookupEnv(persistEnv); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.Persist = b
		}
	}
}

// normalize replaces unusable values with defaults.
func (c *Config) normalize() {
	def := Default()
	if c.FeedTimeout <= 0 {
		c.FeedTimeout = def.FeedTimeout
	}
	if c.ArticleTimeout <= 0 {
		c.ArticleTimeout = def.ArticleTimeout
	}
	if c.RetryBackoff < 0 {
		c.RetryBackoff = def.RetryBackoff
	}
	if c.MaxConcurrentFeeds <= 0 {
		c.MaxConcurrentFeeds = def.MaxConcurrentFeeds
	}
	if c.MaxItems <= 0 {
		c.MaxItems = def.MaxItems
	}
	if c.RefreshInterval < 0 {
		c.RefreshInterval = 0
	}
	if strings.TrimSpace(c.MirrorPrefix) == "" {
		c.MirrorPrefix = def.MirrorPrefix
	}
}

// Truthy reports whether an environment value enables a flag: 1, true, yes
// or on, in any case.
func Truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// EventLogPath is where the JSONL event log is written.
func (c *Config) EventLogPath() string {
	return filepath.Join(c.DataDir, "events.jsonl")
}

// DatabasePath is the SQLite file used when Persist is on.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "newscli.db")
}

// EnsureDataDir creates DataDir if needed.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o755)
}

// ReadSourceOverrides reads the user's source list from path. A missing
// file yields no entries and no warnings. Problems are returned as
// warnings, never as a hard failure: an unreadable or non-list file is a
// *sources.ConfigError with Index -1, and an entry that is not an object is
// passed on empty so sources.Load reports it at its own index.
func ReadSourceOverrides(path string) ([]sources.Entry, []error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, []error{&sources.ConfigError{Index: -1, Reason: fmt.Sprintf("read %s: %v", path, err)}}
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil, nil
	}

	var nodes []yaml.Node
	if err := yaml.Unmarshal(raw, &nodes); err != nil {
		return nil, []error{&sources.ConfigError{Index: -1, Reason: fmt.Sprintf("%s is not a list of {name, url} entries: %v", path, err)}}
	}

	entries := make([]sources.Entry, 0, len(nodes))
	for i := range nodes {
		var e sources.Entry
		if nodes[i].Kind == yaml.MappingNode {
			if err := nodes[i].Decode(&e); err != nil {
				e = sources.Entry{}
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}
