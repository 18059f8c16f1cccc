package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/abelbrown/newscli/internal/config"
	"github.com/abelbrown/newscli/internal/store"
	"github.com/abelbrown/newscli/internal/tone"
)

// loadConfig loads the newscli configuration. A bad config file is reported
// and the defaults are used.
func loadConfig() *config.Config {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v (using defaults)\n", err)
	}
	return cfg
}

// openDB opens the store or fatals.
func openDB(cfg *config.Config) *store.Store {
	path := cfg.DatabasePath()
	if _, err := os.Stat(path); err != nil {
		log.Fatalf("no database at %s: run newscli with persistence enabled first", path)
	}
	st, err := store.Open(path)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	return st
}

// newScorer builds the scorer newscli would use for cfg.
func newScorer(cfg *config.Config) *tone.Scorer {
	lx := tone.DefaultLexicon()
	if cfg.LexiconFile != "" {
		custom, err := tone.LoadLexicon(cfg.LexiconFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v (using built-in lexicon)\n", err)
		} else {
			lx = custom
		}
	}
	return tone.NewScorer(lx)
}

// truncate shortens a string to max runes, appending "..." if truncated.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
