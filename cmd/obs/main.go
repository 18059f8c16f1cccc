// Command obs is the debug and maintenance CLI for newscli.
//
// Usage:
//
//	obs                     Show help
//	obs stats               Source health from the database
//	obs stats --events      Source health + event counts by kind
//	obs fetch <url>         Run the article retrieval policy on one URL
//	obs score [text]        Score text (or stdin, or sample headlines)
//	obs events              JSONL event log viewer
package main

import (
	"fmt"
	"os"
)

const usage = `obs - newscli debug & maintenance CLI

Usage:
  obs <command> [flags]

Commands:
  stats       Per-source refresh health and item counts
  fetch       Fetch one article the way the reader does and score it
  score       Tone and subjectivity for text, stdin or sample headlines
  events      JSONL event log viewer

Environment:
  NEWSCLI_CONFIG          Config file (default: ~/.newscli/config.yaml)
  NEWSCLI_DATA_DIR        Data directory holding newscli.db and events.jsonl
  NEWSCLI_MIRROR_ON_403   Retry blocked articles through the text mirror
  NEWSCLI_LEXICON         Replacement term lists for the scorer

Run 'obs <command> -h' for command-specific help.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	cmd := os.Args[1]
	// Strip the program name + subcommand so flag sets see only their flags
	os.Args = os.Args[1:]

	switch cmd {
	case "stats":
		runStats()
	case "fetch":
		runFetch()
	case "score":
		runScore()
	case "events":
		runEvents()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "obs: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}
