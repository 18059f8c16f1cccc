package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/abelbrown/newscli/internal/tone"
)

// sampleHeadlines spans the scorer's range, from wire-style reporting to
// opinion, hedging and negation.
var sampleHeadlines = []string{
	// Factual
	"The council approved the budget on Tuesday by a vote of seven to two after a public hearing",
	"The central bank held its benchmark rate at 4.5 percent, in line with market expectations",

	// Critical
	"Officials clearly failed to prepare for the storm, and the response was a disaster for residents",
	"Critics slammed the reckless plan as a shameful betrayal of voters",

	// Favorable
	"Volunteers delivered a remarkable and truly inspiring rescue effort that saved dozens of lives",

	// Hedged or negated
	"The minister reportedly might resign, though it seems unclear whether talks collapsed",
	"The rollout was not a failure, according to the agency, which said it was not a disaster",

	// Too short to score
	"Markets open",
}

func runScore() {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	stdin := fs.Bool("stdin", false, "Score text read from stdin")
	fs.Parse(os.Args[1:])

	scorer := newScorer(loadConfig())
	fmt.Printf("Lexicon: %s (min %d words)\n\n", scorer.Version(), scorer.MinWords())

	switch {
	case *stdin:
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatalf("read stdin: %v", err)
		}
		writeScore(os.Stdout, scorer.Score(string(raw)))
	case fs.NArg() > 0:
		writeScore(os.Stdout, scorer.Score(strings.Join(fs.Args(), " ")))
	default:
		for _, h := range sampleHeadlines {
			fmt.Println(truncate(h, 80))
			writeScore(os.Stdout, scorer.Score(h))
			fmt.Println()
		}
	}
}

func writeScore(w io.Writer, sc tone.Score) {
	fmt.Fprintf(w, "  tone %+.2f (%s)  subjectivity %.2f (%s)  words %d\n",
		sc.Tone, sc.ToneHint(), sc.Subjectivity, sc.SubjectivityHint(), sc.WordCount)
	if len(sc.FlaggedTerms) > 0 {
		fmt.Fprintf(w, "  flagged: %s\n", strings.Join(sc.FlaggedTerms, ", "))
	}
}
