package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"time"

	"github.com/abelbrown/newscli/internal/store"
)

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	withEvents := fs.Bool("events", false, "Include event counts by kind from the event log")
	fs.Parse(os.Args[1:])

	cfg := loadConfig()
	st := openDB(cfg)
	defer st.Close()

	statuses, err := st.AllSourceStatus()
	if err != nil {
		log.Fatalf("read source status: %v", err)
	}
	writeStatusTable(os.Stdout, statuses, time.Now())

	if !*withEvents {
		return
	}

	f, err := os.Open(cfg.EventLogPath())
	if err != nil {
		log.Fatalf("open event log: %v", err)
	}
	defer f.Close()

	fmt.Println()
	fmt.Println("=== Events ===")
	writeKindCounts(os.Stdout, countKinds(f))
}

// writeStatusTable prints one line per source, failing sources first.
func writeStatusTable(w io.Writer, statuses []store.SourceStatus, now time.Time) {
	if len(statuses) == 0 {
		fmt.Fprintln(w, "No refreshes recorded yet.")
		return
	}

	sorted := make([]store.SourceStatus, len(statuses))
	copy(sorted, statuses)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ErrorCount > sorted[j].ErrorCount
	})

	failing := 0
	fmt.Fprintf(w, "%-28s %6s %10s %10s %6s  %s\n", "SOURCE", "ITEMS", "ATTEMPT", "SUCCESS", "FAILS", "LAST ERROR")
	for _, s := range sorted {
		success := "never"
		if s.LastSuccess != nil {
			success = ago(now.Sub(*s.LastSuccess))
		}
		if s.ErrorCount > 0 {
			failing++
		}
		fmt.Fprintf(w, "%-28s %6d %10s %10s %6d  %s\n",
			truncate(s.Name, 28), s.ItemCount, ago(now.Sub(s.LastAttempt)), success, s.ErrorCount, truncate(s.LastError, 60))
	}
	fmt.Fprintf(w, "\n%d sources, %d failing\n", len(sorted), failing)
}

// countKinds tallies event kinds in a JSONL stream, skipping bad lines.
func countKinds(r io.Reader) map[string]int {
	counts := map[string]int{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for scanner.Scan() {
		var ev struct {
			Kind string `json:"kind"`
		}
		if json.Unmarshal(scanner.Bytes(), &ev) != nil || ev.Kind == "" {
			continue
		}
		counts[ev.Kind]++
	}
	return counts
}

func writeKindCounts(w io.Writer, counts map[string]int) {
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-24s %d\n", k, counts[k])
	}
}

// ago renders a duration as 45s, 12m, 3h or 2d.
func ago(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
