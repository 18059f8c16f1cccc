// Package tone derives lexical tone and subjectivity signals from article
// text.
//
// Scoring is a pure function of the text and the lexicon: the same input
// always yields the same Score, which lets callers cache scores by a hash
// of the text (see TextKey).
package tone

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"unicode"
)

// Score is the heuristic reading of one text.
type Score struct {
	ArticleID string

	// Tone is in [-1, 1]: negative leans critical, positive favorable.
	Tone float64

	// Subjectivity is in [0, 1]: 0 reads as factual, 1 as opinionated.
	Subjectivity float64

	// FlaggedTerms lists the lexicon terms that contributed, sorted and
	// without duplicates. Never nil.
	FlaggedTerms []string

	WordCount int
	TextKey   string

	// Basis records which text was scored: BasisSummary or BasisFullText.
	Basis string
}

// Score bases.
const (
	BasisSummary  = "summary"
	BasisFullText = "full_text"
)

// Neutral reports whether s carries no signal.
func (s Score) Neutral() bool {
	return s.Tone == 0 && s.Subjectivity == 0 && len(s.FlaggedTerms) == 0
}

// SubjectivityHint is a human-readable label for the subjectivity value.
func (s Score) SubjectivityHint() string {
	switch {
	case s.Subjectivity < 0.2:
		return "Mostly neutral language"
	case s.Subjectivity < 0.5:
		return "Mildly opinionated tone"
	default:
		return "Strongly opinionated tone"
	}
}

// ToneHint is a human-readable label for the tone value.
func (s Score) ToneHint() string {
	switch {
	case s.Tone <= -0.2:
		return "Critical lean"
	case s.Tone >= 0.2:
		return "Favorable lean"
	default:
		return "Balanced"
	}
}

type category int

const (
	catNegator category = iota
	catHedge
	catIntensifier
	catOpinion
	catPositive
	catNegative
)

type term struct {
	words []string
	text  string
	cat   category
}

// Scorer applies a Lexicon. Safe for concurrent use; it is immutable after
// NewScorer.
type Scorer struct {
	lx    Lexicon
	index map[string][]term // first word -> candidate terms, longest first
}

// NewScorer builds a Scorer. Zero-valued constants in lx fall back to the
// defaults.
func NewScorer(lx Lexicon) *Scorer {
	lx = lx.withDefaults()
	s := &Scorer{lx: lx, index: make(map[string][]term)}

	// Earlier categories win when a term appears in more than one list.
	lists := []struct {
		cat   category
		terms []string
	}{
		{catNegator, lx.Negators},
		{catHedge, lx.Hedges},
		{catIntensifier, lx.Intensifiers},
		{catOpinion, lx.Opinion},
		{catPositive, lx.Positive},
		{catNegative, lx.Negative},
	}
	seen := make(map[string]bool)
	for _, l := range lists {
		for _, raw := range l.terms {
			words := Tokenize(raw)
			if len(words) == 0 {
				continue
			}
			text := strings.Join(words, " ")
			if seen[text] {
				continue
			}
			seen[text] = true
			s.index[words[0]] = append(s.index[words[0]], term{words: words, text: text, cat: l.cat})
		}
	}
	for k := range s.index {
		cands := s.index[k]
		sort.SliceStable(cands, func(i, j int) bool { return len(cands[i].words) > len(cands[j].words) })
	}
	return s
}

// Version returns the lexicon version used in cache keys.
func (s *Scorer) Version() string {
	return s.lx.Version
}

// MinWords returns the word count below which texts score neutral.
func (s *Scorer) MinWords() int {
	return s.lx.MinWords
}

// Score computes the heuristic for text. Texts shorter than the lexicon's
// MinWords score neutral: zero tone, zero subjectivity, no flagged terms.
func (s *Scorer) Score(text string) Score {
	words := Tokenize(text)
	out := Score{
		FlaggedTerms: []string{},
		WordCount:    len(words),
		TextKey:      TextKey(s.lx.Version, text),
	}
	if len(words) < s.lx.MinWords {
		return out
	}

	var subjective, positive, negative float64
	flagged := make(map[string]bool)
	lastNegator := -1 << 30

	for i := 0; i < len(words); {
		t, ok := s.match(words, i)
		if !ok {
			i++
			continue
		}
		negated := i-lastNegator <= s.lx.NegationWindow

		switch t.cat {
		case catNegator:
			lastNegator = i + len(t.words) - 1
		case catHedge, catIntensifier, catOpinion:
			subjective++
			flagged[t.text] = true
		case catPositive, catNegative:
			subjective += s.lx.PolarWeight
			flagged[t.text] = true
			isPositive := t.cat == catPositive
			if negated {
				isPositive = !isPositive
			}
			if isPositive {
				positive++
			} else {
				negative++
			}
		}
		i += len(t.words)
	}

	n := float64(len(words))
	out.Subjectivity = clamp(subjective/(n*s.lx.SubjectivitySaturation), 0, 1)
	out.Tone = clamp((positive-negative)/(n*s.lx.ToneSaturation), -1, 1)

	for t := range flagged {
		out.FlaggedTerms = append(out.FlaggedTerms, t)
	}
	sort.Strings(out.FlaggedTerms)
	return out
}

func (s *Scorer) match(words []string, i int) (term, bool) {
	for _, t := range s.index[words[i]] {
		if i+len(t.words) > len(words) {
			continue
		}
		ok := true
		for j := 1; j < len(t.words); j++ {
			if words[i+j] != t.words[j] {
				ok = false
				break
			}
		}
		if ok {
			return t, true
		}
	}
	return term{}, false
}

// Tokenize lowercases text and splits it into words. Apostrophes and
// hyphens inside a word are kept; typographic apostrophes are folded to
// ASCII.
func Tokenize(text string) []string {
	text = strings.NewReplacer("’", "'", "‘", "'").Replace(text)
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-'
	})
	words := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'-")
		if f != "" {
			words = append(words, f)
		}
	}
	return words
}

// TextKey identifies a (lexicon version, text) pair for score caching.
func TextKey(version, text string) string {
	h := sha256.New()
	h.Write([]byte(version))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil)[:12])
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
