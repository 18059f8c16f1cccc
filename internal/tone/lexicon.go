package tone

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon is the tunable data behind the scorer: term lists and the
// normalization constants. Terms are matched case-insensitively against
// whole words; multi-word terms match consecutive words.
type Lexicon struct {
	// Version is mixed into score cache keys. Bump it whenever the lexicon
	// or constants change so cached scores are recomputed.
	Version string `yaml:"version"`

	Hedges       []string `yaml:"hedges"`
	Intensifiers []string `yaml:"intensifiers"`
	Opinion      []string `yaml:"opinion"`
	Positive     []string `yaml:"positive"`
	Negative     []string `yaml:"negative"`
	Negators     []string `yaml:"negators"`

	// MinWords is the word count below which a text scores neutral.
	MinWords int `yaml:"min_words"`

	// SubjectivitySaturation is the density of subjective hits per word at
	// which subjectivity reaches 1.
	SubjectivitySaturation float64 `yaml:"subjectivity_saturation"`

	// ToneSaturation is the net polar density per word at which tone
	// reaches +1 or -1.
	ToneSaturation float64 `yaml:"tone_saturation"`

	// PolarWeight is how much a polar word counts toward subjectivity.
	PolarWeight float64 `yaml:"polar_weight"`

	// NegationWindow is how many preceding words a negator reaches.
	NegationWindow int `yaml:"negation_window"`
}

// DefaultLexicon returns the built-in term lists and constants.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Version: "lex-1",
		Hedges: []string{
			"allegedly", "apparently", "arguably", "could", "likely",
			"maybe", "might", "perhaps", "possibly", "presumably",
			"reportedly", "seemingly", "seems", "supposedly", "unclear",
			"it appears", "it seems",
		},
		Intensifiers: []string{
			"absolutely", "completely", "deeply", "enormously", "entirely",
			"extremely", "hugely", "incredibly", "outright", "really",
			"remarkably", "so-called", "totally", "truly", "utterly",
			"very",
		},
		Opinion: []string{
			"believe", "clearly", "frankly", "obviously", "ought",
			"should", "shameful", "undoubtedly", "unfortunately", "fortunately",
			"in my view", "i think", "we think", "of course", "must",
			"surely", "admittedly", "outrageous", "ridiculous",
		},
		Positive: []string{
			"achieve", "benefit", "best", "boost", "breakthrough",
			"celebrate", "success", "successful", "excellent", "gain",
			"good", "great", "growth", "hope", "improve",
			"improved", "improvement", "innovative", "praise", "progress",
			"recover", "recovery", "robust", "safe", "strong",
			"support", "thrive", "win", "welcome", "resilient",
		},
		Negative: []string{
			"attack", "bad", "collapse", "crisis", "damage",
			"danger", "dangerous", "decline", "disaster", "fail",
			"failed", "failure", "fear", "crash", "kill",
			"killed", "loss", "poor", "risk", "scandal",
			"slump", "threat", "turmoil", "violence", "weak",
			"worse", "worst", "war", "chaos", "condemn",
		},
		Negators: []string{
			"not", "no", "never", "without", "hardly", "isn't",
			"wasn't", "aren't", "don't", "doesn't", "didn't", "won't",
		},
		MinWords:               12,
		SubjectivitySaturation: 0.12,
		ToneSaturation:         0.04,
		PolarWeight:            0.5,
		NegationWindow:         2,
	}
}

// LoadLexicon reads a YAML lexicon from path. Missing lists and zero
// constants fall back to DefaultLexicon values, so a file may override only
// what it needs.
func LoadLexicon(path string) (Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("read lexicon: %w", err)
	}
	var lx Lexicon
	if err := yaml.Unmarshal(data, &lx); err != nil {
		return Lexicon{}, fmt.Errorf("parse lexicon %s: %w", path, err)
	}
	return lx.withDefaults(), nil
}

func (lx Lexicon) withDefaults() Lexicon {
	def := DefaultLexicon()
	if strings.TrimSpace(lx.Version) == "" {
		lx.Version = def.Version + "+custom"
	}
	if lx.Hedges == nil {
		lx.Hedges = def.Hedges
	}
	if lx.Intensifiers == nil {
		lx.Intensifiers = def.Intensifiers
	}
	if lx.Opinion == nil {
		lx.Opinion = def.Opinion
	}
	if lx.Positive == nil {
		lx.Positive = def.Positive
	}
	if lx.Negative == nil {
		lx.Negative = def.Negative
	}
	if lx.Negators == nil {
		lx.Negators = def.Negators
	}
	if lx.MinWords <= 0 {
		lx.MinWords = def.MinWords
	}
	if lx.SubjectivitySaturation <= 0 {
		lx.SubjectivitySaturation = def.SubjectivitySaturation
	}
	if lx.ToneSaturation <= 0 {
		lx.ToneSaturation = def.ToneSaturation
	}
	if lx.PolarWeight <= 0 {
		lx.PolarWeight = def.PolarWeight
	}
	if lx.NegationWindow <= 0 {
		lx.NegationWindow = def.NegationWindow
	}
	return lx
}
