package spell

import (
	"github.com/agnivade/levenshtein"
)

// Scorer measures how far a word is from a candidate correction. Lower is
// closer; candidates beyond the checker's MaxDistance are discarded.
type Scorer interface {
	Distance(word, candidate string) int
}

// LevenshteinScorer counts single-character inserts, deletes and substitutions.
type LevenshteinScorer struct{}

// Distance implements Scorer
func (LevenshteinScorer) Distance(word, candidate string) int {
	return levenshtein.ComputeDistance(word, candidate)
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(word, candidate string) int

// Distance implements Scorer
func (f ScorerFunc) Distance(word, candidate string) int {
	return f(word, candidate)
}
