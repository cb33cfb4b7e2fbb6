// Package matcher unifies driver name spellings across the two hours
// sources. The timesheet feed's spellings are treated as ground truth; trip
// feed spellings are re-keyed onto them when a similarity score clears the
// configured threshold.
package matcher

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Scorer computes a similarity score between two strings on a 0-100 scale.
// Implementations must be symmetric and token-order-independent: "JOHN
// SMITH" and "SMITH JOHN" should score as near-identical.
type Scorer interface {
	Score(a, b string) float64
}

// TokenSortScorer scores strings by sorting their tokens before comparing
// edit distance, so reordered name parts cost nothing and only substituted
// characters reduce the score.
type TokenSortScorer struct{}

// NewTokenSortScorer creates a token-sort similarity scorer.
func NewTokenSortScorer() *TokenSortScorer {
	return &TokenSortScorer{}
}

// Score returns 100 for identical token multisets and degrades with edit
// distance between the token-sorted forms. Punctuation is stripped before
// tokenizing so "SMITH, JOHN" and "JOHN SMITH" compare equal.
func (s *TokenSortScorer) Score(a, b string) float64 {
	na := tokenSortNormalize(a)
	nb := tokenSortNormalize(b)

	if na == nb {
		return 100
	}
	if na == "" || nb == "" {
		return 0
	}

	dist := levenshtein.ComputeDistance(na, nb)
	maxLen := len([]rune(na))
	if l := len([]rune(nb)); l > maxLen {
		maxLen = l
	}

	return 100 * (1 - float64(dist)/float64(maxLen))
}

// tokenSortNormalize uppercases, strips punctuation, splits into tokens,
// sorts them, and rejoins with single spaces.
func tokenSortNormalize(s string) string {
	cleaned := strings.NewReplacer(",", " ", ".", " ", "'", "", "\"", "").Replace(strings.ToUpper(s))
	tokens := strings.Fields(cleaned)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
