// Package search ranks survey quotes against free-text queries.
//
// Scoring is plain lexical matching: a phrase bonus when the whole query
// appears in the text, plus per-term substring and whole-word credit.
// Everything here is pure and deterministic.
package search

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Scoring constants. Changing any of these changes result order.
const (
	// PhraseBonus is added when the whole lowercased query is a substring of the text.
	PhraseBonus = 10.0

	// TermMatchScore is added for each query term found as a substring.
	TermMatchScore = 1.0

	// WordBoundaryWeight is added per whole-word occurrence of a term.
	WordBoundaryWeight = 0.5

	// LabelMatchMultiplier scales a theme label's score before it is added
	// to each of the theme's quotes in chat ranking.
	LabelMatchMultiplier = 2.0

	// MinTermLength is the rune length a term must exceed to be scored.
	MinTermLength = 2
)

// Query is a query prepared for repeated scoring.
type Query struct {
	raw    string
	phrase string
	terms  []term
}

type term struct {
	text     string
	boundary *regexp.Regexp
}

// CompileQuery lowercases and tokenizes query once. Terms of two runes or
// fewer are dropped.
func CompileQuery(query string) *Query {
	phrase := strings.ToLower(query)
	q := &Query{raw: query, phrase: phrase}

	for _, f := range strings.Fields(phrase) {
		if utf8.RuneCountInString(f) <= MinTermLength {
			continue
		}
		q.terms = append(q.terms, term{
			text:     f,
			boundary: regexp.MustCompile(`\b` + regexp.QuoteMeta(f) + `\b`),
		})
	}
	return q
}

// String returns the query as given.
func (q *Query) String() string {
	return q.raw
}

// Terms returns the lowercased terms that take part in scoring.
func (q *Query) Terms() []string {
	out := make([]string, len(q.terms))
	for i, t := range q.terms {
		out[i] = t.text
	}
	return out
}

// Empty reports whether the query is blank.
func (q *Query) Empty() bool {
	return strings.TrimSpace(q.phrase) == ""
}

// Score returns the relevance of text to q. Zero means no match.
func (q *Query) Score(text string) float64 {
	if q.Empty() {
		return 0
	}

	lower := strings.ToLower(text)
	score := 0.0

	if strings.Contains(lower, q.phrase) {
		score += PhraseBonus
	}

	for _, t := range q.terms {
		if !strings.Contains(lower, t.text) {
			continue
		}
		score += TermMatchScore
		score += WordBoundaryWeight * float64(len(t.boundary.FindAllStringIndex(lower, -1)))
	}

	return score
}

// Score returns the relevance of text to query.
func Score(text, query string) float64 {
	return CompileQuery(query).Score(text)
}
