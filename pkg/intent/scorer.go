package intent

import (
	"math"
	"strings"
	"unicode"
)

// Scorer rates how close a user query is to a canonical example phrase.
// Scores must be in [0, 1] and deterministic for identical inputs, which is
// what keeps the resolver's tie-break contract meaningful.
type Scorer interface {
	Score(query, example string) float64
}

// LexicalScorer is the default scorer: cosine similarity over the sets of
// lowercased word tokens. It has no model weights and therefore identical
// behavior on every run, which the tests rely on.
type LexicalScorer struct{}

func NewLexicalScorer() *LexicalScorer { return &LexicalScorer{} }

func (s *LexicalScorer) Score(query, example string) float64 {
	q := tokenSet(query)
	e := tokenSet(example)
	if len(q) == 0 || len(e) == 0 {
		return 0
	}

	overlap := 0
	for tok := range e {
		if _, ok := q[tok]; ok {
			overlap++
		}
	}
	if overlap == 0 {
		return 0
	}
	return float64(overlap) / math.Sqrt(float64(len(q))*float64(len(e)))
}

func tokenSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
