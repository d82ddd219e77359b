package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/mkarlsen/shopchat/pkg/logger"
	"github.com/mkarlsen/shopchat/pkg/providers"
)

// priceBoundPattern catches price-sensitive browsing like "under $30" or
// "over $100". Those must always route to product search, never analytics.
var priceBoundPattern = regexp.MustCompile(`(?i)\b(under|over|below|above|less than|more than)\s*\$\s*\d`)

// LabelPicker is the LLM collaborator consulted when the scorer is unsure.
type LabelPicker interface {
	Ask(ctx context.Context, prompt string) (providers.Answer, error)
}

// Resolver classifies free text into the closed intent set.
type Resolver struct {
	scorer    Scorer
	threshold float64
	llm       LabelPicker
}

// NewResolver builds a resolver. llm may be an unconfigured client; its
// failures are swallowed and the scorer's pick stands.
func NewResolver(scorer Scorer, threshold float64, llm LabelPicker) *Resolver {
	if scorer == nil {
		scorer = NewLexicalScorer()
	}
	return &Resolver{scorer: scorer, threshold: threshold, llm: llm}
}

// Classify runs the pipeline: deterministic overrides, semantic scoring in
// canonical order, then LLM fallback below threshold. It never fails.
func (r *Resolver) Classify(ctx context.Context, text string) Intent {
	if priceBoundPattern.MatchString(text) {
		return ProductSearch
	}

	best, bestScore := r.bestMatch(text)

	if bestScore >= r.threshold {
		return best
	}

	if picked, ok := r.askLLM(ctx, text); ok {
		return picked
	}

	if bestScore == 0 {
		return Fallback
	}
	return best
}

// bestMatch scores the text against every intent's example phrases. Each
// intent's score is its best example; ties keep the earlier canonical intent.
func (r *Resolver) bestMatch(text string) (Intent, float64) {
	best := Canonical[0]
	bestScore := 0.0

	for _, it := range Canonical {
		score := 0.0
		for _, ex := range examples[it] {
			if s := r.scorer.Score(text, ex); s > score {
				score = s
			}
		}
		if score > bestScore {
			best = it
			bestScore = score
		}
	}
	return best, bestScore
}

func (r *Resolver) askLLM(ctx context.Context, text string) (Intent, bool) {
	if r.llm == nil {
		return "", false
	}

	labels := make([]string, len(Canonical))
	for i, it := range Canonical {
		labels[i] = string(it)
	}
	prompt := fmt.Sprintf("Classify this request into one of [%s]. Reply with the label only: %q",
		strings.Join(labels, ", "), text)

	ans, err := r.llm.Ask(ctx, prompt)
	if err != nil {
		logger.DebugCF("intent", "LLM fallback classification failed", map[string]interface{}{
			"error": err.Error(),
		})
		return "", false
	}

	content := strings.ToLower(ans.Content)
	for _, it := range Canonical {
		if strings.Contains(content, string(it)) {
			return it, true
		}
	}
	return "", false
}
