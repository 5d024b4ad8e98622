package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/liamashdown/polyquant/internal/ai"
	"github.com/liamashdown/polyquant/internal/market"
)

// Blend weights for the combined relevance score. Lexical similarity
// dominates; the semantic provider refines the ranking.
const (
	lexicalWeight  = 0.7
	semanticWeight = 0.3
)

// Scorer rates how relevant a market is to a free-text thesis on a
// [0,100] scale, combining fuzzy lexical similarity against the market
// text with the provider's semantic alignment score.
type Scorer struct {
	provider ai.Provider
	metric   *metrics.OverlapCoefficient
}

// NewScorer creates a relevance scorer backed by the given provider
func NewScorer(provider ai.Provider) *Scorer {
	m := metrics.NewOverlapCoefficient()
	m.CaseSensitive = false
	return &Scorer{provider: provider, metric: m}
}

// Score returns the combined relevance score in [0,100] and a
// human-readable explanation of how it was derived.
func (s *Scorer) Score(ctx context.Context, thesis string, m market.Market) (float64, string) {
	lexical := s.Lexical(thesis, m.SearchText())

	semantic, err := s.provider.ScoreAlignment(ctx, thesis, m.Question)
	note := ""
	if err != nil {
		// Containment: a provider failure degrades to a neutral
		// semantic score, never a failed request
		semantic = 0.5
		note = ", semantic degraded to neutral"
	}

	score := lexicalWeight*lexical + semanticWeight*semantic*100
	if score > 100 {
		score = 100
	}

	explanation := fmt.Sprintf("lexical %.1f, semantic %.2f (%s)%s", lexical, semantic, s.provider.Name(), note)
	return score, explanation
}

// Lexical returns the fuzzy text similarity in [0,100] between the
// thesis and a market's searchable text.
func (s *Scorer) Lexical(thesis, text string) float64 {
	return 100 * strutil.Similarity(strings.ToLower(thesis), strings.ToLower(text), s.metric)
}
