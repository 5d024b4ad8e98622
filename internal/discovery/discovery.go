// Package discovery turns a free-text thesis into a ranked list of
// candidate markets. Keyword expansion and relevance scoring run in
// bounded rounds; when nothing clears the threshold the provider
// supplies a proxy thesis and the search widens.
package discovery

import (
	"context"
	"fmt"
	"sort"

	"github.com/liamashdown/polyquant/internal/ai"
	"github.com/liamashdown/polyquant/internal/market"
	"github.com/liamashdown/polyquant/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Catalog is the external market catalog collaborator. Pagination is
// the collaborator's concern.
type Catalog interface {
	// SearchMarkets returns active markets whose question or event
	// title matches any keyword, at or above the volume floor
	SearchMarkets(ctx context.Context, keywords []string, minVolumeUSD float64, limit int) ([]market.Market, error)
}

// Candidate is a market with its relevance score and the reason it was
// retrieved. Candidates are request-scoped and never persisted.
type Candidate struct {
	market.Market
	RelevanceScore   float64 `json:"relevance_score"`
	MatchExplanation string  `json:"match_explanation"`
}

// RoundTrace records one expansion round for explainability
type RoundTrace struct {
	Thesis       string   `json:"thesis"`
	Keywords     []string `json:"keywords"`
	MarketsFound int      `json:"markets_found"`
	Accepted     int      `json:"accepted"`
}

// Trace is the full expansion trace returned with discovery results
type Trace struct {
	Rounds        []RoundTrace `json:"rounds"`
	KeywordsTried []string     `json:"keywords_tried"`
	Deduped       int          `json:"deduped"`
}

// Options configures the orchestrator
type Options struct {
	Threshold      float64 // relevance acceptance gate, [0,100]
	MaxProxyRounds int     // retries after the initial round; hard cap
	Limit          int     // markets considered per round
	MinVolumeUSD   float64 // catalog liquidity floor
}

// Orchestrator drives keyword expansion, scoring and proxy-thesis
// retries against the catalog.
type Orchestrator struct {
	catalog  Catalog
	provider ai.Provider
	scorer   *Scorer
	opts     Options
	log      *logrus.Logger
}

// New creates a discovery orchestrator
func New(catalog Catalog, provider ai.Provider, opts Options, log *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		catalog:  catalog,
		provider: provider,
		scorer:   NewScorer(provider),
		opts:     opts,
		log:      log,
	}
}

// Discover returns up to k candidates clearing the relevance
// threshold, ranked by score descending with volume and condition ID
// tie-breaks for determinism, plus the expansion trace. An empty
// result is not an error; the caller decides whether that is fatal.
func (o *Orchestrator) Discover(ctx context.Context, thesis string, k int) ([]Candidate, Trace, error) {
	var trace Trace
	best := make(map[string]Candidate)
	var failedKeywords []string

	searchThesis := thesis
	// Round 0 is the thesis itself; each retry is one proxy thesis
	for round := 0; round <= o.opts.MaxProxyRounds; round++ {
		if round > 0 {
			proxy, err := o.provider.GenerateProxyThesis(ctx, thesis, failedKeywords)
			if err != nil {
				return nil, trace, fmt.Errorf("generate proxy thesis: %w", err)
			}
			searchThesis = proxy
		}

		keywords, err := o.provider.GenerateKeywords(ctx, searchThesis)
		if err != nil {
			return nil, trace, fmt.Errorf("generate keywords: %w", err)
		}

		found, err := o.catalog.SearchMarkets(ctx, keywords, o.opts.MinVolumeUSD, o.opts.Limit)
		if err != nil {
			return nil, trace, fmt.Errorf("search markets: %w", err)
		}

		accepted := 0
		for _, m := range found {
			metrics.CandidatesScored.Inc()
			// Relevance is always judged against the original thesis,
			// even when a proxy thesis drove the search
			score, explanation := o.scorer.Score(ctx, thesis, m)
			if score < o.opts.Threshold {
				continue
			}
			accepted++
			metrics.CandidatesAccepted.Inc()

			if prev, seen := best[m.ConditionID]; seen {
				trace.Deduped++
				if prev.RelevanceScore >= score {
					continue
				}
			}
			best[m.ConditionID] = Candidate{
				Market:           m,
				RelevanceScore:   score,
				MatchExplanation: explanation,
			}
		}

		trace.Rounds = append(trace.Rounds, RoundTrace{
			Thesis:       searchThesis,
			Keywords:     keywords,
			MarketsFound: len(found),
			Accepted:     accepted,
		})
		trace.KeywordsTried = append(trace.KeywordsTried, keywords...)
		failedKeywords = append(failedKeywords, keywords...)

		if len(best) > 0 {
			break
		}
	}

	metrics.DiscoveryRounds.Observe(float64(len(trace.Rounds)))

	candidates := rank(best)
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}

	o.log.WithFields(logrus.Fields{
		"thesis":     thesis,
		"rounds":     len(trace.Rounds),
		"candidates": len(candidates),
	}).Info("Discovery complete")

	return candidates, trace, nil
}

// rank orders candidates by score descending, then volume descending,
// then condition ID ascending so identical inputs always produce the
// identical order.
func rank(best map[string]Candidate) []Candidate {
	candidates := make([]Candidate, 0, len(best))
	for _, c := range best {
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].RelevanceScore != candidates[j].RelevanceScore {
			return candidates[i].RelevanceScore > candidates[j].RelevanceScore
		}
		if candidates[i].VolumeUSD != candidates[j].VolumeUSD {
			return candidates[i].VolumeUSD > candidates[j].VolumeUSD
		}
		return candidates[i].ConditionID < candidates[j].ConditionID
	})
	return candidates
}
