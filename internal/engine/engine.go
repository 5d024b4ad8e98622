// Package engine runs the full recommendation pipeline: discovery,
// anchor selection, price history collection, correlation, portfolio
// construction and backtest synthesis.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/liamashdown/polyquant/internal/anchor"
	"github.com/liamashdown/polyquant/internal/backtest"
	"github.com/liamashdown/polyquant/internal/correlation"
	"github.com/liamashdown/polyquant/internal/discovery"
	"github.com/liamashdown/polyquant/internal/metrics"
	"github.com/liamashdown/polyquant/internal/portfolio"
	"github.com/liamashdown/polyquant/internal/pricecache"
	"github.com/liamashdown/polyquant/internal/series"
)

// ErrInsufficientData indicates the anchor's price history is too thin
// to correlate against.
var ErrInsufficientData = errors.New("insufficient anchor price history")

// PriceSource fetches daily price history for a CLOB token
type PriceSource interface {
	PriceHistory(ctx context.Context, tokenID string, days int) (series.Series, error)
}

// Discoverer turns a thesis into ranked market candidates
type Discoverer interface {
	Discover(ctx context.Context, thesis string, k int) ([]discovery.Candidate, discovery.Trace, error)
}

// Options bundles the pipeline tunables
type Options struct {
	HistoryDays       int
	MinPoints         int
	RollingWindows    []int
	MinAbsCorrelation float64
	MinVolumeUSD      float64
	TopN              int
	Workers           int
}

// Engine wires the pipeline stages together
type Engine struct {
	discoverer Discoverer
	selector   *anchor.Selector
	prices     PriceSource
	cache      *pricecache.Cache
	opts       Options
	log        *logrus.Logger
}

// New creates an engine. cache may be nil to disable price caching.
func New(discoverer Discoverer, selector *anchor.Selector, prices PriceSource, cache *pricecache.Cache, opts Options, log *logrus.Logger) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Engine{
		discoverer: discoverer,
		selector:   selector,
		prices:     prices,
		cache:      cache,
		opts:       opts,
		log:        log,
	}
}

// Recommendation is the full output of one pipeline run
type Recommendation struct {
	RunID       string                                       `json:"run_id"`
	Thesis      string                                       `json:"thesis"`
	GeneratedAt time.Time                                    `json:"generated_at"`
	Anchor      *anchor.Anchor                               `json:"anchor"`
	Trace       discovery.Trace                              `json:"discovery_trace"`
	Signals     []correlation.Signal                         `json:"signals"`
	Portfolio   []portfolio.Item                             `json:"portfolio"`
	PriceSeries map[string]series.Series                     `json:"price_series"`
	Rolling     map[int]map[string][]correlation.RollingPoint `json:"rolling_correlations"`
	Backtest    backtest.Result                              `json:"pnl_curves"`
	Note        string                                       `json:"note,omitempty"`
}

// SearchResult is the output of a discovery-only run
type SearchResult struct {
	Query      string                `json:"query"`
	Candidates []discovery.Candidate `json:"candidates"`
	Trace      discovery.Trace       `json:"trace"`
}

// RunSmartSearch runs discovery without the downstream pipeline,
// returning up to k ranked candidates and the expansion trace.
func (e *Engine) RunSmartSearch(ctx context.Context, query string, k int) (*SearchResult, error) {
	candidates, trace, err := e.discoverer.Discover(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	return &SearchResult{Query: query, Candidates: candidates, Trace: trace}, nil
}

// RunRecommendation executes the full pipeline for a thesis. An empty
// portfolio with a note is a successful outcome; no anchor at all is
// not.
func (e *Engine) RunRecommendation(ctx context.Context, thesis string) (*Recommendation, error) {
	start := time.Now()

	rec, err := e.run(ctx, thesis)
	status := "success"
	if err != nil {
		status = "error"
		if errors.Is(err, anchor.ErrNoAnchorFound) {
			status = "no_anchor"
		}
	}
	metrics.RecordRecommendation(time.Since(start), status)

	return rec, err
}

func (e *Engine) run(ctx context.Context, thesis string) (*Recommendation, error) {
	candidates, trace, err := e.discoverer.Discover(ctx, thesis, 0)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}

	anc, err := e.selector.Select(candidates, thesis)
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"thesis":      thesis,
		"anchor":      anc.Market.ConditionID,
		"token":       anc.TokenChoice,
		"candidates":  len(candidates),
	}).Info("Anchor selected")

	anchorHist, err := e.fetchHistory(ctx, anc.TokenID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientData, err)
	}
	if len(anchorHist) < e.opts.MinPoints {
		return nil, fmt.Errorf("%w: anchor has %d points, need %d", ErrInsufficientData, len(anchorHist), e.opts.MinPoints)
	}

	rec := &Recommendation{
		RunID:       uuid.NewString(),
		Thesis:      thesis,
		GeneratedAt: time.Now().UTC(),
		Anchor:      anc,
		Trace:       trace,
		PriceSeries: map[string]series.Series{anc.TokenID: anchorHist},
		Rolling:     make(map[int]map[string][]correlation.RollingPoint),
	}

	histories := e.fetchCandidateHistories(ctx, anc, candidates)

	corrEngine := correlation.NewEngine(anchorHist, e.opts.MinPoints)
	for _, c := range basketCandidates(anc, candidates) {
		hist, ok := histories[c.YesTokenID]
		if !ok {
			rec.Signals = append(rec.Signals, correlation.Signal{
				TokenID:   c.YesTokenID,
				Question:  c.Question,
				VolumeUSD: c.VolumeUSD,
				Reason:    "price history unavailable",
			})
			continue
		}
		rec.PriceSeries[c.YesTokenID] = hist
		rec.Signals = append(rec.Signals, corrEngine.Correlate(c.YesTokenID, c.Question, c.VolumeUSD, hist))
	}

	rec.Portfolio = portfolio.Construct(rec.Signals, portfolio.Options{
		MinVolumeUSD:      e.opts.MinVolumeUSD,
		MinAbsCorrelation: e.opts.MinAbsCorrelation,
		TopN:              e.opts.TopN,
	})
	if len(rec.Portfolio) == 0 {
		rec.Note = "anchor found but no candidate cleared the correlation and liquidity gates"
	}

	for _, window := range e.opts.RollingWindows {
		tracks := make(map[string][]correlation.RollingPoint)
		for _, item := range rec.Portfolio {
			if pts := corrEngine.Rolling(rec.PriceSeries[item.TokenID], window); len(pts) > 0 {
				tracks[item.TokenID] = pts
			}
		}
		rec.Rolling[window] = tracks
	}

	btHistories := make(map[string]series.Series, len(rec.Portfolio))
	for _, item := range rec.Portfolio {
		btHistories[item.TokenID] = rec.PriceSeries[item.TokenID]
	}
	rec.Backtest = backtest.Synthesize(rec.Portfolio, btHistories)

	e.log.WithFields(logrus.Fields{
		"run_id":    rec.RunID,
		"positions": len(rec.Portfolio),
		"signals":   len(rec.Signals),
	}).Info("Recommendation complete")

	return rec, nil
}

// fetchCandidateHistories pulls price history for every basket
// candidate concurrently. A failed fetch drops that candidate's entry;
// the caller degrades it to a reasoned signal.
func (e *Engine) fetchCandidateHistories(ctx context.Context, anc *anchor.Anchor, candidates []discovery.Candidate) map[string]series.Series {
	targets := basketCandidates(anc, candidates)

	var mu sync.Mutex
	histories := make(map[string]series.Series, len(targets))

	// Bounded concurrency via a token channel
	tokens := make(chan struct{}, e.opts.Workers)
	var wg sync.WaitGroup

	for _, c := range targets {
		wg.Add(1)
		go func(tokenID string) {
			defer wg.Done()
			tokens <- struct{}{}
			defer func() { <-tokens }()

			hist, err := e.fetchHistory(ctx, tokenID)
			if err != nil {
				e.log.WithError(err).WithField("token_id", tokenID).Debug("Candidate history unavailable")
				return
			}
			mu.Lock()
			histories[tokenID] = hist
			mu.Unlock()
		}(c.YesTokenID)
	}
	wg.Wait()

	return histories
}

func (e *Engine) fetchHistory(ctx context.Context, tokenID string) (series.Series, error) {
	if e.cache != nil {
		if hist, ok := e.cache.Get(tokenID, e.opts.HistoryDays); ok {
			return hist, nil
		}
	}

	hist, err := e.prices.PriceHistory(ctx, tokenID, e.opts.HistoryDays)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		e.cache.Set(tokenID, e.opts.HistoryDays, hist)
	}
	return hist, nil
}

// basketCandidates filters out the anchor's own market and candidates
// without a tradable YES token, preserving discovery order.
func basketCandidates(anc *anchor.Anchor, candidates []discovery.Candidate) []discovery.Candidate {
	out := make([]discovery.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.ConditionID == anc.Market.ConditionID || c.YesTokenID == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}
