package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamashdown/polyquant/internal/anchor"
	"github.com/liamashdown/polyquant/internal/discovery"
	"github.com/liamashdown/polyquant/internal/market"
	"github.com/liamashdown/polyquant/internal/series"
)

type fakeDiscoverer struct {
	candidates []discovery.Candidate
	err        error
}

func (f *fakeDiscoverer) Discover(_ context.Context, _ string, k int) ([]discovery.Candidate, discovery.Trace, error) {
	if f.err != nil {
		return nil, discovery.Trace{}, f.err
	}
	c := f.candidates
	if k > 0 && len(c) > k {
		c = c[:k]
	}
	return c, discovery.Trace{Rounds: []discovery.RoundTrace{{MarketsFound: len(c)}}}, nil
}

type fakePrices struct {
	histories map[string]series.Series
}

func (f *fakePrices) PriceHistory(_ context.Context, tokenID string, _ int) (series.Series, error) {
	hist, ok := f.histories[tokenID]
	if !ok {
		return nil, errors.New("price history unavailable")
	}
	return hist, nil
}

func day(offset int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func mkSeries(start int, prices []float64) series.Series {
	var s series.Series
	for i, p := range prices {
		s = append(s, series.Point{Date: day(start + i), Price: p})
	}
	return s
}

func cand(conditionID, question, yesToken string, volume, score float64) discovery.Candidate {
	return discovery.Candidate{
		Market: market.Market{
			ConditionID: conditionID,
			Question:    question,
			YesTokenID:  yesToken,
			NoTokenID:   yesToken + "-no",
			VolumeUSD:   volume,
			Active:      true,
		},
		RelevanceScore: score,
	}
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newEngine(d Discoverer, p PriceSource, opts Options) *Engine {
	return New(d, anchor.New(nil), p, nil, opts, testLogger())
}

func linear(n int, start, step float64) []float64 {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = start + float64(i)*step
	}
	return vals
}

func TestRunRecommendationFullPipeline(t *testing.T) {
	disc := &fakeDiscoverer{candidates: []discovery.Candidate{
		cand("cond-anchor", "Will rates fall in 2026?", "tok-anchor", 90000, 95),
		cand("cond-corr", "Will housing starts rise?", "tok-corr", 50000, 80),
	}}
	prices := &fakePrices{histories: map[string]series.Series{
		"tok-anchor": mkSeries(0, linear(10, 0.40, 0.01)),
		"tok-corr":   mkSeries(0, linear(10, 0.20, 0.02)),
	}}

	eng := newEngine(disc, prices, Options{
		HistoryDays:    30,
		MinPoints:      5,
		RollingWindows: []int{7},
		Workers:        2,
	})

	rec, err := eng.RunRecommendation(context.Background(), "Rates will fall in 2026")
	require.NoError(t, err)

	require.NotNil(t, rec.Anchor)
	assert.Equal(t, "cond-anchor", rec.Anchor.Market.ConditionID)
	assert.NotEmpty(t, rec.RunID)

	require.Len(t, rec.Portfolio, 1)
	assert.Equal(t, "tok-corr", rec.Portfolio[0].TokenID)
	assert.Equal(t, "BUY_YES", rec.Portfolio[0].Action)
	assert.InDelta(t, 1.0, rec.Portfolio[0].Weight, 1e-9)

	// Anchor and candidate series both surface in the artifact data
	assert.Contains(t, rec.PriceSeries, "tok-anchor")
	assert.Contains(t, rec.PriceSeries, "tok-corr")

	// Rolling track exists for the portfolio token: 10 points, window 7
	require.Contains(t, rec.Rolling, 7)
	assert.Len(t, rec.Rolling[7]["tok-corr"], 4)

	assert.NotEmpty(t, rec.Backtest.Portfolio)
	assert.Empty(t, rec.Note)
}

func TestRunRecommendationNoAnchor(t *testing.T) {
	eng := newEngine(&fakeDiscoverer{}, &fakePrices{}, Options{MinPoints: 5})

	_, err := eng.RunRecommendation(context.Background(), "Totally unrelated nonsense xyz123")
	assert.ErrorIs(t, err, anchor.ErrNoAnchorFound)
}

func TestRunRecommendationThinAnchorHistory(t *testing.T) {
	disc := &fakeDiscoverer{candidates: []discovery.Candidate{
		cand("cond-anchor", "Will rates fall?", "tok-anchor", 90000, 95),
	}}
	prices := &fakePrices{histories: map[string]series.Series{
		"tok-anchor": mkSeries(0, linear(3, 0.40, 0.01)),
	}}

	eng := newEngine(disc, prices, Options{MinPoints: 20})
	_, err := eng.RunRecommendation(context.Background(), "Rates will fall")
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestRunRecommendationThinOverlapExcluded(t *testing.T) {
	disc := &fakeDiscoverer{candidates: []discovery.Candidate{
		cand("cond-anchor", "Will rates fall?", "tok-anchor", 90000, 95),
		cand("cond-thin", "Will housing starts rise?", "tok-thin", 50000, 80),
	}}
	prices := &fakePrices{histories: map[string]series.Series{
		"tok-anchor": mkSeries(0, linear(25, 0.40, 0.01)),
		// Only 5 days of overlap, below the 20 point floor
		"tok-thin": mkSeries(20, linear(5, 0.20, 0.02)),
	}}

	eng := newEngine(disc, prices, Options{HistoryDays: 30, MinPoints: 20, Workers: 2})
	rec, err := eng.RunRecommendation(context.Background(), "Rates will fall")
	require.NoError(t, err)

	require.Len(t, rec.Signals, 1)
	assert.Nil(t, rec.Signals[0].Correlation)
	assert.NotEmpty(t, rec.Signals[0].Reason)

	assert.Empty(t, rec.Portfolio)
	assert.NotEmpty(t, rec.Note)
}

func TestRunRecommendationFetchFailureContained(t *testing.T) {
	disc := &fakeDiscoverer{candidates: []discovery.Candidate{
		cand("cond-anchor", "Will rates fall?", "tok-anchor", 90000, 95),
		cand("cond-ok", "Will housing starts rise?", "tok-ok", 50000, 80),
		cand("cond-broken", "Will GDP grow?", "tok-broken", 40000, 75),
	}}
	prices := &fakePrices{histories: map[string]series.Series{
		"tok-anchor": mkSeries(0, linear(10, 0.40, 0.01)),
		"tok-ok":     mkSeries(0, linear(10, 0.20, 0.02)),
		// tok-broken has no history at all
	}}

	eng := newEngine(disc, prices, Options{HistoryDays: 30, MinPoints: 5, Workers: 2})
	rec, err := eng.RunRecommendation(context.Background(), "Rates will fall")
	require.NoError(t, err)

	require.Len(t, rec.Signals, 2)
	require.Len(t, rec.Portfolio, 1)
	assert.Equal(t, "tok-ok", rec.Portfolio[0].TokenID)

	var broken bool
	for _, s := range rec.Signals {
		if s.TokenID == "tok-broken" {
			broken = true
			assert.Nil(t, s.Correlation)
			assert.Equal(t, "price history unavailable", s.Reason)
		}
	}
	assert.True(t, broken)
}

func TestRunRecommendationDeterministic(t *testing.T) {
	disc := &fakeDiscoverer{candidates: []discovery.Candidate{
		cand("cond-anchor", "Will rates fall?", "tok-anchor", 90000, 95),
		cand("cond-a", "Will housing starts rise?", "tok-a", 50000, 85),
		cand("cond-b", "Will GDP grow?", "tok-b", 60000, 80),
	}}
	prices := &fakePrices{histories: map[string]series.Series{
		"tok-anchor": mkSeries(0, linear(10, 0.40, 0.01)),
		"tok-a":      mkSeries(0, linear(10, 0.20, 0.02)),
		"tok-b":      mkSeries(0, []float64{0.60, 0.58, 0.57, 0.55, 0.52, 0.50, 0.49, 0.47, 0.45, 0.44}),
	}}
	opts := Options{HistoryDays: 30, MinPoints: 5, Workers: 4}

	var firstOrder []string
	for run := 0; run < 5; run++ {
		rec, err := newEngine(disc, prices, opts).RunRecommendation(context.Background(), "Rates will fall")
		require.NoError(t, err)
		require.Len(t, rec.Portfolio, 2)

		var order []string
		for _, item := range rec.Portfolio {
			order = append(order, item.TokenID)
		}
		if run == 0 {
			firstOrder = order
			continue
		}
		assert.Equal(t, firstOrder, order)
	}
}

func TestRunSmartSearch(t *testing.T) {
	disc := &fakeDiscoverer{candidates: []discovery.Candidate{
		cand("cond-a", "Will rates fall?", "tok-a", 90000, 95),
		cand("cond-b", "Will rates rise?", "tok-b", 50000, 80),
	}}

	eng := newEngine(disc, &fakePrices{}, Options{MinPoints: 5})
	res, err := eng.RunSmartSearch(context.Background(), "rates", 1)
	require.NoError(t, err)

	assert.Equal(t, "rates", res.Query)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "cond-a", res.Candidates[0].ConditionID)
	assert.NotEmpty(t, res.Trace.Rounds)
}
