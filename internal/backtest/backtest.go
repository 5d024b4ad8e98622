// Package backtest replays historical prices against the constructed
// portfolio to produce cumulative P&L curves. Returns are additive
// simple returns, not compounded: the curves are estimates for
// illustration, not execution-accurate fills.
package backtest

import (
	"sort"
	"time"

	"github.com/liamashdown/polyquant/internal/portfolio"
	"github.com/liamashdown/polyquant/internal/series"
)

// CurvePoint is one observation on a P&L curve
type CurvePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Result holds the aggregate portfolio curve and one curve per
// position. Per-position curves are unweighted (a full allocation to
// that token); the portfolio curve applies weights.
type Result struct {
	Portfolio []CurvePoint            `json:"portfolio"`
	Positions map[string][]CurvePoint `json:"positions"`
}

// Synthesize computes cumulative P&L over the union of all position
// histories. A BUY_NO position profits when price falls, so its P&L
// contribution is the negative of the raw price return. A position
// with no data on a given date contributes zero that day; the
// portfolio curve always spans the full available range, starting at
// zero on the first date.
func Synthesize(items []portfolio.Item, histories map[string]series.Series) Result {
	res := Result{Positions: make(map[string][]CurvePoint)}
	if len(items) == 0 {
		return res
	}

	type position struct {
		weight    float64
		direction float64
		returns   map[time.Time]float64
		dates     []time.Time
	}

	dateSet := make(map[time.Time]bool)
	positions := make(map[string]position)

	for _, item := range items {
		hist := series.Normalize(histories[item.TokenID])
		if len(hist) < 2 {
			continue
		}

		direction := 1.0
		if item.Action == "BUY_NO" {
			direction = -1.0
		}

		pos := position{
			weight:    item.Weight,
			direction: direction,
			returns:   make(map[time.Time]float64, len(hist)-1),
		}
		rets := series.Returns(priceValues(hist))
		for i, r := range rets {
			d := hist[i+1].Date
			pos.returns[d] = r
			pos.dates = append(pos.dates, d)
			dateSet[d] = true
		}
		// The first observed date anchors the position's curve at zero
		pos.dates = append([]time.Time{hist[0].Date}, pos.dates...)
		dateSet[hist[0].Date] = true

		positions[item.TokenID] = pos
	}

	if len(positions) == 0 {
		return res
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	// Aggregate curve on the union axis
	cum := 0.0
	res.Portfolio = make([]CurvePoint, 0, len(dates))
	for _, d := range dates {
		daily := 0.0
		for _, pos := range positions {
			if r, ok := pos.returns[d]; ok {
				daily += pos.weight * pos.direction * r
			}
		}
		cum += daily
		res.Portfolio = append(res.Portfolio, CurvePoint{Date: d, Value: cum})
	}

	// Per-position curves on each position's own dates
	for tokenID, pos := range positions {
		curve := make([]CurvePoint, 0, len(pos.dates))
		c := 0.0
		for _, d := range pos.dates {
			if r, ok := pos.returns[d]; ok {
				c += pos.direction * r
			}
			curve = append(curve, CurvePoint{Date: d, Value: c})
		}
		res.Positions[tokenID] = curve
	}

	return res
}

func priceValues(s series.Series) []float64 {
	vals := make([]float64, len(s))
	for i, pt := range s {
		vals[i] = pt.Price
	}
	return vals
}
