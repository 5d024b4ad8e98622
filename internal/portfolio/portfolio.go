// Package portfolio converts correlation signals into a weighted,
// deterministic basket of positions.
package portfolio

import (
	"math"
	"sort"

	"github.com/liamashdown/polyquant/internal/correlation"
)

// Item is one position in the constructed basket
type Item struct {
	correlation.Signal
	Weight    float64 `json:"weight"`
	WeightPct float64 `json:"weight_pct"`
}

// Options configures portfolio construction
type Options struct {
	MinVolumeUSD      float64 // positions below this are dropped
	MinAbsCorrelation float64 // optional conviction floor; 0 keeps every non-zero signal
	TopN              int     // 0 means unbounded
}

// Construct filters signals and assigns normalized weights. The weight
// of a retained signal is |correlation| * log(1+volume): pure
// correlation over-weights thin, noisy markets, so conviction is
// dampened by liquidity. Weights are normalized to sum to 1 and the
// ordering is fully deterministic for identical inputs.
func Construct(signals []correlation.Signal, opts Options) []Item {
	var kept []correlation.Signal
	for _, sig := range signals {
		if sig.Correlation == nil {
			continue
		}
		if *sig.Correlation == 0 {
			// No co-movement means no actionable direction
			continue
		}
		if math.Abs(*sig.Correlation) < opts.MinAbsCorrelation {
			continue
		}
		if sig.VolumeUSD < opts.MinVolumeUSD {
			continue
		}
		kept = append(kept, sig)
	}

	if len(kept) == 0 {
		return nil
	}

	raw := make([]float64, len(kept))
	var total float64
	for i, sig := range kept {
		raw[i] = math.Abs(*sig.Correlation) * math.Log1p(sig.VolumeUSD)
		total += raw[i]
	}
	if total == 0 {
		return nil
	}

	items := make([]Item, len(kept))
	for i, sig := range kept {
		w := raw[i] / total
		items[i] = Item{
			Signal:    sig,
			Weight:    w,
			WeightPct: w * 100,
		}
	}

	// Descending weight; ties break by data depth then token ID so the
	// order is reproducible
	sort.Slice(items, func(i, j int) bool {
		if items[i].Weight != items[j].Weight {
			return items[i].Weight > items[j].Weight
		}
		if items[i].NDataPoints != items[j].NDataPoints {
			return items[i].NDataPoints > items[j].NDataPoints
		}
		return items[i].TokenID < items[j].TokenID
	})

	if opts.TopN > 0 && len(items) > opts.TopN {
		items = items[:opts.TopN]
		items = renormalize(items)
	}

	return items
}

// renormalize rescales weights to sum to 1 after truncation
func renormalize(items []Item) []Item {
	var total float64
	for _, it := range items {
		total += it.Weight
	}
	if total == 0 {
		return items
	}
	for i := range items {
		items[i].Weight /= total
		items[i].WeightPct = items[i].Weight * 100
	}
	return items
}
