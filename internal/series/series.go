package series

import (
	"sort"
	"time"
)

// Point is a single observation of a token price. Prices are
// probabilities in [0,1].
type Point struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"value"`
}

// Series is a price history for one token, ordered by time. Raw series
// from the data layer may contain gaps, duplicate days and intraday
// timestamps.
type Series []Point

// AlignedPair holds two series resampled onto a shared date axis. Only
// dates present in both inputs are kept, so A, B and Dates always have
// equal length with no missing entries.
type AlignedPair struct {
	Dates []time.Time
	A     []float64
	B     []float64
}

// Len returns the number of aligned observations.
func (p AlignedPair) Len() int {
	return len(p.Dates)
}

// Normalize truncates timestamps to UTC date granularity, keeps the
// last observation per day and sorts ascending. Calling it on an
// already-normalized series is a no-op.
func Normalize(s Series) Series {
	if len(s) == 0 {
		return nil
	}

	type obs struct {
		at    time.Time
		price float64
	}
	byDay := make(map[time.Time]obs, len(s))
	order := make([]time.Time, 0, len(s))
	for _, pt := range s {
		day := pt.Date.UTC().Truncate(24 * time.Hour)
		cur, seen := byDay[day]
		if !seen {
			order = append(order, day)
		}
		// Keep the latest observation within each day
		if !seen || !pt.Date.Before(cur.at) {
			byDay[day] = obs{at: pt.Date, price: pt.Price}
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })

	out := make(Series, 0, len(order))
	for _, day := range order {
		out = append(out, Point{Date: day, Price: byDay[day].price})
	}
	return out
}

// Align resamples two series to date granularity and joins them on the
// intersection of their dates. ok is false when the overlap has fewer
// than minPoints entries; callers must treat that as a degraded signal,
// not a failure.
func Align(a, b Series, minPoints int) (AlignedPair, bool) {
	na := Normalize(a)
	nb := Normalize(b)

	bByDay := make(map[time.Time]float64, len(nb))
	for _, pt := range nb {
		bByDay[pt.Date] = pt.Price
	}

	var pair AlignedPair
	for _, pt := range na {
		if bv, ok := bByDay[pt.Date]; ok {
			pair.Dates = append(pair.Dates, pt.Date)
			pair.A = append(pair.A, pt.Price)
			pair.B = append(pair.B, bv)
		}
	}

	return pair, pair.Len() >= minPoints
}

// Returns computes simple percentage changes between consecutive
// values. The first observation has no defined return and is dropped.
// A zero previous value yields a zero return rather than dividing by
// zero.
func Returns(vals []float64) []float64 {
	if len(vals) < 2 {
		return nil
	}
	out := make([]float64, 0, len(vals)-1)
	for i := 1; i < len(vals); i++ {
		prev := vals[i-1]
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (vals[i]-prev)/prev)
	}
	return out
}
