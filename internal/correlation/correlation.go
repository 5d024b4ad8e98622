// Package correlation measures co-movement between the anchor's price
// series and each candidate's, producing trading signals and rolling
// correlation tracks.
package correlation

import (
	"math"
	"time"

	"github.com/liamashdown/polyquant/internal/metrics"
	"github.com/liamashdown/polyquant/internal/series"
)

// Signal is the correlation-derived recommendation for one candidate.
// Correlation is nil when the overlap with the anchor was too thin to
// measure; such signals carry a reason and are excluded from the
// portfolio.
type Signal struct {
	TokenID        string   `json:"token_id"`
	Question       string   `json:"question"`
	Correlation    *float64 `json:"correlation"`
	Action         string   `json:"action,omitempty"` // BUY_YES or BUY_NO
	SignalStrength float64  `json:"signal_strength"`
	NDataPoints    int      `json:"n_data_points"`
	VolumeUSD      float64  `json:"volume_usd"`
	Reason         string   `json:"reason,omitempty"`
}

// RollingPoint is one rolling-window correlation observation, stamped
// with the window's end date.
type RollingPoint struct {
	Date        time.Time `json:"date"`
	Correlation float64   `json:"correlation"`
}

// Engine computes signals against a fixed anchor series
type Engine struct {
	anchor    series.Series
	minPoints int
}

// NewEngine creates a correlation engine for the given anchor price
// history. minPoints is the smallest aligned overlap considered
// measurable.
func NewEngine(anchor series.Series, minPoints int) *Engine {
	return &Engine{anchor: anchor, minPoints: minPoints}
}

// Correlate aligns the candidate against the anchor and produces its
// signal. Insufficient overlap degrades to a nil correlation with a
// reason; it never fails.
func (e *Engine) Correlate(tokenID, question string, volumeUSD float64, candidate series.Series) Signal {
	sig := Signal{
		TokenID:   tokenID,
		Question:  question,
		VolumeUSD: volumeUSD,
	}

	pair, ok := series.Align(e.anchor, candidate, e.minPoints)
	sig.NDataPoints = pair.Len()
	if !ok {
		sig.Reason = "insufficient overlap with anchor history"
		metrics.SignalsComputed.WithLabelValues("insufficient_overlap").Inc()
		return sig
	}

	r := Pearson(pair.A, pair.B)
	sig.Correlation = &r
	sig.SignalStrength = math.Abs(r)
	switch {
	case r > 0:
		sig.Action = "BUY_YES"
	case r < 0:
		sig.Action = "BUY_NO"
	default:
		sig.Reason = "no co-movement with anchor"
	}

	metrics.SignalsComputed.WithLabelValues("ok").Inc()
	return sig
}

// Rolling recomputes the correlation over a sliding fixed-width window
// across the aligned date axis, one point per window end date. Windows
// narrower than the configured width are skipped rather than
// interpolated, so sparse data stays visibly sparse.
func (e *Engine) Rolling(candidate series.Series, window int) []RollingPoint {
	pair, _ := series.Align(e.anchor, candidate, e.minPoints)
	if pair.Len() < window || pair.Len() < e.minPoints {
		return nil
	}

	out := make([]RollingPoint, 0, pair.Len()-window+1)
	for end := window; end <= pair.Len(); end++ {
		r := Pearson(pair.A[end-window:end], pair.B[end-window:end])
		out = append(out, RollingPoint{Date: pair.Dates[end-1], Correlation: r})
	}
	return out
}

// Pearson computes the sample Pearson correlation coefficient of two
// equal-length value slices, clipped to [-1,1]. Zero variance on
// either side yields 0 rather than NaN so degenerate series never
// poison downstream math.
func Pearson(a, b []float64) float64 {
	n := len(a)
	if n == 0 || n != len(b) {
		return 0
	}

	var meanA, meanB float64
	for i := 0; i < n; i++ {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(n)
	meanB /= float64(n)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}

	den := math.Sqrt(varA * varB)
	if den == 0 {
		return 0
	}

	r := cov / den
	if r > 1 {
		r = 1
	}
	if r < -1 {
		r = -1
	}
	return r
}
