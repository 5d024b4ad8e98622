package correlation

import (
	"testing"
	"time"

	"github.com/liamashdown/polyquant/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(offset int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func mkSeries(prices []float64) series.Series {
	var s series.Series
	for i, p := range prices {
		s = append(s, series.Point{Date: day(i), Price: p})
	}
	return s
}

func TestPearson(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{
			name: "identical series",
			a:    []float64{0.40, 0.42, 0.45, 0.50},
			b:    []float64{0.40, 0.42, 0.45, 0.50},
			want: 1.0,
		},
		{
			name: "perfectly inverted",
			a:    []float64{0.40, 0.42, 0.45, 0.50},
			b:    []float64{0.60, 0.58, 0.55, 0.50},
			want: -1.0,
		},
		{
			name: "zero variance guarded to zero",
			a:    []float64{0.50, 0.50, 0.50, 0.50},
			b:    []float64{0.40, 0.42, 0.45, 0.50},
			want: 0,
		},
		{
			name: "empty",
			a:    nil,
			b:    nil,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Pearson(tt.a, tt.b), 1e-9)
		})
	}
}

func TestPearsonRange(t *testing.T) {
	a := []float64{0.10, 0.80, 0.30, 0.60, 0.20, 0.90}
	b := []float64{0.55, 0.20, 0.70, 0.40, 0.85, 0.15}
	r := Pearson(a, b)
	assert.GreaterOrEqual(t, r, -1.0)
	assert.LessOrEqual(t, r, 1.0)
}

func TestCorrelatePositiveComovement(t *testing.T) {
	anchor := mkSeries([]float64{0.40, 0.42, 0.45, 0.50})
	candidate := mkSeries([]float64{0.10, 0.11, 0.12, 0.14})

	e := NewEngine(anchor, 4)
	sig := e.Correlate("tok-1", "candidate question", 50000, candidate)

	require.NotNil(t, sig.Correlation)
	assert.InDelta(t, 1.0, *sig.Correlation, 0.05)
	assert.Equal(t, "BUY_YES", sig.Action)
	assert.Equal(t, 4, sig.NDataPoints)
	assert.InDelta(t, *sig.Correlation, sig.SignalStrength, 1e-9)
}

func TestCorrelateNegativeComovement(t *testing.T) {
	anchor := mkSeries([]float64{0.40, 0.42, 0.45, 0.50})
	candidate := mkSeries([]float64{0.60, 0.55, 0.50, 0.40})

	e := NewEngine(anchor, 4)
	sig := e.Correlate("tok-1", "candidate question", 50000, candidate)

	require.NotNil(t, sig.Correlation)
	assert.InDelta(t, -1.0, *sig.Correlation, 0.05)
	assert.Equal(t, "BUY_NO", sig.Action)
	assert.InDelta(t, -*sig.Correlation, sig.SignalStrength, 1e-9)
}

func TestCorrelateInsufficientOverlap(t *testing.T) {
	anchor := mkSeries([]float64{0.40, 0.42, 0.45, 0.50, 0.52})
	candidate := mkSeries([]float64{0.10, 0.11, 0.12, 0.14, 0.15})

	e := NewEngine(anchor, 20)
	sig := e.Correlate("tok-1", "candidate question", 50000, candidate)

	assert.Nil(t, sig.Correlation)
	assert.Empty(t, sig.Action)
	assert.Equal(t, 5, sig.NDataPoints)
	assert.NotEmpty(t, sig.Reason)
}

func TestCorrelateZeroVarianceCandidate(t *testing.T) {
	anchor := mkSeries([]float64{0.40, 0.42, 0.45, 0.50})
	candidate := mkSeries([]float64{0.30, 0.30, 0.30, 0.30})

	e := NewEngine(anchor, 4)
	sig := e.Correlate("tok-1", "flat candidate", 50000, candidate)

	require.NotNil(t, sig.Correlation)
	assert.Equal(t, 0.0, *sig.Correlation)
	assert.Empty(t, sig.Action)
	assert.NotEmpty(t, sig.Reason)
}

func TestRolling(t *testing.T) {
	var anchorPrices, candidatePrices []float64
	for i := 0; i < 10; i++ {
		anchorPrices = append(anchorPrices, 0.40+float64(i)*0.01)
		candidatePrices = append(candidatePrices, 0.10+float64(i)*0.005)
	}
	anchor := mkSeries(anchorPrices)
	candidate := mkSeries(candidatePrices)

	e := NewEngine(anchor, 5)

	t.Run("emits one point per window end date", func(t *testing.T) {
		points := e.Rolling(candidate, 7)
		require.Len(t, points, 4)
		assert.Equal(t, day(6), points[0].Date)
		assert.Equal(t, day(9), points[3].Date)
		for _, p := range points {
			assert.InDelta(t, 1.0, p.Correlation, 1e-9)
		}
	})

	t.Run("window wider than overlap is skipped", func(t *testing.T) {
		points := e.Rolling(candidate, 30)
		assert.Nil(t, points)
	})

	t.Run("overlap below min points is skipped", func(t *testing.T) {
		short := mkSeries([]float64{0.10, 0.11, 0.12})
		points := e.Rolling(short, 2)
		assert.Nil(t, points)
	})
}
