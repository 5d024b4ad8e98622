package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(offset int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func mkSeries(prices map[int]float64) Series {
	var s Series
	// Deterministic order for test construction
	for offset := 0; offset < 100; offset++ {
		if p, ok := prices[offset]; ok {
			s = append(s, Point{Date: day(offset), Price: p})
		}
	}
	return s
}

func TestNormalize(t *testing.T) {
	t.Run("keeps last observation per day", func(t *testing.T) {
		s := Series{
			{Date: day(0).Add(9 * time.Hour), Price: 0.40},
			{Date: day(0).Add(17 * time.Hour), Price: 0.45},
			{Date: day(1).Add(12 * time.Hour), Price: 0.50},
		}
		out := Normalize(s)
		require.Len(t, out, 2)
		assert.Equal(t, 0.45, out[0].Price)
		assert.Equal(t, 0.50, out[1].Price)
		assert.Equal(t, day(0), out[0].Date)
	})

	t.Run("sorts out of order input", func(t *testing.T) {
		s := Series{
			{Date: day(5), Price: 0.30},
			{Date: day(1), Price: 0.10},
			{Date: day(3), Price: 0.20},
		}
		out := Normalize(s)
		require.Len(t, out, 3)
		assert.Equal(t, day(1), out[0].Date)
		assert.Equal(t, day(3), out[1].Date)
		assert.Equal(t, day(5), out[2].Date)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Nil(t, Normalize(nil))
	})
}

func TestAlign(t *testing.T) {
	t.Run("intersection join", func(t *testing.T) {
		a := mkSeries(map[int]float64{0: 0.40, 1: 0.42, 2: 0.45, 4: 0.50})
		b := mkSeries(map[int]float64{1: 0.10, 2: 0.11, 3: 0.12, 4: 0.14})

		pair, ok := Align(a, b, 2)
		require.True(t, ok)
		require.Equal(t, 3, pair.Len())
		assert.Equal(t, []float64{0.42, 0.45, 0.50}, pair.A)
		assert.Equal(t, []float64{0.10, 0.11, 0.14}, pair.B)
		assert.Equal(t, []time.Time{day(1), day(2), day(4)}, pair.Dates)
	})

	t.Run("insufficient overlap", func(t *testing.T) {
		a := mkSeries(map[int]float64{0: 0.40, 1: 0.42})
		b := mkSeries(map[int]float64{1: 0.10, 2: 0.11})

		pair, ok := Align(a, b, 5)
		assert.False(t, ok)
		assert.Equal(t, 1, pair.Len())
	})

	t.Run("no overlap", func(t *testing.T) {
		a := mkSeries(map[int]float64{0: 0.40})
		b := mkSeries(map[int]float64{5: 0.10})

		pair, ok := Align(a, b, 1)
		assert.False(t, ok)
		assert.Equal(t, 0, pair.Len())
	})

	t.Run("realigning aligned series is a no-op", func(t *testing.T) {
		a := mkSeries(map[int]float64{0: 0.40, 1: 0.42, 2: 0.45, 3: 0.50})
		b := mkSeries(map[int]float64{1: 0.10, 2: 0.11, 3: 0.12, 4: 0.14})

		first, ok := Align(a, b, 2)
		require.True(t, ok)

		var ra, rb Series
		for i, d := range first.Dates {
			ra = append(ra, Point{Date: d, Price: first.A[i]})
			rb = append(rb, Point{Date: d, Price: first.B[i]})
		}

		second, ok := Align(ra, rb, 2)
		require.True(t, ok)
		assert.Equal(t, first, second)
	})
}

func TestReturns(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{
			name: "simple percentage changes",
			in:   []float64{0.40, 0.44, 0.33},
			want: []float64{0.1, -0.25},
		},
		{
			name: "first point dropped",
			in:   []float64{1.0, 1.0},
			want: []float64{0},
		},
		{
			name: "zero previous value guarded",
			in:   []float64{0, 0.5},
			want: []float64{0},
		},
		{
			name: "too short",
			in:   []float64{0.5},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Returns(tt.in)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-9)
			}
		})
	}
}
