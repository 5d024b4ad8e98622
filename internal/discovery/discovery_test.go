package discovery

import (
	"context"
	"strings"
	"testing"

	"github.com/liamashdown/polyquant/internal/ai"
	"github.com/liamashdown/polyquant/internal/market"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog matches keywords by substring against question and event
// title, mirroring the LIKE search of the real store.
type fakeCatalog struct {
	markets []market.Market
}

func (f *fakeCatalog) SearchMarkets(_ context.Context, keywords []string, minVolumeUSD float64, limit int) ([]market.Market, error) {
	var out []market.Market
	for _, m := range f.markets {
		if m.VolumeUSD < minVolumeUSD {
			continue
		}
		text := strings.ToLower(m.Question + " " + m.EventTitle)
		for _, kw := range keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				out = append(out, m)
				break
			}
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func testOrchestrator(markets []market.Market) *Orchestrator {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return New(&fakeCatalog{markets: markets}, ai.NewMock(), Options{
		Threshold:      70,
		MaxProxyRounds: 3,
		Limit:          100,
		MinVolumeUSD:   0,
	}, log)
}

func TestDiscoverRanksMatchingMarkets(t *testing.T) {
	markets := []market.Market{
		{
			ConditionID: "cond-dem",
			Question:    "Will Democrats win the 2026 midterms?",
			EventTitle:  "2026 Midterms",
			VolumeUSD:   500000,
			YesTokenID:  "tok-dem-yes",
			Active:      true,
		},
		{
			ConditionID: "cond-rain",
			Question:    "Will it rain in London tomorrow?",
			EventTitle:  "Weather",
			VolumeUSD:   900000,
			YesTokenID:  "tok-rain-yes",
			Active:      true,
		},
	}

	o := testOrchestrator(markets)
	candidates, trace, err := o.Discover(context.Background(), "Democrats win midterms", 10)
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, "cond-dem", candidates[0].ConditionID)
	assert.GreaterOrEqual(t, candidates[0].RelevanceScore, 70.0)
	assert.NotEmpty(t, candidates[0].MatchExplanation)
	assert.Len(t, trace.Rounds, 1)
	assert.NotEmpty(t, trace.KeywordsTried)
}

func TestDiscoverDeterministicOrder(t *testing.T) {
	// Identical questions produce identical scores; ranking must fall
	// back to volume then condition ID
	markets := []market.Market{
		{ConditionID: "cond-b", Question: "Will Democrats win the midterms?", VolumeUSD: 100, YesTokenID: "tok-b"},
		{ConditionID: "cond-a", Question: "Will Democrats win the midterms?", VolumeUSD: 100, YesTokenID: "tok-a"},
		{ConditionID: "cond-c", Question: "Will Democrats win the midterms?", VolumeUSD: 10000, YesTokenID: "tok-c"},
	}

	o := testOrchestrator(markets)

	var firstOrder []string
	for run := 0; run < 5; run++ {
		candidates, _, err := o.Discover(context.Background(), "Democrats win midterms", 10)
		require.NoError(t, err)
		require.Len(t, candidates, 3)

		var order []string
		for _, c := range candidates {
			order = append(order, c.ConditionID)
		}
		if run == 0 {
			firstOrder = order
			// Volume tie-break first, then lexical condition ID
			assert.Equal(t, []string{"cond-c", "cond-a", "cond-b"}, order)
			continue
		}
		assert.Equal(t, firstOrder, order)
	}
}

func TestDiscoverNoMatchExhaustsProxyRounds(t *testing.T) {
	markets := []market.Market{
		{ConditionID: "cond-dem", Question: "Will Democrats win the 2026 midterms?", VolumeUSD: 500000, YesTokenID: "tok"},
	}

	o := testOrchestrator(markets)
	candidates, trace, err := o.Discover(context.Background(), "Totally unrelated nonsense xyz123", 10)
	require.NoError(t, err)

	assert.Empty(t, candidates)
	// Initial round plus the bounded proxy retries, then termination
	assert.Len(t, trace.Rounds, 4)
}

func TestDiscoverRespectsTopK(t *testing.T) {
	var markets []market.Market
	for _, id := range []string{"cond-1", "cond-2", "cond-3", "cond-4"} {
		markets = append(markets, market.Market{
			ConditionID: id,
			Question:    "Will Democrats win the midterms?",
			VolumeUSD:   1000,
			YesTokenID:  "tok-" + id,
		})
	}

	o := testOrchestrator(markets)
	candidates, _, err := o.Discover(context.Background(), "Democrats win midterms", 2)
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
}

func TestDiscoverVolumeFloor(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	markets := []market.Market{
		{ConditionID: "cond-thin", Question: "Will Democrats win the midterms?", VolumeUSD: 50, YesTokenID: "tok-thin"},
		{ConditionID: "cond-liquid", Question: "Will Democrats win the midterms?", VolumeUSD: 50000, YesTokenID: "tok-liquid"},
	}
	o := New(&fakeCatalog{markets: markets}, ai.NewMock(), Options{
		Threshold:      70,
		MaxProxyRounds: 3,
		Limit:          100,
		MinVolumeUSD:   1000,
	}, log)

	candidates, _, err := o.Discover(context.Background(), "Democrats win midterms", 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "cond-liquid", candidates[0].ConditionID)
}
