package anchor

import (
	"errors"
	"testing"

	"github.com/liamashdown/polyquant/internal/discovery"
	"github.com/liamashdown/polyquant/internal/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(id, question, yesTok, noTok string, score float64) discovery.Candidate {
	return discovery.Candidate{
		Market: market.Market{
			ConditionID: id,
			Question:    question,
			YesTokenID:  yesTok,
			NoTokenID:   noTok,
			VolumeUSD:   1000,
		},
		RelevanceScore: score,
	}
}

func TestSelectEmptyCandidates(t *testing.T) {
	s := New(nil)
	_, err := s.Select(nil, "Democrats win midterms")
	assert.True(t, errors.Is(err, ErrNoAnchorFound))
}

func TestSelectPicksTopCandidate(t *testing.T) {
	s := New(nil)
	candidates := []discovery.Candidate{
		candidate("cond-1", "Will Democrats win the 2026 midterms?", "tok-yes", "tok-no", 95),
		candidate("cond-2", "Will Democrats win the Senate?", "tok2-yes", "tok2-no", 80),
	}

	a, err := s.Select(candidates, "Democrats win midterms")
	require.NoError(t, err)
	assert.Equal(t, "cond-1", a.Market.ConditionID)
	assert.Equal(t, "YES", a.TokenChoice)
	assert.Equal(t, "tok-yes", a.TokenID)
	assert.Equal(t, 1.0, a.Confidence)
	assert.NotEmpty(t, a.Reasoning)
}

func TestSelectInvertedThesisChoosesNoToken(t *testing.T) {
	s := New(nil)
	candidates := []discovery.Candidate{
		candidate("cond-1", "Will Trump win the election?", "tok-yes", "tok-no", 90),
	}

	a, err := s.Select(candidates, "Trump loses the election")
	require.NoError(t, err)
	assert.Equal(t, "NO", a.TokenChoice)
	assert.Equal(t, "tok-no", a.TokenID)
	assert.Equal(t, 1.0, a.Confidence)
}

func TestSelectAmbiguousThesisDefaultsToYes(t *testing.T) {
	s := New(nil)
	candidates := []discovery.Candidate{
		candidate("cond-1", "Will the SEC approve a spot ETF?", "tok-yes", "tok-no", 85),
	}

	a, err := s.Select(candidates, "crypto regulation thesis")
	require.NoError(t, err)
	assert.Equal(t, "YES", a.TokenChoice)
	assert.Equal(t, 0.5, a.Confidence)
}

func TestSelectMissingNoTokenFallsBackToYes(t *testing.T) {
	s := New(nil)
	candidates := []discovery.Candidate{
		candidate("cond-1", "Will Trump win the election?", "tok-yes", "", 90),
	}

	a, err := s.Select(candidates, "Trump loses the election")
	require.NoError(t, err)
	assert.Equal(t, "YES", a.TokenChoice)
	assert.Equal(t, "tok-yes", a.TokenID)
}

type fixedStrategy struct{}

func (fixedStrategy) Choose(string, market.Market) (string, float64, string) {
	return "NO", 0.42, "model says no"
}

func TestSelectCustomStrategy(t *testing.T) {
	s := New(fixedStrategy{})
	candidates := []discovery.Candidate{
		candidate("cond-1", "Will Democrats win the midterms?", "tok-yes", "tok-no", 95),
	}

	a, err := s.Select(candidates, "anything")
	require.NoError(t, err)
	assert.Equal(t, "NO", a.TokenChoice)
	assert.Equal(t, "tok-no", a.TokenID)
	assert.Equal(t, 0.42, a.Confidence)
	assert.Equal(t, "model says no", a.Reasoning)
}
