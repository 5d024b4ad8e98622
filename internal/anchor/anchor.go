// Package anchor picks the belief market for a thesis from ranked
// discovery output and decides which side of it (YES or NO) expresses
// the thesis.
package anchor

import (
	"errors"
	"fmt"

	"github.com/liamashdown/polyquant/internal/ai"
	"github.com/liamashdown/polyquant/internal/discovery"
	"github.com/liamashdown/polyquant/internal/market"
)

// ErrNoAnchorFound indicates discovery produced no usable candidate
// even after proxy-thesis retries. The API layer surfaces this as a
// typed "no market matched" response.
var ErrNoAnchorFound = errors.New("no anchor market found")

// Anchor is the selected belief market with its directional token
// choice and the reasoning behind it.
type Anchor struct {
	Market      market.Market `json:"market"`
	TokenID     string        `json:"token_id"`
	TokenChoice string        `json:"token_choice"` // YES or NO
	Reasoning   string        `json:"ai_reasoning"`
	Confidence  float64       `json:"ai_confidence"` // [0,1]
}

// DirectionStrategy decides which token of a market expresses a
// thesis. The default intent heuristic is a stand-in for a real
// directional-alignment model, so it is injectable.
type DirectionStrategy interface {
	Choose(thesis string, m market.Market) (choice string, confidence float64, reasoning string)
}

// Selector picks anchors from ranked candidates
type Selector struct {
	direction DirectionStrategy
}

// New creates a selector with the given direction strategy, defaulting
// to the intent heuristic when nil.
func New(direction DirectionStrategy) *Selector {
	if direction == nil {
		direction = IntentHeuristic{}
	}
	return &Selector{direction: direction}
}

// Select picks the top-ranked candidate as the anchor and resolves its
// directional token.
func (s *Selector) Select(candidates []discovery.Candidate, thesis string) (*Anchor, error) {
	if len(candidates) == 0 {
		return nil, ErrNoAnchorFound
	}

	top := candidates[0].Market
	choice, confidence, reasoning := s.direction.Choose(thesis, top)

	tokenID := top.TokenFor(choice)
	if tokenID == "" {
		return nil, fmt.Errorf("candidate %s has no token ids: %w", top.ConditionID, ErrNoAnchorFound)
	}
	if choice == "NO" && top.NoTokenID == "" {
		// Only the YES side is listed; trade it and say so
		choice = "YES"
		reasoning += " (NO token unavailable, using YES)"
	}

	return &Anchor{
		Market:      top,
		TokenID:     tokenID,
		TokenChoice: choice,
		Reasoning:   reasoning,
		Confidence:  confidence,
	}, nil
}

// IntentHeuristic chooses the token whose payoff matches the thesis
// polarity against the question phrasing. Accuracy is unverified; it
// exists to be replaced by a real model.
type IntentHeuristic struct{}

func (IntentHeuristic) Choose(thesis string, m market.Market) (string, float64, string) {
	yesScore := ai.Alignment(thesis, m.Question, true)
	noScore := ai.Alignment(thesis, m.Question, false)

	choice := "YES"
	score := yesScore
	if noScore > yesScore && m.NoTokenID != "" {
		choice = "NO"
		score = noScore
	}

	var reasoning string
	switch {
	case score >= 0.9:
		reasoning = fmt.Sprintf("Strong alignment: %s token matches the thesis intent", choice)
	case score >= 0.7:
		reasoning = fmt.Sprintf("Good alignment: %s token matches the thesis intent", choice)
	case score >= 0.5:
		reasoning = "Moderate alignment: polarity is ambiguous, defaulting to YES"
	default:
		reasoning = fmt.Sprintf("Potential intent mismatch: %s token used cautiously", choice)
	}

	return choice, score, reasoning
}
