package ai

import (
	"context"
	"strings"
)

// Intent lexicon for the deterministic alignment heuristic. Each group
// maps a sentiment pole to its surface forms.
var intentLexicon = map[string][]string{
	// Positive outcomes
	"win":  {"win", "wins", "winning", "victory", "succeed", "success", "pass", "positive"},
	"yes":  {"yes", "affirmative", "happen", "occurs", "true", "correct"},
	"high": {"high", "increase", "rise", "grow", "strengthen", "above"},
	"best": {"best", "highest", "strongest", "most", "leading"},

	// Negative outcomes
	"lose":  {"lose", "loses", "losing", "loss", "defeat", "fail", "failure", "negative"},
	"no":    {"no", "not", "denial", "false", "won't", "wont"},
	"low":   {"low", "decrease", "fall", "drop", "weaken", "below", "lower"},
	"worst": {"worst", "lowest", "weakest", "least", "lagging"},
}

var positiveIntents = []string{"win", "yes", "high", "best"}
var negativeIntents = []string{"lose", "no", "low", "worst"}

// Mock is a pure, total provider. Identical inputs always produce
// identical outputs: no network, no randomness, no failures.
type Mock struct{}

// NewMock creates the deterministic mock provider
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Name() string {
	return "mock"
}

// GenerateKeywords splits the thesis into distinct lowercase terms
// longer than three characters, capped at six.
func (m *Mock) GenerateKeywords(_ context.Context, thesis string) ([]string, error) {
	cleaned := strings.ReplaceAll(thesis, ",", " ")

	var keywords []string
	seen := make(map[string]bool)
	for _, part := range strings.Fields(cleaned) {
		word := strings.ToLower(strings.TrimSpace(part))
		if len(word) <= 3 || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
		if len(keywords) == 6 {
			break
		}
	}

	if len(keywords) == 0 {
		keywords = []string{strings.ToLower(thesis)}
	}
	return keywords, nil
}

// Fixed broadening angles for proxy theses. The round is derived from
// the number of failed keywords so repeated calls walk the list
// deterministically.
var proxyAngles = []string{
	"US elections impact",
	"macro rates and CPI",
	"mega-cap tech sentiment",
	"geopolitical events",
	"sports and entertainment outcomes",
}

// GenerateProxyThesis returns a deterministic paraphrase broadening the
// original thesis toward an adjacent tradable topic.
func (m *Mock) GenerateProxyThesis(_ context.Context, thesis string, failedKeywords []string) (string, error) {
	angle := proxyAngles[len(failedKeywords)%len(proxyAngles)]
	return thesis + " proxy: " + angle, nil
}

// ScoreAlignment measures semantic relatedness of a thesis to a market
// question in [0,1]. A market whose phrasing is inverted relative to
// the thesis is still highly relevant (the NO token covers it), so the
// score is the stronger of the two directional alignments.
func (m *Mock) ScoreAlignment(_ context.Context, thesis, question string) (float64, error) {
	yes := Alignment(thesis, question, true)
	no := Alignment(thesis, question, false)
	if no > yes {
		return no, nil
	}
	return yes, nil
}

// ExtractIntent reports which intent groups appear in the text.
func ExtractIntent(text string) map[string]bool {
	lower := strings.ToLower(text)
	detected := make(map[string]bool, len(intentLexicon))
	for intent, words := range intentLexicon {
		for _, w := range words {
			if strings.Contains(lower, w) {
				detected[intent] = true
				break
			}
		}
	}
	return detected
}

// Alignment scores whether holding the given token (YES when useYes)
// expresses the thesis, given the question's phrasing. 1.0 means the
// token matches the stated intent, 0.0 means it contradicts it, 0.5
// means the polarity is unclear.
func Alignment(thesis, question string, useYes bool) float64 {
	thesisIntent := ExtractIntent(thesis)
	questionIntent := ExtractIntent(question)

	thesisPositive := countIntents(thesisIntent, positiveIntents)
	thesisNegative := countIntents(thesisIntent, negativeIntents)
	questionPositive := countIntents(questionIntent, positiveIntents)
	questionNegative := countIntents(questionIntent, negativeIntents)

	samePolarity := (thesisPositive > 0 && questionPositive > 0) || (thesisNegative > 0 && questionNegative > 0)
	crossPolarity := (thesisPositive > 0 && questionNegative > 0) || (thesisNegative > 0 && questionPositive > 0)

	switch {
	case useYes && samePolarity:
		return 1.0
	case useYes && crossPolarity:
		return 0.0
	case !useYes && crossPolarity:
		// The NO token flips the question's polarity back onto the thesis
		return 1.0
	case !useYes && samePolarity:
		return 0.0
	default:
		return 0.5
	}
}

func countIntents(detected map[string]bool, intents []string) int {
	n := 0
	for _, intent := range intents {
		if detected[intent] {
			n++
		}
	}
	return n
}
