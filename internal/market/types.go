// Package market holds the core value types shared by the discovery
// and portfolio pipeline. A Market is immutable once fetched; the
// pipeline stages reference it but never mutate it.
package market

// Market is a binary (YES/NO) prediction market from the catalog.
type Market struct {
	ConditionID     string  `json:"condition_id"`
	Question        string  `json:"question"`
	EventTitle      string  `json:"event_title"`
	Slug            string  `json:"slug"`
	YesTokenID      string  `json:"yes_token_id"`
	NoTokenID       string  `json:"no_token_id"`
	VolumeUSD       float64 `json:"volume_usd"`
	OutcomeYesPrice float64 `json:"outcome_yes_price"`
	Active          bool    `json:"active"`
}

// TokenFor returns the token ID matching a YES/NO choice, falling back
// to the YES token when the NO side is not listed.
func (m Market) TokenFor(choice string) string {
	if choice == "NO" && m.NoTokenID != "" {
		return m.NoTokenID
	}
	return m.YesTokenID
}

// SearchText returns the text the relevance scorer matches against.
func (m Market) SearchText() string {
	if m.EventTitle == "" {
		return m.Question
	}
	return m.Question + " " + m.EventTitle
}
