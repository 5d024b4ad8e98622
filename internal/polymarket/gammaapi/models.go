package gammaapi

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Market represents a Gamma API market
type Market struct {
	ID            string  `json:"id"`
	ConditionID   string  `json:"conditionId"`
	Slug          string  `json:"slug"`
	Question      string  `json:"question"`
	EndDate       string  `json:"endDate"`
	Category      string  `json:"category"`
	VolumeNum     float64 `json:"volumeNum"`
	LiquidityNum  float64 `json:"liquidityNum"`
	Active        bool    `json:"active"`
	Closed        bool    `json:"closed"`
	Outcomes      string  `json:"outcomes"`      // e.g., "YES,NO"
	OutcomePrices string  `json:"outcomePrices"` // e.g., "[\"0.02\",\"0.98\"]"
	ClobTokenIDs  string  `json:"clobTokenIds"`  // JSON array of CLOB token IDs
	Events        []Event `json:"events,omitempty"`
}

// Event is the parent event a market belongs to
type Event struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// EventTitle returns the parent event's title, empty for standalone
// markets.
func (m *Market) EventTitle() string {
	if len(m.Events) == 0 {
		return ""
	}
	return m.Events[0].Title
}

// TokenIDs parses the clobTokenIds field into (yes, no) token IDs.
// Either may be empty when the market does not list both sides.
func (m *Market) TokenIDs() (string, string) {
	if m.ClobTokenIDs == "" {
		return "", ""
	}
	var ids []string
	if err := json.Unmarshal([]byte(m.ClobTokenIDs), &ids); err != nil {
		return "", ""
	}
	yes, no := "", ""
	if len(ids) > 0 {
		yes = ids[0]
	}
	if len(ids) > 1 {
		no = ids[1]
	}
	return yes, no
}

// YesPrice parses the first outcome price, defaulting to 0.5 when the
// field is missing or malformed.
func (m *Market) YesPrice() float64 {
	raw := strings.TrimSpace(m.OutcomePrices)
	if raw == "" {
		return 0.5
	}

	// The field arrives either as a JSON array of strings or as a bare
	// comma separated list
	var parsed []string
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		parsed = strings.Split(strings.Trim(raw, "[]"), ",")
	}
	if len(parsed) == 0 {
		return 0.5
	}

	price, err := strconv.ParseFloat(strings.Trim(strings.TrimSpace(parsed[0]), `"`), 64)
	if err != nil {
		return 0.5
	}
	return price
}
