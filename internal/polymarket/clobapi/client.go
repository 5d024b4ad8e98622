// Package clobapi fetches daily price history for CLOB tokens from the
// Polymarket CLOB API.
package clobapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liamashdown/polyquant/internal/config"
	"github.com/liamashdown/polyquant/internal/metrics"
	"github.com/liamashdown/polyquant/internal/ratelimit"
	"github.com/liamashdown/polyquant/internal/series"
)

// ErrDataUnavailable means the CLOB API returned no usable history for
// a token after all retries.
var ErrDataUnavailable = errors.New("price history unavailable")

// Client handles communication with the Polymarket CLOB API
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	retries    int
	log        *logrus.Logger
}

// NewClient creates a new CLOB API client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		baseURL:    cfg.CLOBAPIBaseURL,
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
		limiter:    ratelimit.New(cfg.CLOBAPIRPS),
		retries:    cfg.FetchRetries,
		log:        log,
	}
}

type historyResponse struct {
	History []pricePoint `json:"history"`
}

type pricePoint struct {
	T int64   `json:"t"` // unix seconds
	P float64 `json:"p"`
}

// PriceHistory fetches the daily price series for a token, keeping
// only observations on or after the cutoff implied by days. The result
// is normalized to one point per UTC day.
func (c *Client) PriceHistory(ctx context.Context, tokenID string, days int) (series.Series, error) {
	start := time.Now()

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			c.log.WithFields(logrus.Fields{
				"token_id": tokenID,
				"attempt":  attempt,
			}).Debug("Retrying price history fetch")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		hist, err := c.fetchHistory(ctx, tokenID)
		if err != nil {
			lastErr = err
			continue
		}

		metrics.RecordPriceFetch(time.Since(start), "success")
		return trimToWindow(hist, days), nil
	}

	metrics.RecordPriceFetch(time.Since(start), "error")
	c.log.WithError(lastErr).WithField("token_id", tokenID).Warn("Price history fetch failed")
	return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, lastErr)
}

func (c *Client) fetchHistory(ctx context.Context, tokenID string) (series.Series, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u, err := url.Parse(c.baseURL + "/prices-history")
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}

	q := u.Query()
	q.Set("market", tokenID)
	q.Set("interval", "max")
	q.Set("fidelity", "1440") // daily candles
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var hr historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(hr.History) == 0 {
		return nil, fmt.Errorf("empty history for token %s", tokenID)
	}

	s := make(series.Series, 0, len(hr.History))
	for _, pt := range hr.History {
		s = append(s, series.Point{
			Date:  time.Unix(pt.T, 0).UTC(),
			Price: pt.P,
		})
	}

	return s, nil
}

func trimToWindow(s series.Series, days int) series.Series {
	normalized := series.Normalize(s)
	if days <= 0 {
		return normalized
	}

	cutoff := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -days)
	trimmed := make(series.Series, 0, len(normalized))
	for _, pt := range normalized {
		if !pt.Date.Before(cutoff) {
			trimmed = append(trimmed, pt)
		}
	}
	return trimmed
}
