// Package ai abstracts the semantic provider used for keyword
// expansion, proxy-thesis generation and thesis/market alignment
// scoring. The mock variant is pure and deterministic so the pipeline
// stays reproducible in tests and when no provider is configured.
package ai

import (
	"context"
	"errors"

	"github.com/liamashdown/polyquant/internal/config"
	"github.com/liamashdown/polyquant/internal/metrics"
	"github.com/sirupsen/logrus"
)

// ErrProviderUnavailable indicates the configured provider errored or
// returned an unusable response. Callers fall back to the mock
// provider and must never fail a request solely for this reason.
var ErrProviderUnavailable = errors.New("ai provider unavailable")

// Provider is the semantic capability consumed by discovery and anchor
// selection.
type Provider interface {
	// Name identifies the provider for logging and metrics
	Name() string

	// GenerateKeywords expands a thesis into search keywords
	GenerateKeywords(ctx context.Context, thesis string) ([]string, error)

	// GenerateProxyThesis produces a broadened paraphrase of the thesis
	// given the keywords that failed to match anything
	GenerateProxyThesis(ctx context.Context, thesis string, failedKeywords []string) (string, error)

	// ScoreAlignment scores semantic alignment between a thesis and a
	// market question in [0,1]
	ScoreAlignment(ctx context.Context, thesis, question string) (float64, error)
}

// New builds the provider selected by configuration.
func New(cfg *config.Config) Provider {
	switch cfg.AIProvider {
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.OpenAIAPIKey)
	case config.ProviderGemini:
		return NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		return NewMock()
	}
}

// WithFallback wraps a provider so that any failure degrades to the
// deterministic mock instead of propagating upstream.
func WithFallback(primary Provider, log *logrus.Logger) Provider {
	if _, ok := primary.(*Mock); ok {
		return primary
	}
	return &fallback{primary: primary, mock: NewMock(), log: log}
}

type fallback struct {
	primary Provider
	mock    *Mock
	log     *logrus.Logger
}

func (f *fallback) Name() string {
	return f.primary.Name()
}

func (f *fallback) GenerateKeywords(ctx context.Context, thesis string) ([]string, error) {
	keywords, err := f.primary.GenerateKeywords(ctx, thesis)
	metrics.RecordProviderCall(f.primary.Name(), "keywords", err)
	if err != nil {
		f.warn("keywords", err)
		return f.mock.GenerateKeywords(ctx, thesis)
	}
	return keywords, nil
}

func (f *fallback) GenerateProxyThesis(ctx context.Context, thesis string, failedKeywords []string) (string, error) {
	proxy, err := f.primary.GenerateProxyThesis(ctx, thesis, failedKeywords)
	metrics.RecordProviderCall(f.primary.Name(), "proxy", err)
	if err != nil {
		f.warn("proxy", err)
		return f.mock.GenerateProxyThesis(ctx, thesis, failedKeywords)
	}
	return proxy, nil
}

func (f *fallback) ScoreAlignment(ctx context.Context, thesis, question string) (float64, error) {
	score, err := f.primary.ScoreAlignment(ctx, thesis, question)
	metrics.RecordProviderCall(f.primary.Name(), "alignment", err)
	if err != nil {
		f.warn("alignment", err)
		return f.mock.ScoreAlignment(ctx, thesis, question)
	}
	return score, nil
}

func (f *fallback) warn(op string, err error) {
	metrics.ProviderFallbacks.Inc()
	f.log.WithError(err).WithFields(logrus.Fields{
		"provider": f.primary.Name(),
		"op":       op,
	}).Warn("Provider call failed, falling back to mock")
}
