package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Gemini calls the Google Generative Language API.
type Gemini struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGemini creates a Gemini-backed provider
func NewGemini(apiKey, model string) *Gemini {
	return &Gemini{
		apiKey:     apiKey,
		model:      model,
		baseURL:    "https://generativelanguage.googleapis.com/v1beta",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *Gemini) Name() string {
	return "gemini"
}

func (g *Gemini) GenerateKeywords(ctx context.Context, thesis string) ([]string, error) {
	prompt := "Given the user query, output a JSON array of 3-6 distinct search terms to find relevant " +
		"prediction markets. Be specific; include entities, metrics, and event synonyms. Output only JSON.\n\n" +
		"User query: " + thesis

	text, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var keywords []string
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &keywords); err != nil {
		return nil, fmt.Errorf("%w: decode keywords: %v", ErrProviderUnavailable, err)
	}
	if len(keywords) == 0 {
		return nil, fmt.Errorf("%w: empty keyword list", ErrProviderUnavailable)
	}
	return keywords, nil
}

func (g *Gemini) GenerateProxyThesis(ctx context.Context, thesis string, failedKeywords []string) (string, error) {
	prompt := fmt.Sprintf(
		"A user thesis had no prediction market matches. Propose one alternative proxy thesis that could be "+
			"searched on prediction markets: a related but different angle or adjacent topic likely to have "+
			"tradable markets. Be concrete and specific. Output only the thesis text.\n\n"+
			"User thesis: %s\nKeywords already tried without success: %s",
		thesis, strings.Join(failedKeywords, ", "))

	text, err := g.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	proxy := strings.TrimSpace(stripCodeFence(text))
	if proxy == "" {
		return "", fmt.Errorf("%w: empty proxy thesis", ErrProviderUnavailable)
	}
	return proxy, nil
}

func (g *Gemini) ScoreAlignment(ctx context.Context, thesis, question string) (float64, error) {
	prompt := fmt.Sprintf(
		"Rate how semantically aligned this prediction market question is with the user's thesis, from 0.0 "+
			"(unrelated) to 1.0 (direct match). Output only the number.\n\nThesis: %s\nQuestion: %s",
		thesis, question)

	text, err := g.generate(ctx, prompt)
	if err != nil {
		return 0, err
	}

	var score float64
	if _, err := fmt.Sscanf(strings.TrimSpace(stripCodeFence(text)), "%f", &score); err != nil {
		return 0, fmt.Errorf("%w: decode alignment score: %v", ErrProviderUnavailable, err)
	}
	return clamp01(score), nil
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		g.baseURL, url.PathEscape(g.model), url.QueryEscape(g.apiKey))

	payload := geminiRequest{Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}}}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrProviderUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrProviderUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: execute request: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: unexpected status %d: %s", ErrProviderUnavailable, resp.StatusCode, string(respBody))
	}

	var decoded geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrProviderUnavailable, err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrProviderUnavailable)
	}
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}

// stripCodeFence unwraps markdown ```json blocks that models wrap JSON in
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	parts := strings.SplitN(text, "```", 3)
	if len(parts) < 2 {
		return text
	}
	inner := parts[1]
	inner = strings.TrimPrefix(inner, "json")
	return strings.TrimSpace(inner)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
