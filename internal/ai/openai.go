package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAI calls the OpenAI chat completions API.
type OpenAI struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAI creates an OpenAI-backed provider
func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{
		apiKey:     apiKey,
		model:      "gpt-4o-mini",
		baseURL:    "https://api.openai.com/v1",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (o *OpenAI) Name() string {
	return "openai"
}

func (o *OpenAI) GenerateKeywords(ctx context.Context, thesis string) ([]string, error) {
	prompt := "Given the user query, output a JSON array of 3-6 distinct search terms to find relevant " +
		"prediction markets. Be specific; include entities, metrics, and event synonyms. Output only JSON.\n\n" +
		"User query: " + thesis

	text, err := o.complete(ctx, prompt)
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

func (o *OpenAI) GenerateProxyThesis(ctx context.Context, thesis string, failedKeywords []string) (string, error) {
	prompt := fmt.Sprintf(
		"A user thesis had no prediction market matches. Propose one alternative proxy thesis that could be "+
			"searched on prediction markets: a related but different angle or adjacent topic likely to have "+
			"tradable markets. Be concrete and specific. Output only the thesis text.\n\n"+
			"User thesis: %s\nKeywords already tried without success: %s",
		thesis, strings.Join(failedKeywords, ", "))

	text, err := o.complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	proxy := strings.TrimSpace(stripCodeFence(text))
	if proxy == "" {
		return "", fmt.Errorf("%w: empty proxy thesis", ErrProviderUnavailable)
	}
	return proxy, nil
}

func (o *OpenAI) ScoreAlignment(ctx context.Context, thesis, question string) (float64, error) {
	prompt := fmt.Sprintf(
		"Rate how semantically aligned this prediction market question is with the user's thesis, from 0.0 "+
			"(unrelated) to 1.0 (direct match). Output only the number.\n\nThesis: %s\nQuestion: %s",
		thesis, question)

	text, err := o.complete(ctx, prompt)
	if err != nil {
		return 0, err
	}

	var score float64
	if _, err := fmt.Sscanf(strings.TrimSpace(stripCodeFence(text)), "%f", &score); err != nil {
		return 0, fmt.Errorf("%w: decode alignment score: %v", ErrProviderUnavailable, err)
	}
	return clamp01(score), nil
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message openaiMessage `json:"message"`
	} `json:"choices"`
}

func (o *OpenAI) complete(ctx context.Context, prompt string) (string, error) {
	payload := openaiRequest{
		Model:       o.model,
		Messages:    []openaiMessage{{Role: "user", Content: prompt}},
		Temperature: 0,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrProviderUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrProviderUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: execute request: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: unexpected status %d: %s", ErrProviderUnavailable, resp.StatusCode, string(respBody))
	}

	var decoded openaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrProviderUnavailable, err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrProviderUnavailable)
	}
	return decoded.Choices[0].Message.Content, nil
}
