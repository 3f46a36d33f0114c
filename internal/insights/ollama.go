// Package insights generates natural-language observations about health
// trends by calling a local Ollama instance.
package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"example.com/healthstats/internal/analytics"
)

// Context carries the structured summaries the prompt is built from.
type Context struct {
	SleepSummary    *analytics.SleepSummary    `json:"sleep_summary,omitempty"`
	SleepAverage30  *analytics.SleepAverages   `json:"sleep_average_30d,omitempty"`
	ActivitySummary *analytics.ActivitySummary `json:"activity_summary,omitempty"`
	NotablePatterns []string                   `json:"notable_patterns,omitempty"`
	Correlations    map[string]float64         `json:"correlations,omitempty"`
}

// Insight is one categorized observation extracted from the model response.
type Insight struct {
	Category    string `json:"category"`
	Observation string `json:"observation"`
}

// Report is the parsed model output.
type Report struct {
	Insights []Insight `json:"insights"`
	Summary  string    `json:"summary"`
	Model    string    `json:"model"`
}

// OllamaClient talks to a local Ollama inference server.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllamaClient constructs a client for the given base URL and model.
func NewOllamaClient(baseURL, model string, timeout time.Duration) *OllamaClient {
	return &OllamaClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// GenerateInsights renders the prompt, calls the model, and parses the
// response into categorized observations.
func (c *OllamaClient) GenerateInsights(ctx context.Context, insightCtx Context) (*Report, error) {
	prompt := buildPrompt(insightCtx)

	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		// Low temperature keeps the output factual.
		Options: generateOptions{Temperature: 0.3, TopP: 0.9},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama api status %d", resp.StatusCode)
	}

	var generated generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&generated); err != nil {
		return nil, fmt.Errorf("ollama response: %w", err)
	}

	report := parseResponse(generated.Response)
	report.Model = c.model
	return report, nil
}

// CheckConnection reports whether the Ollama server is reachable.
func (c *OllamaClient) CheckConnection(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
