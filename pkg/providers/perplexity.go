package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mkarlsen/shopchat/pkg/config"
)

const (
	defaultPerplexityAPIBase = "https://api.perplexity.ai"
	defaultPerplexityModel   = "sonar-small"

	systemPrompt = "You are a helpful e-commerce assistant. Provide concise, accurate information about products and shopping trends."
)

// ErrNotConfigured is returned from Ask when no API key is set. An
// unconfigured provider is an always-failing one, never a crash.
var ErrNotConfigured = errors.New("perplexity API key not configured")

// Source is a citation attached to an answer.
type Source struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
}

type Answer struct {
	Content string   `json:"content"`
	Sources []Source `json:"sources,omitempty"`
}

// Client calls the Perplexity chat-completions API.
type Client struct {
	apiKey     string
	apiBase    string
	model      string
	httpClient *http.Client
}

func NewClient(cfg config.PerplexityConfig) *Client {
	apiBase := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if apiBase == "" {
		apiBase = defaultPerplexityAPIBase
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultPerplexityModel
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		apiBase:    apiBase,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Ask sends a single-turn prompt and returns the assistant's answer with
// any cited sources.
func (c *Client) Ask(ctx context.Context, prompt string) (Answer, error) {
	if c.apiKey == "" {
		return Answer{}, ErrNotConfigured
	}

	requestBody := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		"temperature": 0.2,
		"max_tokens":  1024,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return Answer{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return Answer{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Answer{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Answer{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Answer{}, fmt.Errorf("perplexity API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return parseAnswer(body)
}

func parseAnswer(body []byte) (Answer, error) {
	var apiResponse struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Sources []Source `json:"sources"`
	}

	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return Answer{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(apiResponse.Choices) == 0 {
		return Answer{}, fmt.Errorf("perplexity response contained no choices")
	}

	return Answer{
		Content: apiResponse.Choices[0].Message.Content,
		Sources: apiResponse.Sources,
	}, nil
}
