package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Conversation turn roles understood by the generative backend.
const (
	TurnUser  = "user"
	TurnModel = "model"
)

// Turn is one entry of the conversation context sent to the backend.
type Turn struct {
	Role string
	Text string
}

// GenerationConfig carries the sampling parameters for a generation request.
type GenerationConfig struct {
	Temperature     float64
	TopK            int
	TopP            float64
	MaxOutputTokens int
}

// DefaultGenerationConfig returns the sampling parameters used for customer
// replies.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.7,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 1000,
	}
}

// Generator produces a reply for a conversation context using a named model.
type Generator interface {
	Generate(ctx context.Context, model string, turns []Turn, cfg GenerationConfig) (string, error)
}

// DefaultGeminiBaseURL is the production endpoint of the Gemini REST API.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiClient calls the Gemini generateContent REST endpoint. It implements
// Generator.
type GeminiClient struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewGeminiClient returns a client for the production Gemini endpoint with
// the given per-request timeout.
func NewGeminiClient(apiKey string, timeout time.Duration) *GeminiClient {
	return &GeminiClient{
		APIKey:     apiKey,
		BaseURL:    DefaultGeminiBaseURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends the conversation context to the named model and returns the
// first candidate's text.
func (c *GeminiClient) Generate(ctx context.Context, model string, turns []Turn, cfg GenerationConfig) (string, error) {
	if c.APIKey == "" {
		return "", errors.New("gemini: missing API key")
	}

	contents := make([]geminiContent, 0, len(turns))
	for _, t := range turns {
		contents = append(contents, geminiContent{
			Role:  t.Role,
			Parts: []geminiPart{{Text: t.Text}},
		})
	}
	body, err := json.Marshal(geminiRequest{
		Contents: contents,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     cfg.Temperature,
			TopK:            cfg.TopK,
			TopP:            cfg.TopP,
			MaxOutputTokens: cfg.MaxOutputTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: encode request: %w", err)
	}

	base := c.BaseURL
	if base == "" {
		base = DefaultGeminiBaseURL
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", base, model, c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: %s: %w", model, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("gemini: %s: read response: %w", model, err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("gemini: %s: decode response (status %d): %w", model, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return "", fmt.Errorf("gemini: %s: %s (status %d)", model, parsed.Error.Message, resp.StatusCode)
		}
		return "", fmt.Errorf("gemini: %s: unexpected status %d", model, resp.StatusCode)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: %s: empty candidate", model)
	}
	cand := parsed.Candidates[0]
	if cand.FinishReason == "MAX_TOKENS" {
		log.Warn().Str("model", model).Msg("gemini reply truncated at max output tokens")
	}
	text := cand.Content.Parts[0].Text
	if text == "" {
		return "", fmt.Errorf("gemini: %s: empty candidate text", model)
	}
	return text, nil
}
