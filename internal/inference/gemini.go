package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Provider generates raw model output for a prompt using one credential.
// Implementations report quota, auth and input problems through the typed
// errors in this package; anything else is treated as transient.
type Provider interface {
	Generate(ctx context.Context, prompt string, credential string) (string, error)
}

// GeminiProvider calls the Gemini generateContent REST endpoint.
type GeminiProvider struct {
	model   string
	baseURL string
	client  *http.Client
}

// NewGeminiProvider creates a provider for the given model.
func NewGeminiProvider(model string, timeout time.Duration) *GeminiProvider {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiProvider{
		model:   model,
		baseURL: "https://generativelanguage.googleapis.com/v1beta",
		client:  &http.Client{Timeout: timeout},
	}
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
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends the prompt and returns the raw text of the first
// candidate. HTTP 429 maps to QuotaError, 401/403 to AuthError and 400 to
// InvalidInputError so the retry engine can rotate credentials correctly.
func (g *GeminiProvider) Generate(ctx context.Context, prompt string, credential string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, credential)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return "", &QuotaError{Message: parsed.Error.Message}
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", &AuthError{Message: parsed.Error.Message}
	case http.StatusBadRequest:
		return "", &InvalidInputError{Message: parsed.Error.Message}
	default:
		return "", fmt.Errorf("inference API error: %d %s", resp.StatusCode, parsed.Error.Message)
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from model")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
