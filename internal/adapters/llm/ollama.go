// Package llm provides the Ollama generation backend adapter.
// Clean Architecture: Adapter implementing ports.GenerationService.
// It classifies failures into the port's error taxonomy so the gateway can
// decide what is retryable; it never retries or caches itself.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/0xcro3dile/licenserag-go/internal/domain/ports"
)

// OllamaAdapter implements ports.GenerationService using the Ollama API.
type OllamaAdapter struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaAdapter creates a new Ollama generation adapter. The request
// deadline comes from the caller's context (the gateway owns the timeout).
func NewOllamaAdapter(baseURL, model string) *OllamaAdapter {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:11434"
	}
	if model == "" {
		model = "llama3.2:1b"
	}
	return &OllamaAdapter{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{},
	}
}

// ollamaGenerateRequest is the Ollama generate API request.
type ollamaGenerateRequest struct {
	Model     string                `json:"model"`
	Prompt    string                `json:"prompt"`
	Stream    bool                  `json:"stream"`
	KeepAlive string                `json:"keep_alive"`
	Options   ollamaGenerateOptions `json:"options"`
}

// ollamaGenerateOptions tunes generation for small local models: a reduced
// context window and cheap sampling keep latency down.
type ollamaGenerateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
	NumCtx      int     `json:"num_ctx"`
	TopK        int     `json:"top_k"`
	TopP        float64 `json:"top_p"`
}

// ollamaGenerateResponse is the Ollama generate API response.
type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate produces a completion for the prompt.
func (a *OllamaAdapter) Generate(ctx context.Context, prompt string, opts ports.GenerateOptions) (string, error) {
	reqBody := ollamaGenerateRequest{
		Model:     a.model,
		Prompt:    prompt,
		Stream:    false,
		KeepAlive: "10m", // keep the model loaded between requests
		Options: ollamaGenerateOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
			NumCtx:      1024,
			TopK:        20,
			TopP:        0.9,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &ports.BackendStatusError{Status: resp.StatusCode, Body: string(body)}
	}

	var genResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("%w: %v", ports.ErrMalformedResponse, err)
	}

	return genResp.Response, nil
}
