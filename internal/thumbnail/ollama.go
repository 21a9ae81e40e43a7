package thumbnail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaConfig holds the configuration for the Ollama client
type OllamaConfig struct {
	BaseURL string        // e.g., "http://ollama.example.com:11434"
	Model   string        // e.g., "llava:13b"
	APIKey  string        // Optional API key for authentication
	Timeout time.Duration // Request timeout (default: 60 seconds)
}

// OllamaClient describes images with a multimodal model served by Ollama
type OllamaClient struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

// NewOllamaClient creates a new Ollama client
func NewOllamaClient(config OllamaConfig) *OllamaClient {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.Model == "" {
		config.Model = "llava"
	}

	return &OllamaClient{
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		model:   config.Model,
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// ollamaGenerateRequest represents a request to the Ollama /api/generate endpoint
type ollamaGenerateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Format string   `json:"format"` // "json" for structured output
	Stream bool     `json:"stream"`
}

// ollamaGenerateResponse represents a response from the Ollama /api/generate endpoint
type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (c *OllamaClient) Name() string { return "ollama" }

// Describe sends the image and prompt to /api/generate and returns the model's answer
func (c *OllamaClient) Describe(ctx context.Context, image []byte, _ string, prompt string) (string, error) {
	reqBody, err := json.Marshal(ollamaGenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Images: []string{base64.StdEncoding.EncodeToString(image)},
		Format: "json",
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request to Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ollama API returned status %d: %s", resp.StatusCode, string(body))
	}

	var ollamaResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", fmt.Errorf("parse Ollama response: %w", err)
	}

	return strings.TrimSpace(ollamaResp.Response), nil
}
