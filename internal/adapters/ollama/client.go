package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/core"
)

// Client talks to a local Ollama server over its REST API
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates an Ollama client. Empty values fall back to the local defaults.
func NewClient(baseURL, model string, httpClient *http.Client, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3"
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Name returns the model name
func (c *Client) Name() string {
	return "ollama:" + c.model
}

// Generate implements core.Model using /api/generate without streaming
func (c *Client) Generate(ctx context.Context, prompt string, opts core.GenerationOptions) (string, error) {
	options := map[string]interface{}{}
	if opts.MaxOutputTokens > 0 {
		options["num_predict"] = opts.MaxOutputTokens
	}
	if opts.Temperature > 0 {
		options["temperature"] = opts.Temperature
	}

	payload := map[string]interface{}{
		"model":   c.model,
		"system":  core.SummaryInstruction,
		"prompt":  fmt.Sprintf(core.SummaryPromptFormat, prompt),
		"stream":  false,
		"options": options,
	}

	var result struct {
		Response string `json:"response"`
		Done     bool   `json:"done"`
	}
	if err := c.post(ctx, "/api/generate", payload, &result); err != nil {
		return "", err
	}
	c.logger.Debug("Ollama completion", zap.String("model", c.model), zap.Bool("done", result.Done))
	return strings.TrimSpace(result.Response), nil
}

// Embed implements core.Embedder using /api/embed
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	payload := map[string]interface{}{
		"model": c.model,
		"input": texts,
	}
	var result struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := c.post(ctx, "/api/embed", payload, &result); err != nil {
		return nil, err
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(result.Embeddings), len(texts))
	}
	return result.Embeddings, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
