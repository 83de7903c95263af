package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/core"
)

// GeminiClient is an implementation of the Model and Embedder interfaces using Google Gemini
type GeminiClient struct {
	client         *genai.Client
	modelName      string
	embeddingModel string
	temperature    float32
	logger         *zap.Logger
	promptFormat   string
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(
	client *genai.Client,
	modelName string,
	embeddingModel string,
	temperature float32,
	logger *zap.Logger,
) *GeminiClient {
	return &GeminiClient{
		client:         client,
		modelName:      modelName,
		embeddingModel: embeddingModel,
		temperature:    temperature,
		logger:         logger,
		promptFormat:   core.SummaryPromptFormat,
	}
}

// Name returns the generative model name
func (c *GeminiClient) Name() string {
	return "gemini:" + c.modelName
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Generate summarizes the prompt. A model handle is built per call since decoding options vary.
func (c *GeminiClient) Generate(ctx context.Context, prompt string, opts core.GenerationOptions) (string, error) {
	model := c.client.GenerativeModel(c.modelName)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(core.SummaryInstruction)}}
	model.SetCandidateCount(1)
	if opts.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxOutputTokens))
	}
	temperature := c.temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}
	model.SetTemperature(temperature)

	resp, err := model.GenerateContent(ctx, genai.Text(fmt.Sprintf(c.promptFormat, prompt)))
	if err != nil {
		return "", fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from Gemini")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no text in Gemini response")
	}
	return strings.TrimSpace(b.String()), nil
}

// Embed returns one embedding per text using a batch request
func (c *GeminiClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	em := c.client.EmbeddingModel(c.embeddingModel)
	batch := em.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("failed to embed content with Gemini: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}
