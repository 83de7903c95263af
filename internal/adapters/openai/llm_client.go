package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/core"
)

// OpenAIClient is an implementation of the Model, Embedder and FineTuner interfaces using OpenAI
type OpenAIClient struct {
	client         *openai.Client
	modelName      string
	embeddingModel string
	temperature    float32
	logger         *zap.Logger
	promptFormat   string
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	client *openai.Client,
	modelName string,
	embeddingModel string,
	temperature float32,
	logger *zap.Logger,
) *OpenAIClient {
	return &OpenAIClient{
		client:         client,
		modelName:      modelName,
		embeddingModel: embeddingModel,
		temperature:    temperature,
		logger:         logger,
		promptFormat:   core.SummaryPromptFormat,
	}
}

// Name returns the chat model name
func (c *OpenAIClient) Name() string {
	return "openai:" + c.modelName
}

// Generate summarizes the prompt with a chat completion
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, opts core.GenerationOptions) (string, error) {
	temperature := c.temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: core.SummaryInstruction,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(c.promptFormat, prompt),
			},
		},
		MaxTokens:   opts.MaxOutputTokens,
		Temperature: temperature,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}

	c.logger.Debug("OpenAI completion",
		zap.String("model", c.modelName),
		zap.String("id", resp.ID),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Embed returns one embedding per text, in input order
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings with OpenAI: %w", err)
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}
	return out, nil
}

// UploadTrainingFile uploads a JSONL fine-tuning dataset
func (c *OpenAIClient) UploadTrainingFile(ctx context.Context, name string, data []byte) (string, error) {
	file, err := c.client.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    name,
		Bytes:   data,
		Purpose: openai.PurposeFineTune,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to OpenAI: %w", name, err)
	}
	c.logger.Info("Uploaded training file", zap.String("name", name), zap.String("file_id", file.ID))
	return file.ID, nil
}

// StartFineTune submits a fine-tuning job
func (c *OpenAIClient) StartFineTune(ctx context.Context, req core.FineTuneRequest) (string, error) {
	hp := &openai.Hyperparameters{}
	if req.Epochs > 0 {
		hp.Epochs = req.Epochs
	}
	if req.BatchSize > 0 {
		hp.BatchSize = req.BatchSize
	}
	if req.LearningRateMultiplier > 0 {
		hp.LearningRateMultiplier = req.LearningRateMultiplier
	}

	job, err := c.client.CreateFineTuningJob(ctx, openai.FineTuningJobRequest{
		TrainingFile:    req.TrainingFileID,
		ValidationFile:  req.ValidationFileID,
		Model:           req.BaseModel,
		Hyperparameters: hp,
		Suffix:          req.Suffix,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create fine-tuning job: %w", err)
	}
	return job.ID, nil
}

// FineTuneStatus reports the state of a fine-tuning job
func (c *OpenAIClient) FineTuneStatus(ctx context.Context, jobID string) (core.FineTuneStatus, error) {
	job, err := c.client.RetrieveFineTuningJob(ctx, jobID)
	if err != nil {
		return core.FineTuneStatus{}, fmt.Errorf("failed to retrieve fine-tuning job %s: %w", jobID, err)
	}
	return core.FineTuneStatus{
		JobID:          job.ID,
		Status:         job.Status,
		FineTunedModel: job.FineTunedModel,
		Message:        fmt.Sprintf("job %s is %s", job.ID, job.Status),
	}, nil
}
