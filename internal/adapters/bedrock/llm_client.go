package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/core"
)

// BedrockClient is an implementation of the Model interface using Amazon Bedrock
type BedrockClient struct {
	client       *bedrockruntime.Client
	modelID      string
	temperature  float32
	logger       *zap.Logger
	promptFormat string
}

// NewBedrockClient creates a new Bedrock client
func NewBedrockClient(
	client *bedrockruntime.Client,
	modelID string,
	temperature float32,
	logger *zap.Logger,
) *BedrockClient {
	return &BedrockClient{
		client:       client,
		modelID:      modelID,
		temperature:  temperature,
		logger:       logger,
		promptFormat: core.SummaryPromptFormat,
	}
}

// Name returns the Bedrock model id
func (c *BedrockClient) Name() string {
	return "bedrock:" + c.modelID
}

// Generate summarizes the prompt with InvokeModel
func (c *BedrockClient) Generate(ctx context.Context, prompt string, opts core.GenerationOptions) (string, error) {
	temperature := c.temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}

	payload, err := buildPayload(c.modelID, fmt.Sprintf(c.promptFormat, prompt), opts.MaxOutputTokens, temperature)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	text, err := parseResponse(c.modelID, resp.Body)
	if err != nil {
		return "", err
	}
	c.logger.Debug("Bedrock completion", zap.String("model", c.modelID), zap.Int("length", len(text)))
	return strings.TrimSpace(text), nil
}

func isAnthropicModel(modelID string) bool {
	return strings.Contains(modelID, "anthropic.")
}

func isAmazonTitanModel(modelID string) bool {
	return strings.Contains(modelID, "amazon.titan")
}

// buildPayload renders the request body in the format the model family expects
func buildPayload(modelID, prompt string, maxTokens int, temperature float32) ([]byte, error) {
	if maxTokens <= 0 {
		maxTokens = 200
	}
	switch {
	case isAnthropicModel(modelID):
		return json.Marshal(map[string]interface{}{
			"anthropic_version": "bedrock-2023-05-31",
			"max_tokens":        maxTokens,
			"temperature":       temperature,
			"system":            core.SummaryInstruction,
			"messages": []map[string]interface{}{
				{"role": "user", "content": prompt},
			},
		})
	case isAmazonTitanModel(modelID):
		return json.Marshal(map[string]interface{}{
			"inputText": core.SummaryInstruction + "\n\n" + prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": maxTokens,
				"temperature":   temperature,
			},
		})
	default:
		return json.Marshal(map[string]interface{}{
			"prompt":      core.SummaryInstruction + "\n\n" + prompt,
			"max_tokens":  maxTokens,
			"temperature": temperature,
		})
	}
}

// parseResponse extracts the generated text from a model family's response body
func parseResponse(modelID string, body []byte) (string, error) {
	switch {
	case isAnthropicModel(modelID):
		var claudeResp struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		var b strings.Builder
		for _, block := range claudeResp.Content {
			if block.Type == "text" {
				b.WriteString(block.Text)
			}
		}
		if b.Len() == 0 {
			return "", fmt.Errorf("empty response from Claude model")
		}
		return b.String(), nil
	case isAmazonTitanModel(modelID):
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model")
		}
		return titanResp.Results[0].OutputText, nil
	default:
		var genericResp struct {
			Output     string `json:"output"`
			Text       string `json:"text"`
			Generation string `json:"generation"`
		}
		if err := json.Unmarshal(body, &genericResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
		}
		for _, s := range []string{genericResp.Generation, genericResp.Output, genericResp.Text} {
			if s != "" {
				return s, nil
			}
		}
		return string(body), nil
	}
}
