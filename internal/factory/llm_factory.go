package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/adapters/bedrock"
	"github.com/mikey/email-tldr/internal/adapters/gemini"
	"github.com/mikey/email-tldr/internal/adapters/ollama"
	"github.com/mikey/email-tldr/internal/adapters/openai"
	"github.com/mikey/email-tldr/internal/config"
	"github.com/mikey/email-tldr/internal/core"
)

// LLMFactory creates model backends by provider name
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateModel creates a text generation client. An empty modelName uses the
// provider's configured model.
func (f *LLMFactory) CreateModel(ctx context.Context, provider, modelName string) (core.Model, error) {
	var model core.Model
	switch provider {
	case "openai":
		client, err := openai.NewFactory(f.cfg, f.logger).CreateClient(modelName)
		if err != nil {
			return nil, err
		}
		model = client
	case "gemini":
		client, err := gemini.NewFactory(f.cfg, f.logger).CreateClient(ctx, modelName)
		if err != nil {
			return nil, err
		}
		model = client
	case "bedrock":
		client, err := bedrock.NewFactory(f.cfg, f.logger).CreateClient(ctx, modelName)
		if err != nil {
			return nil, err
		}
		model = client
	case "ollama":
		model = f.ollamaClient(modelName)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}

	f.logger.Info("Created model client", zap.String("model", model.Name()))
	return model, nil
}

// CreateEmbedder creates an embedding client for BERTScore
func (f *LLMFactory) CreateEmbedder(ctx context.Context, provider string) (core.Embedder, error) {
	switch provider {
	case "openai":
		client, err := openai.NewFactory(f.cfg, f.logger).CreateClient("")
		if err != nil {
			return nil, err
		}
		return client, nil
	case "gemini":
		client, err := gemini.NewFactory(f.cfg, f.logger).CreateClient(ctx, "")
		if err != nil {
			return nil, err
		}
		return client, nil
	case "ollama":
		return f.ollamaClient(""), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", provider)
	}
}

// CloseClient closes a model or embedder client that holds a connection.
// Clients without a Close method are left alone.
func CloseClient(client any, logger *zap.Logger) {
	closer, ok := client.(interface{ Close() error })
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn("Failed to close client", zap.Error(err))
	}
}

// CreateFineTuner creates a client able to run hosted fine-tuning jobs
func (f *LLMFactory) CreateFineTuner(provider string) (core.FineTuner, error) {
	if provider != "openai" {
		return nil, fmt.Errorf("provider %s does not support fine-tuning", provider)
	}
	client, err := openai.NewFactory(f.cfg, f.logger).CreateClient("")
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (f *LLMFactory) ollamaClient(modelName string) *ollama.Client {
	ollamaCfg := f.cfg.GetOllama()
	if modelName == "" {
		modelName = ollamaCfg.ModelName
	}
	return ollama.NewClient(ollamaCfg.BaseURL, modelName, nil, f.logger)
}
