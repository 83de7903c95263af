package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/config"
	"github.com/mikey/email-tldr/internal/core"
	"github.com/mikey/email-tldr/internal/summarizer"
	"github.com/mikey/email-tldr/internal/utils"
)

// SummarizerFactory wires the model registry, its decorators and the summarizer
type SummarizerFactory struct {
	cfg    *config.Config
	logger *zap.Logger
	llm    *LLMFactory
	caches *CacheFactory
}

// NewSummarizerFactory creates a new summarizer factory
func NewSummarizerFactory(cfg *config.Config, logger *zap.Logger, llm *LLMFactory, caches *CacheFactory) *SummarizerFactory {
	return &SummarizerFactory{
		cfg:    cfg,
		logger: logger,
		llm:    llm,
		caches: caches,
	}
}

// PipelineOptions resolves the configured variant and its overrides
func (f *SummarizerFactory) PipelineOptions() (core.PipelineOptions, error) {
	pipelineCfg := f.cfg.GetPipeline()
	variant, err := core.ParseVariant(pipelineCfg.Variant)
	if err != nil {
		return core.PipelineOptions{}, err
	}
	folder := pipelineCfg.Folder
	if folder == "" {
		folder = variant.DefaultFolder()
	}
	return core.PipelineOptions{Variant: variant, Days: pipelineCfg.Days, Folder: folder}, nil
}

// GenerationOptions returns the configured decoding parameters
func (f *SummarizerFactory) GenerationOptions() core.GenerationOptions {
	sumCfg := f.cfg.GetSummarizer()
	return core.GenerationOptions{
		MaxOutputTokens: sumCfg.MaxOutputTokens,
		NumBeams:        sumCfg.NumBeams,
		EarlyStopping:   sumCfg.EarlyStopping,
	}
}

// CreateRegistry builds the lifetime model registry. The returned release
// function closes the loaded model and stops the summary cache.
func (f *SummarizerFactory) CreateRegistry() (*summarizer.Registry, func(), error) {
	breakerCfg, err := f.cfg.GetBreaker()
	if err != nil {
		return nil, nil, err
	}

	var summaryCache StoppableCache
	cacheTTL, err := f.caches.GetCacheTTL()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid cache ttl: %w", err)
	}
	if f.caches.IsCacheEnabled() {
		summaryCache, err = f.caches.CreateSummaryCache()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create summary cache: %w", err)
		}
	}

	load := func(ctx context.Context, provider, modelName string) (core.Model, error) {
		model, err := f.llm.CreateModel(ctx, provider, modelName)
		if err != nil {
			return nil, err
		}
		if breakerCfg.Enabled {
			model = summarizer.NewBreakerModel(model, summarizer.BreakerSettings{
				MaxRequests:      breakerCfg.MaxRequests,
				Interval:         breakerCfg.Interval,
				Timeout:          breakerCfg.Timeout,
				FailureThreshold: breakerCfg.FailureThreshold,
			}, f.logger)
		}
		if summaryCache != nil {
			model = summarizer.NewCachedModel(model, summaryCache, cacheTTL, f.logger)
		}
		return model, nil
	}

	provider := f.cfg.GetLLM().Provider
	registry := summarizer.NewRegistry(
		f.cfg.GetSummarizer().Checkpoint,
		provider,
		f.defaultModel(provider),
		load,
		f.logger,
	)

	release := func() {
		if err := registry.Close(); err != nil {
			f.logger.Warn("Failed to close model", zap.Error(err))
		}
		if summaryCache != nil {
			summaryCache.Stop()
		}
	}
	return registry, release, nil
}

// CreateSummarizer builds the summarizer for the configured variant
func (f *SummarizerFactory) CreateSummarizer(models summarizer.ModelSource, variant core.Variant) *summarizer.Summarizer {
	sumCfg := f.cfg.GetSummarizer()
	return summarizer.New(models, utils.NewTextProcessor(f.logger), summarizer.Options{
		Variant:        variant,
		MaxEmails:      sumCfg.MaxEmails,
		MaxInputTokens: sumCfg.MaxInputTokens,
		Separator:      sumCfg.Separator,
		Generation:     f.GenerationOptions(),
	}, f.logger)
}

func (f *SummarizerFactory) defaultModel(provider string) string {
	switch provider {
	case "openai":
		return f.cfg.GetOpenAI().ModelName
	case "gemini":
		return f.cfg.GetGemini().ModelName
	case "bedrock":
		return f.cfg.GetBedrock().ModelID
	case "ollama":
		return f.cfg.GetOllama().ModelName
	}
	return ""
}
