package factory

import (
	"context"
	"testing"

	"github.com/nalgeon/be"
	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/config"
	"github.com/mikey/email-tldr/internal/core"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewFromViper(config.NewEmptyViper())
	cfg.Set("summarizer.checkpoint", t.TempDir()+"/missing.json")
	return cfg
}

func TestCreateModel(t *testing.T) {
	cfg := testConfig(t)
	f := NewLLMFactory(cfg, zap.NewNop())

	m, err := f.CreateModel(context.Background(), "ollama", "")
	be.Err(t, err, nil)
	be.Equal(t, m.Name(), "ollama:llama3")

	_, err = f.CreateModel(context.Background(), "openai", "")
	be.True(t, err != nil)

	_, err = f.CreateModel(context.Background(), "watson", "")
	be.True(t, err != nil)

	_, err = f.CreateFineTuner("gemini")
	be.True(t, err != nil)
}

func TestCreateSummaryCache(t *testing.T) {
	cfg := testConfig(t)
	f := NewCacheFactory(cfg, zap.NewNop())

	c, err := f.CreateSummaryCache()
	be.Err(t, err, nil)
	c.Stop()

	cfg.Set("cache.type", "sqlite")
	cfg.Set("cache.sqlite_path", t.TempDir()+"/nested/cache.db")
	c, err = f.CreateSummaryCache()
	be.Err(t, err, nil)
	c.Stop()

	cfg.Set("cache.type", "redis")
	_, err = f.CreateSummaryCache()
	be.True(t, err != nil)
}

func TestCreateRegistryUsesConfiguredProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Set("llm.provider", "ollama")
	cfg.Set("cache.enabled", true)
	f := NewSummarizerFactory(cfg, zap.NewNop(), NewLLMFactory(cfg, zap.NewNop()), NewCacheFactory(cfg, zap.NewNop()))

	registry, release, err := f.CreateRegistry()
	be.Err(t, err, nil)
	defer release()

	m, err := registry.Model(context.Background())
	be.Err(t, err, nil)
	be.Equal(t, m.Name(), "ollama:llama3")
}

func TestPipelineOptions(t *testing.T) {
	cfg := testConfig(t)
	f := NewSummarizerFactory(cfg, zap.NewNop(), nil, nil)

	opts, err := f.PipelineOptions()
	be.Err(t, err, nil)
	be.Equal(t, opts.Variant, core.VariantDigest)
	be.Equal(t, opts.Folder, "[Gmail]/All Mail")

	cfg.Set("pipeline.variant", "per_email")
	opts, err = f.PipelineOptions()
	be.Err(t, err, nil)
	be.Equal(t, opts.Folder, "INBOX")

	cfg.Set("pipeline.variant", "weekly")
	_, err = f.PipelineOptions()
	be.True(t, err != nil)
}

type closingEmbedder struct{ closed int }

func (e *closingEmbedder) Embed(context.Context, []string) ([][]float32, error) { return nil, nil }

func (e *closingEmbedder) Close() error {
	e.closed++
	return nil
}

func TestCloseClient(t *testing.T) {
	e := &closingEmbedder{}
	CloseClient(e, zap.NewNop())
	be.Equal(t, e.closed, 1)

	cfg := testConfig(t)
	ollama, err := NewLLMFactory(cfg, zap.NewNop()).CreateEmbedder(context.Background(), "ollama")
	be.Err(t, err, nil)
	CloseClient(ollama, zap.NewNop())
}
