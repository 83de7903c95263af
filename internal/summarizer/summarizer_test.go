package summarizer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nalgeon/be"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/adapters/cache"
	"github.com/mikey/email-tldr/internal/checkpoint"
	"github.com/mikey/email-tldr/internal/core"
	"github.com/mikey/email-tldr/internal/utils"
)

type fakeModel struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) (string, error)
}

func (m *fakeModel) Name() string { return "fake:model" }

func (m *fakeModel) Generate(_ context.Context, prompt string, _ core.GenerationOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.reply != nil {
		return m.reply(prompt)
	}
	return "summary of: " + prompt, nil
}

func (m *fakeModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func newSummarizer(m core.Model, variant core.Variant) *Summarizer {
	logger := zap.NewNop()
	return New(Static{M: m}, utils.NewTextProcessor(logger), Options{
		Variant:        variant,
		MaxEmails:      5,
		MaxInputTokens: 1024,
		Separator:      " ",
		Generation:     core.GenerationOptions{MaxOutputTokens: 200, NumBeams: 4, EarlyStopping: true},
	}, logger)
}

func TestSummarizeNothingNeverCallsModel(t *testing.T) {
	for _, v := range []core.Variant{core.VariantDigest, core.VariantPerEmail} {
		t.Run(string(v), func(t *testing.T) {
			m := &fakeModel{}
			s := newSummarizer(m, v)

			got, err := s.Summarize(context.Background(), nil)
			be.Err(t, err, nil)
			be.Equal(t, got, "")

			got, err = s.Summarize(context.Background(), []string{"", "  "})
			be.Err(t, err, nil)
			be.Equal(t, got, "")
			be.Equal(t, m.calls(), 0)
		})
	}
}

func TestDigestJoinsFirstFive(t *testing.T) {
	m := &fakeModel{}
	s := newSummarizer(m, core.VariantDigest)

	bodies := []string{"one", "two", "three", "four", "five", "six", "seven"}
	_, err := s.Summarize(context.Background(), bodies)
	be.Err(t, err, nil)
	be.Equal(t, m.calls(), 1)
	be.Equal(t, m.prompts[0], "one two three four five")
}

func TestDigestTruncatesInput(t *testing.T) {
	m := &fakeModel{}
	s := newSummarizer(m, core.VariantDigest)
	s.opts.MaxInputTokens = 3

	_, err := s.Summarize(context.Background(), []string{"a b c d e f"})
	be.Err(t, err, nil)
	be.Equal(t, m.prompts[0], "a b c")
}

func TestPerEmailSegments(t *testing.T) {
	m := &fakeModel{reply: func(p string) (string, error) { return strings.ToUpper(p), nil }}
	s := newSummarizer(m, core.VariantPerEmail)

	bodies := []string{"<p>Rent   due</p>", "", "<html><script>x()</script><b>Lunch</b></html>"}
	got, err := s.Summarize(context.Background(), bodies)
	be.Err(t, err, nil)
	be.Equal(t, m.calls(), 2)
	be.Equal(t, got, "RENT DUE\n\nLUNCH")
}

func TestGenerationErrorKind(t *testing.T) {
	m := &fakeModel{reply: func(string) (string, error) { return "", errors.New("quota exceeded") }}
	s := newSummarizer(m, core.VariantDigest)

	_, err := s.Summarize(context.Background(), []string{"hello"})
	be.Equal(t, core.KindOf(err), core.KindGeneration)
}

func TestRegistryLoadsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "email_summarizer.json")
	be.Err(t, checkpoint.Save(path, &checkpoint.Checkpoint{Provider: "openai", Model: "ft:tuned"}), nil)

	var loads []string
	r := NewRegistry(path, "ollama", "llama3", func(_ context.Context, provider, model string) (core.Model, error) {
		loads = append(loads, provider+"/"+model)
		return &fakeModel{}, nil
	}, zap.NewNop())

	m1, err := r.Model(context.Background())
	be.Err(t, err, nil)
	m2, err := r.Model(context.Background())
	be.Err(t, err, nil)
	be.True(t, m1 == m2)
	be.Equal(t, loads, []string{"openai/ft:tuned"})
	be.Err(t, r.Close(), nil)
}

func TestRegistryMissingCheckpointUsesDefault(t *testing.T) {
	var loaded string
	r := NewRegistry(filepath.Join(t.TempDir(), "missing.json"), "ollama", "llama3",
		func(_ context.Context, provider, model string) (core.Model, error) {
			loaded = provider + "/" + model
			return &fakeModel{}, nil
		}, zap.NewNop())

	_, err := r.Model(context.Background())
	be.Err(t, err, nil)
	be.Equal(t, loaded, "ollama/llama3")
}

func TestRegistryMalformedCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	be.Err(t, os.WriteFile(path, []byte("garbage"), 0o644), nil)

	r := NewRegistry(path, "openai", "gpt-4o-mini", func(context.Context, string, string) (core.Model, error) {
		t.Fatal("model should not be loaded")
		return nil, nil
	}, zap.NewNop())

	_, err := r.Model(context.Background())
	be.Equal(t, core.KindOf(err), core.KindGeneration)
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	m := &fakeModel{reply: func(string) (string, error) { return "", errors.New("backend down") }}
	b := NewBreakerModel(m, BreakerSettings{MaxRequests: 1, Timeout: time.Minute, FailureThreshold: 2}, zap.NewNop())

	for i := 0; i < 2; i++ {
		_, err := b.Generate(context.Background(), "p", core.GenerationOptions{})
		be.True(t, err != nil)
	}
	be.Equal(t, b.State(), gobreaker.StateOpen)

	_, err := b.Generate(context.Background(), "p", core.GenerationOptions{})
	be.True(t, errors.Is(err, gobreaker.ErrOpenState))
	be.Equal(t, m.calls(), 2)
}

func TestCachedModelHit(t *testing.T) {
	m := &fakeModel{}
	mem := cache.NewMemoryCache(zap.NewNop(), 0)
	defer mem.Stop()
	c := NewCachedModel(m, mem, time.Hour, zap.NewNop())

	opts := core.GenerationOptions{MaxOutputTokens: 200}
	first, err := c.Generate(context.Background(), "prompt", opts)
	be.Err(t, err, nil)
	second, err := c.Generate(context.Background(), "prompt", opts)
	be.Err(t, err, nil)
	be.Equal(t, first, second)
	be.Equal(t, m.calls(), 1)

	_, err = c.Generate(context.Background(), "prompt", core.GenerationOptions{MaxOutputTokens: 128})
	be.Err(t, err, nil)
	be.Equal(t, m.calls(), 2)
}
