package summarizer

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/core"
	"github.com/mikey/email-tldr/internal/utils"
)

// ModelSource hands out the model used for a summarization call
type ModelSource interface {
	Model(ctx context.Context) (core.Model, error)
}

// Options controls how bodies are turned into prompts
type Options struct {
	Variant        core.Variant
	MaxEmails      int
	MaxInputTokens int
	Separator      string
	Generation     core.GenerationOptions
}

// Summarizer implements core.Summarizer on top of a text-to-text model
type Summarizer struct {
	models ModelSource
	text   *utils.TextProcessor
	opts   Options
	logger *zap.Logger
}

// New creates a Summarizer
func New(models ModelSource, text *utils.TextProcessor, opts Options, logger *zap.Logger) *Summarizer {
	return &Summarizer{
		models: models,
		text:   text,
		opts:   opts,
		logger: logger,
	}
}

// Summarize returns one summary for the bodies. Nothing to summarize yields ""
// without touching the model.
func (s *Summarizer) Summarize(ctx context.Context, bodies []string) (string, error) {
	if s.opts.Variant == core.VariantPerEmail {
		return s.summarizeEach(ctx, bodies)
	}
	return s.summarizeDigest(ctx, bodies)
}

func (s *Summarizer) summarizeDigest(ctx context.Context, bodies []string) (string, error) {
	if s.opts.MaxEmails > 0 && len(bodies) > s.opts.MaxEmails {
		bodies = bodies[:s.opts.MaxEmails]
	}
	joined := strings.Join(bodies, s.opts.Separator)
	if strings.TrimSpace(joined) == "" {
		return "", nil
	}

	model, err := s.models.Model(ctx)
	if err != nil {
		return "", err
	}

	prompt := s.text.ProcessText(joined, s.opts.MaxInputTokens)
	summary, err := model.Generate(ctx, prompt, s.opts.Generation)
	if err != nil {
		return "", core.Wrap(core.KindGeneration, "summarize", err)
	}

	s.logger.Info("Generated digest summary",
		zap.String("model", model.Name()),
		zap.Int("emails", len(bodies)),
		zap.Int("summary_length", len(summary)))
	return summary, nil
}

func (s *Summarizer) summarizeEach(ctx context.Context, bodies []string) (string, error) {
	texts := make([]string, 0, len(bodies))
	for _, body := range bodies {
		if text := utils.VisibleText(body); text != "" {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return "", nil
	}

	model, err := s.models.Model(ctx)
	if err != nil {
		return "", err
	}

	segments := make([]string, 0, len(texts))
	for i, text := range texts {
		prompt := s.text.ProcessText(text, s.opts.MaxInputTokens)
		summary, err := model.Generate(ctx, prompt, s.opts.Generation)
		if err != nil {
			return "", core.Wrap(core.KindGeneration, "summarize", err)
		}
		if summary = strings.TrimSpace(summary); summary != "" {
			segments = append(segments, summary)
		}
		s.logger.Debug("Summarized email", zap.Int("index", i), zap.Int("summary_length", len(summary)))
	}

	s.logger.Info("Generated per-email summaries",
		zap.String("model", model.Name()),
		zap.Int("emails", len(texts)))
	return strings.Join(segments, "\n\n"), nil
}
