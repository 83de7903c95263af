package evaluation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mikey/email-tldr/internal/core"
	"github.com/mikey/email-tldr/internal/dataset"
	"github.com/mikey/email-tldr/internal/utils"
)

// Options controls an evaluation run
type Options struct {
	BatchSize       int
	MaxInputTokens  int
	MaxOutputTokens int
	BERTScoreSample int
	Seed            int64
}

// Report holds ROUGE F-measures (0-100) and the sampled BERTScore
type Report struct {
	Examples        int                `json:"examples"`
	Rouge           map[string]float64 `json:"rouge"`
	BERTScore       BERTScore          `json:"bertscore"`
	BERTScoreSample int                `json:"bertscore_sample"`
}

// Harness generates summaries for held-out examples and scores them
type Harness struct {
	model  core.Model
	scorer *BERTScorer
	text   *utils.TextProcessor
	opts   Options
	logger *zap.Logger
}

// NewHarness creates a Harness. A nil scorer skips BERTScore.
func NewHarness(model core.Model, scorer *BERTScorer, text *utils.TextProcessor, opts Options, logger *zap.Logger) *Harness {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 8
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = 128
	}
	return &Harness{
		model:  model,
		scorer: scorer,
		text:   text,
		opts:   opts,
		logger: logger,
	}
}

// Evaluate runs generation batch by batch, accumulating ROUGE as it goes,
// then computes BERTScore on a sample of the pairs
func (h *Harness) Evaluate(ctx context.Context, examples []dataset.Example) (*Report, error) {
	gen := core.GenerationOptions{MaxOutputTokens: h.opts.MaxOutputTokens, NumBeams: 4, EarlyStopping: true}

	var acc RougeAccumulator
	preds := make([]string, 0, len(examples))
	refs := make([]string, 0, len(examples))

	for start := 0; start < len(examples); start += h.opts.BatchSize {
		batch := examples[start:min(start+h.opts.BatchSize, len(examples))]
		batchPreds := make([]string, len(batch))
		batchRefs := make([]string, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		for i, ex := range batch {
			batchRefs[i] = h.text.TruncateTokens(strings.TrimSpace(ex.Summary), h.opts.MaxOutputTokens)
			g.Go(func() error {
				prompt := h.text.ProcessText(ex.Body, h.opts.MaxInputTokens)
				out, err := h.model.Generate(gctx, prompt, gen)
				if err != nil {
					return core.Wrap(core.KindGeneration, "evaluate", fmt.Errorf("example %d: %w", start+i, err))
				}
				batchPreds[i] = strings.TrimSpace(out)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		acc.AddBatch(batchRefs, batchPreds)
		preds = append(preds, batchPreds...)
		refs = append(refs, batchRefs...)
		h.logger.Debug("Evaluated batch", zap.Int("done", len(preds)), zap.Int("total", len(examples)))
	}

	report := &Report{Examples: len(examples), Rouge: acc.Compute()}

	if h.scorer != nil && len(preds) > 0 {
		idx := SamplePairs(len(preds), h.opts.BERTScoreSample, h.opts.Seed)
		sampledPreds := make([]string, len(idx))
		sampledRefs := make([]string, len(idx))
		for i, j := range idx {
			sampledPreds[i] = preds[j]
			sampledRefs[i] = refs[j]
		}
		score, err := h.scorer.Score(ctx, sampledPreds, sampledRefs)
		if err != nil {
			return nil, err
		}
		report.BERTScore = score
		report.BERTScoreSample = len(idx)
	}

	h.logger.Info("Evaluation complete",
		zap.Int("examples", report.Examples),
		zap.Float64("rouge1", report.Rouge["rouge1"]),
		zap.Float64("rougeL", report.Rouge["rougeL"]),
		zap.Float64("bertscore_f1", report.BERTScore.F1))
	return report, nil
}
