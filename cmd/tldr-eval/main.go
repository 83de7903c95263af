// Command tldr-eval scores summaries against references.
//
// In full mode it generates summaries for the validation split with the
// checkpointed model and reports corpus ROUGE plus a sampled BERTScore. In
// rouge mode it reads reference and generated columns from a CSV and reports
// the mean per-pair ROUGE-1, ROUGE-2 and ROUGE-L.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/config"
	"github.com/mikey/email-tldr/internal/dataset"
	"github.com/mikey/email-tldr/internal/di"
	"github.com/mikey/email-tldr/internal/evaluation"
	"github.com/mikey/email-tldr/internal/factory"
	"github.com/mikey/email-tldr/internal/utils"
)

var (
	mode         = flag.String("mode", "full", "Evaluation mode (full, rouge)")
	referenceCol = flag.String("reference-col", "summary", "Reference column for rouge mode")
	generatedCol = flag.String("generated-col", "generated", "Generated column for rouge mode")
	noBERTScore  = flag.Bool("no-bertscore", false, "Skip BERTScore in full mode")
)

func main() {
	flags := di.RegisterFlags(flag.CommandLine)
	flag.Parse()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	var invoke interface{}
	switch *mode {
	case "full":
		invoke = runFull
	case "rouge":
		invoke = runRouge
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode: %s\n", *mode)
		os.Exit(2)
	}

	if err := container.Invoke(invoke); err != nil {
		fmt.Fprintf(os.Stderr, "Evaluation failed: %v\n", err)
		os.Exit(1)
	}
}

func runFull(logger *zap.Logger, cfg *config.Config, llm *factory.LLMFactory, models *di.Models) error {
	defer logger.Sync()
	defer models.Release()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	evalCfg := cfg.GetEvaluation()
	trainCfg, err := cfg.GetTraining()
	if err != nil {
		return err
	}

	examples, err := dataset.LoadExamples(evalCfg.DataPath)
	if err != nil {
		return err
	}
	_, validation := dataset.Split(examples, trainCfg.ValidationSplit, trainCfg.Seed)
	logger.Info("Evaluating validation split", zap.Int("examples", len(validation)))

	model, err := models.Registry.Model(ctx)
	if err != nil {
		return err
	}

	var scorer *evaluation.BERTScorer
	if !*noBERTScore {
		embedder, err := llm.CreateEmbedder(ctx, evalCfg.EmbeddingProvider)
		if err != nil {
			return err
		}
		defer factory.CloseClient(embedder, logger)
		scorer = evaluation.NewBERTScorer(embedder, 0)
	}

	harness := evaluation.NewHarness(model, scorer, utils.NewTextProcessor(logger), evaluation.Options{
		BatchSize:       evalCfg.BatchSize,
		MaxInputTokens:  trainCfg.MaxInputTokens,
		MaxOutputTokens: evalCfg.MaxOutputTokens,
		BERTScoreSample: evalCfg.BERTScoreSample,
		Seed:            evalCfg.Seed,
	}, logger)

	report, err := harness.Evaluate(ctx, validation)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func runRouge(logger *zap.Logger, cfg *config.Config) error {
	defer logger.Sync()

	path := cfg.GetEvaluation().DataPath
	rows, err := dataset.LoadColumns(path, *referenceCol, *generatedCol)
	if err != nil {
		return err
	}

	references := make([]string, len(rows))
	generated := make([]string, len(rows))
	for i, row := range rows {
		references[i], generated[i] = row[0], row[1]
	}
	logger.Info("Scoring pairs", zap.String("path", path), zap.Int("pairs", len(rows)))
	return printJSON(evaluation.RougeMetric(references, generated))
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
