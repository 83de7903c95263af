// Command tldr-train fine-tunes the summarization model on a CSV of
// body/summary pairs and writes the checkpoint the server loads.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/config"
	"github.com/mikey/email-tldr/internal/dataset"
	"github.com/mikey/email-tldr/internal/di"
	"github.com/mikey/email-tldr/internal/factory"
	"github.com/mikey/email-tldr/internal/training"
	"github.com/mikey/email-tldr/internal/utils"
)

func main() {
	flags := di.RegisterFlags(flag.CommandLine)
	flag.Parse()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Training failed: %v\n", err)
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg *config.Config, llm *factory.LLMFactory) error {
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	trainCfg, err := cfg.GetTraining()
	if err != nil {
		return err
	}
	provider := cfg.GetLLM().Provider
	tuner, err := llm.CreateFineTuner(provider)
	if err != nil {
		return err
	}

	examples, err := dataset.LoadExamples(trainCfg.DataPath)
	if err != nil {
		return err
	}
	logger.Info("Loaded dataset", zap.String("path", trainCfg.DataPath), zap.Int("examples", len(examples)))

	checkpointPath := cfg.GetSummarizer().Checkpoint
	trainer := training.NewTrainer(tuner, provider, trainCfg, checkpointPath, utils.NewTextProcessor(logger), logger)
	cp, err := trainer.Train(ctx, examples)
	if err != nil {
		return err
	}

	logger.Info("Saved checkpoint",
		zap.String("path", checkpointPath),
		zap.String("model", cp.Model),
		zap.String("job_id", cp.JobID))
	return nil
}
