package training

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/checkpoint"
	"github.com/mikey/email-tldr/internal/config"
	"github.com/mikey/email-tldr/internal/core"
	"github.com/mikey/email-tldr/internal/dataset"
	"github.com/mikey/email-tldr/internal/utils"
)

// Trainer fine-tunes a hosted model on email/summary pairs and records the result as a checkpoint
type Trainer struct {
	tuner          core.FineTuner
	provider       string
	cfg            config.TrainingConfig
	checkpointPath string
	text           *utils.TextProcessor
	logger         *zap.Logger
	now            func() time.Time
}

// NewTrainer creates a Trainer. provider is recorded in the checkpoint so the
// serving side knows which backend hosts the tuned model.
func NewTrainer(
	tuner core.FineTuner,
	provider string,
	cfg config.TrainingConfig,
	checkpointPath string,
	text *utils.TextProcessor,
	logger *zap.Logger,
) *Trainer {
	return &Trainer{
		tuner:          tuner,
		provider:       provider,
		cfg:            cfg,
		checkpointPath: checkpointPath,
		text:           text,
		logger:         logger,
		now:            time.Now,
	}
}

// Train splits the examples, uploads both splits, runs the fine-tuning job to
// completion and saves the checkpoint
func (t *Trainer) Train(ctx context.Context, examples []dataset.Example) (*checkpoint.Checkpoint, error) {
	train, validation := dataset.Split(examples, t.cfg.ValidationSplit, t.cfg.Seed)
	if len(train) == 0 {
		return nil, errors.New("no training examples")
	}

	trainData, trainCount, err := BuildJSONL(train, t.text, t.cfg.MaxInputTokens, t.cfg.MaxTargetTokens)
	if err != nil {
		return nil, err
	}
	if trainCount == 0 {
		return nil, errors.New("all training examples are empty")
	}
	valData, valCount, err := BuildJSONL(validation, t.text, t.cfg.MaxInputTokens, t.cfg.MaxTargetTokens)
	if err != nil {
		return nil, err
	}

	t.logger.Info("Prepared fine-tuning data",
		zap.Int("train_examples", trainCount),
		zap.Int("validation_examples", valCount))

	trainFileID, err := t.tuner.UploadTrainingFile(ctx, "email-tldr-train.jsonl", trainData)
	if err != nil {
		return nil, fmt.Errorf("failed to upload training file: %w", err)
	}
	var valFileID string
	if valCount > 0 {
		valFileID, err = t.tuner.UploadTrainingFile(ctx, "email-tldr-validation.jsonl", valData)
		if err != nil {
			return nil, fmt.Errorf("failed to upload validation file: %w", err)
		}
	}

	jobID, err := t.tuner.StartFineTune(ctx, core.FineTuneRequest{
		BaseModel:              t.cfg.BaseModel,
		TrainingFileID:         trainFileID,
		ValidationFileID:       valFileID,
		Epochs:                 t.cfg.Epochs,
		BatchSize:              t.cfg.BatchSize,
		LearningRateMultiplier: t.cfg.LearningRateMultiplier,
		Suffix:                 t.cfg.Suffix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start fine-tuning job: %w", err)
	}
	t.logger.Info("Started fine-tuning job", zap.String("job_id", jobID), zap.String("base_model", t.cfg.BaseModel))

	status, err := t.wait(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !status.Succeeded() {
		return nil, fmt.Errorf("fine-tuning job %s %s: %s", jobID, status.Status, status.Message)
	}

	cp := &checkpoint.Checkpoint{
		Provider:           t.provider,
		Model:              status.FineTunedModel,
		BaseModel:          t.cfg.BaseModel,
		JobID:              jobID,
		TrainedAt:          t.now().UTC(),
		TrainExamples:      trainCount,
		ValidationExamples: valCount,
	}
	if err := checkpoint.Save(t.checkpointPath, cp); err != nil {
		return nil, err
	}
	t.logger.Info("Saved model checkpoint",
		zap.String("path", t.checkpointPath),
		zap.String("model", cp.Model))
	return cp, nil
}

// wait polls the job every PollInterval until it reaches a terminal state
func (t *Trainer) wait(ctx context.Context, jobID string) (core.FineTuneStatus, error) {
	interval := t.cfg.PollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := ""
	for {
		status, err := t.tuner.FineTuneStatus(ctx, jobID)
		if err != nil {
			return core.FineTuneStatus{}, fmt.Errorf("failed to get job status: %w", err)
		}
		if status.Status != last {
			t.logger.Info("Fine-tuning job status", zap.String("job_id", jobID), zap.String("status", status.Status))
			last = status.Status
		}
		if status.Terminal() {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return core.FineTuneStatus{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
