package training

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nalgeon/be"
	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/checkpoint"
	"github.com/mikey/email-tldr/internal/config"
	"github.com/mikey/email-tldr/internal/core"
	"github.com/mikey/email-tldr/internal/dataset"
	"github.com/mikey/email-tldr/internal/utils"
)

type fakeTuner struct {
	uploads  map[string][]byte
	request  core.FineTuneRequest
	statuses []core.FineTuneStatus
	polls    int
}

func (f *fakeTuner) UploadTrainingFile(_ context.Context, name string, data []byte) (string, error) {
	if f.uploads == nil {
		f.uploads = map[string][]byte{}
	}
	f.uploads[name] = data
	return "file-" + name, nil
}

func (f *fakeTuner) StartFineTune(_ context.Context, req core.FineTuneRequest) (string, error) {
	f.request = req
	return "ftjob-1", nil
}

func (f *fakeTuner) FineTuneStatus(_ context.Context, jobID string) (core.FineTuneStatus, error) {
	s := f.statuses[f.polls]
	if f.polls < len(f.statuses)-1 {
		f.polls++
	}
	s.JobID = jobID
	return s, nil
}

func examples(n int) []dataset.Example {
	out := make([]dataset.Example, n)
	for i := range out {
		out[i] = dataset.Example{Body: fmt.Sprintf("email number %d about the quarterly report", i), Summary: fmt.Sprintf("report %d", i)}
	}
	return out
}

func trainingConfig() config.TrainingConfig {
	return config.TrainingConfig{
		BaseModel:              "gpt-4o-mini-2024-07-18",
		Epochs:                 5,
		BatchSize:              8,
		LearningRateMultiplier: 1.0,
		ValidationSplit:        0.1,
		Seed:                   42,
		MaxInputTokens:         512,
		MaxTargetTokens:        128,
		PollInterval:           time.Millisecond,
		Suffix:                 "email-tldr",
	}
}

func TestBuildJSONL(t *testing.T) {
	tp := utils.NewTextProcessor(zap.NewNop())
	data, kept, err := BuildJSONL([]dataset.Example{
		{Body: "one two three four", Summary: "short summary here"},
		{Body: "", Summary: "dropped"},
	}, tp, 2, 1)
	be.Err(t, err, nil)
	be.Equal(t, kept, 1)

	var rec chatRecord
	be.Err(t, json.Unmarshal(bytes.TrimSpace(data), &rec), nil)
	be.Equal(t, len(rec.Messages), 3)
	be.Equal(t, rec.Messages[0].Content, core.SummaryInstruction)
	be.Equal(t, rec.Messages[1].Content, fmt.Sprintf(core.SummaryPromptFormat, "one two"))
	be.Equal(t, rec.Messages[2].Content, "short")
}

func TestTrainSuccess(t *testing.T) {
	tuner := &fakeTuner{statuses: []core.FineTuneStatus{
		{Status: "validating_files"},
		{Status: "running"},
		{Status: "succeeded", FineTunedModel: "ft:gpt-4o-mini:org:email-tldr:xyz"},
	}}
	path := filepath.Join(t.TempDir(), "models", "email_summarizer.json")
	tr := NewTrainer(tuner, "openai", trainingConfig(), path, utils.NewTextProcessor(zap.NewNop()), zap.NewNop())

	cp, err := tr.Train(context.Background(), examples(20))
	be.Err(t, err, nil)
	be.Equal(t, cp.Model, "ft:gpt-4o-mini:org:email-tldr:xyz")
	be.Equal(t, cp.TrainExamples, 18)
	be.Equal(t, cp.ValidationExamples, 2)

	be.Equal(t, tuner.request.Epochs, 5)
	be.Equal(t, tuner.request.BatchSize, 8)
	be.Equal(t, tuner.request.ValidationFileID, "file-email-tldr-validation.jsonl")

	lines := 0
	sc := bufio.NewScanner(bytes.NewReader(tuner.uploads["email-tldr-train.jsonl"]))
	for sc.Scan() {
		lines++
	}
	be.Equal(t, lines, 18)

	saved, err := checkpoint.Load(path)
	be.Err(t, err, nil)
	be.Equal(t, saved.Provider, "openai")
	be.Equal(t, saved.JobID, "ftjob-1")
}

func TestTrainFailedJob(t *testing.T) {
	tuner := &fakeTuner{statuses: []core.FineTuneStatus{{Status: "failed", Message: "invalid file format"}}}
	path := filepath.Join(t.TempDir(), "cp.json")
	tr := NewTrainer(tuner, "openai", trainingConfig(), path, utils.NewTextProcessor(zap.NewNop()), zap.NewNop())

	_, err := tr.Train(context.Background(), examples(10))
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "invalid file format"))

	_, err = checkpoint.Load(path)
	be.True(t, err != nil)
}

func TestTrainCancelled(t *testing.T) {
	tuner := &fakeTuner{statuses: []core.FineTuneStatus{{Status: "running"}}}
	cfg := trainingConfig()
	cfg.PollInterval = time.Hour
	tr := NewTrainer(tuner, "openai", cfg, filepath.Join(t.TempDir(), "cp.json"), utils.NewTextProcessor(zap.NewNop()), zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := tr.Train(ctx, examples(10))
	be.Err(t, err, context.DeadlineExceeded)
}

func TestTrainNoExamples(t *testing.T) {
	tr := NewTrainer(&fakeTuner{}, "openai", trainingConfig(), filepath.Join(t.TempDir(), "cp.json"), utils.NewTextProcessor(zap.NewNop()), zap.NewNop())
	_, err := tr.Train(context.Background(), nil)
	be.True(t, err != nil)
}
