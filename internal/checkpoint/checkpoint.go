// Package checkpoint persists the description of a trained summarization model.
//
// A checkpoint records which provider and model a fine-tuning run produced so
// that the serving path can load the same model it was trained into.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNotExist is returned by Load when no checkpoint has been written yet
var ErrNotExist = errors.New("checkpoint does not exist")

// Checkpoint describes a trained model
type Checkpoint struct {
	Provider           string    `json:"provider"`
	Model              string    `json:"model"`
	BaseModel          string    `json:"base_model,omitempty"`
	JobID              string    `json:"job_id,omitempty"`
	TrainedAt          time.Time `json:"trained_at"`
	TrainExamples      int       `json:"train_examples"`
	ValidationExamples int       `json:"validation_examples"`
}

// Validate checks that the checkpoint names a loadable model
func (c *Checkpoint) Validate() error {
	if c.Provider == "" {
		return errors.New("checkpoint has no provider")
	}
	if c.Model == "" {
		return errors.New("checkpoint has no model")
	}
	return nil
}

// Load reads a checkpoint from path
func Load(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, path)
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("malformed checkpoint %s: %w", path, err)
	}
	if err := cp.Validate(); err != nil {
		return nil, fmt.Errorf("malformed checkpoint %s: %w", path, err)
	}
	return &cp, nil
}

// Save writes the checkpoint atomically, creating parent directories
func Save(path string, cp *Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}
	return nil
}
