package summarizer

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/checkpoint"
	"github.com/mikey/email-tldr/internal/core"
)

// LoadFunc builds a model client for a provider and model name
type LoadFunc func(ctx context.Context, provider, model string) (core.Model, error)

// Registry resolves the serving model once and shares it for the life of the process
type Registry struct {
	path            string
	defaultProvider string
	defaultModel    string
	load            LoadFunc
	logger          *zap.Logger

	mu    sync.Mutex
	model core.Model
}

// NewRegistry creates a registry reading the checkpoint at path. When no
// checkpoint exists the default provider and model are used.
func NewRegistry(path, defaultProvider, defaultModel string, load LoadFunc, logger *zap.Logger) *Registry {
	return &Registry{
		path:            path,
		defaultProvider: defaultProvider,
		defaultModel:    defaultModel,
		load:            load,
		logger:          logger,
	}
}

// Model returns the shared model, loading it on first use. A failed load is
// retried on the next call.
func (r *Registry) Model(ctx context.Context) (core.Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.model != nil {
		return r.model, nil
	}

	provider, name := r.defaultProvider, r.defaultModel
	cp, err := checkpoint.Load(r.path)
	switch {
	case err == nil:
		provider, name = cp.Provider, cp.Model
		r.logger.Info("Loaded model checkpoint",
			zap.String("path", r.path),
			zap.String("provider", provider),
			zap.String("model", name),
			zap.Time("trained_at", cp.TrainedAt))
	case errors.Is(err, checkpoint.ErrNotExist):
		r.logger.Warn("No model checkpoint found, using configured model",
			zap.String("path", r.path),
			zap.String("provider", provider),
			zap.String("model", name))
	default:
		return nil, core.Wrap(core.KindGeneration, "load checkpoint", err)
	}

	model, err := r.load(ctx, provider, name)
	if err != nil {
		return nil, core.Wrap(core.KindGeneration, "load model", err)
	}
	r.model = model
	return model, nil
}

// Close releases the loaded model if it holds resources
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.model == nil {
		return nil
	}
	var err error
	if c, ok := r.model.(io.Closer); ok {
		err = c.Close()
	}
	r.model = nil
	return err
}

// Static is a ModelSource that always returns the same model
type Static struct {
	M core.Model
}

// Model returns the wrapped model
func (s Static) Model(context.Context) (core.Model, error) {
	return s.M, nil
}
