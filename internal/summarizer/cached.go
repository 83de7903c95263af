package summarizer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/adapters/cache"
	"github.com/mikey/email-tldr/internal/core"
)

// CachedModel serves repeated prompts from a summary cache
type CachedModel struct {
	next   core.Model
	cache  core.SummaryCache
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewCachedModel wraps next with a cache whose entries live for ttl
func NewCachedModel(next core.Model, c core.SummaryCache, ttl time.Duration, logger *zap.Logger) *CachedModel {
	return &CachedModel{
		next:   next,
		cache:  c,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// CacheKey identifies a model, prompt and output budget
func CacheKey(model, prompt string, opts core.GenerationOptions) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(opts.MaxOutputTokens)))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}

// Name returns the wrapped model's name
func (m *CachedModel) Name() string {
	return m.next.Name()
}

// Generate returns a cached summary when present, otherwise generates and stores one.
// Cache failures are logged and never fail the call.
func (m *CachedModel) Generate(ctx context.Context, prompt string, opts core.GenerationOptions) (string, error) {
	key := CacheKey(m.next.Name(), prompt, opts)

	entry, err := m.cache.Get(ctx, key)
	if err == nil {
		m.logger.Debug("Summary cache hit", zap.String("key", key))
		return entry.Summary, nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		m.logger.Warn("Summary cache lookup failed", zap.Error(err))
	}

	summary, err := m.next.Generate(ctx, prompt, opts)
	if err != nil {
		return "", err
	}

	now := m.now()
	if err := m.cache.Set(ctx, &core.CacheEntry{
		Key:       key,
		Summary:   summary,
		Model:     m.next.Name(),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}); err != nil {
		m.logger.Warn("Failed to store summary in cache", zap.Error(err))
	}
	return summary, nil
}

// Close closes the wrapped model if it holds resources
func (m *CachedModel) Close() error {
	if c, ok := m.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
