package summarizer

import (
	"context"
	"io"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/core"
)

// BreakerSettings configures BreakerModel
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// BreakerModel stops calling a failing model backend until it recovers
type BreakerModel struct {
	next core.Model
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerModel wraps next in a circuit breaker that opens after
// FailureThreshold consecutive failures
func NewBreakerModel(next core.Model, settings BreakerSettings, logger *zap.Logger) *BreakerModel {
	threshold := settings.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Model circuit breaker changed state",
				zap.String("model", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &BreakerModel{next: next, cb: cb}
}

// Name returns the wrapped model's name
func (m *BreakerModel) Name() string {
	return m.next.Name()
}

// Generate calls the wrapped model unless the breaker is open
func (m *BreakerModel) Generate(ctx context.Context, prompt string, opts core.GenerationOptions) (string, error) {
	out, err := m.cb.Execute(func() (interface{}, error) {
		return m.next.Generate(ctx, prompt, opts)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// State reports the breaker state
func (m *BreakerModel) State() gobreaker.State {
	return m.cb.State()
}

// Close closes the wrapped model if it holds resources
func (m *BreakerModel) Close() error {
	if c, ok := m.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
