package gemini

import (
	"context"
	"io"
	"testing"

	"github.com/nalgeon/be"
	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/config"
	"github.com/mikey/email-tldr/internal/core"
)

var (
	_ core.Model    = (*GeminiClient)(nil)
	_ core.Embedder = (*GeminiClient)(nil)
	_ io.Closer     = (*GeminiClient)(nil)
)

func TestCreateClientRequiresKey(t *testing.T) {
	cfg := config.NewFromViper(config.NewEmptyViper())
	_, err := NewFactory(cfg, zap.NewNop()).CreateClient(context.Background(), "")
	be.True(t, err != nil)
}

func TestCloseWithoutClient(t *testing.T) {
	c := NewGeminiClient(nil, "gemini-1.5-flash", "text-embedding-004", 0.1, zap.NewNop())
	be.Equal(t, c.Name(), "gemini:gemini-1.5-flash")
	be.Err(t, c.Close(), nil)
}
