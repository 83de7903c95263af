package di

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"

	"github.com/mikey/email-tldr/internal/adapters/httpapi"
	"github.com/mikey/email-tldr/internal/config"
	"github.com/mikey/email-tldr/internal/core"
	"github.com/mikey/email-tldr/internal/credentials"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body += "summarizer:\n  checkpoint: " + filepath.Join(dir, "missing.json") + "\n"
	be.Err(t, os.WriteFile(path, []byte(body), 0o600), nil)
	return path
}

func TestBuildContainer(t *testing.T) {
	path := writeConfig(t, "llm:\n  provider: ollama\nserver:\n  listen_address: 127.0.0.1:0\n")

	container, err := BuildContainer(path)
	be.Err(t, err, nil)

	err = container.Invoke(func(server *httpapi.Server, svc *core.TLDRService, models *Models) {
		be.True(t, server != nil)
		be.True(t, svc != nil)
		be.True(t, models.Registry != nil)
		models.Release()
	})
	be.Err(t, err, nil)
}

func TestBuildContainerMissingFile(t *testing.T) {
	container, err := BuildContainer(filepath.Join(t.TempDir(), "nope.yaml"))
	be.Err(t, err, nil)

	err = container.Invoke(func(*config.Config) {})
	be.True(t, err != nil)
}

func TestBuildCLIContainerAppliesFlags(t *testing.T) {
	path := writeConfig(t, "llm:\n  provider: ollama\n")
	flags := &CLIFlags{
		ConfigFile: path,
		Model:      "mistral",
		Variant:    "per_email",
		Days:       3,
	}

	container, err := BuildCLIContainer(flags)
	be.Err(t, err, nil)

	err = container.Invoke(func(cfg *config.Config, opts core.PipelineOptions, source credentials.Source) {
		be.Equal(t, cfg.GetOllama().ModelName, "mistral")
		be.Equal(t, opts.Variant, core.VariantPerEmail)
		be.Equal(t, opts.Days, 3)
		_, ok := source.(*credentials.EnvSource)
		be.True(t, ok)
	})
	be.Err(t, err, nil)
}

func TestRegisterFlags(t *testing.T) {
	fs := flagSet()
	flags := RegisterFlags(fs)
	be.Err(t, fs.Parse([]string{"-provider", "bedrock", "-model", "anthropic.claude-3-haiku", "-verbose"}), nil)
	be.Equal(t, flags.Provider, "bedrock")
	be.Equal(t, flags.Model, "anthropic.claude-3-haiku")
	be.True(t, flags.Verbose)

	cfg := config.NewFromViper(config.NewEmptyViper())
	applyFlags(cfg, flags)
	be.Equal(t, cfg.GetLLM().Provider, "bedrock")
	be.Equal(t, cfg.GetBedrock().ModelID, "anthropic.claude-3-haiku")
	be.Equal(t, cfg.GetString("logging.level"), "debug")
}

func flagSet() *flag.FlagSet {
	return flag.NewFlagSet("test", flag.ContinueOnError)
}
