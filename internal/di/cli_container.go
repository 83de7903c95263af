package di

import (
	"flag"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/config"
	"github.com/mikey/email-tldr/internal/credentials"
	"github.com/mikey/email-tldr/internal/logging"
)

// CLIFlags contains the command line flags shared by the command line tools
type CLIFlags struct {
	ConfigFile string
	Provider   string
	Model      string
	Checkpoint string
	Variant    string
	Days       int
	DataPath   string
	KeyringPwd string
	Verbose    bool
	JSONLog    bool
}

// RegisterFlags binds the shared flags to fs
func RegisterFlags(fs *flag.FlagSet) *CLIFlags {
	flags := &CLIFlags{}
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file (default: search standard locations)")
	fs.StringVar(&flags.Provider, "provider", "", "Model provider override (openai, gemini, bedrock, ollama)")
	fs.StringVar(&flags.Model, "model", "", "Model name override for the selected provider")
	fs.StringVar(&flags.Checkpoint, "checkpoint", "", "Model checkpoint file override")
	fs.StringVar(&flags.Variant, "variant", "", "Pipeline variant override (digest, per_email)")
	fs.IntVar(&flags.Days, "days", 0, "Search window in days (0 uses the variant default)")
	fs.StringVar(&flags.DataPath, "data", "", "Dataset CSV override")
	fs.StringVar(&flags.KeyringPwd, "keyring-password", "", "Password for the file keyring backend")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	return flags
}

// BuildCLIContainer creates a container for the command line tools. Flags
// that are set override the loaded configuration.
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		var (
			cfg *config.Config
			err error
		)
		if flags.ConfigFile != "" {
			cfg, err = config.NewFromFile(flags.ConfigFile)
		} else {
			cfg, err = config.New()
		}
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Info("Loaded configuration from file", zap.String("file", used))
		}
		applyFlags(cfg, flags)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := providePipeline(container); err != nil {
		return nil, err
	}

	// Register operator credential source
	if err := container.Provide(func(cfg *config.Config) (credentials.Source, error) {
		return credentials.FromConfig(cfg.GetCredentials(), cfg.GetString("credentials.keyring_password"))
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// applyFlags copies set flags over the configuration
func applyFlags(cfg *config.Config, flags *CLIFlags) {
	if flags.Provider != "" {
		cfg.Set("llm.provider", flags.Provider)
	}
	if flags.Model != "" {
		provider := cfg.GetLLM().Provider
		key := provider + ".model_name"
		if provider == "bedrock" {
			key = "bedrock.model_id"
		}
		cfg.Set(key, flags.Model)
	}
	if flags.Checkpoint != "" {
		cfg.Set("summarizer.checkpoint", flags.Checkpoint)
	}
	if flags.Variant != "" {
		cfg.Set("pipeline.variant", flags.Variant)
	}
	if flags.Days > 0 {
		cfg.Set("pipeline.days", flags.Days)
	}
	if flags.DataPath != "" {
		cfg.Set("training.data_path", flags.DataPath)
		cfg.Set("evaluation.data_path", flags.DataPath)
	}
	if flags.KeyringPwd != "" {
		cfg.Set("credentials.keyring_password", flags.KeyringPwd)
	}
	if flags.Verbose {
		cfg.Set("logging.level", "debug")
	}
}
