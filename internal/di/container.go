package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/adapters/httpapi"
	"github.com/mikey/email-tldr/internal/adapters/mailbox"
	"github.com/mikey/email-tldr/internal/adapters/sender"
	"github.com/mikey/email-tldr/internal/allowlist"
	"github.com/mikey/email-tldr/internal/config"
	"github.com/mikey/email-tldr/internal/core"
	"github.com/mikey/email-tldr/internal/factory"
	"github.com/mikey/email-tldr/internal/logging"
	"github.com/mikey/email-tldr/internal/summarizer"
)

// Models is the process-wide model registry and the function releasing it
type Models struct {
	Registry *summarizer.Registry
	Release  func()
}

// BuildContainer creates the container for the HTTP server. An empty
// configFile searches the default config locations.
func BuildContainer(configFile string) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		if configFile != "" {
			return config.NewFromFile(configFile)
		}
		return config.New()
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := providePipeline(container); err != nil {
		return nil, err
	}

	// Register requester allowlist
	if err := container.Provide(func(cfg config.ServerConfig, logger *zap.Logger) *allowlist.Checker {
		return allowlist.NewChecker(cfg.AllowedDomains, logger)
	}); err != nil {
		return nil, err
	}

	// Register HTTP frontend
	if err := container.Provide(func(cfg *config.Config) (config.ServerConfig, error) {
		return cfg.GetServer()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		svc *core.TLDRService,
		allow *allowlist.Checker,
		serverCfg config.ServerConfig,
		logger *zap.Logger,
	) *httpapi.Server {
		handler := httpapi.NewHandler(svc, allow, serverCfg.RequestTimeout, logger)
		return httpapi.NewServer(serverCfg.ListenAddress, handler, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// providePipeline registers the factories and the mailbox, summarizer and
// sender stages shared by the server and the one-shot CLI
func providePipeline(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewSummarizerFactory); err != nil {
		return err
	}

	// Register resolved settings
	if err := container.Provide(func(f *factory.SummarizerFactory) (core.PipelineOptions, error) {
		return f.PipelineOptions()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(cfg *config.Config) (config.MailConfig, error) {
		return cfg.GetMail()
	}); err != nil {
		return err
	}

	// Register model registry
	if err := container.Provide(func(f *factory.SummarizerFactory) (*Models, error) {
		registry, release, err := f.CreateRegistry()
		if err != nil {
			return nil, err
		}
		return &Models{Registry: registry, Release: release}, nil
	}); err != nil {
		return err
	}

	// Register pipeline stages
	if err := container.Provide(func(f *factory.SummarizerFactory, models *Models, opts core.PipelineOptions) core.Summarizer {
		return f.CreateSummarizer(models.Registry, opts.Variant)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(mailCfg config.MailConfig, opts core.PipelineOptions, logger *zap.Logger) core.MailboxDialer {
		return mailbox.NewDialer(mailCfg, opts, logger)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(mailCfg config.MailConfig, opts core.PipelineOptions, logger *zap.Logger) core.MailSender {
		return sender.NewSender(mailCfg, opts, logger)
	}); err != nil {
		return err
	}

	// Register the TL;DR service
	return container.Provide(core.NewTLDRService)
}
