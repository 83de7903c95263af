// Command tldr-once runs the TL;DR pipeline once for the operator's own
// mailbox, reading credentials from the configured source.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikey/email-tldr/internal/config"
	"github.com/mikey/email-tldr/internal/core"
	"github.com/mikey/email-tldr/internal/credentials"
	"github.com/mikey/email-tldr/internal/di"
)

var (
	storeKeyring = flag.Bool("store-keyring", false, "Copy credentials from the environment into the keyring and exit")
	printSummary = flag.Bool("print", false, "Print the summary to stdout as well as emailing it")
)

func main() {
	flags := di.RegisterFlags(flag.CommandLine)
	flag.Parse()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	var invoke interface{} = run
	if *storeKeyring {
		invoke = store
	}
	if err := container.Invoke(invoke); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func run(logger *zap.Logger, source credentials.Source, svc *core.TLDRService, models *di.Models) error {
	defer logger.Sync()
	defer models.Release()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	creds, err := source.Resolve(ctx)
	if err != nil {
		return err
	}

	res, err := svc.Run(ctx, creds)
	if res != nil && *printSummary && res.Summary != "" {
		fmt.Println(res.Summary)
	}
	if err != nil {
		if core.IsPartial(res, err) {
			logger.Warn("Summary generated but not delivered", zap.Error(err))
		}
		return err
	}

	logger.Info("TL;DR run complete",
		zap.String("run_id", res.RunID),
		zap.Int("messages", res.MessageCount),
		zap.Bool("delivered", res.Delivered))
	return nil
}

// store seeds the keyring from the env file and process environment
func store(logger *zap.Logger, cfg *config.Config) error {
	defer logger.Sync()

	credCfg := cfg.GetCredentials()
	creds, err := credentials.NewEnvSource(credCfg.EnvFile).Resolve(context.Background())
	if err != nil {
		return err
	}
	ring, err := credentials.OpenKeyring(credCfg, cfg.GetString("credentials.keyring_password"))
	if err != nil {
		return err
	}
	if err := credentials.NewKeyringSource(ring).Store(creds); err != nil {
		return err
	}
	logger.Info("Stored credentials in keyring",
		zap.String("service", credCfg.KeyringService),
		zap.String("email", creds.Address))
	return nil
}

// exitCode maps an error kind to a process exit status
func exitCode(err error) int {
	switch core.KindOf(err) {
	case core.KindAuth, core.KindInvalidRequest:
		return 2
	case core.KindDelivery:
		return 3
	default:
		return 1
	}
}
