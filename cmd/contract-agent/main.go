// Command contract-agent analyses contracts for risk and compliance.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/contract-agent/internal/adapters/driven/config/file"
	"github.com/custodia-labs/contract-agent/internal/adapters/driving/cli"
	"github.com/custodia-labs/contract-agent/internal/core/services"
	"github.com/custodia-labs/contract-agent/internal/normalisers"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.ErrorMessage(fmt.Errorf("opening config: %w", err)))
		return cli.ExitError
	}
	settings := services.NewSettingsService(configStore)

	cli.SetVersion(version)
	cli.SetSettingsService(settings)
	cli.SetNormaliser(normalisers.NewDefaultRegistry())
	cli.SetServiceFactory(func(ctx context.Context) (*cli.Services, error) {
		return buildServices(ctx, settings, "")
	})

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, cli.ErrorMessage(err))
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}
