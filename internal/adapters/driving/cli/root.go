// Package cli implements the contract-agent command line.
// It is a driving adapter: commands only reach the core through driving ports.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driven"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driving"
	"github.com/custodia-labs/contract-agent/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// Services holds the driving ports used by commands.
type Services struct {
	Pipeline  driving.PipelineService
	Retrieval driving.RetrievalService
	Health    driving.HealthService
	Seed      driving.SeedService

	// Unavailable explains why Pipeline, Retrieval and Seed are nil.
	// Health is still set so that status can diagnose the problem.
	Unavailable error

	// Warnings are logged once when the services are built.
	Warnings []string

	// Close releases shared clients and the store. May be nil.
	Close func()
}

// ServiceFactory builds Services from the current settings.
type ServiceFactory func(ctx context.Context) (*Services, error)

var (
	settingsService driving.SettingsService
	serviceFactory  ServiceFactory

	// normaliser extracts text from contract files. Nil reads them as text.
	normaliser driven.NormaliserRegistry

	// services is built on first use and closed when the command exits.
	services *Services

	verbose bool
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "contract-agent",
	Short: "Analyse contracts for risk, compliance and related agreements",
	Long: `contract-agent stores contracts, finds related agreements it has seen
before and asks a language model for a structured risk analysis and an
executive report. Results are kept in a local SQLite database by default.

Run 'contract-agent setup' once to choose providers and load sample contracts.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: persistentPreRun,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print each pipeline stage")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file to load if present")
}

func persistentPreRun(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	return loadEnv(envFile)
}

// loadEnv loads path into the process environment. A missing file is ignored
// and variables already set are never overridden.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetSettingsService sets the settings service used by setup and settings.
func SetSettingsService(s driving.SettingsService) {
	settingsService = s
}

// SetNormaliser sets how contract files are converted to text.
func SetNormaliser(n driven.NormaliserRegistry) {
	normaliser = n
}

// SetServiceFactory sets how commands build their services.
func SetServiceFactory(f ServiceFactory) {
	serviceFactory = f
}

// Execute runs the root command and releases services on exit.
func Execute(ctx context.Context) error {
	defer closeServices()
	defer logger.Sync()
	return rootCmd.ExecuteContext(ctx)
}

// requireServices builds the services on first use.
func requireServices(cmd *cobra.Command) (*Services, error) {
	if services != nil {
		return services, nil
	}
	if serviceFactory == nil {
		return nil, errors.New("services not configured")
	}

	s, err := serviceFactory(cmd.Context())
	if err != nil {
		return nil, err
	}
	for _, w := range s.Warnings {
		logger.Warn("%s", w)
	}
	services = s
	return s, nil
}

// requirePipeline returns services whose pipeline can run.
func requirePipeline(cmd *cobra.Command) (*Services, error) {
	s, err := requireServices(cmd)
	if err != nil {
		return nil, err
	}
	if s.Pipeline == nil {
		if s.Unavailable != nil {
			return nil, s.Unavailable
		}
		return nil, errors.New("pipeline not configured")
	}
	return s, nil
}

func closeServices() {
	if services != nil && services.Close != nil {
		services.Close()
	}
	services = nil
}

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, domain.ErrInvalidInput):
		return ExitUsage
	default:
		return ExitError
	}
}

// ErrorMessage renders err for the terminal, with a hint for common causes.
func ErrorMessage(err error) string {
	msg := "Error: " + err.Error()
	switch {
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		msg += "\nHint: check the embedding service with 'contract-agent status'."
	case errors.Is(err, domain.ErrPersistence):
		msg += "\nHint: check the storage settings with 'contract-agent settings'."
	case errors.Is(err, domain.ErrInvalidInput):
		msg += "\nRun 'contract-agent --help' for usage."
	}
	return msg
}
