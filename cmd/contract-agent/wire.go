package main

import (
	"context"
	"fmt"

	"github.com/custodia-labs/contract-agent/internal/adapters/driven/ai"
	"github.com/custodia-labs/contract-agent/internal/adapters/driven/config/file"
	"github.com/custodia-labs/contract-agent/internal/adapters/driven/notify/slack"
	"github.com/custodia-labs/contract-agent/internal/adapters/driven/storage"
	"github.com/custodia-labs/contract-agent/internal/adapters/driving/cli"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driven"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driving"
	"github.com/custodia-labs/contract-agent/internal/core/services"
	"github.com/custodia-labs/contract-agent/internal/logger"
)

// buildServices wires adapters into the core services. An unusable
// embedding configuration leaves the pipeline unset but still returns
// health checks so that status can report the problem. promptDir may be
// empty to use ~/.contract-agent/prompts.
func buildServices(ctx context.Context, settingsService driving.SettingsService, promptDir string) (*cli.Services, error) {
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	store, err := storage.NewStore(ctx, &settings.Storage)
	if err != nil {
		return nil, err
	}
	storeTag := storage.Describe(&settings.Storage)
	logger.Debug("store: %s", storeTag)

	clients, err := ai.NewClients(settings)
	if err != nil {
		return &cli.Services{
			Health:      services.NewHealthService(nil, nil, store, storeTag),
			Unavailable: err,
			Close:       func() { closeStore(store) },
		}, nil
	}

	prompts, err := file.NewPromptStore(promptDir, services.DefaultPrompts())
	if err != nil {
		clients.Close()
		closeStore(store)
		return nil, fmt.Errorf("loading prompts: %w", err)
	}

	gateway := services.NewGateway(clients.Embedding, clients.LLM, settings.Pipeline.EmbedTimeout)
	retrieval := services.NewTieredRetrieval(gateway, store, settings.Pipeline.StoreTimeout)
	analysis := services.NewAnalysisService(gateway, prompts, settings.Pipeline.AnalysisTimeout, settings.Pipeline.ReportTimeout)

	var notifier driven.Notifier
	if n := slack.NewNotifier(slack.Config{
		WebhookURL: settings.Notify.WebhookURL,
		PerMinute:  settings.Notify.PerMinute,
	}); n.Enabled() {
		notifier = n
	}

	pipeline := services.NewPipelineService(store, gateway, retrieval, analysis, notifier, settings.Pipeline)

	return &cli.Services{
		Pipeline:  pipeline,
		Retrieval: retrieval,
		Health:    services.NewHealthService(clients.Embedding, clients.LLM, store, storeTag),
		Seed:      services.NewSeedService(store, gateway, settings.Pipeline.StoreTimeout),
		Warnings:  clients.Warnings,
		Close: func() {
			clients.Close()
			closeStore(store)
		},
	}, nil
}

func closeStore(store storage.Store) {
	if err := store.Close(); err != nil {
		logger.Warn("closing store: %v", err)
	}
}
