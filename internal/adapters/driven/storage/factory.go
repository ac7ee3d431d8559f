// Package storage opens the configured persistence backend.
package storage

import (
	"context"
	"fmt"

	"github.com/custodia-labs/contract-agent/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/contract-agent/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/contract-agent/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/contract-agent/internal/core/domain"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driven"
)

// Store persists documents and serves the retrieval tiers.
type Store interface {
	driven.DocumentStore
	driven.ClauseSearcher
}

// Ensure every backend satisfies Store.
var (
	_ Store = (*sqlite.Store)(nil)
	_ Store = (*postgres.Store)(nil)
	_ Store = (*memory.DocumentStore)(nil)
)

// NewStore opens the backend selected by settings and applies its migrations.
// An empty backend selects SQLite.
func NewStore(ctx context.Context, settings *domain.StorageSettings) (Store, error) {
	switch settings.Backend {
	case domain.StorageSQLite, "":
		store, err := sqlite.NewStore(settings.DataDir, settings.MaxConnections)
		if err != nil {
			return nil, err
		}
		return store, nil

	case domain.StoragePostgres:
		store, err := postgres.NewStore(ctx, settings.DSN, settings.MaxConnections)
		if err != nil {
			return nil, err
		}
		return store, nil

	case domain.StorageMemory:
		return memory.NewDocumentStore(), nil

	default:
		return nil, fmt.Errorf("%w: storage backend %q", domain.ErrInvalidInput, settings.Backend)
	}
}

// Describe returns a short label for the backend, used in health output.
func Describe(settings *domain.StorageSettings) string {
	switch settings.Backend {
	case domain.StoragePostgres:
		return "postgres"
	case domain.StorageMemory:
		return "memory"
	default:
		if settings.DataDir != "" {
			return "sqlite (" + settings.DataDir + ")"
		}
		return "sqlite"
	}
}
