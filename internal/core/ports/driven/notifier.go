package driven

import (
	"context"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
)

// Notification summarises a finished analysis.
type Notification struct {
	Title     string
	RiskLevel domain.RiskLevel
	Summary   string
}

// Notifier delivers fire-and-forget analysis notifications.
// An unconfigured notifier returns nil without doing anything.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
