package ports

import (
	"context"

	"github.com/memocracy/gatekeeper/core"
)

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishWalletAuthenticated(ctx context.Context, session *core.Session) error
	PublishLogout(ctx context.Context, address string, tokenID string) error
	PublishScoreUpdated(ctx context.Context, update core.ScoreUpdate) error
}
