package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/memocracy/gatekeeper/core"
)

const (
	TopicWalletAuthenticated = "gatekeeper.wallet_authenticated"
	TopicLogout              = "gatekeeper.logout"
	TopicScoreUpdated        = "gatekeeper.score_updated"
)

// WalletAuthenticatedEvent is published after a successful login
type WalletAuthenticatedEvent struct {
	Address   string    `json:"address"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LogoutEvent represents a logout event
type LogoutEvent struct {
	Address string `json:"address"`
	TokenID string `json:"token_id"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishWalletAuthenticated publishes a login event
func (p *WatermillPublisher) PublishWalletAuthenticated(ctx context.Context, session *core.Session) error {
	return p.publish(ctx, TopicWalletAuthenticated, session.ID, WalletAuthenticatedEvent{
		Address:   session.Address,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt,
	})
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address string, tokenID string) error {
	return p.publish(ctx, TopicLogout, tokenID, LogoutEvent{
		Address: address,
		TokenID: tokenID,
	})
}

// PublishScoreUpdated publishes a recomputed score
func (p *WatermillPublisher) PublishScoreUpdated(ctx context.Context, update core.ScoreUpdate) error {
	return p.publish(ctx, TopicScoreUpdated, watermill.NewUUID(), update)
}

func (p *WatermillPublisher) publish(ctx context.Context, topic, id string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(id, payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) PublishWalletAuthenticated(context.Context, *core.Session) error { return nil }
func (NoopPublisher) PublishLogout(context.Context, string, string) error             { return nil }
func (NoopPublisher) PublishScoreUpdated(context.Context, core.ScoreUpdate) error     { return nil }
