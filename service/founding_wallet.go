package service

import (
	"context"
	"fmt"
	"time"

	"github.com/memocracy/gatekeeper/core"
	"github.com/memocracy/gatekeeper/ports"
	"github.com/memocracy/gatekeeper/scoring"
	"go.uber.org/zap"
)

// FoundingWalletService scores founding wallets on demand. There is no
// freshness window; every Recompute scores the given state.
type FoundingWalletService struct {
	store    ports.ScoreStore
	eventPub ports.EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewFoundingWalletService creates a new founding wallet service
func NewFoundingWalletService(store ports.ScoreStore, eventPub ports.EventPublisher, logger *zap.Logger) *FoundingWalletService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FoundingWalletService{
		store:    store,
		eventPub: eventPub,
		logger:   logger.Named("founding_wallet"),
		now:      time.Now,
	}
}

// Get returns the persisted score; core.ErrNotFound when none exists
func (s *FoundingWalletService) Get(ctx context.Context, walletID string) (*core.FoundingWalletScore, error) {
	return s.store.GetFoundingWalletScore(ctx, walletID)
}

// Recompute scores the wallet state and overwrites the persisted score
func (s *FoundingWalletService) Recompute(ctx context.Context, state core.FoundingWalletState) (*core.FoundingWalletScore, error) {
	if state.WalletID == "" {
		return nil, fmt.Errorf("%w: wallet id is required", core.ErrValidation)
	}

	score := scoring.FoundingWalletReputation(state)
	score.LastCheckedAt = s.now()

	if err := s.store.SaveFoundingWalletScore(ctx, &score); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}

	update := core.ScoreUpdate{
		Kind:          core.ScoreKindFoundingWallet,
		EntityID:      score.WalletID,
		OverallScore:  score.OverallScore,
		Tier:          score.Tier,
		LastCheckedAt: score.LastCheckedAt,
	}
	if err := s.eventPub.PublishScoreUpdated(ctx, update); err != nil {
		s.logger.Warn("failed to publish score update", zap.String("wallet", score.WalletID), zap.Error(err))
	}

	return &score, nil
}
