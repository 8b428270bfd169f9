package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/memocracy/gatekeeper/core"
	"github.com/memocracy/gatekeeper/ports"
	"github.com/memocracy/gatekeeper/scoring"
	"go.uber.org/zap"
)

// ScoreFreshness is how long a persisted coin score is served without recomputing
const ScoreFreshness = time.Hour

// IsStale reports whether a score last computed at lastCheckedAt must be recomputed at now
func IsStale(lastCheckedAt, now time.Time) bool {
	return lastCheckedAt.IsZero() || now.Sub(lastCheckedAt) >= ScoreFreshness
}

// MetricsLoader gathers the current metrics of a coin
type MetricsLoader func(ctx context.Context, mint string) (core.CoinMetrics, error)

// TrustScoreService serves coin trust scores behind a one hour freshness window
type TrustScoreService struct {
	store    ports.ScoreStore
	eventPub ports.EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewTrustScoreService creates a new trust score service
func NewTrustScoreService(store ports.ScoreStore, eventPub ports.EventPublisher, logger *zap.Logger) *TrustScoreService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrustScoreService{
		store:    store,
		eventPub: eventPub,
		logger:   logger.Named("trust_score"),
		now:      time.Now,
	}
}

// Get returns the persisted score; core.ErrNotFound when none exists
func (s *TrustScoreService) Get(ctx context.Context, mint string) (*core.CoinScore, error) {
	return s.store.GetCoinScore(ctx, mint)
}

// Evaluate returns the persisted score while it is fresh and otherwise
// recomputes it from load. The boolean reports whether a recompute happened.
func (s *TrustScoreService) Evaluate(ctx context.Context, mint string, load MetricsLoader) (*core.CoinScore, bool, error) {
	existing, err := s.store.GetCoinScore(ctx, mint)
	switch {
	case err == nil && !IsStale(existing.LastCheckedAt, s.now()):
		return existing, false, nil
	case err != nil && !errors.Is(err, core.ErrNotFound):
		s.logger.Warn("cannot read persisted score, recomputing", zap.String("mint", mint), zap.Error(err))
	}

	metrics, err := load(ctx, mint)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load metrics for %s: %w", mint, err)
	}

	score, err := s.Recompute(ctx, mint, metrics)
	if err != nil {
		return nil, false, err
	}
	return score, true, nil
}

// Recompute scores metrics and overwrites the persisted score
func (s *TrustScoreService) Recompute(ctx context.Context, mint string, metrics core.CoinMetrics) (*core.CoinScore, error) {
	score := &core.CoinScore{
		Mint:          mint,
		Breakdown:     scoring.CoinTrustScore(metrics),
		LastCheckedAt: s.now(),
	}

	if err := s.store.SaveCoinScore(ctx, score); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}

	update := core.ScoreUpdate{
		Kind:          core.ScoreKindCoin,
		EntityID:      mint,
		OverallScore:  score.Breakdown.OverallScore,
		Tier:          score.Breakdown.Tier,
		LastCheckedAt: score.LastCheckedAt,
	}
	if err := s.eventPub.PublishScoreUpdated(ctx, update); err != nil {
		s.logger.Warn("failed to publish score update", zap.String("mint", mint), zap.Error(err))
	}

	return score, nil
}
