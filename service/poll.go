package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/memocracy/gatekeeper/core"
	"github.com/memocracy/gatekeeper/ports"
	"go.uber.org/zap"
)

// PollService keeps poll access policies and evaluates wallets against them.
// Voters only ever name a poll; the policy itself is never taken from them.
type PollService struct {
	policies    ports.PolicyStore
	eligibility *EligibilityService
	logger      *zap.Logger
}

// NewPollService creates a new poll service
func NewPollService(policies ports.PolicyStore, eligibility *EligibilityService, logger *zap.Logger) *PollService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PollService{
		policies:    policies,
		eligibility: eligibility,
		logger:      logger.Named("polls"),
	}
}

// SavePolicy validates and stores the policy of a poll, replacing any earlier one
func (s *PollService) SavePolicy(ctx context.Context, policy core.AccessPolicy) (*core.AccessPolicy, error) {
	policy.PollID = strings.TrimSpace(policy.PollID)
	if err := validatePolicy(&policy); err != nil {
		return nil, err
	}

	if err := s.policies.SavePolicy(ctx, &policy); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}

	s.logger.Info("poll policy saved",
		zap.String("poll", policy.PollID),
		zap.String("mode", string(policy.Mode)),
	)
	return &policy, nil
}

// Policy returns the stored policy of a poll or core.ErrNotFound
func (s *PollService) Policy(ctx context.Context, pollID string) (*core.AccessPolicy, error) {
	pollID = strings.TrimSpace(pollID)
	if pollID == "" {
		return nil, fmt.Errorf("%w: poll_id is required", core.ErrValidation)
	}

	policy, err := s.policies.GetPolicy(ctx, pollID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	return policy, nil
}

// Evaluate resolves the poll's stored policy and evaluates wallet against it
func (s *PollService) Evaluate(ctx context.Context, pollID, wallet string) (core.EligibilityDecision, error) {
	policy, err := s.Policy(ctx, pollID)
	if err != nil {
		return core.EligibilityDecision{}, err
	}
	return s.eligibility.Evaluate(ctx, *policy, wallet), nil
}

func validatePolicy(p *core.AccessPolicy) error {
	if p.PollID == "" {
		return fmt.Errorf("%w: poll_id is required", core.ErrValidation)
	}
	if p.MinTokenBalance.IsNegative() || p.MinContributionUSD.IsNegative() {
		return fmt.Errorf("%w: thresholds must not be negative", core.ErrValidation)
	}

	filter, err := core.ParseAssetFilter(string(p.AssetFilter))
	if err != nil {
		return fmt.Errorf("%w: asset_filter must be ANY, SOL or STABLECOIN", core.ErrValidation)
	}
	p.AssetFilter = filter

	switch p.Mode {
	case core.AccessModeCoin:
		if p.Coin == nil || p.Coin.Mint == "" {
			return fmt.Errorf("%w: coin.mint is required in COIN mode", core.ErrValidation)
		}
	case core.AccessModeWallet:
		if p.Wallet == nil || p.Wallet.Address == "" {
			return fmt.Errorf("%w: wallet.address is required in WALLET mode", core.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: mode must be COIN or WALLET", core.ErrValidation)
	}

	return nil
}
