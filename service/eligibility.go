package service

import (
	"context"
	"fmt"

	"github.com/memocracy/gatekeeper/core"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Reason texts that do not embed amounts
const (
	ReasonPrivilegedOwner   = "Wallet owner is always eligible"
	ReasonMissingCoin       = "Poll is missing its coin configuration"
	ReasonMissingWallet     = "Poll is missing its founding wallet configuration"
	ReasonCannotVerify      = "Unable to verify eligibility for this poll"
	reasonUnsupportedAccess = "Unsupported access mode %q"
)

// BalanceReader reads a wallet's token balance
type BalanceReader interface {
	GetBalance(ctx context.Context, wallet, mint string) core.BalanceSnapshot
}

// ContributionReader reads what a wallet contributed to another, in USD
type ContributionReader interface {
	ContributionUSD(ctx context.Context, source, dest string, filter core.AssetFilter) decimal.Decimal
}

// EligibilityService evaluates poll access policies
type EligibilityService struct {
	balances      BalanceReader
	contributions ContributionReader
	logger        *zap.Logger
}

// NewEligibilityService creates a new eligibility service
func NewEligibilityService(balances BalanceReader, contributions ContributionReader, logger *zap.Logger) *EligibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{
		balances:      balances,
		contributions: contributions,
		logger:        logger.Named("eligibility"),
	}
}

// Evaluate decides whether wallet may take part in a poll with the given
// policy. Every failing check contributes its own reason.
func (s *EligibilityService) Evaluate(ctx context.Context, policy core.AccessPolicy, wallet string) core.EligibilityDecision {
	d := &decision{core.EligibilityDecision{Eligible: true, Reasons: []string{}}}

	switch policy.Mode {
	case core.AccessModeWallet:
		if policy.OwnerAddress != "" && wallet == policy.OwnerAddress {
			return core.EligibilityDecision{
				Eligible:          true,
				Reasons:           []string{ReasonPrivilegedOwner},
				IsPrivilegedOwner: true,
			}
		}
		s.checkContribution(ctx, policy, wallet, d)

	case core.AccessModeCoin:
		if policy.Coin == nil || policy.Coin.Mint == "" {
			d.fail(ReasonMissingCoin)
			break
		}
		s.checkBalance(ctx, *policy.Coin, policy.MinTokenBalance, wallet, d)

	default:
		d.fail(fmt.Sprintf(reasonUnsupportedAccess, policy.Mode))
	}

	if !d.Eligible && len(d.Reasons) == 0 {
		d.Reasons = append(d.Reasons, ReasonCannotVerify)
	}

	s.logger.Debug("eligibility evaluated",
		zap.String("poll", policy.PollID),
		zap.String("wallet", wallet),
		zap.Bool("eligible", d.Eligible),
		zap.Strings("reasons", d.Reasons),
	)

	return d.EligibilityDecision
}

func (s *EligibilityService) checkContribution(ctx context.Context, policy core.AccessPolicy, wallet string, d *decision) {
	if policy.Wallet == nil || policy.Wallet.Address == "" {
		d.fail(ReasonMissingWallet)
		return
	}

	filter := policy.AssetFilter
	if filter == "" {
		filter = core.AssetFilterAny
	}

	if policy.MinContributionUSD.IsPositive() {
		contributed := s.contributions.ContributionUSD(ctx, wallet, policy.Wallet.Address, filter)
		if contributed.LessThan(policy.MinContributionUSD) {
			d.fail(fmt.Sprintf("Requires a contribution of at least $%s to %s (you have contributed $%s)",
				policy.MinContributionUSD.StringFixed(2), walletLabel(policy.Wallet), contributed.StringFixed(2)))
		}
	}

	if policy.Wallet.ParentCoin != nil && policy.Wallet.ParentCoin.Mint != "" {
		s.checkBalance(ctx, *policy.Wallet.ParentCoin, policy.MinTokenBalance, wallet, d)
	}
}

func (s *EligibilityService) checkBalance(ctx context.Context, coin core.CoinRef, minBalance decimal.Decimal, wallet string, d *decision) {
	if !minBalance.IsPositive() {
		return
	}

	balance := s.balances.GetBalance(ctx, wallet, coin.Mint)
	if balance.UIAmount.LessThan(minBalance) {
		d.fail(fmt.Sprintf("Requires at least %s %s (you hold %s)",
			minBalance.String(), coin.Label(), balance.UIAmount.String()))
	}
}

func walletLabel(w *core.FoundingWalletRef) string {
	if w.Name != "" {
		return w.Name
	}
	return w.Address
}

type decision struct {
	core.EligibilityDecision
}

func (d *decision) fail(reason string) {
	d.Eligible = false
	d.Reasons = append(d.Reasons, reason)
}
