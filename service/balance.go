package service

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/memocracy/gatekeeper/core"
	"github.com/memocracy/gatekeeper/ports"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BalanceService reads token balances of wallets
type BalanceService struct {
	chain  ports.ChainQuerier
	logger *zap.Logger
}

// NewBalanceService creates a new balance service
func NewBalanceService(chain ports.ChainQuerier, logger *zap.Logger) *BalanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BalanceService{chain: chain, logger: logger.Named("balance")}
}

// AssociatedTokenAccount derives the associated token account of wallet for mint
func AssociatedTokenAccount(wallet, mint string) (string, error) {
	walletKey, err := solana.PublicKeyFromBase58(wallet)
	if err != nil {
		return "", fmt.Errorf("%w: wallet address: %v", core.ErrValidation, err)
	}
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return "", fmt.Errorf("%w: mint address: %v", core.ErrValidation, err)
	}

	ata, _, err := solana.FindAssociatedTokenAddress(walletKey, mintKey)
	if err != nil {
		return "", fmt.Errorf("failed to derive token account: %w", err)
	}
	return ata.String(), nil
}

// GetBalance reads wallet's balance of mint. Any failure, including a missing
// token account, reads as a zero balance.
func (s *BalanceService) GetBalance(ctx context.Context, wallet, mint string) core.BalanceSnapshot {
	snapshot := core.BalanceSnapshot{
		WalletAddress: wallet,
		MintAddress:   mint,
		UIAmount:      decimal.Zero,
	}

	account, err := AssociatedTokenAccount(wallet, mint)
	if err != nil {
		s.logger.Warn("cannot resolve token account", zap.String("wallet", wallet), zap.String("mint", mint), zap.Error(err))
		return snapshot
	}

	amount, err := s.chain.GetTokenAccountBalance(ctx, account)
	if err != nil {
		s.logger.Warn("balance lookup failed, treating as zero",
			zap.String("wallet", wallet),
			zap.String("mint", mint),
			zap.String("account", account),
			zap.Error(err),
		)
		return snapshot
	}

	snapshot.RawAmount = amount.Amount
	snapshot.Decimals = amount.Decimals
	snapshot.UIAmount = UIAmount(amount.Amount, amount.Decimals)
	return snapshot
}

// HasTokenBalance reports whether wallet holds at least minAmount (in whole
// token units) of mint. A non-positive minimum is always met.
func (s *BalanceService) HasTokenBalance(ctx context.Context, wallet, mint string, minAmount decimal.Decimal) bool {
	if !minAmount.IsPositive() {
		return true
	}
	return s.GetBalance(ctx, wallet, mint).UIAmount.GreaterThanOrEqual(minAmount)
}

// UIAmount scales a raw amount by the mint decimals
func UIAmount(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals))
}
