package service

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/memocracy/gatekeeper/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssociatedTokenAccount(t *testing.T) {
	wallet := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	expected, _, err := solana.FindAssociatedTokenAddress(wallet, mint)
	require.NoError(t, err)

	ata, err := AssociatedTokenAccount(wallet.String(), mint.String())
	require.NoError(t, err)
	assert.Equal(t, expected.String(), ata)

	_, err = AssociatedTokenAccount("not base58!", mint.String())
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = AssociatedTokenAccount(wallet.String(), "")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestGetBalance(t *testing.T) {
	ctx := context.Background()
	wallet := solana.NewWallet().PublicKey().String()
	mint := solana.NewWallet().PublicKey().String()
	ata, err := AssociatedTokenAccount(wallet, mint)
	require.NoError(t, err)

	t.Run("scales by decimals", func(t *testing.T) {
		chain := newFakeChain()
		chain.balances[ata] = &core.TokenAmount{Amount: 1_500_000, Decimals: 6}
		svc := NewBalanceService(chain, nil)

		b := svc.GetBalance(ctx, wallet, mint)
		assert.Equal(t, uint64(1_500_000), b.RawAmount)
		assert.Equal(t, uint8(6), b.Decimals)
		assert.True(t, b.UIAmount.Equal(decimal.RequireFromString("1.5")), b.UIAmount.String())
	})

	t.Run("missing account reads as zero", func(t *testing.T) {
		svc := NewBalanceService(newFakeChain(), nil)

		b := svc.GetBalance(ctx, wallet, mint)
		assert.True(t, b.UIAmount.IsZero())
		assert.Equal(t, wallet, b.WalletAddress)
		assert.Equal(t, mint, b.MintAddress)
	})

	t.Run("query failure reads as zero", func(t *testing.T) {
		chain := newFakeChain()
		chain.balanceErr = core.ErrChainQuery
		svc := NewBalanceService(chain, nil)

		assert.True(t, svc.GetBalance(ctx, wallet, mint).UIAmount.IsZero())
	})

	t.Run("invalid wallet never reaches the chain", func(t *testing.T) {
		chain := newFakeChain()
		svc := NewBalanceService(chain, nil)

		assert.True(t, svc.GetBalance(ctx, "bogus", mint).UIAmount.IsZero())
		assert.Zero(t, chain.balanceCalls)
	})
}

func TestHasTokenBalance(t *testing.T) {
	ctx := context.Background()
	wallet := solana.NewWallet().PublicKey().String()
	mint := solana.NewWallet().PublicKey().String()
	ata, err := AssociatedTokenAccount(wallet, mint)
	require.NoError(t, err)

	chain := newFakeChain()
	chain.balances[ata] = &core.TokenAmount{Amount: 2_000_000_000, Decimals: 9}
	svc := NewBalanceService(chain, nil)

	assert.True(t, svc.HasTokenBalance(ctx, wallet, mint, decimal.NewFromInt(2)))
	assert.True(t, svc.HasTokenBalance(ctx, wallet, mint, decimal.RequireFromString("1.999999999")))
	assert.False(t, svc.HasTokenBalance(ctx, wallet, mint, decimal.RequireFromString("2.000000001")))

	t.Run("zero minimum is met without a lookup", func(t *testing.T) {
		failing := newFakeChain()
		failing.balanceErr = errors.New("rpc down")
		svc := NewBalanceService(failing, nil)

		assert.True(t, svc.HasTokenBalance(ctx, wallet, mint, decimal.Zero))
		assert.Zero(t, failing.balanceCalls)
	})

	t.Run("lookup failure fails closed", func(t *testing.T) {
		failing := newFakeChain()
		failing.balanceErr = errors.New("rpc down")
		svc := NewBalanceService(failing, nil)

		assert.False(t, svc.HasTokenBalance(ctx, wallet, mint, decimal.NewFromInt(1)))
	})
}

func TestUIAmount(t *testing.T) {
	assert.Equal(t, "0", UIAmount(0, 6).String())
	assert.Equal(t, "0.000001", UIAmount(1, 6).String())
	assert.Equal(t, "18446744073.709551615", UIAmount(^uint64(0), 9).String())
	assert.Equal(t, "42", UIAmount(42, 0).String())
}
