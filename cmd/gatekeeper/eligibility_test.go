package main

import (
	"testing"

	"github.com/memocracy/gatekeeper/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withFlags(t *testing.T, set func()) {
	t.Helper()
	saved := eligibilityFlags
	t.Cleanup(func() { eligibilityFlags = saved })
	set()
}

func TestPolicyFromFlags(t *testing.T) {
	t.Run("coin", func(t *testing.T) {
		withFlags(t, func() {
			eligibilityFlags.mode = "COIN"
			eligibilityFlags.wallet = "voter"
			eligibilityFlags.mint = "mint"
			eligibilityFlags.symbol = "MEME"
			eligibilityFlags.minBalance = "1000.5"
			eligibilityFlags.assetFilter = "any"
		})

		policy, err := policyFromFlags()
		require.NoError(t, err)
		assert.Equal(t, core.AccessModeCoin, policy.Mode)
		assert.Equal(t, &core.CoinRef{Mint: "mint", Symbol: "MEME"}, policy.Coin)
		assert.Equal(t, "1000.5", policy.MinTokenBalance.String())
		assert.True(t, policy.MinContributionUSD.IsZero())
	})

	t.Run("wallet with parent coin", func(t *testing.T) {
		withFlags(t, func() {
			eligibilityFlags.mode = "wallet"
			eligibilityFlags.wallet = "voter"
			eligibilityFlags.foundingWallet = "fund"
			eligibilityFlags.parentMint = "mint"
			eligibilityFlags.minUSD = "25"
			eligibilityFlags.assetFilter = "stablecoin"
		})

		policy, err := policyFromFlags()
		require.NoError(t, err)
		assert.Equal(t, core.AccessModeWallet, policy.Mode)
		assert.Equal(t, "fund", policy.Wallet.Address)
		assert.Equal(t, "mint", policy.Wallet.ParentCoin.Mint)
		assert.Equal(t, core.AssetFilterStablecoin, policy.AssetFilter)
		assert.Equal(t, "25", policy.MinContributionUSD.String())
	})

	t.Run("invalid input", func(t *testing.T) {
		cases := map[string]func(){
			"missing wallet": func() { eligibilityFlags.wallet = "" },
			"bad mode":       func() { eligibilityFlags.wallet = "w"; eligibilityFlags.mode = "nft" },
			"bad amount":     func() { eligibilityFlags.wallet = "w"; eligibilityFlags.minBalance = "lots" },
			"bad filter":     func() { eligibilityFlags.wallet = "w"; eligibilityFlags.assetFilter = "BTC" },
		}
		for name, set := range cases {
			t.Run(name, func(t *testing.T) {
				withFlags(t, func() {
					eligibilityFlags.mode = "coin"
					eligibilityFlags.assetFilter = "ANY"
					set()
				})
				_, err := policyFromFlags()
				assert.Error(t, err)
			})
		}
	})
}
