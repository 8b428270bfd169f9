package scoring

import (
	"strings"
	"testing"

	"github.com/memocracy/gatekeeper/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMaturityScoreSteps(t *testing.T) {
	cases := map[float64]float64{
		0: 0, 0.99: 0, 1: 20, 6.9: 20, 7: 45, 29: 45, 30: 70,
		89: 70, 90: 85, 179: 85, 180: 100, 1000: 100,
	}
	for age, want := range cases {
		assert.Equal(t, want, MaturityScore(age), "age %v", age)
	}
}

func TestSecurityScore(t *testing.T) {
	assert.Equal(t, 0.0, SecurityScore(core.CoinMetrics{}))
	assert.Equal(t, 60.0, SecurityScore(core.CoinMetrics{MintAuthorityRevoked: true, FreezeAuthorityRevoked: true}))
	assert.Equal(t, 100.0, SecurityScore(core.CoinMetrics{
		MintAuthorityRevoked:   true,
		FreezeAuthorityRevoked: true,
		MetadataImmutable:      true,
		LiquidityLocked:        true,
	}))
}

func TestLinearFactorCaps(t *testing.T) {
	assert.InDelta(t, 0, LiquidityScore(-10), 1e-9)
	assert.InDelta(t, 50, LiquidityScore(50_000), 1e-9)
	assert.InDelta(t, 100, LiquidityScore(100_000), 1e-9)
	assert.InDelta(t, 100, LiquidityScore(5_000_000), 1e-9)

	assert.InDelta(t, 50, TradingScore(25_000, 250), 1e-9)
	assert.InDelta(t, 60, TradingScore(1_000_000, 0), 1e-9)
	assert.InDelta(t, 40, TradingScore(0, 10_000), 1e-9)
	assert.InDelta(t, 100, TradingScore(50_000, 500), 1e-9)
}

func TestStabilityScore(t *testing.T) {
	assert.Equal(t, 100.0, StabilityScore(0))
	assert.Equal(t, 100.0, StabilityScore(50))
	assert.Equal(t, 80.0, StabilityScore(60))
	assert.Equal(t, 0.0, StabilityScore(100))
	assert.Equal(t, 0.0, StabilityScore(150))
}

func TestCommunitySentimentScore(t *testing.T) {
	assert.InDelta(t, 50, CommunitySentimentScore(core.CommunitySentiment{}), 1e-9)
	assert.InDelta(t, 55, CommunitySentimentScore(core.CommunitySentiment{UpVotes: 1}), 1e-9)
	assert.InDelta(t, 100, CommunitySentimentScore(core.CommunitySentiment{UpVotes: 10}), 1e-9)
	assert.InDelta(t, 30, CommunitySentimentScore(core.CommunitySentiment{UpVotes: 3, DownVotes: 7}), 1e-9)
}

func TestCoinTrustScore(t *testing.T) {
	t.Run("maximal metrics", func(t *testing.T) {
		got := CoinTrustScore(core.CoinMetrics{
			MintAuthorityRevoked:   true,
			FreezeAuthorityRevoked: true,
			MetadataImmutable:      true,
			LiquidityLocked:        true,
			LiquidityUSD:           200_000,
			Volume24hUSD:           100_000,
			TxCount24h:             1_000,
			SellPressurePct:        30,
			ContractAgeDays:        365,
		})
		assert.Equal(t, 100, got.OverallScore)
		assert.Equal(t, core.TierDiamond, got.Tier)
		assert.Nil(t, got.SubScores.CommunitySentiment)
	})

	t.Run("empty metrics", func(t *testing.T) {
		got := CoinTrustScore(core.CoinMetrics{})
		assert.Equal(t, 15, got.OverallScore)
		assert.Equal(t, core.TierUnrated, got.Tier)
	})

	mid := core.CoinMetrics{
		MintAuthorityRevoked:   true,
		FreezeAuthorityRevoked: true,
		LiquidityUSD:           50_000,
		Volume24hUSD:           25_000,
		TxCount24h:             250,
		SellPressurePct:        65,
		ContractAgeDays:        30,
	}

	t.Run("base weights", func(t *testing.T) {
		got := CoinTrustScore(mid)
		assert.Equal(t, 59, got.OverallScore)
		assert.Equal(t, core.TierSilver, got.Tier)
		assert.Equal(t, mid, got.Metrics)
	})

	t.Run("sentiment weights", func(t *testing.T) {
		m := mid
		m.Sentiment = &core.CommunitySentiment{UpVotes: 8, DownVotes: 2}
		got := CoinTrustScore(m)
		assert.Equal(t, 62, got.OverallScore)
		if assert.NotNil(t, got.SubScores.CommunitySentiment) {
			assert.InDelta(t, 80, *got.SubScores.CommunitySentiment, 1e-9)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, CoinTrustScore(mid), CoinTrustScore(mid))
	})
}

func TestFoundingWalletReputation(t *testing.T) {
	t.Run("completed campaign", func(t *testing.T) {
		got := FoundingWalletReputation(core.FoundingWalletState{
			WalletID:          "w1",
			Description:       strings.Repeat("x", 60),
			GoalUSD:           decimal.NewFromInt(10_000),
			RaisedUSD:         decimal.NewFromInt(12_000),
			ContributorCount:  20,
			ContributionCount: 15,
			Completed:         true,
		})
		assert.Equal(t, "w1", got.WalletID)
		assert.Equal(t, 100, got.OverallScore)
		assert.Equal(t, core.TierDiamond, got.Tier)
	})

	t.Run("empty wallet", func(t *testing.T) {
		got := FoundingWalletReputation(core.FoundingWalletState{WalletID: "w2"})
		assert.Equal(t, 0, got.OverallScore)
		assert.Equal(t, core.TierUnrated, got.Tier)
	})

	t.Run("in progress uses founding thresholds", func(t *testing.T) {
		state := core.FoundingWalletState{
			WalletID:          "w3",
			Description:       "short",
			GoalUSD:           decimal.NewFromInt(10_000),
			RaisedUSD:         decimal.NewFromInt(5_000),
			ContributorCount:  4,
			ContributionCount: 5,
		}
		got := FoundingWalletReputation(state)
		assert.InDelta(t, 65, got.SubScores.Transparency, 1e-9)
		assert.InDelta(t, 40, got.SubScores.Execution, 1e-9)
		assert.InDelta(t, 40, got.SubScores.Community, 1e-9)
		assert.Equal(t, 49, got.OverallScore)
		// 49 would be SILVER on the coin table
		assert.Equal(t, core.TierBronze, got.Tier)
		assert.Equal(t, got, FoundingWalletReputation(state))
	})
}
