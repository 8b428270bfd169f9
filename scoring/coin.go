package scoring

import "github.com/memocracy/gatekeeper/core"

// CoinWeights is the weight vector of the coin trust score. Weights sum to 1.
type CoinWeights struct {
	Maturity  float64
	Security  float64
	Liquidity float64
	Trading   float64
	Stability float64
	Community float64
}

var (
	// CoinWeightsBase applies when no community sentiment is available
	CoinWeightsBase = CoinWeights{
		Maturity:  0.15,
		Security:  0.30,
		Liquidity: 0.25,
		Trading:   0.15,
		Stability: 0.15,
	}

	// CoinWeightsWithSentiment applies when community sentiment is supplied
	CoinWeightsWithSentiment = CoinWeights{
		Maturity:  0.15,
		Security:  0.25,
		Liquidity: 0.20,
		Trading:   0.15,
		Stability: 0.10,
		Community: 0.15,
	}
)

var maturitySteps = []step{
	{Min: 1, Score: 20},
	{Min: 7, Score: 45},
	{Min: 30, Score: 70},
	{Min: 90, Score: 85},
	{Min: 180, Score: 100},
}

// Security points per flag
const (
	MintAuthorityRevokedPoints   = 35
	FreezeAuthorityRevokedPoints = 25
	MetadataImmutablePoints      = 15
	LiquidityLockedPoints        = 25
)

// MaturityScore grades contract age in days on a step table (1d 20, 7d 45, 30d 70, 90d 85, 180d 100).
func MaturityScore(ageDays float64) float64 {
	return stepScore(ageDays, maturitySteps)
}

// SecurityScore adds fixed points for each revoked or locked capability
func SecurityScore(m core.CoinMetrics) float64 {
	score := 0.0
	if m.MintAuthorityRevoked {
		score += MintAuthorityRevokedPoints
	}
	if m.FreezeAuthorityRevoked {
		score += FreezeAuthorityRevokedPoints
	}
	if m.MetadataImmutable {
		score += MetadataImmutablePoints
	}
	if m.LiquidityLocked {
		score += LiquidityLockedPoints
	}
	return score
}

// LiquidityScore is min(liquidityUSD / 1000, 100)
func LiquidityScore(liquidityUSD float64) float64 {
	return capped(liquidityUSD, 1.0/1000, MaxSubScore)
}

// TradingScore is min(volume/50000*60, 60) + min(txCount/500*40, 40)
func TradingScore(volume24hUSD float64, txCount24h int) float64 {
	return capped(volume24hUSD, 60.0/50000, 60) + capped(float64(txCount24h), 40.0/500, 40)
}

// StabilityScore is 100 minus 2 points per sell-pressure percent above 50
func StabilityScore(sellPressurePct float64) float64 {
	excess := sellPressurePct - 50
	if excess < 0 {
		excess = 0
	}
	return clamp(MaxSubScore-excess*2, 0, MaxSubScore)
}

// CommunitySentimentScore pulls the upvote ratio toward 50 until ten votes are cast
func CommunitySentimentScore(s core.CommunitySentiment) float64 {
	up, down := s.UpVotes, s.DownVotes
	if up < 0 {
		up = 0
	}
	if down < 0 {
		down = 0
	}
	total := up + down
	if total == 0 {
		return 50
	}
	ratio := float64(up) / float64(total) * 100
	confidence := clamp(float64(total)/10, 0, 1)
	return clamp(50+(ratio-50)*confidence, 0, MaxSubScore)
}

// CoinTrustScore computes the coin trust score breakdown from its metrics
func CoinTrustScore(m core.CoinMetrics) core.CoinScoreBreakdown {
	sub := core.CoinSubScores{
		Maturity:  MaturityScore(m.ContractAgeDays),
		Security:  SecurityScore(m),
		Liquidity: LiquidityScore(m.LiquidityUSD),
		Trading:   TradingScore(m.Volume24hUSD, m.TxCount24h),
		Stability: StabilityScore(m.SellPressurePct),
	}

	w := CoinWeightsBase
	community := 0.0
	if m.Sentiment != nil {
		w = CoinWeightsWithSentiment
		community = CommunitySentimentScore(*m.Sentiment)
		sub.CommunitySentiment = &community
	}

	overall := weighted(
		[2]float64{w.Maturity, sub.Maturity},
		[2]float64{w.Security, sub.Security},
		[2]float64{w.Liquidity, sub.Liquidity},
		[2]float64{w.Trading, sub.Trading},
		[2]float64{w.Stability, sub.Stability},
		[2]float64{w.Community, community},
	)

	return core.CoinScoreBreakdown{
		OverallScore: overall,
		Tier:         core.CoinTierTable.TierFor(overall),
		SubScores:    sub,
		Metrics:      m,
	}
}
