package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tier is a discrete reputation bucket
type Tier string

const (
	TierDiamond Tier = "DIAMOND"
	TierGold    Tier = "GOLD"
	TierSilver  Tier = "SILVER"
	TierBronze  Tier = "BRONZE"
	TierUnrated Tier = "UNRATED"
)

// TierThreshold is the minimum score for a tier
type TierThreshold struct {
	MinScore int
	Tier     Tier
}

// TierTable maps a score to a tier. Entries are ordered by descending MinScore.
type TierTable []TierThreshold

var (
	// CoinTierTable grades coin trust scores
	CoinTierTable = TierTable{
		{MinScore: 80, Tier: TierDiamond},
		{MinScore: 65, Tier: TierGold},
		{MinScore: 45, Tier: TierSilver},
		{MinScore: 25, Tier: TierBronze},
	}

	// FoundingWalletTierTable grades founding wallet reputation scores
	FoundingWalletTierTable = TierTable{
		{MinScore: 80, Tier: TierDiamond},
		{MinScore: 65, Tier: TierGold},
		{MinScore: 50, Tier: TierSilver},
		{MinScore: 30, Tier: TierBronze},
	}
)

// TierFor returns the first tier whose threshold the score reaches
func (t TierTable) TierFor(score int) Tier {
	for _, th := range t {
		if score >= th.MinScore {
			return th.Tier
		}
	}
	return TierUnrated
}

// CoinMetrics are the inputs of the coin trust score
type CoinMetrics struct {
	MintAuthorityRevoked   bool                `json:"mint_authority_revoked"`
	FreezeAuthorityRevoked bool                `json:"freeze_authority_revoked"`
	MetadataImmutable      bool                `json:"metadata_immutable"`
	LiquidityLocked        bool                `json:"liquidity_locked"`
	LiquidityUSD           float64             `json:"liquidity_usd"`
	Volume24hUSD           float64             `json:"volume_24h_usd"`
	TxCount24h             int                 `json:"tx_count_24h"`
	SellPressurePct        float64             `json:"sell_pressure_pct"`
	ContractAgeDays        float64             `json:"contract_age_days"`
	Sentiment              *CommunitySentiment `json:"sentiment,omitempty"`
}

// CommunitySentiment is the up/down vote tally for a coin
type CommunitySentiment struct {
	UpVotes   int `json:"up_votes"`
	DownVotes int `json:"down_votes"`
}

// CoinSubScores are the per-factor coin scores, each within 0..100
type CoinSubScores struct {
	Maturity           float64  `json:"maturity"`
	Security           float64  `json:"security"`
	Liquidity          float64  `json:"liquidity"`
	Trading            float64  `json:"trading"`
	Stability          float64  `json:"stability"`
	CommunitySentiment *float64 `json:"community_sentiment,omitempty"`
}

// CoinScoreBreakdown is the full result of the coin trust score
type CoinScoreBreakdown struct {
	OverallScore int           `json:"overall_score"`
	Tier         Tier          `json:"tier"`
	SubScores    CoinSubScores `json:"sub_scores"`
	Metrics      CoinMetrics   `json:"metrics"`
}

// CoinScore is a persisted coin trust score
type CoinScore struct {
	Mint          string             `json:"mint"`
	Breakdown     CoinScoreBreakdown `json:"breakdown"`
	LastCheckedAt time.Time          `json:"last_checked_at"`
}

// FoundingWalletState is the current state of a fundraising wallet
type FoundingWalletState struct {
	WalletID          string          `json:"wallet_id"`
	Address           string          `json:"address"`
	Description       string          `json:"description"`
	GoalUSD           decimal.Decimal `json:"goal_usd"`
	RaisedUSD         decimal.Decimal `json:"raised_usd"`
	ContributorCount  int             `json:"contributor_count"`
	ContributionCount int             `json:"contribution_count"`
	Completed         bool            `json:"completed"`
}

// FoundingWalletSubScores are the per-factor founding wallet scores, each within 0..100
type FoundingWalletSubScores struct {
	Transparency float64 `json:"transparency"`
	Execution    float64 `json:"execution"`
	Community    float64 `json:"community"`
}

// FoundingWalletScore is a founding wallet reputation score
type FoundingWalletScore struct {
	WalletID      string                  `json:"wallet_id"`
	OverallScore  int                     `json:"overall_score"`
	Tier          Tier                    `json:"tier"`
	SubScores     FoundingWalletSubScores `json:"sub_scores"`
	LastCheckedAt time.Time               `json:"last_checked_at"`
}

// ScoreKind names the entity a score belongs to
type ScoreKind string

const (
	ScoreKindCoin           ScoreKind = "coin"
	ScoreKindFoundingWallet ScoreKind = "founding_wallet"
)

// ScoreUpdate announces a freshly computed score
type ScoreUpdate struct {
	Kind          ScoreKind `json:"kind"`
	EntityID      string    `json:"entity_id"`
	OverallScore  int       `json:"overall_score"`
	Tier          Tier      `json:"tier"`
	LastCheckedAt time.Time `json:"last_checked_at"`
}
