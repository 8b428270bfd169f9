package scoring

import (
	"strings"

	"github.com/memocracy/gatekeeper/core"
)

// Founding wallet weights
const (
	TransparencyWeight = 0.35
	ExecutionWeight    = 0.35
	CommunityWeight    = 0.30
)

// DetailedDescriptionLength is the description length that earns full description points
const DetailedDescriptionLength = 50

// TransparencyScore grades description, goal presence and contribution activity
func TransparencyScore(s core.FoundingWalletState) float64 {
	score := 0.0
	desc := strings.TrimSpace(s.Description)
	switch {
	case len([]rune(desc)) >= DetailedDescriptionLength:
		score += 30
	case desc != "":
		score += 15
	}
	if s.GoalUSD.IsPositive() {
		score += 30
	}
	score += capped(float64(s.ContributionCount), 4, 40)
	return score
}

// ExecutionScore is 100 once completed, otherwise goal progress scaled to at most 80
func ExecutionScore(s core.FoundingWalletState) float64 {
	if s.Completed {
		return MaxSubScore
	}
	if !s.GoalUSD.IsPositive() {
		return 0
	}
	progress, _ := s.RaisedUSD.Div(s.GoalUSD).Float64()
	return capped(progress, 80, 80)
}

// CommunityScore is min(contributors*5, 60) + min(raisedUSD/250, 40)
func CommunityScore(s core.FoundingWalletState) float64 {
	raised, _ := s.RaisedUSD.Float64()
	return capped(float64(s.ContributorCount), 5, 60) + capped(raised, 1.0/250, 40)
}

// FoundingWalletReputation computes the founding wallet score. LastCheckedAt is
// left for the caller to stamp.
func FoundingWalletReputation(s core.FoundingWalletState) core.FoundingWalletScore {
	sub := core.FoundingWalletSubScores{
		Transparency: TransparencyScore(s),
		Execution:    ExecutionScore(s),
		Community:    CommunityScore(s),
	}
	overall := weighted(
		[2]float64{TransparencyWeight, sub.Transparency},
		[2]float64{ExecutionWeight, sub.Execution},
		[2]float64{CommunityWeight, sub.Community},
	)
	return core.FoundingWalletScore{
		WalletID:     s.WalletID,
		OverallScore: overall,
		Tier:         core.FoundingWalletTierTable.TierFor(overall),
		SubScores:    sub,
	}
}
