package core

import "github.com/shopspring/decimal"

// AccessMode is a poll's eligibility policy
type AccessMode string

const (
	AccessModeCoin   AccessMode = "COIN"
	AccessModeWallet AccessMode = "WALLET"
)

// CoinRef identifies a token mint
type CoinRef struct {
	Mint   string `json:"mint"`
	Symbol string `json:"symbol,omitempty"`
}

// Label returns the symbol when known, otherwise the mint address
func (c *CoinRef) Label() string {
	if c.Symbol != "" {
		return c.Symbol
	}
	return c.Mint
}

// FoundingWalletRef identifies a fundraising wallet and the coin it belongs to, if any
type FoundingWalletRef struct {
	Address    string   `json:"address"`
	Name       string   `json:"name,omitempty"`
	ParentCoin *CoinRef `json:"parent_coin,omitempty"`
}

// AccessPolicy is the resolved access policy of a poll
type AccessPolicy struct {
	PollID             string             `json:"poll_id"`
	Mode               AccessMode         `json:"mode"`
	Coin               *CoinRef           `json:"coin,omitempty"`
	MinTokenBalance    decimal.Decimal    `json:"min_token_balance"`
	Wallet             *FoundingWalletRef `json:"wallet,omitempty"`
	MinContributionUSD decimal.Decimal    `json:"min_contribution_usd"`
	AssetFilter        AssetFilter        `json:"asset_filter,omitempty"`
	OwnerAddress       string             `json:"owner_address,omitempty"`
}

// EligibilityDecision is the outcome of evaluating a wallet against a policy.
// Reasons are never empty when Eligible is false.
type EligibilityDecision struct {
	Eligible          bool     `json:"eligible"`
	Reasons           []string `json:"reasons"`
	IsPrivilegedOwner bool     `json:"is_privileged_owner"`
}
