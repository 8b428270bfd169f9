package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetKind distinguishes native SOL transfers from SPL token transfers
type AssetKind string

const (
	AssetNative        AssetKind = "NATIVE"
	AssetFungibleToken AssetKind = "FUNGIBLE_TOKEN"
)

// AssetFilter restricts which transfers count toward a contribution.
// STABLECOIN only counts token transfers that name a configured stablecoin mint.
type AssetFilter string

const (
	AssetFilterAny        AssetFilter = "ANY"
	AssetFilterSOL        AssetFilter = "SOL"
	AssetFilterStablecoin AssetFilter = "STABLECOIN"
)

// ParseAssetFilter normalizes an asset filter, defaulting to ANY when empty
func ParseAssetFilter(s string) (AssetFilter, error) {
	switch AssetFilter(s) {
	case "", AssetFilterAny:
		return AssetFilterAny, nil
	case AssetFilterSOL, AssetFilterStablecoin:
		return AssetFilter(s), nil
	default:
		return "", ErrValidation
	}
}

// TokenAmount is a token account balance as reported by the ledger
type TokenAmount struct {
	Amount   uint64 // Raw amount in the smallest unit
	Decimals uint8  // Decimals configured on the mint
}

// BalanceSnapshot is a point-in-time read of a wallet's balance of one mint
type BalanceSnapshot struct {
	WalletAddress string          `json:"wallet_address"`
	MintAddress   string          `json:"mint_address"`
	RawAmount     uint64          `json:"raw_amount"`
	Decimals      uint8           `json:"decimals"`
	UIAmount      decimal.Decimal `json:"ui_amount"`
}

// SignatureInfo is one entry of an address's transaction history
type SignatureInfo struct {
	Signature string
	Slot      uint64
	BlockTime *time.Time
	Failed    bool
}

// ParsedInstruction is a decoded ledger instruction. Info holds the
// program-specific fields; numbers are decoded as json.Number.
type ParsedInstruction struct {
	Program   string
	ProgramID string
	Type      string
	Info      map[string]any
}

// ParsedTransaction is a decoded ledger transaction
type ParsedTransaction struct {
	Signature         string
	Slot              uint64
	BlockTime         *time.Time
	Failed            bool
	Instructions      []ParsedInstruction
	InnerInstructions []ParsedInstruction
}

// TransferEvent is a single value transfer extracted from a transaction
type TransferEvent struct {
	Signature    string     `json:"signature"`
	Slot         uint64     `json:"slot"`
	BlockTime    *time.Time `json:"block_time,omitempty"`
	SourceWallet string     `json:"source_wallet"`
	DestWallet   string     `json:"dest_wallet"`
	AssetKind    AssetKind  `json:"asset_kind"`
	Mint         string     `json:"mint,omitempty"`
	AmountRaw    uint64     `json:"amount_raw"`
}
