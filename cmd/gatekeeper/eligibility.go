package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/memocracy/gatekeeper/core"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var eligibilityFlags struct {
	mode           string
	wallet         string
	mint           string
	symbol         string
	minBalance     string
	foundingWallet string
	walletName     string
	parentMint     string
	minUSD         string
	assetFilter    string
	owner          string
}

var eligibilityCmd = &cobra.Command{
	Use:   "eligibility",
	Short: "Evaluate a wallet against a poll access policy",
	Long: `Evaluates a wallet once against the configured Solana RPC endpoint and
prints the decision as JSON.

  gatekeeper eligibility --mode coin --wallet <addr> --mint <mint> --min-balance 1000
  gatekeeper eligibility --mode wallet --wallet <addr> --founding-wallet <addr> --min-usd 25`,
	RunE: func(cmd *cobra.Command, args []string) error {
		policy, err := policyFromFlags()
		if err != nil {
			return err
		}

		client := newChainClient(cfg, nil)
		defer client.Close()

		decision := newEligibilityService(cfg, client).Evaluate(cmd.Context(), policy, eligibilityFlags.wallet)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(decision)
	},
}

func policyFromFlags() (core.AccessPolicy, error) {
	f := eligibilityFlags

	if f.wallet == "" {
		return core.AccessPolicy{}, fmt.Errorf("--wallet is required")
	}

	minBalance, err := parseAmount("min-balance", f.minBalance)
	if err != nil {
		return core.AccessPolicy{}, err
	}
	minUSD, err := parseAmount("min-usd", f.minUSD)
	if err != nil {
		return core.AccessPolicy{}, err
	}
	filter, err := core.ParseAssetFilter(strings.ToUpper(f.assetFilter))
	if err != nil {
		return core.AccessPolicy{}, fmt.Errorf("--asset-filter must be ANY, SOL or STABLECOIN")
	}

	policy := core.AccessPolicy{
		PollID:             "cli",
		MinTokenBalance:    minBalance,
		MinContributionUSD: minUSD,
		AssetFilter:        filter,
		OwnerAddress:       f.owner,
	}

	switch strings.ToLower(f.mode) {
	case "coin":
		policy.Mode = core.AccessModeCoin
		if f.mint != "" {
			policy.Coin = &core.CoinRef{Mint: f.mint, Symbol: f.symbol}
		}
	case "wallet":
		policy.Mode = core.AccessModeWallet
		if f.foundingWallet != "" {
			policy.Wallet = &core.FoundingWalletRef{Address: f.foundingWallet, Name: f.walletName}
			if f.parentMint != "" {
				policy.Wallet.ParentCoin = &core.CoinRef{Mint: f.parentMint, Symbol: f.symbol}
			}
		}
	default:
		return core.AccessPolicy{}, fmt.Errorf("--mode must be coin or wallet")
	}

	return policy, nil
}

func parseAmount(flag, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--%s: %w", flag, err)
	}
	return d, nil
}

func init() {
	f := eligibilityCmd.Flags()
	f.StringVar(&eligibilityFlags.mode, "mode", "coin", "access mode: coin|wallet")
	f.StringVar(&eligibilityFlags.wallet, "wallet", "", "wallet address to evaluate")
	f.StringVar(&eligibilityFlags.mint, "mint", "", "coin mint (coin mode)")
	f.StringVar(&eligibilityFlags.symbol, "symbol", "", "coin symbol used in reasons")
	f.StringVar(&eligibilityFlags.minBalance, "min-balance", "", "minimum balance in whole tokens")
	f.StringVar(&eligibilityFlags.foundingWallet, "founding-wallet", "", "founding wallet address (wallet mode)")
	f.StringVar(&eligibilityFlags.walletName, "wallet-name", "", "founding wallet name used in reasons")
	f.StringVar(&eligibilityFlags.parentMint, "parent-mint", "", "coin the founding wallet belongs to")
	f.StringVar(&eligibilityFlags.minUSD, "min-usd", "", "minimum contribution in USD")
	f.StringVar(&eligibilityFlags.assetFilter, "asset-filter", "ANY", "contribution assets: ANY|SOL|STABLECOIN")
	f.StringVar(&eligibilityFlags.owner, "owner", "", "poll owner address")
}
