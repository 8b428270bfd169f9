package ports

import (
	"context"

	"github.com/memocracy/gatekeeper/core"
)

// ChainQuerier reads balances and transaction history from the ledger
type ChainQuerier interface {
	// GetTokenAccountBalance returns core.ErrNotFound when the account does not exist
	GetTokenAccountBalance(ctx context.Context, account string) (*core.TokenAmount, error)
	// GetSignaturesForAddress returns up to limit signatures, most recent first
	GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]core.SignatureInfo, error)
	GetParsedTransaction(ctx context.Context, signature string) (*core.ParsedTransaction, error)
}
