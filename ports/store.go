package ports

import (
	"context"
	"time"

	"github.com/memocracy/gatekeeper/core"
)

// NonceStore persists authentication nonces
type NonceStore interface {
	// ReplaceNonce stores the nonce and drops any unconsumed nonce previously
	// issued to the same identity
	ReplaceNonce(ctx context.Context, nonce *core.Nonce) error
	// GetNonce returns core.ErrNotFound when no nonce has the value
	GetNonce(ctx context.Context, value string) (*core.Nonce, error)
	// ConsumeNonce marks the nonce consumed if it belongs to identity and is
	// still unconsumed. It reports false without error when no such nonce exists.
	ConsumeNonce(ctx context.Context, value, identity string, at time.Time) (bool, error)
}

// SessionStore records invalidated session tokens
type SessionStore interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}

// ScoreStore persists computed scores. Getters return core.ErrNotFound when
// nothing was saved yet; savers overwrite.
type ScoreStore interface {
	GetCoinScore(ctx context.Context, mint string) (*core.CoinScore, error)
	SaveCoinScore(ctx context.Context, score *core.CoinScore) error
	GetFoundingWalletScore(ctx context.Context, walletID string) (*core.FoundingWalletScore, error)
	SaveFoundingWalletScore(ctx context.Context, score *core.FoundingWalletScore) error
}

// PolicyStore holds the access policies of polls. GetPolicy returns
// core.ErrNotFound for unknown polls; SavePolicy overwrites.
type PolicyStore interface {
	GetPolicy(ctx context.Context, pollID string) (*core.AccessPolicy, error)
	SavePolicy(ctx context.Context, policy *core.AccessPolicy) error
}
