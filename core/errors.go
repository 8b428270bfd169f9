package core

import "errors"

var (
	// ErrInvalidNonce covers a missing, consumed or foreign nonce. The cause is
	// intentionally not distinguished.
	ErrInvalidNonce     = errors.New("invalid nonce")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrChainQuery       = errors.New("chain query failed")
	ErrConfiguration    = errors.New("configuration error")
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("not found")

	ErrTokenExpired         = errors.New("token has expired")
	ErrTokenInvalidated     = errors.New("token has been invalidated")
	ErrInvalidToken         = errors.New("invalid token")
	ErrStoreOperationFailed = errors.New("store operation failed")
)
