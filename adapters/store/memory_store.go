package store

import (
	"context"
	"sync"
	"time"

	"github.com/memocracy/gatekeeper/core"
)

// MemoryStore is an in-memory implementation of the nonce, session, score and policy stores
type MemoryStore struct {
	mu sync.RWMutex

	nonces            map[string]*core.Nonce // by value
	activeNonce       map[string]string      // identity -> unconsumed nonce value
	invalidatedTokens map[string]time.Time
	coinScores        map[string]core.CoinScore
	walletScores      map[string]core.FoundingWalletScore
	policies          map[string]core.AccessPolicy
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nonces:            make(map[string]*core.Nonce),
		activeNonce:       make(map[string]string),
		invalidatedTokens: make(map[string]time.Time),
		coinScores:        make(map[string]core.CoinScore),
		walletScores:      make(map[string]core.FoundingWalletScore),
		policies:          make(map[string]core.AccessPolicy),
	}
}

// ReplaceNonce stores a nonce and drops the identity's previous unconsumed one
func (s *MemoryStore) ReplaceNonce(ctx context.Context, nonce *core.Nonce) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.activeNonce[nonce.Identity]; ok {
		if n, exists := s.nonces[prev]; exists && !n.Consumed() {
			delete(s.nonces, prev)
		}
	}

	stored := *nonce
	s.nonces[nonce.Value] = &stored
	s.activeNonce[nonce.Identity] = nonce.Value

	return nil
}

// GetNonce returns a copy of the nonce with the given value
func (s *MemoryStore) GetNonce(ctx context.Context, value string) (*core.Nonce, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nonces[value]
	if !ok {
		return nil, core.ErrNotFound
	}
	out := *n
	return &out, nil
}

// ConsumeNonce marks the nonce consumed while holding the write lock
func (s *MemoryStore) ConsumeNonce(ctx context.Context, value, identity string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nonces[value]
	if !ok || n.Identity != identity || n.Consumed() {
		return false, nil
	}

	consumedAt := at
	n.ConsumedAt = &consumedAt
	if s.activeNonce[identity] == value {
		delete(s.activeNonce, identity)
	}

	return true, nil
}

// InvalidateToken marks a token as invalidated
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiryTime := time.Now().Add(expiry)
	s.invalidatedTokens[tokenID] = expiryTime

	time.AfterFunc(expiry, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		// Only delete if the expiry time hasn't been extended
		if stored, exists := s.invalidatedTokens[tokenID]; exists && !stored.After(expiryTime) {
			delete(s.invalidatedTokens, tokenID)
		}
	})

	return nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiryTime, exists := s.invalidatedTokens[tokenID]
	if !exists {
		return false, nil
	}

	return time.Now().Before(expiryTime), nil
}

func (s *MemoryStore) GetCoinScore(ctx context.Context, mint string) (*core.CoinScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	score, ok := s.coinScores[mint]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &score, nil
}

func (s *MemoryStore) SaveCoinScore(ctx context.Context, score *core.CoinScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.coinScores[score.Mint] = *score
	return nil
}

func (s *MemoryStore) GetFoundingWalletScore(ctx context.Context, walletID string) (*core.FoundingWalletScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	score, ok := s.walletScores[walletID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &score, nil
}

func (s *MemoryStore) SaveFoundingWalletScore(ctx context.Context, score *core.FoundingWalletScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.walletScores[score.WalletID] = *score
	return nil
}

func (s *MemoryStore) GetPolicy(ctx context.Context, pollID string) (*core.AccessPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	policy, ok := s.policies[pollID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &policy, nil
}

func (s *MemoryStore) SavePolicy(ctx context.Context, policy *core.AccessPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.policies[policy.PollID] = *policy
	return nil
}
