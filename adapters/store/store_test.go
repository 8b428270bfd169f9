package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/memocracy/gatekeeper/core"
	"github.com/memocracy/gatekeeper/ports"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fullStore interface {
	ports.NonceStore
	ports.SessionStore
	ports.ScoreStore
	ports.PolicyStore
}

func newRedisTestStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, ttl), mr
}

func storesUnderTest(t *testing.T) map[string]fullStore {
	redisStore, _ := newRedisTestStore(t, 0)
	return map[string]fullStore{
		"memory": NewMemoryStore(),
		"redis":  redisStore,
	}
}

func testNonce(identity, value string) *core.Nonce {
	return &core.Nonce{
		ID:       "id-" + value,
		Identity: identity,
		Value:    value,
		IssuedAt: time.Now().UTC(),
	}
}

func TestNonceLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			n := testNonce("wallet1", "value1")
			require.NoError(t, s.ReplaceNonce(ctx, n))

			got, err := s.GetNonce(ctx, "value1")
			require.NoError(t, err)
			assert.Equal(t, "wallet1", got.Identity)
			assert.Equal(t, n.ID, got.ID)
			assert.True(t, got.IssuedAt.Equal(n.IssuedAt))
			assert.False(t, got.Consumed())

			ok, err := s.ConsumeNonce(ctx, "value1", "someone-else", time.Now())
			require.NoError(t, err)
			assert.False(t, ok, "foreign identity must not consume")

			ok, err = s.ConsumeNonce(ctx, "value1", "wallet1", time.Now())
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = s.ConsumeNonce(ctx, "value1", "wallet1", time.Now())
			require.NoError(t, err)
			assert.False(t, ok, "second consume must fail")

			got, err = s.GetNonce(ctx, "value1")
			require.NoError(t, err)
			assert.True(t, got.Consumed())

			ok, err = s.ConsumeNonce(ctx, "missing", "wallet1", time.Now())
			require.NoError(t, err)
			assert.False(t, ok)

			_, err = s.GetNonce(ctx, "missing")
			assert.ErrorIs(t, err, core.ErrNotFound)
		})
	}
}

func TestReplaceNonceDropsPrevious(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.ReplaceNonce(ctx, testNonce("wallet1", "first")))
			require.NoError(t, s.ReplaceNonce(ctx, testNonce("wallet1", "second")))
			require.NoError(t, s.ReplaceNonce(ctx, testNonce("wallet2", "other")))

			_, err := s.GetNonce(ctx, "first")
			assert.ErrorIs(t, err, core.ErrNotFound)

			ok, err := s.ConsumeNonce(ctx, "first", "wallet1", time.Now())
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = s.ConsumeNonce(ctx, "second", "wallet1", time.Now())
			require.NoError(t, err)
			assert.True(t, ok)

			// other identities are untouched
			_, err = s.GetNonce(ctx, "other")
			assert.NoError(t, err)

			// a consumed nonce survives the next issue
			require.NoError(t, s.ReplaceNonce(ctx, testNonce("wallet1", "third")))
			got, err := s.GetNonce(ctx, "second")
			require.NoError(t, err)
			assert.True(t, got.Consumed())
		})
	}
}

func TestConsumeNonceConcurrent(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.ReplaceNonce(ctx, testNonce("wallet1", "race")))

			var wins atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ok, err := s.ConsumeNonce(ctx, "race", "wallet1", time.Now())
					if err == nil && ok {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, int32(1), wins.Load())
		})
	}
}

func TestTokenInvalidation(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			invalidated, err := s.IsTokenInvalidated(ctx, "tok")
			require.NoError(t, err)
			assert.False(t, invalidated)

			require.NoError(t, s.InvalidateToken(ctx, "tok", time.Minute))

			invalidated, err = s.IsTokenInvalidated(ctx, "tok")
			require.NoError(t, err)
			assert.True(t, invalidated)
		})
	}
}

func TestScoreOverwrite(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetCoinScore(ctx, "mint1")
			assert.ErrorIs(t, err, core.ErrNotFound)

			first := &core.CoinScore{
				Mint:          "mint1",
				Breakdown:     core.CoinScoreBreakdown{OverallScore: 40, Tier: core.TierBronze},
				LastCheckedAt: time.Now().UTC(),
			}
			require.NoError(t, s.SaveCoinScore(ctx, first))

			second := &core.CoinScore{
				Mint:          "mint1",
				Breakdown:     core.CoinScoreBreakdown{OverallScore: 82, Tier: core.TierDiamond},
				LastCheckedAt: first.LastCheckedAt.Add(time.Hour),
			}
			require.NoError(t, s.SaveCoinScore(ctx, second))

			got, err := s.GetCoinScore(ctx, "mint1")
			require.NoError(t, err)
			assert.Equal(t, 82, got.Breakdown.OverallScore)
			assert.Equal(t, core.TierDiamond, got.Breakdown.Tier)
			assert.True(t, got.LastCheckedAt.Equal(second.LastCheckedAt))

			_, err = s.GetFoundingWalletScore(ctx, "w1")
			assert.ErrorIs(t, err, core.ErrNotFound)

			require.NoError(t, s.SaveFoundingWalletScore(ctx, &core.FoundingWalletScore{
				WalletID:     "w1",
				OverallScore: 55,
				Tier:         core.TierSilver,
			}))
			ws, err := s.GetFoundingWalletScore(ctx, "w1")
			require.NoError(t, err)
			assert.Equal(t, 55, ws.OverallScore)
			assert.Equal(t, core.TierSilver, ws.Tier)
		})
	}
}

func TestPolicyOverwrite(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetPolicy(ctx, "poll-1")
			assert.ErrorIs(t, err, core.ErrNotFound)

			require.NoError(t, s.SavePolicy(ctx, &core.AccessPolicy{
				PollID:          "poll-1",
				Mode:            core.AccessModeCoin,
				Coin:            &core.CoinRef{Mint: "mint1", Symbol: "MEME"},
				MinTokenBalance: decimal.NewFromInt(1000),
			}))
			require.NoError(t, s.SavePolicy(ctx, &core.AccessPolicy{
				PollID:             "poll-1",
				Mode:               core.AccessModeWallet,
				Wallet:             &core.FoundingWalletRef{Address: "fund1", Name: "Fund"},
				MinContributionUSD: decimal.RequireFromString("12.5"),
				OwnerAddress:       "fund1",
			}))

			got, err := s.GetPolicy(ctx, "poll-1")
			require.NoError(t, err)
			assert.Equal(t, core.AccessModeWallet, got.Mode)
			assert.Nil(t, got.Coin)
			require.NotNil(t, got.Wallet)
			assert.Equal(t, "fund1", got.Wallet.Address)
			assert.True(t, got.MinContributionUSD.Equal(decimal.RequireFromString("12.5")))
			assert.Equal(t, "fund1", got.OwnerAddress)
		})
	}
}

func TestRedisNonceTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisTestStore(t, time.Minute)

	require.NoError(t, s.ReplaceNonce(ctx, testNonce("wallet1", "short-lived")))
	_, err := s.GetNonce(ctx, "short-lived")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = s.GetNonce(ctx, "short-lived")
	assert.ErrorIs(t, err, core.ErrNotFound)

	ok, err := s.ConsumeNonce(ctx, "short-lived", "wallet1", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}
