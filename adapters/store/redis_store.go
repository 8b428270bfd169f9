package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/memocracy/gatekeeper/core"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "gatekeeper:"

// KEYS[1] nonce hash, KEYS[2] identity pointer
// ARGV value, id, identity, issued_at, ttl seconds, nonce key prefix
var replaceNonceScript = redis.NewScript(`
local prev = redis.call('GET', KEYS[2])
if prev then
  local prevKey = ARGV[6] .. prev
  if redis.call('HEXISTS', prevKey, 'consumed_at') == 0 then
    redis.call('DEL', prevKey)
  end
end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], 'id', ARGV[2], 'identity', ARGV[3], 'issued_at', ARGV[4])
redis.call('SET', KEYS[2], ARGV[1])
local ttl = tonumber(ARGV[5])
if ttl > 0 then
  redis.call('EXPIRE', KEYS[1], ttl)
  redis.call('EXPIRE', KEYS[2], ttl)
end
return 1
`)

// KEYS[1] nonce hash, KEYS[2] identity pointer
// ARGV identity, consumed_at, value
var consumeNonceScript = redis.NewScript(`
local owner = redis.call('HGET', KEYS[1], 'identity')
if not owner or owner ~= ARGV[1] then
  return 0
end
if redis.call('HEXISTS', KEYS[1], 'consumed_at') == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'consumed_at', ARGV[2])
if redis.call('GET', KEYS[2]) == ARGV[3] then
  redis.call('DEL', KEYS[2])
end
return 1
`)

// RedisStore is a Redis implementation of the nonce, session, score and policy stores
type RedisStore struct {
	client   *redis.Client
	prefix   string
	nonceTTL time.Duration
}

// NewRedisStore creates a new Redis store. A positive nonceTTL expires
// nonces that were never used.
func NewRedisStore(client *redis.Client, nonceTTL time.Duration) *RedisStore {
	return &RedisStore{
		client:   client,
		prefix:   defaultRedisPrefix,
		nonceTTL: nonceTTL,
	}
}

func (s *RedisStore) nonceKey(value string) string       { return s.prefix + "nonce:" + value }
func (s *RedisStore) identityKey(identity string) string { return s.prefix + "identity:" + identity }

// ReplaceNonce stores the nonce and drops the identity's previous unconsumed one
func (s *RedisStore) ReplaceNonce(ctx context.Context, nonce *core.Nonce) error {
	keys := []string{s.nonceKey(nonce.Value), s.identityKey(nonce.Identity)}
	args := []interface{}{
		nonce.Value,
		nonce.ID,
		nonce.Identity,
		nonce.IssuedAt.UTC().Format(time.RFC3339Nano),
		int64(s.nonceTTL / time.Second),
		s.prefix + "nonce:",
	}

	if err := replaceNonceScript.Run(ctx, s.client, keys, args...).Err(); err != nil {
		return fmt.Errorf("failed to store nonce: %w", err)
	}

	return nil
}

// GetNonce loads a nonce by value
func (s *RedisStore) GetNonce(ctx context.Context, value string) (*core.Nonce, error) {
	fields, err := s.client.HGetAll(ctx, s.nonceKey(value)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load nonce: %w", err)
	}
	if len(fields) == 0 {
		return nil, core.ErrNotFound
	}

	issuedAt, err := time.Parse(time.RFC3339Nano, fields["issued_at"])
	if err != nil {
		return nil, fmt.Errorf("corrupt nonce record: %w", err)
	}

	nonce := &core.Nonce{
		ID:       fields["id"],
		Identity: fields["identity"],
		Value:    value,
		IssuedAt: issuedAt,
	}
	if raw, ok := fields["consumed_at"]; ok {
		consumedAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt nonce record: %w", err)
		}
		nonce.ConsumedAt = &consumedAt
	}

	return nonce, nil
}

// ConsumeNonce runs the conditional consume as a single script
func (s *RedisStore) ConsumeNonce(ctx context.Context, value, identity string, at time.Time) (bool, error) {
	keys := []string{s.nonceKey(value), s.identityKey(identity)}

	n, err := consumeNonceScript.Run(ctx, s.client, keys, identity, at.UTC().Format(time.RFC3339Nano), value).Int()
	if err != nil {
		return false, fmt.Errorf("failed to consume nonce: %w", err)
	}

	return n == 1, nil
}

// InvalidateToken marks a token as invalidated in Redis
func (s *RedisStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	key := s.prefix + "invalidated:" + tokenID

	if err := s.client.Set(ctx, key, "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	return nil
}

// IsTokenInvalidated checks if a token is invalidated in Redis
func (s *RedisStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	key := s.prefix + "invalidated:" + tokenID

	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token invalidation: %w", err)
	}

	return val > 0, nil
}

func (s *RedisStore) GetCoinScore(ctx context.Context, mint string) (*core.CoinScore, error) {
	var score core.CoinScore
	if err := s.getJSON(ctx, s.prefix+"score:coin:"+mint, &score); err != nil {
		return nil, err
	}
	return &score, nil
}

func (s *RedisStore) SaveCoinScore(ctx context.Context, score *core.CoinScore) error {
	return s.setJSON(ctx, s.prefix+"score:coin:"+score.Mint, score)
}

func (s *RedisStore) GetFoundingWalletScore(ctx context.Context, walletID string) (*core.FoundingWalletScore, error) {
	var score core.FoundingWalletScore
	if err := s.getJSON(ctx, s.prefix+"score:wallet:"+walletID, &score); err != nil {
		return nil, err
	}
	return &score, nil
}

func (s *RedisStore) SaveFoundingWalletScore(ctx context.Context, score *core.FoundingWalletScore) error {
	return s.setJSON(ctx, s.prefix+"score:wallet:"+score.WalletID, score)
}

func (s *RedisStore) GetPolicy(ctx context.Context, pollID string) (*core.AccessPolicy, error) {
	var policy core.AccessPolicy
	if err := s.getJSON(ctx, s.prefix+"policy:"+pollID, &policy); err != nil {
		return nil, err
	}
	return &policy, nil
}

func (s *RedisStore) SavePolicy(ctx context.Context, policy *core.AccessPolicy) error {
	return s.setJSON(ctx, s.prefix+"policy:"+policy.PollID, policy)
}

func (s *RedisStore) getJSON(ctx context.Context, key string, v any) error {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}
