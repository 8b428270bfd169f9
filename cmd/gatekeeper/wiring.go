package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/memocracy/gatekeeper/adapters/chain"
	"github.com/memocracy/gatekeeper/adapters/events"
	"github.com/memocracy/gatekeeper/adapters/store"
	"github.com/memocracy/gatekeeper/config"
	"github.com/memocracy/gatekeeper/ports"
	"github.com/memocracy/gatekeeper/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// nonceCleanupInterval is how often expired nonces are purged from Postgres
const nonceCleanupInterval = 10 * time.Minute

// backend is a store serving nonces, sessions, scores and poll policies
type backend interface {
	ports.NonceStore
	ports.SessionStore
	ports.ScoreStore
	ports.PolicyStore
}

// resources collects everything that must be closed on shutdown
type resources struct {
	closers []func() error
}

func (r *resources) add(closer func() error) {
	r.closers = append(r.closers, closer)
}

func (r *resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			logger.Warn("failed to release resource", zap.Error(err))
		}
	}
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return client, nil
}

// openBackend opens the configured store. The redis client is returned when
// one was opened so the event publisher can share it.
func openBackend(ctx context.Context, cfg *config.Config, res *resources) (backend, *redis.Client, error) {
	switch cfg.StoreBackend {
	case config.StoreRedis:
		client, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		res.add(client.Close)
		return store.NewRedisStore(client, cfg.NonceTTL), client, nil

	case config.StorePostgres:
		db, err := store.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		res.add(db.Close)

		pg := store.NewPostgresStore(db)
		if err := pg.Migrate(ctx); err != nil {
			return nil, nil, err
		}
		go cleanupNonces(ctx, pg, cfg.NonceTTL)
		return pg, nil, nil

	default:
		return store.NewMemoryStore(), nil, nil
	}
}

func cleanupNonces(ctx context.Context, pg *store.PostgresStore, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	ticker := time.NewTicker(nonceCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := pg.CleanupNonces(ctx, ttl)
			if err != nil {
				logger.Warn("nonce cleanup failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Info("expired nonces removed", zap.Int64("count", removed))
			}
		}
	}
}

// openPublisher publishes to redis streams when events are enabled
func openPublisher(ctx context.Context, cfg *config.Config, client *redis.Client, res *resources) (ports.EventPublisher, error) {
	if !cfg.EventsEnabled {
		return events.NoopPublisher{}, nil
	}

	if client == nil {
		var err error
		client, err = connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		res.add(client.Close)
	}

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: client,
		},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis publisher: %w", err)
	}
	res.add(publisher.Close)

	return events.NewWatermillPublisher(publisher), nil
}

func newChainClient(cfg *config.Config, reg prometheus.Registerer) *chain.SolanaClient {
	return chain.NewSolanaClient(chain.Config{
		Endpoint:          cfg.SolanaRPCURL,
		Timeout:           cfg.RPCTimeout,
		RequestsPerSecond: cfg.RPCRequestsPerSecond,
		Burst:             cfg.RPCBurst,
		Commitment:        rpc.CommitmentConfirmed,
	}, reg, logger)
}

func newEligibilityService(cfg *config.Config, querier ports.ChainQuerier) *service.EligibilityService {
	balances := service.NewBalanceService(querier, logger)
	contributions := service.NewContributionService(querier, service.ContributionConfig{
		SignatureLimit:  cfg.ContributionSignatureLimit,
		BatchSize:       cfg.ContributionBatchSize,
		BatchPause:      cfg.ContributionBatchPause,
		USDDivisor:      cfg.ContributionUSDDivisor,
		StablecoinMints: cfg.StablecoinMints,
	}, logger)
	return service.NewEligibilityService(balances, contributions, logger)
}
