package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/memocracy/gatekeeper/core"
)

// PostgresStore is a Postgres implementation of the nonce, session, score and policy stores
type PostgresStore struct {
	db *sqlx.DB
}

// ConnectPostgres opens a connection pool for the given DSN
func ConnectPostgres(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// NewPostgresStore creates a store on top of an open pool
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS nonces (
		id VARCHAR(64) PRIMARY KEY,
		identity VARCHAR(64) NOT NULL,
		value VARCHAR(128) NOT NULL UNIQUE,
		issued_at TIMESTAMP WITH TIME ZONE NOT NULL,
		consumed_at TIMESTAMP WITH TIME ZONE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_nonces_identity ON nonces(identity)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_nonces_identity_unconsumed ON nonces(identity) WHERE consumed_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_nonces_issued_at ON nonces(issued_at)`,
	`CREATE TABLE IF NOT EXISTS invalidated_tokens (
		token_id VARCHAR(64) PRIMARY KEY,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS coin_scores (
		mint VARCHAR(64) PRIMARY KEY,
		breakdown JSONB NOT NULL,
		last_checked_at TIMESTAMP WITH TIME ZONE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS founding_wallet_scores (
		wallet_id VARCHAR(64) PRIMARY KEY,
		score JSONB NOT NULL,
		last_checked_at TIMESTAMP WITH TIME ZONE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS poll_policies (
		poll_id VARCHAR(64) PRIMARY KEY,
		policy JSONB NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL
	)`,
}

// Migrate creates the tables the store needs
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, query := range migrations {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s, error: %w", query, err)
		}
	}

	return nil
}

type nonceRow struct {
	ID         string     `db:"id"`
	Identity   string     `db:"identity"`
	Value      string     `db:"value"`
	IssuedAt   time.Time  `db:"issued_at"`
	ConsumedAt *time.Time `db:"consumed_at"`
}

// ReplaceNonce deletes the identity's unconsumed nonces and inserts the new one in one transaction.
// A transaction-scoped advisory lock on the identity serializes concurrent replacements.
func (s *PostgresStore) ReplaceNonce(ctx context.Context, nonce *core.Nonce) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, nonce.Identity); err != nil {
		return fmt.Errorf("failed to lock identity: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM nonces WHERE identity = $1 AND consumed_at IS NULL`,
		nonce.Identity,
	); err != nil {
		return fmt.Errorf("failed to drop previous nonces: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO nonces (id, identity, value, issued_at) VALUES ($1, $2, $3, $4)`,
		nonce.ID, nonce.Identity, nonce.Value, nonce.IssuedAt,
	); err != nil {
		return fmt.Errorf("failed to insert nonce: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit nonce: %w", err)
	}

	return nil
}

// GetNonce loads a nonce by value
func (s *PostgresStore) GetNonce(ctx context.Context, value string) (*core.Nonce, error) {
	var row nonceRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, identity, value, issued_at, consumed_at FROM nonces WHERE value = $1`, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load nonce: %w", err)
	}

	return &core.Nonce{
		ID:         row.ID,
		Identity:   row.Identity,
		Value:      row.Value,
		IssuedAt:   row.IssuedAt,
		ConsumedAt: row.ConsumedAt,
	}, nil
}

// ConsumeNonce is a single conditional update; only one concurrent caller sees a row affected
func (s *PostgresStore) ConsumeNonce(ctx context.Context, value, identity string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE nonces SET consumed_at = $3 WHERE value = $1 AND identity = $2 AND consumed_at IS NULL`,
		value, identity, at,
	)
	if err != nil {
		return false, fmt.Errorf("failed to consume nonce: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to consume nonce: %w", err)
	}

	return n == 1, nil
}

// CleanupNonces deletes nonces issued before now-olderThan and returns how many were removed
func (s *PostgresStore) CleanupNonces(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := s.db.ExecContext(ctx, `DELETE FROM nonces WHERE issued_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up nonces: %w", err)
	}
	return res.RowsAffected()
}

// InvalidateToken records a token as invalidated until now+expiry
func (s *PostgresStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invalidated_tokens (token_id, expires_at) VALUES ($1, $2)
		 ON CONFLICT (token_id) DO UPDATE SET expires_at = EXCLUDED.expires_at`,
		tokenID, time.Now().Add(expiry),
	)
	if err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}
	return nil
}

// IsTokenInvalidated checks for an unexpired invalidation record
func (s *PostgresStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	var invalidated bool
	err := s.db.GetContext(ctx, &invalidated,
		`SELECT EXISTS(SELECT 1 FROM invalidated_tokens WHERE token_id = $1 AND expires_at > $2)`,
		tokenID, time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to check token invalidation: %w", err)
	}
	return invalidated, nil
}

func (s *PostgresStore) GetCoinScore(ctx context.Context, mint string) (*core.CoinScore, error) {
	var row struct {
		Breakdown     []byte    `db:"breakdown"`
		LastCheckedAt time.Time `db:"last_checked_at"`
	}
	err := s.db.GetContext(ctx, &row,
		`SELECT breakdown, last_checked_at FROM coin_scores WHERE mint = $1`, mint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load coin score: %w", err)
	}

	score := &core.CoinScore{Mint: mint, LastCheckedAt: row.LastCheckedAt}
	if err := json.Unmarshal(row.Breakdown, &score.Breakdown); err != nil {
		return nil, fmt.Errorf("failed to decode coin score: %w", err)
	}
	return score, nil
}

// SaveCoinScore overwrites the stored score
func (s *PostgresStore) SaveCoinScore(ctx context.Context, score *core.CoinScore) error {
	breakdown, err := json.Marshal(score.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to encode coin score: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO coin_scores (mint, breakdown, last_checked_at) VALUES ($1, $2, $3)
		 ON CONFLICT (mint) DO UPDATE SET breakdown = EXCLUDED.breakdown, last_checked_at = EXCLUDED.last_checked_at`,
		score.Mint, breakdown, score.LastCheckedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save coin score: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetFoundingWalletScore(ctx context.Context, walletID string) (*core.FoundingWalletScore, error) {
	var raw []byte
	err := s.db.GetContext(ctx, &raw,
		`SELECT score FROM founding_wallet_scores WHERE wallet_id = $1`, walletID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load founding wallet score: %w", err)
	}

	var score core.FoundingWalletScore
	if err := json.Unmarshal(raw, &score); err != nil {
		return nil, fmt.Errorf("failed to decode founding wallet score: %w", err)
	}
	return &score, nil
}

// SaveFoundingWalletScore overwrites the stored score
func (s *PostgresStore) SaveFoundingWalletScore(ctx context.Context, score *core.FoundingWalletScore) error {
	raw, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("failed to encode founding wallet score: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO founding_wallet_scores (wallet_id, score, last_checked_at) VALUES ($1, $2, $3)
		 ON CONFLICT (wallet_id) DO UPDATE SET score = EXCLUDED.score, last_checked_at = EXCLUDED.last_checked_at`,
		score.WalletID, raw, score.LastCheckedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save founding wallet score: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPolicy(ctx context.Context, pollID string) (*core.AccessPolicy, error) {
	var raw []byte
	err := s.db.GetContext(ctx, &raw,
		`SELECT policy FROM poll_policies WHERE poll_id = $1`, pollID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load poll policy: %w", err)
	}

	var policy core.AccessPolicy
	if err := json.Unmarshal(raw, &policy); err != nil {
		return nil, fmt.Errorf("failed to decode poll policy: %w", err)
	}
	return &policy, nil
}

// SavePolicy overwrites the stored policy
func (s *PostgresStore) SavePolicy(ctx context.Context, policy *core.AccessPolicy) error {
	raw, err := json.Marshal(policy)
	if err != nil {
		return fmt.Errorf("failed to encode poll policy: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO poll_policies (poll_id, policy, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (poll_id) DO UPDATE SET policy = EXCLUDED.policy, updated_at = EXCLUDED.updated_at`,
		policy.PollID, raw, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save poll policy: %w", err)
	}
	return nil
}
