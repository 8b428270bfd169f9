package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/memocracy/gatekeeper/core"
	"github.com/memocracy/gatekeeper/ports"
	"go.uber.org/zap"
)

// NonceBytes is the amount of randomness in an issued nonce
const NonceBytes = 32

// DefaultSessionTTL applies when no session lifetime is configured
const DefaultSessionTTL = 24 * time.Hour

// AuthService handles the nonce challenge protocol and wallet sessions
type AuthService struct {
	nonces    ports.NonceStore
	sessions  ports.SessionStore
	verifier  ports.SignatureVerifier
	tokenizer ports.Tokenizer
	eventPub  ports.EventPublisher
	logger    *zap.Logger

	sessionTTL time.Duration
	now        func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	nonces ports.NonceStore,
	sessions ports.SessionStore,
	verifier ports.SignatureVerifier,
	tokenizer ports.Tokenizer,
	eventPub ports.EventPublisher,
	sessionTTL time.Duration,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &AuthService{
		nonces:     nonces,
		sessions:   sessions,
		verifier:   verifier,
		tokenizer:  tokenizer,
		eventPub:   eventPub,
		logger:     logger.Named("auth"),
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// SessionTTL is the lifetime of issued sessions
func (s *AuthService) SessionTTL() time.Duration {
	return s.sessionTTL
}

// IssueNonce replaces any outstanding nonce of identity with a fresh one and returns its value.
// Surrounding whitespace is not part of an identity.
func (s *AuthService) IssueNonce(ctx context.Context, identity string) (string, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return "", fmt.Errorf("%w: identity is required", core.ErrValidation)
	}

	buf := make([]byte, NonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	nonce := &core.Nonce{
		ID:       uuid.New().String(),
		Identity: identity,
		Value:    base64.RawURLEncoding.EncodeToString(buf),
		IssuedAt: s.now(),
	}

	if err := s.nonces.ReplaceNonce(ctx, nonce); err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}

	return nonce.Value, nil
}

// VerifyChallenge checks that signature is identity's signature over build(nonce)
// and consumes the nonce. Missing, consumed and foreign nonces all yield
// core.ErrInvalidNonce.
func (s *AuthService) VerifyChallenge(ctx context.Context, identity, nonceValue, signature string, build core.MessageBuilder) error {
	identity = strings.TrimSpace(identity)
	log := s.logger.With(zap.String("identity", identity))

	nonce, err := s.nonces.GetNonce(ctx, nonceValue)
	if errors.Is(err, core.ErrNotFound) {
		log.Debug("challenge rejected", zap.String("cause", "unknown nonce"))
		return core.ErrInvalidNonce
	}
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}

	if nonce.Consumed() {
		log.Debug("challenge rejected", zap.String("cause", "nonce already consumed"))
		return core.ErrInvalidNonce
	}
	if nonce.Identity != identity {
		log.Debug("challenge rejected", zap.String("cause", "nonce issued to another identity"))
		return core.ErrInvalidNonce
	}

	message := build(nonce.Value)
	if err := s.verifier.Verify(identity, []byte(message), signature); err != nil {
		log.Debug("challenge rejected", zap.String("cause", "signature mismatch"), zap.Error(err))
		return core.ErrInvalidSignature
	}

	consumed, err := s.nonces.ConsumeNonce(ctx, nonceValue, identity, s.now())
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	if !consumed {
		log.Debug("challenge rejected", zap.String("cause", "nonce consumed concurrently"))
		return core.ErrInvalidNonce
	}

	return nil
}

// Login verifies the login challenge and opens a session
func (s *AuthService) Login(ctx context.Context, identity, nonce, signature string) (string, *core.Session, error) {
	identity = strings.TrimSpace(identity)
	if err := s.VerifyChallenge(ctx, identity, nonce, signature, core.LoginMessageBuilder()); err != nil {
		return "", nil, err
	}

	now := s.now()
	session := &core.Session{
		ID:        uuid.New().String(),
		Address:   identity,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	token, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create session token: %w", err)
	}

	if err := s.eventPub.PublishWalletAuthenticated(ctx, session); err != nil {
		s.logger.Warn("failed to publish login event", zap.String("address", identity), zap.Error(err))
	}

	return token, session, nil
}

// ValidateSession returns the session carried by token unless it expired or was logged out
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*core.Session, error) {
	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil, err
	}

	if session.Expired(s.now()) {
		return nil, core.ErrTokenExpired
	}

	invalidated, err := s.sessions.IsTokenInvalidated(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token invalidation: %w", err)
	}
	if invalidated {
		return nil, core.ErrTokenInvalidated
	}

	return session, nil
}

// Logout invalidates the session for the rest of its lifetime. An expired
// token is already unusable and is accepted as logged out.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	session, err := s.tokenizer.TokenToSession(token)
	if errors.Is(err, core.ErrTokenExpired) {
		return nil
	}
	if err != nil {
		return err
	}

	remaining := session.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		return nil
	}

	if err := s.sessions.InvalidateToken(ctx, session.ID, remaining); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	// The session is already invalidated in the store; the event is best effort
	if err := s.eventPub.PublishLogout(ctx, session.Address, session.ID); err != nil {
		s.logger.Warn("failed to publish logout event", zap.String("address", session.Address), zap.Error(err))
	}

	return nil
}

// VerifyLeaderboardSubmission checks a signed leaderboard score claim
func (s *AuthService) VerifyLeaderboardSubmission(ctx context.Context, identity, nonce, signature string, score int64, username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("%w: username is required", core.ErrValidation)
	}
	if score < 0 {
		return fmt.Errorf("%w: score must not be negative", core.ErrValidation)
	}

	return s.VerifyChallenge(ctx, identity, nonce, signature, core.LeaderboardMessageBuilder(score, username))
}

// VerifyCoinVote checks a signed up/down vote on a coin
func (s *AuthService) VerifyCoinVote(ctx context.Context, identity, nonce, signature, direction, mint string) (core.VoteDirection, error) {
	dir, err := core.ParseVoteDirection(direction)
	if err != nil {
		return "", fmt.Errorf("%w: direction must be UP or DOWN", core.ErrValidation)
	}
	if mint == "" {
		return "", fmt.Errorf("%w: mint is required", core.ErrValidation)
	}

	if err := s.VerifyChallenge(ctx, identity, nonce, signature, core.CoinVoteMessageBuilder(dir, mint)); err != nil {
		return "", err
	}

	return dir, nil
}
