package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/memocracy/gatekeeper/core"
	"github.com/memocracy/gatekeeper/service"
	"go.uber.org/zap"
)

// errInvalidChallenge is the single public answer to a failed challenge
const errInvalidChallenge = "invalid nonce or signature"

// Handlers contains the HTTP handlers
type Handlers struct {
	auth        *service.AuthService
	polls       *service.PollService
	trustScores *service.TrustScoreService
	wallets     *service.FoundingWalletService
	cookieName  string
	logger      *zap.Logger
}

// NewHandlers creates new handlers
func NewHandlers(svcs Services, cookieName string, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		auth:        svcs.Auth,
		polls:       svcs.Polls,
		trustScores: svcs.TrustScores,
		wallets:     svcs.FoundingWallets,
		cookieName:  cookieName,
		logger:      logger.Named("http"),
	}
}

// signedRequest is the common body of every signed challenge
type signedRequest struct {
	Address   string `json:"address" binding:"required"`
	Nonce     string `json:"nonce" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// Nonce issues a login nonce
func (h *Handlers) Nonce(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	nonce, err := h.auth.IssueNonce(c.Request.Context(), req.Address)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nonce":   nonce,
		"message": core.LoginMessage(nonce),
	})
}

// Login verifies the signed login message and opens a session
func (h *Handlers) Login(c *gin.Context) {
	var req signedRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, session, err := h.auth.Login(c.Request.Context(), req.Address, req.Nonce, req.Signature)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, token, int(h.auth.SessionTTL().Seconds()), "/", "", c.Request.TLS != nil, true)

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"address":    session.Address,
		"expires_at": session.ExpiresAt.UTC(),
	})
}

// Logout invalidates the current session and clears the cookie
func (h *Handlers) Logout(c *gin.Context) {
	token := tokenFromRequest(c, h.cookieName)

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, "", -1, "/", "", c.Request.TLS != nil, true)

	if token == "" {
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
		return
	}

	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the authenticated wallet
func (h *Handlers) Me(c *gin.Context) {
	session, ok := SessionFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":    session.Address,
		"session_id": session.ID,
		"expires_at": session.ExpiresAt.UTC(),
	})
}

// Eligibility evaluates the authenticated wallet against the stored policy of a poll
func (h *Handlers) Eligibility(c *gin.Context) {
	session, ok := SessionFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session not found in context"})
		return
	}

	var req struct {
		PollID string `json:"poll_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	decision, err := h.polls.Evaluate(c.Request.Context(), req.PollID, session.Address)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, decision)
}

// SavePolicy stores the access policy of the poll in the path
func (h *Handlers) SavePolicy(c *gin.Context) {
	var policy core.AccessPolicy
	if err := c.ShouldBindJSON(&policy); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	policy.PollID = c.Param("id")

	saved, err := h.polls.SavePolicy(c.Request.Context(), policy)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, saved)
}

// GetPolicy returns the stored access policy of a poll
func (h *Handlers) GetPolicy(c *gin.Context) {
	policy, err := h.polls.Policy(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, policy)
}

// VerifyLeaderboard verifies a signed leaderboard submission
func (h *Handlers) VerifyLeaderboard(c *gin.Context) {
	var req struct {
		signedRequest
		Score    *int64 `json:"score" binding:"required"`
		Username string `json:"username" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	err := h.auth.VerifyLeaderboardSubmission(c.Request.Context(), req.Address, req.Nonce, req.Signature, *req.Score, req.Username)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"verified": true,
		"address":  req.Address,
		"score":    *req.Score,
		"username": req.Username,
	})
}

// VerifyCoinVote verifies a signed vote on the coin in the path
func (h *Handlers) VerifyCoinVote(c *gin.Context) {
	var req struct {
		signedRequest
		Direction string `json:"direction" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	mint := c.Param("mint")
	direction, err := h.auth.VerifyCoinVote(c.Request.Context(), req.Address, req.Nonce, req.Signature, req.Direction, mint)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"verified":  true,
		"address":   req.Address,
		"mint":      mint,
		"direction": direction,
	})
}

// GetTrustScore returns the persisted trust score of a coin
func (h *Handlers) GetTrustScore(c *gin.Context) {
	score, err := h.trustScores.Get(c.Request.Context(), c.Param("mint"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"score": score,
		"stale": service.IsStale(score.LastCheckedAt, time.Now()),
	})
}

// EvaluateTrustScore scores a coin from the posted metrics. The persisted
// score is returned while fresh unless force=true.
func (h *Handlers) EvaluateTrustScore(c *gin.Context) {
	var metrics core.CoinMetrics
	if err := c.ShouldBindJSON(&metrics); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	mint := c.Param("mint")
	force, _ := strconv.ParseBool(c.Query("force"))

	var (
		score      *core.CoinScore
		recomputed = true
		err        error
	)
	if force {
		score, err = h.trustScores.Recompute(c.Request.Context(), mint, metrics)
	} else {
		score, recomputed, err = h.trustScores.Evaluate(c.Request.Context(), mint, func(context.Context, string) (core.CoinMetrics, error) {
			return metrics, nil
		})
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"score":      score,
		"recomputed": recomputed,
	})
}

// GetFoundingWalletScore returns the persisted reputation of a founding wallet
func (h *Handlers) GetFoundingWalletScore(c *gin.Context) {
	score, err := h.wallets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, score)
}

// ScoreFoundingWallet scores the posted wallet state
func (h *Handlers) ScoreFoundingWallet(c *gin.Context) {
	var state core.FoundingWalletState
	if err := c.ShouldBindJSON(&state); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	state.WalletID = c.Param("id")

	score, err := h.wallets.Recompute(c.Request.Context(), state)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, score)
}

// writeError maps service errors to status codes. Nonce and signature
// failures share one response.
func (h *Handlers) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidNonce), errors.Is(err, core.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidChallenge})
	case errors.Is(err, core.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, core.ErrTokenExpired), errors.Is(err, core.ErrTokenInvalidated), errors.Is(err, core.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session"})
	case errors.Is(err, core.ErrChainQuery):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Ledger unavailable"})
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
