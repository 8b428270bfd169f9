package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/memocracy/gatekeeper/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// DefaultCookieName is used when RouterOptions.CookieName is empty
const DefaultCookieName = "gatekeeper_session"

// Services are the application services behind the router
type Services struct {
	Auth            *service.AuthService
	Polls           *service.PollService
	TrustScores     *service.TrustScoreService
	FoundingWallets *service.FoundingWalletService
}

// RouterOptions configure the router
type RouterOptions struct {
	CookieName  string
	OperatorKey string               // empty closes the /admin routes
	Registry    *prometheus.Registry // serves /metrics when set
	Logger      *zap.Logger
}

// SetupRouter sets up the Gin router
func SetupRouter(svcs Services, opts RouterOptions) *gin.Engine {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(opts.Logger))

	if opts.Registry != nil {
		router.Use(NewMetrics(opts.Registry).Middleware())
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{Registry: opts.Registry})))
	}

	// Create handlers
	handlers := NewHandlers(svcs, opts.CookieName, opts.Logger)
	requireSession := SessionMiddleware(svcs.Auth, opts.CookieName)

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/nonce", handlers.Nonce)
		auth.POST("/login", handlers.Login)
		auth.POST("/logout", handlers.Logout)
	}

	// Signed actions and score reads
	public := router.Group("/api")
	{
		public.POST("/leaderboard/verify", handlers.VerifyLeaderboard)
		public.POST("/coins/:mint/votes/verify", handlers.VerifyCoinVote)
		public.GET("/coins/:mint/trust-score", handlers.GetTrustScore)
		public.GET("/founding-wallets/:id/score", handlers.GetFoundingWalletScore)
	}

	// Session routes
	api := router.Group("/api")
	api.Use(requireSession)
	{
		api.GET("/me", handlers.Me)
		api.POST("/eligibility", handlers.Eligibility)
	}

	// Operator routes
	admin := router.Group("/admin")
	admin.Use(OperatorMiddleware(opts.OperatorKey))
	{
		admin.PUT("/polls/:id/policy", handlers.SavePolicy)
		admin.GET("/polls/:id/policy", handlers.GetPolicy)
		admin.POST("/coins/:mint/trust-score", handlers.EvaluateTrustScore)
		admin.POST("/founding-wallets/:id/score", handlers.ScoreFoundingWallet)
	}

	return router
}

// WithCORS allows credentialed cross-origin requests from origins. No
// origins leaves h unchanged.
func WithCORS(h http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		return h
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", OperatorKeyHeader},
		AllowCredentials: true,
	})
	return c.Handler(h)
}
