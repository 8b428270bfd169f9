package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/memocracy/gatekeeper/adapters/tokenizer"
	"github.com/memocracy/gatekeeper/adapters/verifier"
	"github.com/memocracy/gatekeeper/service"
	transport "github.com/memocracy/gatekeeper/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	res := &resources{}
	defer res.Close()

	stores, redisClient, err := openBackend(ctx, cfg, res)
	if err != nil {
		return err
	}

	eventPub, err := openPublisher(ctx, cfg, redisClient, res)
	if err != nil {
		return err
	}

	signKey, err := tokenizer.LoadSigningKey(cfg.SessionSigningKey)
	if err != nil {
		return err
	}
	if cfg.SessionSigningKey == "" {
		logger.Warn("SESSION_SIGNING_KEY not set, sessions will not survive a restart")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	chainClient := newChainClient(cfg, registry)
	res.add(chainClient.Close)

	svcs := transport.Services{
		Auth: service.NewAuthService(
			stores,
			stores,
			verifier.NewEd25519Verifier(),
			tokenizer.NewJWTTokenizer(signKey),
			eventPub,
			cfg.SessionTTL,
			logger,
		),
		Polls:           service.NewPollService(stores, newEligibilityService(cfg, chainClient), logger),
		TrustScores:     service.NewTrustScoreService(stores, eventPub, logger),
		FoundingWallets: service.NewFoundingWalletService(stores, eventPub, logger),
	}

	gin.SetMode(gin.ReleaseMode)
	if cfg.OperatorAPIKey == "" {
		logger.Warn("OPERATOR_API_KEY not set, /admin routes are closed")
	}

	router := transport.SetupRouter(svcs, transport.RouterOptions{
		CookieName:  cfg.SessionCookieName,
		OperatorKey: cfg.OperatorAPIKey,
		Registry:    registry,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      transport.WithCORS(router, cfg.CORSOrigins),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gatekeeper listening",
			zap.String("addr", cfg.ServerAddr),
			zap.String("store", cfg.StoreBackend),
			zap.String("database", cfg.MaskedDatabaseURL()),
			zap.String("operator_key", cfg.MaskedOperatorAPIKey()),
			zap.Bool("events", cfg.EventsEnabled),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
