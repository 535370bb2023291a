package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"proptx/server/config"
	"proptx/server/internal/api"
	"proptx/server/internal/database"
	"proptx/server/internal/payment"
	"proptx/server/internal/processor"
	"proptx/server/internal/queue"
	"proptx/server/internal/reconcile"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.ValidateServer(); err != nil {
		logger.WithError(err).Fatal("Invalid server configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithField("log_level", cfg.LogLevel).Warn("Unknown log level, using info")
	}

	db, err := database.NewDatabase(cfg.Database.Driver, cfg.Database.DSN, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	var payments *payment.Client
	if cfg.Flutterwave.SecretKey != "" {
		payments = payment.NewClient(cfg.Flutterwave.BaseURL, cfg.Flutterwave.SecretKey, logger)
	} else {
		logger.Warn("FLW_SECRET_KEY is not set, payment verification and checkout are disabled")
	}

	// Webhook settlements are applied by a worker pool fed from the queue.
	settlements := queue.NewSettlementQueue(cfg.Webhooks.QueueSize, logger)
	var verifier reconcile.Verifier
	if payments != nil {
		verifier = payments
	}
	settlementProcessor := processor.NewSettlementProcessor(
		reconcile.NewService(db.DB(), verifier, logger), settlements, cfg, logger)
	settlementProcessor.Start()

	handler := api.NewHandler(db.DB(), api.Options{
		Payments:    payments,
		Settlements: settlements,
		WebhookHash: cfg.Flutterwave.WebhookHash,
	}, logger)

	stopCleanup := make(chan struct{})
	webhookLimiter := api.NewRateLimiter(cfg.Webhooks.RateLimit, cfg.Webhooks.RateBurst)
	webhookLimiter.StartCleanup(5*time.Minute, stopCleanup)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(api.CORS(cfg.CORSOrigins))
	api.SetupRoutes(router, handler, api.AuthMiddleware(db.DB(), []byte(cfg.JWTSecret)), webhookLimiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	close(stopCleanup)

	// Drain settlements accepted before shutdown.
	settlementProcessor.Stop()
	logger.Info("Server exited")
}
