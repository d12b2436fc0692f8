package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rajcricket/Free-Donuts/internal/bot"
	"github.com/rajcricket/Free-Donuts/internal/config"
	"github.com/rajcricket/Free-Donuts/internal/db"
	"github.com/rajcricket/Free-Donuts/internal/db/repository"
	"github.com/rajcricket/Free-Donuts/internal/handler"
	"github.com/rajcricket/Free-Donuts/internal/service"
	"github.com/rajcricket/Free-Donuts/internal/telegram"
	"github.com/rajcricket/Free-Donuts/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close(pool)

	logger.Log.Info("database connection established",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Name),
	)

	chat, err := telegram.New(cfg.Telegram.Token)
	if err != nil {
		logger.Log.Fatal("failed to connect to Telegram", zap.Error(err))
	}
	logger.Log.Info("authorized on Telegram", zap.String("username", chat.Username()))

	fileRepo := repository.NewFileRepository(pool)
	batchRepo := repository.NewBatchRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	// Optional ops event publisher. An empty host leaves it nil and
	// every publish call becomes a no-op.
	var publisher *service.MessagePublisher
	if cfg.RabbitMQ.Host != "" {
		publisher, err = service.NewMessagePublisher(&cfg.RabbitMQ)
		if err != nil {
			logger.Log.Warn("event publisher unavailable, continuing without it", zap.Error(err))
			publisher = nil
		} else {
			defer publisher.Close()
			logger.Log.Info("event publisher connected", zap.String("host", cfg.RabbitMQ.Host))
		}
	}

	gate := service.NewSubscriptionGate(chat, cfg.Gate)
	collector := service.NewBatchCollector(batchRepo)
	router := service.NewDistributionRouter(chat, fileRepo, cfg.Routes, cfg.Telegram.ArchiveChannel)
	classifier := service.NewClassifier(chat, fileRepo, batchRepo, router, cfg.Tags.Products, cfg.Tags.Flavors)
	broadcast := service.NewBroadcastEngine(chat, userRepo, cfg.Broadcast.RatePerSecond, cfg.Broadcast.Burst, cfg.Broadcast.ProgressInterval)
	if publisher != nil {
		router.SetEventPublisher(publisher)
		broadcast.SetEventPublisher(publisher)
	}

	dispatcher := bot.New(chat, cfg, fileRepo, userRepo, gate, collector, classifier, broadcast)

	server := newServer(cfg, pool, publisher)
	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Info("keep-alive server starting", zap.Int("port", cfg.Server.Port))
		serverErrors <- server.ListenAndServe()
	}()

	updates := chat.Updates(cfg.Telegram.PollTimeout)
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(ctx, updates)
	}()

	logger.Log.Info("bot started")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Log.Error("keep-alive server error", zap.Error(err))
	case sig := <-shutdown:
		logger.Log.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	// Stop polling first so the update channel drains and closes, then
	// cancel in-flight work and take the HTTP server down.
	chat.StopPolling()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("keep-alive server shutdown failed", zap.Error(err))
	}

	select {
	case <-dispatcherDone:
	case <-shutdownCtx.Done():
		logger.Log.Warn("dispatcher did not stop before the shutdown deadline")
	}

	logger.Log.Info("bot stopped gracefully")
}

// newServer builds the keep-alive HTTP server with health probes and
// metrics.
func newServer(cfg *config.Config, pool handler.Pinger, publisher *service.MessagePublisher) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	health := handler.NewHealthHandler(pool, publisher)
	engine.GET("/", health.KeepAlive)
	engine.GET("/healthz", health.LivenessProbe)
	engine.GET("/readyz", health.ReadinessProbe)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
