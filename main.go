package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "leap/docs"
	"leap/internal/auth"
	"leap/internal/config"
	"leap/internal/handlers"
	"leap/internal/logging"
	"leap/internal/queue"
	"leap/internal/storage"
	"leap/internal/tasks"
	"leap/internal/ws"
)

// servedLedger records served members and can drop old records.
type servedLedger interface {
	queue.ServedLedger
	tasks.ServedPurger
}

// @Title						Leap venue queue API
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	cfg, err := config.Load(os.Getenv("LEAP_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	loc, _ := cfg.Queue.Location()
	clock := queue.ResetClock{Hour: cfg.Queue.ResetHour, Location: loc}

	var (
		store    queue.Store
		ledger   servedLedger
		resolver auth.IdentityResolver = auth.ClaimsResolver{}
		venues   handlers.VenueChecker
	)
	switch cfg.Database.Driver {
	case "memory":
		store, ledger = storage.NewMemoryQueueStore(), storage.NewMemoryServedLedger()
		logger.Warn().Msg("using in-memory queue store, state is lost on restart")
	default:
		db, err := storage.ConnectDatabase(cfg.Database)
		if err != nil {
			logger.Fatal().Err(err).Msg("database unavailable")
		}
		directory := storage.NewDirectory(db)
		store, ledger = storage.NewQueueStore(db), storage.NewServedLedger(db)
		resolver = auth.DirectoryResolver{Users: directory}
		venues = directory
	}

	hub := ws.NewHub(logger)
	go hub.Run(ctx)

	var broadcaster queue.Broadcaster = hub
	if cfg.Redis.Enabled() {
		client, err := storage.InitRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis unavailable")
		}
		defer client.Close()
		relay := ws.NewRedisRelay(client, hub, cfg.Redis.Channel, logger)
		go relay.Run(ctx)
		broadcaster = relay
	}

	opts := []queue.Option{queue.WithDefaultMaxLength(cfg.Queue.DefaultMaxLength)}
	if cfg.Queue.RejoinCooldown {
		opts = append(opts, queue.WithServedLedger(ledger, clock))
		scheduler, err := tasks.InitScheduler(ledger, clock, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("scheduler")
		}
		defer scheduler.Stop()
	}
	service := queue.NewService(store, broadcaster, logger, opts...)

	turnSecret := cfg.Auth.TurnSecret
	if turnSecret == "" {
		turnSecret = cfg.Auth.AccessSecret
	}
	tokens := auth.NewTurnTokens([]byte(turnSecret), cfg.Auth.TurnTTL())

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), logging.GinLogger(logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/health", handlers.HealthHandler)

	api := r.Group("/api", auth.AuthMiddleware([]byte(cfg.Auth.AccessSecret), resolver, logger))
	handlers.NewQueueHandler(service, tokens, hub, logger).Register(api, venues)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	// Run in background so we can wait for the shutdown signal.
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Str("driver", cfg.Database.Driver).Bool("relay", cfg.Redis.Enabled()).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
	stop()
	logger.Info().Msg("server stopped")
}
