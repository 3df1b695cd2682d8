package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/notify-engine/internal/analysis"
	"github.com/jwalitptl/notify-engine/internal/config"
	notificationHandler "github.com/jwalitptl/notify-engine/internal/handler/notification"
	"github.com/jwalitptl/notify-engine/internal/middleware"
	"github.com/jwalitptl/notify-engine/internal/repository/postgres"
	"github.com/jwalitptl/notify-engine/internal/router"
	"github.com/jwalitptl/notify-engine/internal/scheduler"
	"github.com/jwalitptl/notify-engine/internal/service/channel"
	"github.com/jwalitptl/notify-engine/internal/service/dedup"
	notificationService "github.com/jwalitptl/notify-engine/internal/service/notification"
	"github.com/jwalitptl/notify-engine/internal/service/personalize"
	"github.com/jwalitptl/notify-engine/internal/service/profile"
	"github.com/jwalitptl/notify-engine/internal/service/timing"
	"github.com/jwalitptl/notify-engine/pkg/messaging/redis"
	"github.com/jwalitptl/notify-engine/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	// Repositories
	notificationRepo := postgres.NewNotificationRepository(db)
	configRepo := postgres.NewConfigRepository(db)
	profileSource := postgres.NewProfileDataSource(db)

	// Engine components
	m := metrics.New("notify_engine")
	analyzer := profile.NewAnalyzer(profileSource, profile.Config{
		CacheTTL:        cfg.Engine.ProfileCacheTTL,
		CleanupInterval: cfg.Engine.ProfileCacheCleanup,
		CallTimeout:     cfg.Engine.ExternalCallTimeout,
	}, m, log.Logger)
	personalizer := personalize.NewPersonalizer(analysis.NewKeywordAnalyzer(), cfg.Engine.ExternalCallTimeout, log.Logger)
	selector := channel.NewSelector(channel.NewStaticChecker(), cfg.Engine.ExternalCallTimeout, log.Logger)
	optimizer := timing.NewOptimizer(cfg.Engine.TimingBuffer)
	guard := dedup.NewGuard(notificationRepo, cfg.Engine.DedupWindow, cfg.Engine.DedupThreshold)
	deliveryScheduler := scheduler.NewBrokerScheduler(broker, cfg.Engine.SchedulerChannel)

	engine := notificationService.NewService(
		configRepo,
		notificationRepo,
		analyzer,
		personalizer,
		selector,
		optimizer,
		guard,
		deliveryScheduler,
		cfg.Engine,
		m,
		log.Logger,
	)

	// HTTP surface
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	notifHandler := notificationHandler.NewHandler(engine)
	r := router.NewRouter(authMiddleware, notifHandler, router.Config{
		RateLimit: rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst: cfg.RateLimit.Burst,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("notification engine listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
