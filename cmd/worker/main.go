package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/notify-engine/internal/config"
	"github.com/jwalitptl/notify-engine/internal/email"
	"github.com/jwalitptl/notify-engine/internal/repository/postgres"
	"github.com/jwalitptl/notify-engine/internal/worker"
	"github.com/jwalitptl/notify-engine/pkg/logger"
	"github.com/jwalitptl/notify-engine/pkg/messaging/redis"
)

// WorkerEnv holds worker-local overrides not shared with the API
// binary.
type WorkerEnv struct {
	HealthAddr string `envconfig:"WORKER_HEALTH_ADDR" default:":8081"`
}

func setupHealthCheck(addr string, l *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			l.ZL.Error().Err(err).Msg("health check server failed")
			os.Exit(1)
		}
	}()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	var env WorkerEnv
	if err := envconfig.Process("", &env); err != nil {
		log.Fatal().Err(err).Msg("failed to process worker env")
	}

	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	l := &logger.Logger{ZL: log.Logger}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		l.ZL.Fatal().Err(err).Msg("failed to connect to database")
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
		log.Fatal().Err(err).Msg("failed to create Redis broker")
	}
	defer broker.Close()

	deliveryWorker := worker.NewDeliveryWorker(
		postgres.NewNotificationRepository(db),
		postgres.NewRecipientResolver(db),
		email.NewService(cfg.SMTP),
		broker,
		cfg.Engine.SchedulerChannel,
		l,
	)

	setupHealthCheck(env.HealthAddr, l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.ZL.Info().Msg("shutting down...")
		cancel()
	}()

	if err := deliveryWorker.Run(ctx); err != nil {
		l.ZL.Fatal().Err(err).Msg("delivery worker failed")
	}
}
