package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/calima-dev/audixa/internal/infrastructure/configs"
	"github.com/calima-dev/audixa/internal/infrastructure/env"
	"github.com/calima-dev/audixa/internal/infrastructure/events"
	"github.com/calima-dev/audixa/internal/infrastructure/logging"
	"github.com/calima-dev/audixa/internal/infrastructure/messaging"
	"github.com/calima-dev/audixa/internal/infrastructure/metrics"
	"github.com/calima-dev/audixa/internal/persistence/db"
	"github.com/calima-dev/audixa/internal/persistence/repository"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	logger := logging.NewLogger(logging.NewDefaultConfig())

	cfg, err := configs.Load(configs.DetermineConfigPath())
	if err != nil {
		log.Fatal(err)
	}

	// SIGINT/SIGTERM cancel the context, which the consumer treats as the
	// clean-shutdown signal; every other failure keeps it retrying.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := db.NewMongoClient(ctx, cfg.Mongo)
	if err != nil {
		logger.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.DisconnectMongo(context.Background(), client)

	repo := repository.NewAuditLogRepository(db.GetDatabase(client, cfg.Mongo))
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Fatalf("Failed to ensure audit log indexes: %v", err)
	}

	m := metrics.New()

	metricsAddr := env.GetString("CONSUMER_METRICS_ADDR", ":9090")
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			logger.Errorf("metrics listener exited: %v", err)
		}
	}()

	rabbitmq := messaging.NewRabbitMQ(cfg.RabbitMQ.URI, cfg.RabbitMQ.DialTimeout, cfg.RabbitMQ.RecoveryInterval, logger)

	consumer := events.NewConsumer(rabbitmq, repo, logger, m, events.ConsumerOptions{
		Prefetch:       cfg.Consumer.Prefetch,
		MaxDeliveries:  cfg.Consumer.MaxDeliveries,
		BackoffInitial: cfg.Consumer.BackoffInitial,
		BackoffMax:     cfg.Consumer.BackoffMax,
	})

	logger.Info(logging.General, logging.Startup, "starting audit consumer", map[logging.ExtraKey]any{
		logging.Queue: messaging.AuditQueue,
	})

	if err := consumer.Run(ctx); err != nil {
		logger.Fatalf("Consumer exited with error: %v", err)
	}
}
