package main

import (
	"context"
	"expvar"
	"log"
	"runtime"

	"github.com/calima-dev/audixa/internal/infrastructure/configs"
	"github.com/calima-dev/audixa/internal/infrastructure/logging"
	"github.com/calima-dev/audixa/internal/infrastructure/metrics"
	"github.com/calima-dev/audixa/internal/infrastructure/ratelimiter"
	"github.com/calima-dev/audixa/internal/infrastructure/tracing"
	"github.com/calima-dev/audixa/internal/persistence/db"
	"github.com/calima-dev/audixa/internal/persistence/repository"
	"github.com/calima-dev/audixa/internal/presentation/api"
	"github.com/calima-dev/audixa/internal/presentation/handler/audit"
	"github.com/calima-dev/audixa/internal/presentation/handler/health"
)

const serviceName = "audixa-api"

func main() {
	tracerCfg := tracing.NewDefaultConfig(serviceName)

	sh, err := tracing.InitTracer(tracerCfg)
	if err != nil {
		log.Fatalf("Failed to initialize the tracer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer sh(ctx)

	logger := logging.NewLogger(logging.NewDefaultConfig())

	cfg, err := configs.Load(configs.DetermineConfigPath())
	if err != nil {
		log.Fatal(err)
	}

	client, err := db.NewMongoClient(ctx, cfg.Mongo)
	if err != nil {
		logger.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.DisconnectMongo(context.Background(), client)

	logger.Info(logging.MongoDB, logging.Startup, "connected to MongoDB", map[logging.ExtraKey]any{
		"database": cfg.Mongo.Database,
	})

	repo := repository.NewAuditLogRepository(db.GetDatabase(client, cfg.Mongo))
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Fatalf("Failed to ensure audit log indexes: %v", err)
	}

	m := metrics.New()

	auditHandler := audit.NewHandler(repo, logger)
	healthHandler := health.NewHandler()

	rl := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: cfg.RateLimiter.MaxRatePerSecond,
		MaxBurst:         cfg.RateLimiter.MaxBurst,
		SourceHeaderKey:  cfg.RateLimiter.SourceHeaderKey,
		IdleTTL:          cfg.RateLimiter.CacheTTL,
	})

	app := api.NewApplication(*cfg, *auditHandler, *healthHandler, logger, m, rl)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.Mount()
	if err := app.Run(mux); err != nil {
		logger.Fatalf("Server exited with error: %v", err)
	}
}
