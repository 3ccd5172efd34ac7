package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calima-dev/audixa/internal/infrastructure/configs"
	"github.com/calima-dev/audixa/internal/infrastructure/logging"
	"github.com/calima-dev/audixa/internal/infrastructure/metrics"
	"github.com/calima-dev/audixa/internal/infrastructure/ratelimiter"
	auditHandler "github.com/calima-dev/audixa/internal/presentation/handler/audit"
	healthHandler "github.com/calima-dev/audixa/internal/presentation/handler/health"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Application struct {
	config        configs.Config
	auditHandler  auditHandler.Handler
	healthHandler healthHandler.Handler
	logger        logging.Logger
	metrics       *metrics.Metrics
	ratelimiter   ratelimiter.Limiter
}

func NewApplication(
	config configs.Config,
	auditHandler auditHandler.Handler,
	healthHandler healthHandler.Handler,
	logger logging.Logger,
	m *metrics.Metrics,
	ratelimiter ratelimiter.Limiter,
) *Application {
	return &Application{
		config:        config,
		auditHandler:  auditHandler,
		healthHandler: healthHandler,
		logger:        logger,
		metrics:       m,
		ratelimiter:   ratelimiter,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(app.loggerMiddleware)
	r.Use(app.prometheusMiddleware)
	r.Use(app.rateLimiterMiddleware)
	r.Use(app.enableCors)

	r.Route("/audit", func(r chi.Router) {
		r.Get("/", app.auditHandler.ListHandler)
		r.Post("/", app.auditHandler.CreateHandler)
		r.Get("/invoices/{id}", app.auditHandler.ShowInvoiceHandler)
		r.Get("/clients/{id}", app.auditHandler.ShowClientHandler)
		r.Get("/{resourceId}", app.auditHandler.ShowHandler)
	})

	r.Get("/health", app.healthHandler.GetHealth)
	r.Get("/healthz", app.healthHandler.GetHealth)
	r.Get("/ready", app.healthHandler.GetHealth)
	r.Get("/live", app.healthHandler.GetHealth)

	r.Handle("/metrics", promhttp.Handler())

	return otelhttp.NewHandler(r, "audixa-api")
}

func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Info(logging.General, logging.Shutdown, "signal caught", map[logging.ExtraKey]any{
			"signal": s.String(),
		})

		// Start failing health checks so load balancers stop routing here
		// while in-flight requests finish.
		app.healthHandler.MarkUnhealthy()

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Info(logging.General, logging.Startup, "server has started", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Info(logging.General, logging.Shutdown, "server has stopped", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	return nil
}
