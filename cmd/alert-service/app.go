package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"vidria/internal/config"
	"vidria/internal/constants"
	"vidria/internal/engine"
	"vidria/internal/events"
	"vidria/internal/logger"
	"vidria/internal/notifier"
	"vidria/internal/rules"
	"vidria/internal/tenants"
	"vidria/pkg/bootstrap"
	"vidria/pkg/health"
	"vidria/pkg/logging"
	"vidria/pkg/metrics"
	"vidria/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	service        *engine.Service
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("alert-service")
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := a.initService(ctx); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	if err := a.InitBroker("alert-service"); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing, "alert-service")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterEngineMetrics()
	metrics.RegisterBrokerMetrics()
	metrics.RegisterCircuitBreakerMetrics()

	if err := a.initHTTPServer(); err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	return nil
}

func (a *App) initDatabase(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	a.db = db
	return nil
}

func (a *App) initService(ctx context.Context) error {
	tenantRepo := tenants.NewRepository(a.db)
	ruleRepo := rules.NewRepository(a.db)
	eventRepo := events.NewRepository(a.db)

	var sender notifier.Notifier
	if a.Config.WhatsApp.AccessToken != "" && a.Config.WhatsApp.PhoneNumberID != "" {
		sender = notifier.NewWhatsAppNotifier(a.Config.WhatsApp, a.Logger)
	} else {
		initCtx := logging.WithServiceName(ctx, "alert-service")
		a.Logger.WarnwCtx(initCtx, "WhatsApp credentials not configured, alerts will be dropped")
		sender = notifier.NopNotifier{}
	}

	svc, err := engine.NewService(tenantRepo, ruleRepo, eventRepo, sender, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create engine service: %w", err)
	}

	a.service = svc
	return nil
}

func (a *App) initHTTPServer() error {
	if a.Config.Server.Port == 0 {
		return nil
	}

	mux := http.NewServeMux()

	healthRegistry := health.NewCheckerRegistry()
	if a.db != nil {
		healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := healthRegistry.Check(r.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		fmt.Fprintf(w, `{"status":"%s","timestamp":"%s"}`, h.Status, h.Timestamp.Format(time.RFC3339))
	})

	mux.Handle("/metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: mux,
	}

	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(func() error {
			a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
			if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

	eventsTopic := a.Config.Broker.Kafka.EventsTopic
	g.Go(func() error {
		consumeCtx := logging.WithServiceName(gCtx, "alert-service")
		a.Logger.InfowCtx(consumeCtx, "Starting detection event consumer",
			"topic", eventsTopic,
		)
		return a.Consumer.Consume(gCtx, eventsTopic, a.service.Evaluate)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, "alert-service")
	a.Logger.InfowCtx(shutdownCtx, "Shutting down alert service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			serverCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(serverCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(nil, a.db)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
