package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"vidria/internal/config"
	"vidria/internal/constants"
	"vidria/internal/listener"
	"vidria/internal/logger"
	"vidria/pkg/metrics"
)

type App struct {
	config     *config.Config
	logger     logger.Logger
	subscriber *listener.Subscriber
	server     *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("edge-listener")
	}
	return &App{
		config: cfg,
		logger: log,
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if a.config.MQTT.Host == "" {
		return fmt.Errorf("mqtt host is required")
	}
	if a.config.Listener.IngestURL == "" {
		return fmt.Errorf("listener ingest_url is required")
	}
	if a.config.Listener.TenantToken == "" {
		return fmt.Errorf("listener tenant_token is required")
	}

	forwarder := listener.NewForwarder(a.config.Listener, a.logger)
	a.subscriber = listener.NewSubscriber(a.config.MQTT, forwarder, a.logger)

	metrics.RegisterListenerMetrics()

	a.initHTTPServer()
	return nil
}

// initHTTPServer exposes metrics and liveness when a port is configured.
// Edge deployments often run without one.
func (a *App) initHTTPServer() {
	if a.config.Server.Port == 0 {
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339))
	})
	mux.Handle("/metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Server.Port),
		Handler: mux,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(func() error {
			a.logger.InfowCtx(ctx, "HTTP server starting", "port", a.config.Server.Port)
			if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		return a.subscriber.Run(gCtx)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.InfowCtx(ctx, "Shutting down edge listener")

	if a.server != nil {
		serverCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(serverCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}
	}

	a.logger.InfowCtx(ctx, "Edge listener exited successfully")
	return nil
}
