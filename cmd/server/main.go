// Package main provides the entry point for the PubMed harvester API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"github.com/helixir/pubmed-harvester/internal/app"
	"github.com/helixir/pubmed-harvester/internal/config"
	"github.com/helixir/pubmed-harvester/internal/events"
	"github.com/helixir/pubmed-harvester/internal/observability"
	httpserver "github.com/helixir/pubmed-harvester/internal/server/http"
	"github.com/helixir/pubmed-harvester/internal/temporal"
)

// healthService is the gRPC health service name reported by the server.
const healthService = "pubmed.harvester.v1.Harvester"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := app.LoggerFromConfig(cfg.Logging)
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("pubmed-harvester server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace)
	}

	harvester, err := app.New(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer harvester.Close(context.Background())

	checks := make([]httpserver.HealthCheck, 0, len(harvester.Dependencies)+1)
	for _, dep := range harvester.Dependencies {
		checks = append(checks, httpserver.HealthCheck{Name: dep.Name, Check: dep.Ping})
	}

	// Temporal is optional; without it harvest requests run in process.
	var workflowClient *temporal.HarvestWorkflowClient
	if cfg.Temporal.Enabled {
		clientCfg := temporal.ClientConfigFromConfig(cfg.Temporal)
		clientCfg.Logger = observability.NewTemporalLogger(logger)

		temporalClient, err := temporal.NewClient(ctx, clientCfg)
		if err != nil {
			return fmt.Errorf("connect to temporal: %w", err)
		}
		workflowClient = temporal.NewHarvestWorkflowClientWithConfig(temporalClient, clientCfg)
		defer workflowClient.Close()

		checks = append(checks, httpserver.HealthCheck{Name: "temporal", Check: workflowClient.Health})
		logger.Info().
			Str("host_port", cfg.Temporal.HostPort).
			Str("namespace", cfg.Temporal.Namespace).
			Msg("temporal client connected")
	}

	// Kafka harvest requests and completion events.
	var listener *events.Listener
	if cfg.Kafka.Enabled {
		publisher := events.NewPublisher(events.PublisherConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.CompletedTopic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		}, logger, metrics)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close kafka publisher")
			}
		}()

		var handler events.Handler
		if workflowClient != nil {
			// The worker publishes outcomes from inside the workflow.
			handler = temporal.NewRequestHandler(workflowClient, cfg.Harvest.MaxRelated, true, logger)
		} else {
			handler = events.NewDirectHandler(harvester.Runner, publisher, logger)
		}

		listener = events.NewListener(events.ListenerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.RequestTopic,
			GroupID: cfg.Kafka.GroupID,
		}, handler, logger, metrics)
		defer func() {
			if err := listener.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close kafka listener")
			}
		}()
	}

	deps := httpserver.Deps{
		Harvester:  harvester.Pipeline,
		Related:    harvester.Grapher,
		Articles:   harvester.Articles,
		Links:      harvester.Links,
		MaxRelated: cfg.Harvest.MaxRelated,
		Checks:     checks,
	}
	// Leave the interface nil rather than holding a typed nil pointer.
	if workflowClient != nil {
		deps.Workflows = workflowClient
	}

	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	httpSrv := httpserver.NewServer(httpCfg, deps, logger)

	// gRPC serves health and reflection for orchestrators.
	grpcServer := grpc.NewServer(
		grpc.MaxRecvMsgSize(16*1024*1024), // 16MB
		grpc.MaxSendMsgSize(16*1024*1024), // 16MB
		grpc.MaxConcurrentStreams(100),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     15 * time.Minute,
			MaxConnectionAge:      30 * time.Minute,
			MaxConnectionAgeGrace: 5 * time.Minute,
			Time:                  5 * time.Minute,
			Timeout:               1 * time.Minute,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Minute,
			PermitWithoutStream: true,
		}),
	)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(healthService, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	grpcAddr := cfg.Server.GRPCAddress()
	grpcListener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listen on gRPC port: %w", err)
	}

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 4)

	go func() {
		logger.Info().Str("address", grpcAddr).Msg("gRPC server starting")
		if err := grpcServer.Serve(grpcListener); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	if listener != nil {
		go runListener(ctx, listener, errCh, logger)
	}

	readyLog := logger.Info().
		Str("grpc_address", grpcAddr).
		Str("http_address", httpCfg.Address).
		Str("store", cfg.Store.Driver).
		Bool("temporal", cfg.Temporal.Enabled).
		Bool("kafka", cfg.Kafka.Enabled)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("pubmed-harvester is ready")

	// Wait for shutdown signal or server error.
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("server error")
	}

	logger.Info().Msg("shutting down pubmed-harvester")
	healthServer.SetServingStatus(healthService, healthpb.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		logger.Info().Msg("gRPC server stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Warn().Msg("gRPC server forced shutdown due to timeout")
		grpcServer.Stop()
	}

	logger.Info().Msg("pubmed-harvester shutdown complete")
	return runErr
}

// runListener consumes harvest requests until ctx is cancelled.
func runListener(ctx context.Context, listener *events.Listener, errCh chan<- error, logger zerolog.Logger) {
	logger.Info().Msg("harvest request listener starting")
	if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		errCh <- fmt.Errorf("harvest request listener error: %w", err)
	}
}
