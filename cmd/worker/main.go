// Package main provides the entry point for the harvest Temporal worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/helixir/pubmed-harvester/internal/app"
	"github.com/helixir/pubmed-harvester/internal/config"
	"github.com/helixir/pubmed-harvester/internal/events"
	"github.com/helixir/pubmed-harvester/internal/observability"
	"github.com/helixir/pubmed-harvester/internal/temporal"
	"github.com/helixir/pubmed-harvester/internal/temporal/activities"
	"github.com/helixir/pubmed-harvester/internal/temporal/workflows"
)

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
	logger = logger.With().Str("component", "worker").Logger()
	logger.Info().Msg("pubmed-harvester worker starting")

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

	// Outcomes go to Kafka when it is configured, otherwise to the log.
	var publisher events.CompletionPublisher
	if cfg.Kafka.Enabled {
		kafkaPublisher := events.NewPublisher(events.PublisherConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.CompletedTopic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		}, logger, metrics)
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close kafka publisher")
			}
		}()
		publisher = kafkaPublisher
	} else {
		publisher = events.NewLogPublisher(logger)
	}

	// Create Temporal client.
	clientCfg := temporal.ClientConfigFromConfig(cfg.Temporal)
	clientCfg.Logger = observability.NewTemporalLogger(logger)
	temporalClient, err := temporal.NewClient(ctx, clientCfg)
	if err != nil {
		return fmt.Errorf("connect to temporal: %w", err)
	}
	defer temporalClient.Close()
	logger.Info().
		Str("host_port", cfg.Temporal.HostPort).
		Str("namespace", cfg.Temporal.Namespace).
		Msg("temporal client connected")

	manager, err := temporal.NewWorkerManager(temporalClient, temporal.DefaultWorkerConfig(cfg.Temporal.TaskQueue))
	if err != nil {
		return fmt.Errorf("create worker: %w", err)
	}

	manager.RegisterWorkflow(workflows.HarvestWorkflow, temporal.HarvestWorkflowName)
	manager.RegisterActivity(activities.NewHarvestActivities(harvester.Pipeline, harvester.Grapher, harvester.Articles))
	manager.RegisterActivity(activities.NewEventActivities(publisher))

	logger.Info().
		Str("task_queue", manager.TaskQueue()).
		Str("store", cfg.Store.Driver).
		Bool("kafka", cfg.Kafka.Enabled).
		Msg("worker registered, polling for tasks")

	if err := manager.Start(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("worker stopped via signal")
			return nil
		}
		return fmt.Errorf("worker error: %w", err)
	}
	return nil
}
