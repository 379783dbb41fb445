// Package app wires the harvester's stores, PubMed client and harvest
// services from configuration. The server, worker and CLI binaries share it.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/helixir/pubmed-harvester/internal/config"
	"github.com/helixir/pubmed-harvester/internal/database"
	"github.com/helixir/pubmed-harvester/internal/graphstore"
	"github.com/helixir/pubmed-harvester/internal/harvest"
	"github.com/helixir/pubmed-harvester/internal/observability"
	"github.com/helixir/pubmed-harvester/internal/papersources/pubmed"
	"github.com/helixir/pubmed-harvester/internal/repository"
	"github.com/helixir/pubmed-harvester/internal/repository/sqlitestore"
)

// ServiceName is reported in logs and readiness output.
const ServiceName = "pubmed-harvester"

// Dependency is a named readiness check.
type Dependency struct {
	Name string
	Ping func(ctx context.Context) error
}

// App holds the wired harvest services and the resources behind them.
type App struct {
	Articles repository.ArticleRepository
	Links    repository.LinkRepository
	Source   *pubmed.Client
	Pipeline *harvest.Pipeline
	Grapher  *harvest.Grapher
	Runner   *harvest.Runner

	// Dependencies lists the stores the app talks to, for readiness checks.
	Dependencies []Dependency

	closers []func(ctx context.Context)
	logger  zerolog.Logger
}

// New opens the configured stores and builds the harvest services on top of
// them. metrics may be nil. Close releases everything New opened.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, metrics *observability.Metrics) (*App, error) {
	a := &App{logger: logger}

	if err := a.openStore(ctx, cfg, logger); err != nil {
		a.Close(ctx)
		return nil, err
	}

	if cfg.Graph.Enabled {
		graph, err := graphstore.New(ctx, cfg.Graph, logger)
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("connect to neo4j: %w", err)
		}
		a.closers = append(a.closers, func(ctx context.Context) {
			if err := graph.Close(ctx); err != nil {
				logger.Error().Err(err).Msg("failed to close neo4j driver")
			}
		})
		if err := graph.EnsureSchema(ctx); err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("ensure graph schema: %w", err)
		}
		a.Links = graph.Links()
		a.Dependencies = append(a.Dependencies, Dependency{Name: "neo4j", Ping: graph.Ping})
	}

	a.Source = pubmed.New(PubMedConfig(cfg.PubMed, metrics))
	a.Pipeline = harvest.NewPipeline(
		harvest.Config{SkipMalformed: cfg.Harvest.SkipMalformed},
		a.Source, a.Source, a.Articles, logger, metrics,
	)
	a.Grapher = harvest.NewGrapher(a.Source, a.Pipeline, a.Links, logger, metrics)
	a.Runner = harvest.NewRunner(a.Pipeline, a.Grapher, a.Articles, cfg.Harvest.MaxRelated, logger)

	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	switch cfg.Store.Driver {
	case config.StoreDriverSQLite:
		store, err := sqlitestore.Open(cfg.Store.SQLitePath, logger)
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) {
			if err := store.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close sqlite store")
			}
		})
		a.Articles = store.Articles()
		a.Links = store.Links()
		a.Dependencies = append(a.Dependencies, Dependency{Name: "sqlite", Ping: store.Ping})
		logger.Info().Str("path", cfg.Store.SQLitePath).Msg("sqlite store opened")
		return nil

	case config.StoreDriverPostgres:
		db, err := database.New(ctx, &cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) { db.Close() })

		if cfg.Database.MigrationAutoRun {
			if err := migrateUp(db, cfg.Database.MigrationPath, logger); err != nil {
				return err
			}
		}

		a.Articles = repository.NewPgArticleRepository(db)
		a.Links = repository.NewPgLinkRepository(db)
		a.Dependencies = append(a.Dependencies, Dependency{Name: "postgres", Ping: db.Ping})
		logger.Info().Msg("database connection established")
		return nil

	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func migrateUp(db *database.DB, path string, logger zerolog.Logger) error {
	migrator, err := database.NewMigrator(db, path, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	if err := migrator.Up(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close releases the stores in reverse order of opening.
func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
	a.closers = nil
}

// PubMedConfig maps configuration onto the E-utilities client config.
func PubMedConfig(cfg config.PubMedConfig, metrics *observability.Metrics) pubmed.Config {
	pc := pubmed.Config{
		BaseURL:    cfg.BaseURL,
		Tool:       cfg.Tool,
		Email:      cfg.Email,
		APIKey:     cfg.APIKey,
		Timeout:    cfg.Timeout,
		RateLimit:  cfg.RateLimit,
		BurstSize:  cfg.BurstSize,
		MaxRetries: cfg.MaxRetries,
		MaxResults: cfg.MaxResults,
	}
	// A typed nil would still satisfy the interface.
	if metrics != nil {
		pc.Observer = metrics
	}
	return pc
}

// LoggerFromConfig builds the process logger.
func LoggerFromConfig(cfg config.LoggingConfig) zerolog.Logger {
	return observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Level,
		Format:     cfg.Format,
		Output:     cfg.Output,
		AddSource:  cfg.AddSource,
		TimeFormat: cfg.TimeFormat,
		Service:    ServiceName,
	})
}
