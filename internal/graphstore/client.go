// Package graphstore keeps related-article links in Neo4j as RELATED_TO
// relationships between Article nodes.
package graphstore

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"

	"github.com/helixir/pubmed-harvester/internal/config"
)

const (
	connectTimeout  = 10 * time.Second
	maxPoolSize     = 50
	constraintsTime = 30 * time.Second
)

// schema is applied by EnsureSchema. Every statement is idempotent.
var schema = []string{
	`CREATE CONSTRAINT article_pmid_unique IF NOT EXISTS FOR (a:Article) REQUIRE a.pmid IS UNIQUE`,
	`CREATE CONSTRAINT related_pair_unique IF NOT EXISTS FOR ()-[r:RELATED_TO]-() REQUIRE (r.pmid_low, r.pmid_high) IS UNIQUE`,
}

// Client owns the Neo4j driver.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
	logger   zerolog.Logger
}

// New connects to Neo4j and verifies connectivity.
func New(ctx context.Context, cfg config.GraphConfig, logger zerolog.Logger) (*Client, error) {
	auth := neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = maxPoolSize
		c.SocketConnectTimeout = connectTimeout
	})
	if err != nil {
		return nil, fmt.Errorf("graphstore: init driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("graphstore: verify connectivity: %w", err)
	}

	logger = logger.With().Str("component", "graphstore").Logger()
	logger.Info().Str("uri", cfg.URI).Str("database", cfg.Database).Msg("neo4j connection established")

	return &Client{driver: driver, database: cfg.Database, logger: logger}, nil
}

// EnsureSchema creates the uniqueness constraints links rely on.
func (c *Client) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, constraintsTime)
	defer cancel()

	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range schema {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return fmt.Errorf("graphstore: apply schema: %w", err)
		}
		if _, err := res.Consume(ctx); err != nil {
			return fmt.Errorf("graphstore: apply schema: %w", err)
		}
	}
	return nil
}

// Ping verifies the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

// Close closes the driver.
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.driver == nil {
		return nil
	}
	return c.driver.Close(ctx)
}

// Links returns the link repository backed by this client.
func (c *Client) Links() *LinkRepository {
	return &LinkRepository{client: c}
}

func (c *Client) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: c.database,
	})
}
