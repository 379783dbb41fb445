package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/pubmed-harvester/internal/config"
	"github.com/helixir/pubmed-harvester/internal/domain"
	"github.com/helixir/pubmed-harvester/internal/observability"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{
			Driver:     config.StoreDriverSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "pubmed.db"),
		},
		PubMed:  config.PubMedConfig{BaseURL: "http://127.0.0.1:1", MaxRetries: -1},
		Harvest: config.HarvestConfig{MaxRelated: 3},
	}
}

func TestNew_SQLite(t *testing.T) {
	ctx := context.Background()

	a, err := New(ctx, sqliteConfig(t), zerolog.Nop(), nil)
	require.NoError(t, err)
	defer a.Close(ctx)

	require.NotNil(t, a.Articles)
	require.NotNil(t, a.Links)
	require.NotNil(t, a.Pipeline)
	require.NotNil(t, a.Grapher)
	require.NotNil(t, a.Runner)

	require.Len(t, a.Dependencies, 1)
	assert.Equal(t, "sqlite", a.Dependencies[0].Name)
	assert.NoError(t, a.Dependencies[0].Ping(ctx))

	_, err = a.Articles.FindByPMID(ctx, "123")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Store.Driver = "mongo"

	_, err := New(context.Background(), cfg, zerolog.Nop(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongo")
}

func TestClose_Idempotent(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, sqliteConfig(t), zerolog.Nop(), nil)
	require.NoError(t, err)

	a.Close(ctx)
	a.Close(ctx)
}

func TestPubMedConfig(t *testing.T) {
	cfg := config.PubMedConfig{
		BaseURL:    "https://example.org/eutils",
		Tool:       "harvester",
		Email:      "ops@example.org",
		APIKey:     "secret",
		MaxResults: 250,
		RateLimit:  5,
		BurstSize:  2,
		Timeout:    10 * time.Second,
		MaxRetries: 4,
	}

	t.Run("without metrics", func(t *testing.T) {
		pc := PubMedConfig(cfg, nil)
		assert.Equal(t, cfg.BaseURL, pc.BaseURL)
		assert.Equal(t, cfg.Tool, pc.Tool)
		assert.Equal(t, cfg.Email, pc.Email)
		assert.Equal(t, cfg.APIKey, pc.APIKey)
		assert.Equal(t, 250, pc.MaxResults)
		assert.Equal(t, 5.0, pc.RateLimit)
		assert.Equal(t, 2, pc.BurstSize)
		assert.Equal(t, 10*time.Second, pc.Timeout)
		assert.Equal(t, 4, pc.MaxRetries)
		assert.Nil(t, pc.Observer)
	})

	t.Run("with metrics", func(t *testing.T) {
		metrics := observability.NewMetricsWithRegistry("test", nil)
		pc := PubMedConfig(cfg, metrics)
		assert.NotNil(t, pc.Observer)
	})
}
