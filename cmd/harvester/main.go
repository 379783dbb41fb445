// Package main provides the harvester CLI for local and one-off harvests.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/helixir/pubmed-harvester/internal/app"
	"github.com/helixir/pubmed-harvester/internal/config"
)

// Exit codes.
const (
	ExitError       = 1
	ExitConfigError = 2
)

var (
	configFile  string
	storeDriver string
	sqlitePath  string
	humanOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "harvester",
	Short: "Harvest PubMed articles into a local or shared store",
	Long: `harvester fetches PubMed records through NCBI E-utilities, normalizes them
and stores them in SQLite or PostgreSQL. Related articles found through
ELink can be harvested and linked with their similarity scores.

Configuration comes from config.yaml and PUBMED_HARVESTER_* environment
variables; a .env file in the working directory is loaded first.
All commands output JSON by default. Use --human for readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// .env is optional.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", config.StoreDriverSQLite, "store driver: sqlite or postgres")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite-path", "", "sqlite database file (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "use human-readable output instead of JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitCode(err))
	}
}

// loadConfig reads configuration and applies the store flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, &configError{err: err}
	}
	if storeDriver != "" {
		cfg.Store.Driver = storeDriver
	}
	if sqlitePath != "" {
		cfg.Store.SQLitePath = sqlitePath
	}
	// stdout carries command output.
	cfg.Logging.Output = "stderr"
	if err := cfg.Validate(); err != nil {
		return nil, &configError{err: err}
	}
	return cfg, nil
}

// withApp runs fn against a freshly wired harvester and closes it afterwards.
// The context is cancelled on SIGINT or SIGTERM.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := app.LoggerFromConfig(cfg.Logging).With().Str("component", "cli").Logger()
	a, err := app.New(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	return fn(ctx, a)
}

type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var cfgErr *configError
	if errors.As(err, &cfgErr) {
		return ExitConfigError
	}
	return ExitError
}
