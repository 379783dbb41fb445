package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helixir/pubmed-harvester/internal/app"
	"github.com/helixir/pubmed-harvester/internal/harvest"
)

var (
	reload bool
	expand bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Harvest every article matching a PubMed query",
	Long: `Search PubMed and store every result that is not stored yet.

Example:
  harvester search "crispr[tiab] AND 2020[dp]" --expand`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := harvest.Request{
			Query:         strings.Join(args, " "),
			Reload:        reload,
			ExpandRelated: expand,
		}
		return runHarvest(cmd, req)
	},
}

var idsCmd = &cobra.Command{
	Use:   "ids <pmid>...",
	Short: "Harvest articles by PubMed id",
	Long: `Fetch and store the given PubMed ids, skipping stored ones unless --reload is set.

Example:
  harvester ids 31452104 29453406 --reload`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, id := range args {
			if err := validatePMID(id); err != nil {
				return err
			}
		}
		req := harvest.Request{
			PMIDs:         args,
			Reload:        reload,
			ExpandRelated: expand,
		}
		return runHarvest(cmd, req)
	},
}

func init() {
	for _, c := range []*cobra.Command{searchCmd, idsCmd} {
		c.Flags().BoolVar(&reload, "reload", false, "refetch and overwrite articles that are already stored")
		c.Flags().BoolVar(&expand, "expand", false, "also harvest related articles of the created ones")
		rootCmd.AddCommand(c)
	}
}

func runHarvest(cmd *cobra.Command, req harvest.Request) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		res, err := a.Runner.Run(ctx, req)
		if err != nil {
			return fmt.Errorf("harvest: %w", err)
		}

		out := newRunOutput(req.Mode(), res)
		if humanOutput {
			printRun(cmd.OutOrStdout(), out)
			return nil
		}
		return writeJSON(cmd.OutOrStdout(), out)
	})
}

func validatePMID(id string) error {
	if id == "" {
		return fmt.Errorf("empty pubmed id")
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return fmt.Errorf("invalid pubmed id %q", id)
		}
	}
	return nil
}
