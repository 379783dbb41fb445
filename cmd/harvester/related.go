package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixir/pubmed-harvester/internal/app"
	"github.com/helixir/pubmed-harvester/internal/domain"
)

var relatedCmd = &cobra.Command{
	Use:   "related <pmid>",
	Short: "Harvest and link the articles PubMed considers similar",
	Long: `Look up the "similar articles" of a stored article, harvest the ones that
are not stored yet and record a scored link to each of them.

Example:
  harvester related 31452104`,
	Args: cobra.ExactArgs(1),
	RunE: runRelated,
}

func init() {
	rootCmd.AddCommand(relatedCmd)
}

func runRelated(cmd *cobra.Command, args []string) error {
	pmid := args[0]
	if err := validatePMID(pmid); err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		article, err := a.Articles.FindByPMID(ctx, pmid)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("article %s is not stored; harvest it with \"harvester ids %s\" first", pmid, pmid)
		}
		if err != nil {
			return err
		}

		res, err := a.Grapher.HarvestRelated(ctx, article)
		if err != nil {
			return fmt.Errorf("harvest related: %w", err)
		}

		if humanOutput {
			printRelated(cmd.OutOrStdout(), res)
			return nil
		}
		return writeJSON(cmd.OutOrStdout(), res)
	})
}
