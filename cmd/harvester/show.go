package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixir/pubmed-harvester/internal/app"
	"github.com/helixir/pubmed-harvester/internal/domain"
)

var showCmd = &cobra.Command{
	Use:   "show <pmid>",
	Short: "Show a stored article and its related links",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	pmid := args[0]
	if err := validatePMID(pmid); err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		article, err := a.Articles.FindByPMID(ctx, pmid)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("article not found: %s", pmid)
		}
		if err != nil {
			return err
		}

		links, err := a.Links.ListForPMID(ctx, pmid)
		if err != nil {
			return fmt.Errorf("list links: %w", err)
		}
		if links == nil {
			links = []domain.RelatedLink{}
		}

		out := articleOutput{Article: article, Links: links}
		if humanOutput {
			printArticle(cmd.OutOrStdout(), out)
			return nil
		}
		return writeJSON(cmd.OutOrStdout(), out)
	})
}
