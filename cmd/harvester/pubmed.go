package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/helixir/pubmed-harvester/internal/app"
	"github.com/helixir/pubmed-harvester/internal/domain"
)

var previewCmd = &cobra.Command{
	Use:   "preview <query>",
	Short: "Search PubMed and print the normalized articles without storing them",
	Long: `Run an E-utilities search, fetch every result and print it as it would be
stored. Nothing is written to the store.

Example:
  harvester preview "biophotonics[Title] AND 2019[PDAT]"`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <pmid>",
	Short: "Fetch one article from PubMed without storing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

var reprocessCmd = &cobra.Command{
	Use:   "reprocess <pmid>",
	Short: "Rebuild a stored article from its saved PubMed XML",
	Long: `Re-run field extraction over the raw XML kept with a stored article and
replace its fields. PubMed is not contacted.`,
	Args: cobra.ExactArgs(1),
	RunE: runReprocess,
}

func init() {
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(reprocessCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	query := args[0]
	if query == "" {
		return fmt.Errorf("query must not be empty")
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		articles, err := a.Pipeline.InstancesFromSearch(ctx, query)
		if err != nil {
			return fmt.Errorf("preview: %w", err)
		}

		if humanOutput {
			printArticles(cmd.OutOrStdout(), articles)
			return nil
		}
		return writeJSON(cmd.OutOrStdout(), articles)
	})
}

func runFetch(cmd *cobra.Command, args []string) error {
	pmid := args[0]
	if err := validatePMID(pmid); err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		article, err := a.Pipeline.ArticleFromID(ctx, pmid)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("pubmed has no article %s", pmid)
		}
		if err != nil {
			return fmt.Errorf("fetch: %w", err)
		}
		return writeArticle(cmd.OutOrStdout(), articleOutput{Article: article, Links: []domain.RelatedLink{}})
	})
}

func runReprocess(cmd *cobra.Command, args []string) error {
	pmid := args[0]
	if err := validatePMID(pmid); err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		article, err := a.Pipeline.Reprocess(ctx, pmid)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("article not found: %s", pmid)
		}
		if err != nil {
			return fmt.Errorf("reprocess: %w", err)
		}
		return writeArticle(cmd.OutOrStdout(), articleOutput{Article: article, Links: []domain.RelatedLink{}})
	})
}

func writeArticle(w io.Writer, out articleOutput) error {
	if humanOutput {
		printArticle(w, out)
		return nil
	}
	return writeJSON(w, out)
}

func printArticles(w io.Writer, articles []*domain.Article) {
	if len(articles) == 0 {
		fmt.Fprintln(w, "No articles found.")
		return
	}
	for i, a := range articles {
		if i > 0 {
			fmt.Fprintln(w)
		}
		printArticle(w, articleOutput{Article: a})
	}
}
