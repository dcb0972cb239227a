package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/medgen-mcp-server/internal/app"
)

func getArticleCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "article <pmid>",
		Short: "Fetches the PubMed summary of an article",
		Long: `Fetches the PubMed summary (title, journal, date, PMC ID and DOI) of an
article from NCBI E-utilities.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				article, err := a.PubMed.ArticleByPMID(ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd, article)
			})
		},
	}
}
