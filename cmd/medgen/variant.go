package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/medgen-mcp-server/internal/app"
	"github.com/medgen-mcp-server/internal/service"
)

func getVariantCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "variant",
		Short: "Looks up variants in ClinVar and the NCBI Variant Reporter",
		Long: `Looks up variants by HGVS expression, e.g. NM_007294.3:c.5266dupC.
Identifiers and citations come from the ClinVar mirror; reports come from
the NCBI Variant Reporter service.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "report <hgvs>",
		Short: "Fetches the NCBI Variant Reporter rows of a variant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				rows, err := a.Annotator.VariantReport(ctx, args[0])
				if err != nil {
					return err
				}
				c.logger.Debugf("Variant Reporter returned %s rows", humanize.Comma(int64(len(rows))))
				return writeJSON(cmd, map[string]interface{}{"hgvs_text": args[0], "rows": rows})
			})
		},
	})

	var source string
	pmidsCmd := &cobra.Command{
		Use:   "pmids <hgvs>",
		Short: "Lists the PubMed IDs citing a variant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				pmids, err := a.Annotator.VariantPMIDs(ctx, args[0], source)
				if err != nil {
					return err
				}
				return writeJSON(cmd, map[string]interface{}{"hgvs_text": args[0], "source": source, "pmids": pmids})
			})
		},
	}
	pmidsCmd.Flags().StringVar(&source, "source", service.SourceAll,
		fmt.Sprintf("where to look: %s, %s or %s", service.SourceClinVar, service.SourceReport, service.SourceAll))
	cmd.AddCommand(pmidsCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "ids <hgvs>",
		Short: "Prints the ClinVar accession, AlleleID and VariationID of a variant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				ids, err := a.Annotator.VariantIdentifiers(ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd, ids)
			})
		},
	})

	var resolve bool
	citationsCmd := &cobra.Command{
		Use:   "citations <hgvs>...",
		Short: "Lists the ClinVar literature citations of one or more variants",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if resolve {
					records, err := a.Annotator.CitationsWithAccessions(ctx, args)
					if err != nil {
						return err
					}
					return writeJSON(cmd, map[string]interface{}{"citations": records})
				}
				citations, err := a.Annotator.Citations(ctx, args)
				if err != nil {
					return err
				}
				return writeJSON(cmd, map[string]interface{}{"citations": citations})
			})
		},
	}
	citationsCmd.Flags().BoolVar(&resolve, "resolve", false, "resolve PubMed Central citations to PubMed IDs")
	cmd.AddCommand(citationsCmd)

	return cmd
}
