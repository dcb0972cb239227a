package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medgen-mcp-server/internal/app"
	"github.com/medgen-mcp-server/internal/repository"
)

func getGeneCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gene",
		Short: "Looks up genes in the NCBI Gene mirror",
		Long: `Looks up genes in the NCBI Gene mirror. A gene is given either as an
NCBI GeneID (672) or as an HGNC symbol (BRCA1).`,
	}

	cmd.AddCommand(geneCmd(c, "pubmeds", "Lists the PubMed IDs gene2pubmed links to a gene",
		func(ctx context.Context, a *app.App, id int64) (interface{}, error) {
			pmids, err := a.Genes.PubmedsForGene(ctx, id)
			return map[string]interface{}{"gene_id": id, "pmids": pmids}, err
		}))
	cmd.AddCommand(geneCmd(c, "info", "Prints the gene_info row of a gene",
		func(ctx context.Context, a *app.App, id int64) (interface{}, error) {
			return a.Genes.InfoForGene(ctx, id)
		}))
	cmd.AddCommand(geneCmd(c, "omim", "Lists the OMIM entries of a gene",
		func(ctx context.Context, a *app.App, id int64) (interface{}, error) {
			entries, err := a.Genes.OMIMForGene(ctx, id)
			return map[string]interface{}{"gene_id": id, "omim": entries}, err
		}))
	cmd.AddCommand(geneCmd(c, "rifs", "Lists the GeneRIF function annotations of a gene",
		func(ctx context.Context, a *app.App, id int64) (interface{}, error) {
			rifs, err := a.Genes.FunctionRIFsForGene(ctx, id)
			return map[string]interface{}{"gene_id": id, "rifs": rifs}, err
		}))
	cmd.AddCommand(geneCmd(c, "name", "Prints the official symbol of a gene",
		func(ctx context.Context, a *app.App, id int64) (interface{}, error) {
			name, err := a.Genes.GeneNameForID(ctx, id)
			return map[string]interface{}{"gene_id": id, "symbol": name}, err
		}))

	cmd.AddCommand(geneCmd(c, "concepts", "Lists the MedGen concepts (CUIs) linked to a gene",
		func(ctx context.Context, a *app.App, id int64) (interface{}, error) {
			concepts, err := a.Genes.ConceptsForGene(ctx, id)
			return map[string]interface{}{"gene_id": id, "concepts": concepts}, err
		}))

	cmd.AddCommand(&cobra.Command{
		Use:   "accession <accession>",
		Short: "Maps a reviewed RefSeq accession (NM_000059.3) to its GeneID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				id, err := a.Genes.GeneIDForKnownAccession(ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd, map[string]interface{}{"accession": args[0], "gene_id": id})
			})
		},
	})

	var taxID int64
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Lists the gene symbols of a taxon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if taxID <= 0 {
				return fmt.Errorf("invalid --tax %d", taxID)
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				genes, err := a.Genes.ListGenes(ctx, taxID)
				if err != nil {
					return err
				}
				return writeJSON(cmd, map[string]interface{}{"tax_id": taxID, "genes": genes})
			})
		},
	}
	listCmd.Flags().Int64Var(&taxID, "tax", repository.HumanTaxID, "NCBI taxonomy ID")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "synonyms <symbol>",
		Short: "Lists the genes a symbol or alias may refer to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				synonyms, err := a.Genes.SynonymsForSymbol(ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd, map[string]interface{}{"symbol": args[0], "synonyms": synonyms})
			})
		},
	})

	return cmd
}

// geneCmd builds a subcommand taking one gene argument resolved to a GeneID.
func geneCmd(c *cli, use, short string, run func(ctx context.Context, a *app.App, id int64) (interface{}, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <gene>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				id, err := a.Genes.ResolveGeneID(ctx, args[0])
				if err != nil {
					return err
				}
				out, err := run(ctx, a, id)
				if err != nil {
					return err
				}
				return writeJSON(cmd, out)
			})
		},
	}
}
