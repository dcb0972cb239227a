package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/medgen-mcp-server/internal/app"
	"github.com/medgen-mcp-server/internal/config"
	"github.com/medgen-mcp-server/internal/logging"
)

// cli carries what PersistentPreRunE loads to the subcommands.
type cli struct {
	cfgFile string
	config  *config.Manager
	logger  *logrus.Logger
}

func getRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "medgen",
		Short: "medgen queries the medical genomics warehouse",
		Long: `medgen answers questions about genes and variants from a local mirror of
NCBI Gene, ClinVar and related sources, falling back to the NCBI Variant
Reporter for variants the mirror does not cover.

Configuration precedence (highest to lowest):
  1. Environment variables (MEDGEN_*, e.g. MEDGEN_GENE_DB_HOST)
  2. Config file (medgen.yaml, medgen.ini, ...)
  3. Built-in defaults

Each warehouse section (gene, clinvar, pubmed, medgen, hugo) falls back to
the default section for keys it does not set.`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
	}

	rootCmd.PersistentFlags().StringVar(&c.cfgFile, "config", "",
		"config file (default: ./medgen.yaml, ./config/, ~/.medgen/ or /etc/medgen/)")
	rootCmd.Flags().BoolP("version", "V", false, "version for medgen")

	rootCmd.AddCommand(getGeneCmd(c))
	rootCmd.AddCommand(getVariantCmd(c))
	rootCmd.AddCommand(getMirrorCmd(c))
	rootCmd.AddCommand(getArticleCmd(c))
	rootCmd.AddCommand(getMigrateCmd(c))

	return rootCmd
}

func (c *cli) load() error {
	manager, err := config.NewManager(c.cfgFile)
	if err != nil {
		return err
	}
	if err := manager.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logger, err := logging.New(manager.GetConfig().Logging)
	if err != nil {
		return err
	}

	c.config = manager
	c.logger = logger
	return nil
}

// withApp builds the services, runs fn and releases the connections.
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	a, err := app.New(ctx, c.config, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			c.logger.WithError(err).Warn("Closing connections failed")
		}
	}()
	return fn(ctx, a)
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
