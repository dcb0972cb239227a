package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/medgen-mcp-server/internal/app"
	"github.com/medgen-mcp-server/internal/domain"
)

func getMirrorCmd(c *cli) *cobra.Command {
	var (
		loaded  bool
		section string
	)

	cmd := &cobra.Command{
		Use:   "mirror [<entity>]",
		Short: "Reports when a warehouse table was last loaded",
		Long: `Reports when a warehouse table (gene_info, variant_summary, ...) was last
loaded, from the log table the mirror scripts write to. With --loaded it
reports when the full load of a section last finished instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if loaded {
				return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
					t, err := a.LastLoaded(ctx, section)
					if err != nil {
						return err
					}
					return printLoadTime(cmd, "section "+section, t)
				})
			}
			if len(args) != 1 {
				return errors.New("mirror needs an entity, or --loaded")
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				status, err := a.LastMirrorTime(ctx, args[0])
				if err != nil {
					return err
				}
				return printLoadTime(cmd, status.Entity, status.LastMirror)
			})
		},
	}

	cmd.Flags().BoolVar(&loaded, "loaded", false, "report the last completed full load instead of one table")
	cmd.Flags().StringVar(&section, "section", domain.SectionGene, "warehouse section checked by --loaded")
	return cmd
}

func printLoadTime(cmd *cobra.Command, what string, t time.Time) error {
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s last loaded %s (%s)\n",
		what, t.UTC().Format("2006-01-02 15:04:05"), humanize.Time(t))
	return err
}
