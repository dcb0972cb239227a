package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medgen-mcp-server/internal/database"
	"github.com/medgen-mcp-server/internal/domain"
)

func getMigrateCmd(c *cli) *cobra.Command {
	var section string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manages the warehouse bookkeeping schema",
		Long: `Manages the bookkeeping schema of one warehouse section: the log table
mirror loads write to and, on MySQL and PostgreSQL, the create_index routine.`,
	}
	cmd.PersistentFlags().StringVar(&section, "section", domain.SectionDefault, "database section to migrate")

	runner := func() (*database.MigrationRunner, error) {
		return database.NewMigrationRunner(c.config.GetDatabaseConfig(section), c.logger)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Applies all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mr, err := runner()
			if err != nil {
				return err
			}
			defer mr.Close()
			return mr.Up(cmd.Context())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rolls back the latest migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mr, err := runner()
			if err != nil {
				return err
			}
			defer mr.Close()
			return mr.Down(cmd.Context())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Prints the applied migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mr, err := runner()
			if err != nil {
				return err
			}
			defer mr.Close()

			version, dirty, err := mr.Version()
			if err != nil {
				return fmt.Errorf("reading migration version of section %s: %w", section, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "section %s at version %d (dirty: %t)\n", section, version, dirty)
			return err
		},
	})

	return cmd
}
