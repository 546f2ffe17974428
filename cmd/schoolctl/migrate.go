package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"schoolcompare/internal/storage"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _ := cmd.Flags().GetString("db")
			if err := storage.RunMigrations(db); err != nil {
				return err
			}
			return printVersion(cmd, db)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (default one step)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("steps must be a positive number, got %q", args[0])
				}
				steps = n
			}
			db, _ := cmd.Flags().GetString("db")
			if err := storage.MigrateDown(db, steps); err != nil {
				return err
			}
			return printVersion(cmd, db)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _ := cmd.Flags().GetString("db")
			return printVersion(cmd, db)
		},
	})

	return cmd
}

func printVersion(cmd *cobra.Command, db string) error {
	version, dirty, err := storage.MigrationVersion(db)
	if err != nil {
		return err
	}
	if dirty {
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty)\n", version)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
	return nil
}
