// Command schoolctl manages the schoolcompare database and answers tax
// questions from the command line.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"schoolcompare/internal/cli"
	"schoolcompare/internal/log"
)

var logger *log.Logger

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "schoolctl",
		Short:         "Maintenance and lookup tool for schoolcompare",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.LoadEnvFile()
			logger = cli.SetupLogger(log.ComponentCLI)
		},
	}
	root.PersistentFlags().String("db", envOr("SQLITE_DB_PATH", "./data/schools.db"), "SQLite database path")
	root.PersistentFlags().String("table", os.Getenv("TAX_TABLE_PATH"), "tax table YAML (default: embedded table)")

	root.AddCommand(newMigrateCmd(), newSeedCmd(), newTaxCmd(), newSavingsCmd(), newTopCmd())
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
