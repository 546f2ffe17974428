package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"schoolcompare/internal/log"
	"schoolcompare/internal/provider"
	"schoolcompare/internal/storage"
)

func newSeedCmd() *cobra.Command {
	var (
		dataDir string
		sample  bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import districts, schools and enrollment into the database",
		Long: "Imports <data-dir>/seed.json into the SQLite database. Rows are upserted, " +
			"so seeding twice is safe. Use --sample to load the built-in illustrative data.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				ds  provider.Dataset
				err error
			)
			if sample {
				ds, err = provider.SampleDataset()
			} else {
				ds, err = provider.LoadDatasetDir(dataDir)
				if provider.IsMissing(err) {
					return fmt.Errorf("no %s in %s (use --sample for the built-in data)", provider.SeedFileName, dataDir)
				}
			}
			if err != nil {
				return err
			}

			db, _ := cmd.Flags().GetString("db")
			repo, err := storage.NewSQLiteRepository(db)
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.ImportDataset(cmd.Context(), ds); err != nil {
				return err
			}
			logger.Info("Seeded database",
				"path", db,
				"districts", len(ds.Districts),
				"schools", len(ds.Schools),
				"enrollment", len(ds.Enrollment),
				log.FieldOperation, log.OpPersist)
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d districts, %d schools, %d enrollment rows\n",
				len(ds.Districts), len(ds.Schools), len(ds.Enrollment))
			return nil
		},
	}
	cmd.Flags().StringVar(&dataDir, "data-dir", envOr("SEED_DATA_DIR", "data"), "directory containing seed.json")
	cmd.Flags().BoolVar(&sample, "sample", false, "import the built-in sample dataset")
	return cmd
}
