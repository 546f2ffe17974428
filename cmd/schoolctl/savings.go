package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"schoolcompare/internal/comparison"
	"schoolcompare/internal/core"
	"schoolcompare/internal/provider"
	"schoolcompare/internal/provider/memory"
	"schoolcompare/internal/savings"
	"schoolcompare/internal/storage"
)

// source is what savings and top read from.
type source interface {
	provider.SchoolDetailReader
	provider.PopularityReader
}

func openSource(cmd *cobra.Command, sample bool) (source, func() error, error) {
	if sample {
		s, err := memory.NewSample()
		return s, func() error { return nil }, err
	}
	db, _ := cmd.Flags().GetString("db")
	repo, err := storage.NewSQLiteRepository(db)
	if err != nil {
		return nil, nil, err
	}
	return repo, repo.Close, nil
}

func newSavingsCmd() *cobra.Command {
	var sample bool
	cmd := &cobra.Command{
		Use:   "savings <ncessch> <ncessch> [ncessch...]",
		Short: "Project the property tax difference between schools over 18 years",
		Args:  cobra.RangeArgs(2, comparison.Capacity),
		RunE: func(cmd *cobra.Command, args []string) error {
			est, err := loadEstimator(cmd)
			if err != nil {
				return err
			}
			src, closeFn, err := openSource(cmd, sample)
			if err != nil {
				return err
			}
			defer closeFn()

			refs, err := resolveRefs(cmd.Context(), src, est.SignalFor, args)
			if err != nil {
				return err
			}
			sum, ok := savings.Summarize(refs, savings.FromEstimator(est))
			writeSavings(cmd.OutOrStdout(), refs, sum, ok)
			return nil
		},
	}
	cmd.Flags().BoolVar(&sample, "sample", false, "read schools from the built-in sample dataset")
	return cmd
}

func resolveRefs(ctx context.Context, src provider.SchoolDetailReader, signalFor func(districtID, city, zip string) string, ids []string) ([]core.SchoolRef, error) {
	seen := make(map[string]bool, len(ids))
	refs := make([]core.SchoolRef, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		d, err := src.GetSchoolDetail(ctx, id)
		if errors.Is(err, provider.ErrNotFound) {
			return nil, fmt.Errorf("school %s not found", id)
		}
		if err != nil {
			return nil, err
		}
		refs = append(refs, d.School.Ref(d.DistrictName, signalFor(d.LEAID, d.City, d.Zip)))
	}
	return refs, nil
}

func writeSavings(out io.Writer, refs []core.SchoolRef, sum core.SavingsSummary, ok bool) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	annual := make(map[string]core.Money, len(sum.Figures))
	for _, f := range sum.Figures {
		annual[f.School.ID] = f.Annual
	}
	fmt.Fprintln(w, "SCHOOL\tDISTRICT\tANNUAL TAX\t")
	for _, r := range refs {
		figure := "unknown"
		if m, found := annual[r.ID]; found {
			figure = m.FormatUSD()
		}
		marker := ""
		if sum.IsLowest(r.ID) {
			marker = "lowest"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.DistrictName, figure, marker)
	}
	_ = w.Flush()

	if !ok {
		fmt.Fprintln(out, "\nnot enough tax figures to compare")
		return
	}
	fmt.Fprintf(out, "\nannual difference: %s\n", sum.AnnualDelta.FormatUSD())
	fmt.Fprintf(out, "over %d years:     %s\n", sum.HorizonYears, sum.ProjectedDelta.FormatUSD())
}

func newTopCmd() *cobra.Command {
	var (
		sample bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "top",
		Short: "List the most compared schools",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, closeFn, err := openSource(cmd, sample)
			if err != nil {
				return err
			}
			defer closeFn()

			top, err := src.TopCompared(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SCHOOL\tDISTRICT\tADDED\tREMOVED")
			for _, p := range top {
				name := p.SchoolID
				if d, err := src.GetSchoolDetail(cmd.Context(), p.SchoolID); err == nil {
					name = d.Name
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", name, p.DistrictID, p.Added, p.Removed)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&sample, "sample", false, "read from the built-in sample dataset")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of schools to list")
	return cmd
}
