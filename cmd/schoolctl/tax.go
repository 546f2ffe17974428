package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"schoolcompare/internal/core"
	"schoolcompare/internal/tax"
)

func loadEstimator(cmd *cobra.Command) (*tax.Estimator, error) {
	path, _ := cmd.Flags().GetString("table")
	if path == "" {
		return tax.NewEmbeddedEstimator()
	}
	t, err := tax.LoadTableFile(path)
	if err != nil {
		return nil, err
	}
	return tax.NewEstimator(t), nil
}

func newTaxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tax",
		Short: "Look up property tax estimates",
	}

	var signal string
	estimate := &cobra.Command{
		Use:   "estimate <district-id>",
		Short: "Estimate annual tax for a district and municipality",
		Example: "  schoolctl tax estimate 3904676 --signal Powell\n" +
			"  schoolctl tax estimate 3904702 --signal 43016",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			est, err := loadEstimator(cmd)
			if err != nil {
				return err
			}
			if !est.Knows(args[0]) {
				return fmt.Errorf("district %s is not in the tax table", args[0])
			}
			b, err := est.Estimate(args[0], signal)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", b.Label)
			fmt.Fprintf(out, "  range:          %s - %s\n", b.Low.FormatUSD(), b.High.FormatUSD())
			fmt.Fprintf(out, "  representative: %s\n", b.Representative.FormatUSD())
			fmt.Fprintf(out, "  matched:        %s\n", b.Matched)
			return nil
		},
	}
	estimate.Flags().StringVar(&signal, "signal", "", "city or zip, depending on the district")

	table := &cobra.Command{
		Use:   "table",
		Short: "Validate and print the tax table",
		RunE: func(cmd *cobra.Command, args []string) error {
			est, err := loadEstimator(cmd)
			if err != nil {
				return err
			}
			t := est.Table()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "reference home\t%s\n\n", est.ReferenceHomeValue().FormatUSD())
			fmt.Fprintln(w, "DISTRICT\tBUCKET\tMATCH\tLOW\tHIGH\tREPRESENTATIVE")
			for _, d := range t.Districts {
				fmt.Fprintf(w, "%s %s\tdefault\t\t%s\t%s\t%s\n", d.ID, d.Name,
					core.Dollars(d.Default.Low).FormatUSD(),
					core.Dollars(d.Default.High).FormatUSD(),
					core.Dollars(d.Default.Representative).FormatUSD())
				for _, o := range d.Overrides {
					fmt.Fprintf(w, "\t%s\t%s=%v\t%s\t%s\t%s\n", o.Name, d.Signal, o.Match,
						core.Dollars(o.Low).FormatUSD(),
						core.Dollars(o.High).FormatUSD(),
						core.Dollars(o.Representative).FormatUSD())
				}
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(estimate, table)
	return cmd
}
