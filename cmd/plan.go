package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/membench/membench/internal/model"
	"github.com/membench/membench/internal/orchestrator"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the run plan without executing it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		o, err := orchestrator.New(cfg, nil)
		if err != nil {
			return err
		}

		plan := o.Plan()
		if len(plan) == 0 {
			fmt.Fprintln(os.Stderr, "Empty plan.")
			return nil
		}

		formatPlan(os.Stdout, plan)
		fmt.Printf("\n%d combinations\n", len(plan))
		return nil
	},
}

func formatPlan(w io.Writer, plan []model.RunCombination) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPROVIDER\tMODEL\tMEMORY\tBENCHMARK")
	for i, comb := range plan {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			i+1, comb.Model.Provider, comb.Model.Name, comb.MemoryMethod, comb.Benchmark)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	rootCmd.AddCommand(planCmd)
}
