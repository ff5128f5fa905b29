package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/membench/membench/internal/orchestrator"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Run the full evaluation matrix",
	Long:  "Executes every combination of enabled model, memory method and benchmark, persists each result and prints the batch summary as JSON. Exits non-zero when any combination failed.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if concurrency, _ := cmd.Flags().GetInt("concurrency"); concurrency > 0 {
			cfg.ConcurrentEvals = concurrency
		}

		registerProviders(cfg)

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		o, err := orchestrator.New(cfg, st)
		if err != nil {
			return err
		}

		summary, err := o.RunFullEvaluation(ctx)
		if err != nil {
			return eris.Wrap(err, "eval")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return eris.Wrap(err, "eval: encode summary")
		}

		if summary.FailedRuns > 0 {
			cmd.SilenceUsage = true
			return eris.Errorf("%d of %d evaluations failed", summary.FailedRuns, summary.TotalRuns)
		}
		return nil
	},
}

func init() {
	evalCmd.Flags().Int("concurrency", 0, "max evaluations in flight (overrides concurrent_evaluations)")
	rootCmd.AddCommand(evalCmd)
}
