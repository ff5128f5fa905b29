package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/membench/membench/internal/model"
	"github.com/membench/membench/internal/stats"
	"github.com/membench/membench/internal/store"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Inspect stored evaluation results",
	Long:  "Commands for listing, viewing, summarizing, exporting and pruning stored evaluation runs.",
}

func resultsFilter(cmd *cobra.Command) store.Filter {
	modelName, _ := cmd.Flags().GetString("model")
	provider, _ := cmd.Flags().GetString("provider")
	memoryMethod, _ := cmd.Flags().GetString("memory")
	benchmark, _ := cmd.Flags().GetString("benchmark")
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")

	return store.Filter{
		ModelName:     modelName,
		ModelProvider: provider,
		MemoryMethod:  memoryMethod,
		Benchmark:     benchmark,
		Status:        model.RunStatus(status),
		Limit:         limit,
	}
}

// -- results list --

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List evaluation runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		runs, err := st.QueryResults(ctx, resultsFilter(cmd))
		if err != nil {
			return eris.Wrap(err, "results list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No results found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- results show --

var resultsShowCmd = &cobra.Command{
	Use:   "show <result-id>",
	Short: "Show full details of a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return eris.Wrapf(err, "results show: invalid id %q", args[0])
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		run, err := st.GetResult(ctx, id)
		if err != nil {
			return eris.Wrap(err, "results show")
		}
		if run == nil {
			return eris.Errorf("no result with id %d", id)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- results stats --

var resultsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate statistics over all stored runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		if by, _ := cmd.Flags().GetString("by"); by != "" {
			rows, err := stats.NewCollector(st).Breakdown(ctx, stats.Dimension(by))
			if err != nil {
				return eris.Wrap(err, "results stats")
			}
			formatBreakdown(os.Stdout, rows)
			return nil
		}

		summary, err := st.Summary(ctx)
		if err != nil {
			return eris.Wrap(err, "results stats")
		}

		formatSummary(os.Stdout, summary)
		return nil
	},
}

// -- results export --

var resultsExportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Export filtered runs to a JSON or XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		filter := resultsFilter(cmd)
		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "json":
			if err := st.ExportJSON(ctx, args[0], filter); err != nil {
				return eris.Wrap(err, "results export")
			}
		case "xlsx":
			runs, err := st.QueryResults(ctx, filter)
			if err != nil {
				return eris.Wrap(err, "results export")
			}
			if err := exportXLSX(args[0], runs); err != nil {
				return err
			}
		default:
			return eris.Errorf("unsupported export format: %s", format)
		}

		fmt.Printf("Exported to %s\n", args[0])
		return nil
	},
}

// -- results delete --

var resultsDeleteCmd = &cobra.Command{
	Use:   "delete <result-id>",
	Short: "Delete one stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return eris.Wrapf(err, "results delete: invalid id %q", args[0])
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		deleted, err := st.DeleteResult(ctx, id)
		if err != nil {
			return eris.Wrap(err, "results delete")
		}
		if !deleted {
			return eris.Errorf("no result with id %d", id)
		}

		fmt.Printf("Deleted result %d\n", id)
		return nil
	},
}

// -- results clear --

var resultsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all stored runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		confirmed, _ := cmd.Flags().GetBool("yes")
		if !confirmed {
			return eris.New("refusing to clear all results without --yes")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		if err := st.ClearAll(ctx); err != nil {
			return eris.Wrap(err, "results clear")
		}

		fmt.Println("All results cleared.")
		return nil
	},
}

func formatRunsList(w io.Writer, runs []model.StoredRun) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMODEL\tPROVIDER\tMEMORY\tBENCHMARK\tSTATUS\tDURATION\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%.2fs\t%s\n",
			r.ID, r.ModelName, r.ModelProvider, r.MemoryMethod, r.Benchmark,
			r.Status, r.DurationSeconds, r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	tw.Flush() //nolint:errcheck
}

func formatBreakdown(w io.Writer, rows []stats.Row) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tTOTAL\tSUCCEEDED\tFAILED\tSUCCESS RATE\tAVG DURATION")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.1f%%\t%.2fs\n",
			r.Key, r.Total, r.Succeeded, r.Failed, r.SuccessRate*100, r.AvgDurationSecs)
	}
	tw.Flush() //nolint:errcheck
}

func formatSummary(w io.Writer, s *store.Summary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total runs:\t%d\n", s.TotalRuns)
	fmt.Fprintf(tw, "Successful:\t%d\n", s.SuccessfulRuns)
	fmt.Fprintf(tw, "Failed:\t%d\n", s.FailedRuns)
	fmt.Fprintf(tw, "Success rate:\t%.1f%%\n", s.SuccessRate*100)
	fmt.Fprintf(tw, "Models:\t%v\n", s.Models)
	fmt.Fprintf(tw, "Memory methods:\t%v\n", s.MemoryMethods)
	fmt.Fprintf(tw, "Benchmarks:\t%v\n", s.Benchmarks)
	fmt.Fprintf(tw, "Location:\t%s\n", s.Location)
	tw.Flush() //nolint:errcheck
}

// exportXLSX writes runs to a single-sheet workbook, one row per run with
// the results payload serialized as JSON in the last column.
func exportXLSX(path string, runs []model.StoredRun) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("results")
	if err != nil {
		return eris.Wrap(err, "results export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range []string{
		"ID", "Timestamp", "Model", "Provider", "Memory Method",
		"Benchmark", "Status", "Duration (s)", "Results",
	} {
		header.AddCell().SetString(col)
	}

	for _, r := range runs {
		payload, err := json.Marshal(r.Results)
		if err != nil {
			return eris.Wrap(err, "results export: marshal payload")
		}

		row := sheet.AddRow()
		row.AddCell().SetInt64(r.ID)
		row.AddCell().SetString(r.Timestamp)
		row.AddCell().SetString(r.ModelName)
		row.AddCell().SetString(r.ModelProvider)
		row.AddCell().SetString(r.MemoryMethod)
		row.AddCell().SetString(r.Benchmark)
		row.AddCell().SetString(string(r.Status))
		row.AddCell().SetFloat(r.DurationSeconds)
		row.AddCell().SetString(string(payload))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "results export: save %s", path)
	}
	return nil
}

func init() {
	for _, c := range []*cobra.Command{resultsListCmd, resultsExportCmd} {
		c.Flags().String("model", "", "filter by model name")
		c.Flags().String("provider", "", "filter by model provider")
		c.Flags().String("memory", "", "filter by memory method")
		c.Flags().String("benchmark", "", "filter by benchmark")
		c.Flags().String("status", "", "filter by run status (success, error)")
		c.Flags().Int("limit", 50, "max number of runs")
	}
	resultsStatsCmd.Flags().String("by", "", "group stats by dimension (model, memory, benchmark)")
	resultsExportCmd.Flags().String("format", "json", "export format (json, xlsx)")
	resultsClearCmd.Flags().Bool("yes", false, "confirm clearing all results")

	resultsCmd.AddCommand(resultsListCmd)
	resultsCmd.AddCommand(resultsShowCmd)
	resultsCmd.AddCommand(resultsStatsCmd)
	resultsCmd.AddCommand(resultsExportCmd)
	resultsCmd.AddCommand(resultsDeleteCmd)
	resultsCmd.AddCommand(resultsClearCmd)
	rootCmd.AddCommand(resultsCmd)
}
