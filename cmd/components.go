package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/membench/membench/internal/benchmark"
	"github.com/membench/membench/internal/llm"
	"github.com/membench/membench/internal/memory"
	"github.com/membench/membench/pkg/ollama"
)

var componentsCmd = &cobra.Command{
	Use:   "components",
	Short: "List registered providers, memory methods and benchmarks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		registerProviders(cfg)

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "Model providers:\t%s\n", strings.Join(llm.Default.List(), ", "))
		fmt.Fprintf(tw, "Memory methods:\t%s\n", strings.Join(memory.Default.List(), ", "))
		fmt.Fprintf(tw, "Benchmarks:\t%s\n", strings.Join(benchmark.Default.List(), ", "))
		if _, ok := cfg.Providers["ollama"]; ok {
			fmt.Fprintf(tw, "Ollama host models:\t%s\n", ollamaHostModels(cmd.Context(), newOllamaClient(cfg)))
		}
		return tw.Flush()
	},
}

// ollamaHostModels reads the host's installed model catalog. The host may be
// down while listing components, so failures degrade to a note.
func ollamaHostModels(ctx context.Context, client ollama.Client) string {
	models, err := client.ListModels(ctx)
	if err != nil {
		return fmt.Sprintf("(unavailable: %v)", err)
	}
	if len(models) == 0 {
		return "(none installed)"
	}
	return strings.Join(models, ", ")
}

func init() {
	rootCmd.AddCommand(componentsCmd)
}
