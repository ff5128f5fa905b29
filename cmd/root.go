package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/membench/membench/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "membench",
	Short: "LLM memory benchmarking harness",
	Long:  "Evaluates language models across memory management strategies by running every enabled model against every configured memory method and benchmark, persisting each outcome to a queryable results store.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
