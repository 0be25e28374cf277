package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/paramind/paramind/internal/config"
)

var rootConfigPath string

var rootCmd = &cobra.Command{
	Use:   "paramind",
	Short: "Parallel LLM orchestration engine",
	Long: `ParaMind turns a single prompt into multiple concurrent model calls
and synthesizes the responses back into one answer.

A planner model analyzes your prompt and chooses a strategy:
  - Mode A: several models answer the same prompt in parallel
  - Mode B: the prompt is split into subtasks with dependencies and
    executed as a DAG, each subtask seeing its parents' output

Typical usage:
  paramind run "Compare Rust and Go for systems programming"
  paramind plan "Research topic X, then summarize the findings"
  paramind serve
  paramind metrics`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// A .env file is a convenience for local development; absence is fine.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "Path to config file (overrides discovery)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves configuration for a command invocation.
func loadConfig() (*config.Config, error) {
	if rootConfigPath != "" {
		return config.LoadFromPath(rootConfigPath)
	}
	return config.Load()
}
