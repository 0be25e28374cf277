package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paramind/paramind/internal/controller"
)

var (
	planModel  string
	planAgents int
	planJSON   bool
)

var planCmd = &cobra.Command{
	Use:   "plan <prompt>",
	Short: "Show the execution plan for a prompt without running it",
	Long: `Generate and print the plan the controller would execute for a
prompt. Nothing is executed and no agents are called beyond the single
planning request.

Works without an API key: planning then falls back to prompt-shape
heuristics instead of the planner model.

Examples:
  paramind plan "Compare REST and gRPC"
  paramind plan --json "Research topic X, then summarize it"`,
	Args: cobra.MinimumNArgs(1),
	RunE: planPrompt,
}

func init() {
	planCmd.Flags().StringVar(&planModel, "model", "", "Force a single model for every agent slot")
	planCmd.Flags().IntVar(&planAgents, "agents", 0, "Override the number of agents (data-parallel plans)")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "Print the plan as JSON")
}

func planPrompt(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eng, err := buildEngine(cfg, false)
	if err != nil {
		return err
	}
	defer eng.Close()

	plan, err := eng.controller.BuildPlan(cmd.Context(), prompt, controller.Overrides{
		Model:      planModel,
		AgentCount: planAgents,
	})
	if err != nil {
		return err
	}

	if planJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}

	printPlanSummary(plan)
	return nil
}
