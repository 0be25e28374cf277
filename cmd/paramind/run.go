package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/paramind/paramind/internal/controller"
	"github.com/paramind/paramind/internal/executor"
	"github.com/paramind/paramind/internal/metrics"
	"github.com/paramind/paramind/pkg/models"
)

var (
	runModel       string
	runAgents      int
	runConcurrency int
	runNoCache     bool
	runBestOf      bool
	runJSON        bool
	runLogPath     string
)

var runCmd = &cobra.Command{
	Use:   "run <prompt>",
	Short: "Plan and execute a prompt across parallel agents",
	Long: `Run a prompt through the full pipeline: a planner model picks an
execution strategy, agents run concurrently, and the responses are
synthesized into a single answer.

The plan is either data-parallel (several models answer the same
prompt) or task-parallel (the prompt is decomposed into a dependency
graph of subtasks). Override the planner's choices with --model and
--agents; both apply to data-parallel plans only.

Examples:
  paramind run "Compare PostgreSQL and MySQL for OLTP workloads"
  paramind run --agents 4 "What are the risks of microservices?"
  paramind run --model claude-haiku-4-5-20251001 "Summarize CAP theorem"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPrompt,
}

func init() {
	runCmd.Flags().StringVar(&runModel, "model", "", "Force a single model for every agent slot")
	runCmd.Flags().IntVar(&runAgents, "agents", 0, "Override the number of agents (data-parallel plans)")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "Max simultaneous agent calls (default from config)")
	runCmd.Flags().BoolVar(&runNoCache, "no-cache", false, "Bypass the response cache for this run")
	runCmd.Flags().BoolVar(&runBestOf, "best-of", false, "Pick the single strongest response instead of synthesizing")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the full result as JSON")
	runCmd.Flags().StringVar(&runLogPath, "log", "", "Write a debug log to this path")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runNoCache {
		cfg.Cache.Disabled = true
	}

	eng, err := buildEngine(cfg, true)
	if err != nil {
		return err
	}
	defer eng.Close()

	if runLogPath != "" {
		logger, err := executor.NewDebugLogger(runLogPath)
		if err != nil {
			return fmt.Errorf("opening debug log: %w", err)
		}
		defer logger.Close()
		eng.executor.SetLogger(logger)
		eng.controller.SetLogf(logger.Log)
		eng.aggregator.SetLogf(logger.Log)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt, shutting down...")
		cancel()
	}()

	fmt.Println("Analyzing prompt...")
	plan, err := eng.controller.BuildPlan(ctx, prompt, controller.Overrides{
		Model:      runModel,
		AgentCount: runAgents,
	})
	if err != nil {
		return err
	}
	printPlanSummary(plan)

	concurrency := runConcurrency
	if concurrency <= 0 {
		concurrency = cfg.Execution.MaxConcurrent
	}

	fmt.Printf("Executing with %d agent(s)...\n\n", plan.AgentCount())
	results, err := eng.executor.Run(ctx, plan, prompt, concurrency)
	if err != nil {
		return err
	}

	var agg *models.AggregatedResult
	if runBestOf {
		agg = eng.aggregator.BestOf(ctx, plan, prompt, results)
	} else {
		agg = eng.aggregator.Synthesize(ctx, plan, results)
	}

	if err := recordRun(eng.store, prompt, plan, agg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to record run: %v\n", err)
	}

	if runJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(agg)
	}

	printResult(plan, agg, runBestOf)
	return nil
}

// printPlanSummary shows the chosen strategy before execution starts.
func printPlanSummary(plan *models.Plan) {
	cyan := color.New(color.FgCyan)

	switch plan.Mode {
	case models.ModeA:
		cyan.Printf("Strategy: data-parallel (%d models answer the prompt)\n", len(plan.Parallel.Models))
		for _, m := range plan.Parallel.Models {
			fmt.Printf("  - %s\n", m)
		}
	case models.ModeB:
		cyan.Printf("Strategy: task-parallel (%d subtasks)\n", len(plan.Graph.SubTasks))
		for _, st := range plan.Graph.SubTasks {
			if len(st.DependsOn) > 0 {
				fmt.Printf("  - [%s] %s (after %s)\n", st.ID, st.Description, strings.Join(st.DependsOn, ", "))
			} else {
				fmt.Printf("  - [%s] %s\n", st.ID, st.Description)
			}
		}
	}
	if plan.Reasoning != "" {
		fmt.Printf("Reasoning: %s\n", plan.Reasoning)
	}
	fmt.Println()
}

func printResult(plan *models.Plan, agg *models.AggregatedResult, bestOf bool) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	bold := color.New(color.Bold)

	for i := range agg.PerTask {
		r := &agg.PerTask[i]
		label := r.Model
		if r.TaskID != "" {
			label = fmt.Sprintf("%s (%s)", r.TaskID, r.Model)
		}
		if r.Failed() {
			red.Printf("✗ %s: %s\n", label, r.Error)
			continue
		}
		suffix := ""
		if r.Cached {
			suffix = " [cached]"
		}
		green.Printf("✓ %s: %d tokens in %.1fs%s\n", label, r.Tokens, r.LatencySeconds, suffix)
	}

	fmt.Println()
	bold.Println("=== Result ===")
	fmt.Println(agg.FinalText)
	fmt.Println()

	m := agg.Metrics
	fmt.Printf("Sequential baseline: %.1fs | Parallel: %.1fs | Speedup: %.2fx\n",
		m.SequentialBaselineSeconds, m.ParallelSeconds, m.Speedup)
	if bestOf {
		fmt.Println("(best response selected, no synthesis)")
	} else if !agg.Synthesized {
		fmt.Println("(synthesis unavailable, responses concatenated)")
	}
}

// recordRun persists one completed run for later metrics queries.
func recordRun(store *metrics.Store, prompt string, plan *models.Plan, agg *models.AggregatedResult) error {
	if store == nil {
		return nil
	}
	failed := 0
	for i := range agg.PerTask {
		if agg.PerTask[i].Failed() {
			failed++
		}
	}
	return store.Record(metrics.Record{
		Prompt:            prompt,
		Mode:              plan.Mode,
		AgentCount:        plan.AgentCount(),
		FailedCount:       failed,
		SequentialSeconds: agg.Metrics.SequentialBaselineSeconds,
		ParallelSeconds:   agg.Metrics.ParallelSeconds,
		Speedup:           agg.Metrics.Speedup,
	})
}
