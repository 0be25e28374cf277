package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var metricsRecent int

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show statistics over recorded runs",
	RunE:  runMetrics,
}

func init() {
	metricsCmd.Flags().IntVar(&metricsRecent, "recent", 10, "Number of recent runs to list")
}

func runMetrics(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eng, err := buildEngine(cfg, false)
	if err != nil {
		return err
	}
	defer eng.Close()

	summary, err := eng.store.Summarize()
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	bold.Println("Run summary")
	fmt.Printf("  Total prompts:  %d\n", summary.TotalPrompts)
	fmt.Printf("  Success rate:   %.1f%%\n", summary.SuccessRate)
	fmt.Printf("  Avg speedup:    %.2fx\n", summary.AvgSpeedup)
	fmt.Printf("  Avg latency:    %.1fs\n", summary.AvgLatencySeconds)

	if metricsRecent <= 0 {
		return nil
	}

	recent, err := eng.store.Recent(metricsRecent)
	if err != nil {
		return err
	}
	if len(recent) == 0 {
		return nil
	}

	fmt.Println()
	bold.Println("Recent runs")
	for _, rec := range recent {
		prompt := rec.Prompt
		if len(prompt) > 60 {
			prompt = prompt[:57] + "..."
		}
		fmt.Printf("  %s  mode=%s agents=%d failed=%d speedup=%.2fx  %q\n",
			rec.CreatedAt.Format("2006-01-02 15:04"),
			rec.Mode, rec.AgentCount, rec.FailedCount, rec.Speedup, prompt)
	}
	return nil
}
