// Package aggregator merges per-task results into one answer and computes
// the speedup metrics for a run.
package aggregator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/paramind/paramind/internal/graph"
	"github.com/paramind/paramind/internal/llm"
	"github.com/paramind/paramind/pkg/models"
)

// synthesisPrompt wraps the collected responses for the synthesis model.
const synthesisPrompt = `Synthesize these responses into one coherent answer:

%s

Provide a comprehensive answer that captures the key insights from all responses. Do not mention that multiple responses were involved.`

// judgePrompt asks a judge model to pick the strongest response.
const judgePrompt = `Original question: %s

Evaluate these responses and return ONLY the number (1, 2, 3, ...) of the best response:

%s

Best response number:`

// Config contains configuration for an Aggregator.
type Config struct {
	// SynthesisModel is the fast model used to combine responses.
	SynthesisModel string
	// Timeout bounds the synthesis call.
	Timeout time.Duration
}

// Aggregator combines executor output into an AggregatedResult.
type Aggregator struct {
	invoker llm.Invoker
	model   string
	timeout time.Duration
	logf    func(format string, args ...interface{})
}

// New creates an Aggregator. A nil invoker disables the synthesis call;
// every result then uses the concatenation fallback.
func New(invoker llm.Invoker, cfg Config) *Aggregator {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Aggregator{
		invoker: invoker,
		model:   cfg.SynthesisModel,
		timeout: timeout,
		logf:    func(string, ...interface{}) {},
	}
}

// SetLogf sets the debug logging function.
func (a *Aggregator) SetLogf(fn func(format string, args ...interface{})) {
	if fn != nil {
		a.logf = fn
	}
}

// Synthesize produces the final answer and metrics for a completed run.
// The synthesis call failing is recovered locally with a labeled
// concatenation, so the caller always receives a usable result.
func (a *Aggregator) Synthesize(ctx context.Context, plan *models.Plan, results []models.AgentResult) *models.AggregatedResult {
	out := &models.AggregatedResult{
		PerTask: results,
		Metrics: a.metrics(plan, results),
	}

	valid := nonEmpty(results)
	if len(valid) == 0 {
		out.FinalText = "All agents failed."
		return out
	}

	if a.invoker != nil && a.model != "" {
		if text, err := a.synthesizeLLM(ctx, valid); err == nil {
			out.FinalText = text
			out.Synthesized = true
			return out
		} else {
			a.logf("[aggregator] synthesis failed, falling back to concatenation: %v", err)
		}
	}

	out.FinalText = Concatenate(results)
	return out
}

// synthesizeLLM asks the synthesis model for one coherent answer.
func (a *Aggregator) synthesizeLLM(ctx context.Context, valid []models.AgentResult) (string, error) {
	var combined strings.Builder
	for _, r := range valid {
		fmt.Fprintf(&combined, "Model %s: %s\n\n", r.Model, r.Response)
	}

	resp, err := a.invoker.Invoke(ctx, llm.Request{
		Model:   a.model,
		Prompt:  fmt.Sprintf(synthesisPrompt, combined.String()),
		Timeout: a.timeout,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", fmt.Errorf("synthesis model returned empty text")
	}
	return resp.Text, nil
}

// BestOf produces the final answer by judge selection instead of
// synthesis. The winning response is returned verbatim, so Synthesized
// stays false.
func (a *Aggregator) BestOf(ctx context.Context, plan *models.Plan, originalPrompt string, results []models.AgentResult) *models.AggregatedResult {
	return &models.AggregatedResult{
		FinalText: a.BestOfN(ctx, originalPrompt, results),
		PerTask:   results,
		Metrics:   a.metrics(plan, results),
	}
}

// BestOfN asks a judge model to select the strongest response instead of
// merging them. On any judge failure it returns the first valid response,
// never an error, mirroring the synthesis fallback policy.
func (a *Aggregator) BestOfN(ctx context.Context, originalPrompt string, results []models.AgentResult) string {
	valid := nonEmpty(results)
	if len(valid) == 0 {
		return "All agents failed."
	}
	if len(valid) == 1 || a.invoker == nil || a.model == "" {
		return valid[0].Response
	}

	var numbered strings.Builder
	for i, r := range valid {
		fmt.Fprintf(&numbered, "%d. %s\n", i+1, r.Response)
	}

	resp, err := a.invoker.Invoke(ctx, llm.Request{
		Model:     a.model,
		Prompt:    fmt.Sprintf(judgePrompt, originalPrompt, numbered.String()),
		MaxTokens: 10,
		Timeout:   a.timeout,
	})
	if err != nil {
		a.logf("[aggregator] judge call failed: %v", err)
		return valid[0].Response
	}

	idx, err := strconv.Atoi(strings.TrimSpace(resp.Text))
	if err != nil || idx < 1 || idx > len(valid) {
		return valid[0].Response
	}
	return valid[idx-1].Response
}

// Concatenate renders every result labeled by its source. This is the
// synthesis fallback and the shape shown when the user asks for raw
// per-agent output.
func Concatenate(results []models.AgentResult) string {
	var parts []string
	for i, r := range results {
		label := fmt.Sprintf("**Agent %d (%s):**", i+1, r.Model)
		if r.Failed() {
			parts = append(parts, fmt.Sprintf("%s Error - %s", label, r.Error))
		} else {
			parts = append(parts, fmt.Sprintf("%s\n%s", label, r.Response))
		}
	}
	return strings.Join(parts, "\n\n")
}

// metrics computes the speedup measurements. The sequential baseline is
// the sum of all task latencies; the parallel figure is the critical-path
// latency for a graph plan or the slowest slot for a parallel plan, since
// layers execute sequentially but tasks within them do not.
func (a *Aggregator) metrics(plan *models.Plan, results []models.AgentResult) models.RunMetrics {
	var m models.RunMetrics

	for i := range results {
		m.SequentialBaselineSeconds += results[i].LatencySeconds
	}

	switch {
	case plan != nil && plan.Mode == models.ModeB && plan.Graph != nil:
		latencies := make(map[string]float64, len(results))
		for i := range results {
			latencies[results[i].TaskID] = results[i].LatencySeconds
		}
		if dag, err := graph.Build(plan.Graph.SubTasks); err == nil {
			m.ParallelSeconds = dag.CriticalPathSeconds(latencies)
		} else {
			// An unbuildable graph can't have executed; fall back to the
			// slowest task so the metrics stay defined.
			m.ParallelSeconds = maxLatency(results)
		}
	default:
		m.ParallelSeconds = maxLatency(results)
	}

	if m.ParallelSeconds > 0 {
		m.Speedup = m.SequentialBaselineSeconds / m.ParallelSeconds
	}

	return m
}

func maxLatency(results []models.AgentResult) float64 {
	var max float64
	for i := range results {
		if results[i].LatencySeconds > max {
			max = results[i].LatencySeconds
		}
	}
	return max
}

func nonEmpty(results []models.AgentResult) []models.AgentResult {
	var valid []models.AgentResult
	for i := range results {
		if !results[i].Failed() && strings.TrimSpace(results[i].Response) != "" {
			valid = append(valid, results[i])
		}
	}
	return valid
}
