// Package executor schedules a validated plan into dependency-respecting
// concurrent layers and runs every agent call to a terminal state.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/paramind/paramind/internal/graph"
	"github.com/paramind/paramind/internal/llm"
	"github.com/paramind/paramind/pkg/models"
)

// ErrInvalidPlan indicates the plan handed to the executor violates the
// plan invariants. The controller validates plans before execution, so
// seeing this error means a caller bypassed it.
var ErrInvalidPlan = errors.New("invalid plan")

// markdownInstruction is appended to every worker prompt so responses
// render well in the UI.
const markdownInstruction = "\n\nIMPORTANT: Format your response using Markdown. Use tables for structured data, bullet points for lists, and bold text for key information."

// contextHeader labels the injected parent outputs in a child prompt.
const contextHeader = "### Results from earlier steps:"

// Config contains configuration for an Executor.
type Config struct {
	// Retry bounds transient-failure retries per call.
	Retry RetryPolicy
	// Quality drives the low-quality refinement loop.
	Quality QualityGate
	// TaskTimeout bounds each individual agent call.
	TaskTimeout time.Duration
	// ContextCharLimit truncates a parent output before injection into a
	// child prompt. Zero means the default of 2000.
	ContextCharLimit int
}

// Executor runs plans against the agent call capability. Calls go through
// whatever Invoker it is given; in production that is the caching
// decorator over the real client.
type Executor struct {
	invoker      llm.Invoker
	retry        RetryPolicy
	quality      QualityGate
	taskTimeout  time.Duration
	contextLimit int
	logger       *DebugLogger
}

// New creates an Executor.
func New(invoker llm.Invoker, cfg Config) *Executor {
	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryPolicy()
	}
	quality := cfg.Quality
	if quality.MinChars == 0 {
		quality = DefaultQualityGate()
	}
	timeout := cfg.TaskTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	limit := cfg.ContextCharLimit
	if limit == 0 {
		limit = 2000
	}

	return &Executor{
		invoker:      invoker,
		retry:        retry,
		quality:      quality,
		taskTimeout:  timeout,
		contextLimit: limit,
		logger:       NopLogger(),
	}
}

// SetLogger sets the debug logger for this executor.
func (e *Executor) SetLogger(l *DebugLogger) {
	if l != nil {
		e.logger = l
	}
}

// Run executes the plan and returns one result per task, in layer order
// and declaration order within a layer. Individual task failures are
// recorded in their result and never abort the run; the only errors Run
// itself returns are an invalid plan or a cancelled context.
func (e *Executor) Run(ctx context.Context, plan *models.Plan, originalPrompt string, concurrencyLimit int) ([]models.AgentResult, error) {
	if plan == nil {
		return nil, fmt.Errorf("%w: no plan", ErrInvalidPlan)
	}
	if concurrencyLimit <= 0 {
		concurrencyLimit = 3
	}

	switch plan.Mode {
	case models.ModeA:
		if plan.Parallel == nil || len(plan.Parallel.Models) == 0 {
			return nil, fmt.Errorf("%w: mode A plan has no model slots", ErrInvalidPlan)
		}
		return e.runParallel(ctx, plan.Parallel.Models, originalPrompt, concurrencyLimit)
	case models.ModeB:
		if plan.Graph == nil || len(plan.Graph.SubTasks) == 0 {
			return nil, fmt.Errorf("%w: mode B plan has no subtasks", ErrInvalidPlan)
		}
		return e.runGraph(ctx, plan.Graph.SubTasks, concurrencyLimit)
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidPlan, plan.Mode)
	}
}

// runParallel executes Mode A: every model slot gets the unmodified
// original prompt, all in one layer.
func (e *Executor) runParallel(ctx context.Context, slots []string, prompt string, limit int) ([]models.AgentResult, error) {
	e.logger.Log("[executor] mode A: %d slots, concurrency %d", len(slots), limit)

	results := make([]models.AgentResult, len(slots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, model := range slots {
		i, model := i, model
		g.Go(func() error {
			results[i] = e.executeTask(gctx, taskSpec{
				Model:  model,
				Prompt: prompt + markdownInstruction,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.logger.Log("[executor] mode A complete: %d/%d successful", countOK(results), len(results))
	return results, nil
}

// runGraph executes Mode B: tasks are partitioned into topological layers
// and each layer runs concurrently once the previous one has fully
// reached a terminal state. That barrier is what makes injected context
// an immutable snapshot of the parents' finished results.
func (e *Executor) runGraph(ctx context.Context, subtasks []models.SubTask, limit int) ([]models.AgentResult, error) {
	dag, err := graph.Build(subtasks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	layers, err := dag.Layers()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}

	e.logger.Log("[executor] mode B: %d tasks in %d layers, concurrency %d", len(subtasks), len(layers), limit)

	completed := make(map[string]*models.AgentResult, len(subtasks))
	ordered := make([]models.AgentResult, 0, len(subtasks))

	for li, layer := range layers {
		e.logger.Log("[executor] layer %d/%d: %d tasks", li+1, len(layers), len(layer))

		layerResults := make([]models.AgentResult, len(layer))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)
		for i, id := range layer {
			i, id := i, id
			task, _ := dag.Task(id)
			contextText := e.buildContext(dag, id, completed)

			g.Go(func() error {
				res := e.executeTask(gctx, taskSpec{
					Model:   task.Model,
					Prompt:  task.Description + markdownInstruction,
					Context: contextText,
				})
				res.TaskID = task.ID
				res.Description = task.Description
				layerResults[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for i, id := range layer {
			if layerResults[i].Failed() {
				e.logger.Log("[executor] task %s failed: %s", id, layerResults[i].Error)
			}
			res := layerResults[i]
			ordered = append(ordered, res)
			completed[id] = &res
		}
	}

	e.logger.Log("[executor] mode B complete: %d/%d successful", countOK(ordered), len(ordered))
	return ordered, nil
}

// buildContext assembles the injected context for a task from its direct
// dependencies. A failed parent contributes an explicit marker instead of
// output, so the child still runs and knows what is missing.
func (e *Executor) buildContext(dag *graph.DependencyGraph, id string, completed map[string]*models.AgentResult) string {
	deps := dag.Dependencies(id)
	if len(deps) == 0 {
		return ""
	}

	parts := []string{contextHeader}
	for _, depID := range deps {
		res, ok := completed[depID]
		if !ok {
			continue
		}
		if res.Failed() {
			parts = append(parts, fmt.Sprintf("From task %s: [upstream task failed: %s]", depID, res.Error))
			continue
		}
		text := res.Response
		if len(text) > e.contextLimit {
			text = text[:e.contextLimit] + "...(truncated)"
		}
		parts = append(parts, fmt.Sprintf("From task %s:\n%s\n", depID, text))
	}

	out := parts[0]
	for _, p := range parts[1:] {
		out += "\n" + p
	}
	return out
}

// taskSpec is the prepared input for one agent call.
type taskSpec struct {
	Model   string
	Prompt  string
	Context string
}

// executeTask drives one task to a terminal state: transient failures are
// retried with backoff, low-quality responses trigger refinement retries,
// and exhaustion records the failure on the result instead of raising it.
func (e *Executor) executeTask(ctx context.Context, spec taskSpec) models.AgentResult {
	result := models.AgentResult{Model: spec.Model}

	resp, callErr := e.callWithRetry(ctx, llm.Request{
		Model:   spec.Model,
		Prompt:  spec.Prompt,
		Context: spec.Context,
		Timeout: e.taskTimeout,
	}, &result)
	if callErr != nil {
		result.Error = failureTag(callErr)
		return result
	}

	best := resp.Text
	if !e.quality.Acceptable(best) {
		best = e.refine(ctx, spec, best, &result)
	}

	result.Response = best
	result.Cached = resp.Cached
	return result
}

// callWithRetry performs one call with the transient-failure retry budget,
// accumulating tokens and latency on the result as it goes.
func (e *Executor) callWithRetry(ctx context.Context, req llm.Request, result *models.AgentResult) (*llm.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= e.retry.MaxAttempts; attempt++ {
		resp, err := e.invoker.Invoke(ctx, req)
		if err == nil {
			result.Tokens += resp.Tokens
			result.LatencySeconds += resp.Latency.Seconds()
			return resp, nil
		}
		lastErr = err

		var ce *llm.CallError
		transient := errors.As(err, &ce) && ce.Transient()
		if !transient || attempt == e.retry.MaxAttempts || ctx.Err() != nil {
			break
		}

		delay := e.retry.Backoff(attempt)
		e.logger.Log("[executor] %s attempt %d failed (%v), retrying in %s", req.Model, attempt, err, delay)
		sleep(ctx, delay)
	}

	return nil, lastErr
}

// refine re-issues a low-quality call with an appended instruction, up to
// the gate's refinement budget, and returns the best candidate seen: the
// first one to pass the gate, else the longest non-refusal.
func (e *Executor) refine(ctx context.Context, spec taskSpec, first string, result *models.AgentResult) string {
	best := first
	e.logger.Log("[executor] %s response failed quality gate (%d chars), refining", spec.Model, len(first))

	for attempt := 1; attempt <= e.quality.MaxRefinements; attempt++ {
		resp, err := e.callWithRetry(ctx, llm.Request{
			Model:   spec.Model,
			Prompt:  spec.Prompt + refineInstruction,
			Context: spec.Context,
			Timeout: e.taskTimeout,
		}, result)
		if err != nil {
			// The original response stays usable; a refinement failure
			// just ends the loop.
			e.logger.Log("[executor] refinement attempt %d failed: %v", attempt, err)
			break
		}

		if e.quality.Acceptable(resp.Text) {
			return resp.Text
		}
		if better(resp.Text, best) {
			best = resp.Text
		}
	}

	return best
}

// better ranks two candidate responses: a non-refusal beats a refusal,
// then longer beats shorter.
func better(candidate, current string) bool {
	cr, br := refusal(candidate), refusal(current)
	if cr != br {
		return br
	}
	return len(candidate) > len(current)
}

// failureTag maps a terminal call error onto the recorded taxonomy tag.
func failureTag(err error) string {
	if kind := llm.KindOf(err); kind != "" {
		return string(kind)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return string(llm.FailureTimeout)
	}
	return string(llm.FailureProvider)
}

func countOK(results []models.AgentResult) int {
	n := 0
	for i := range results {
		if !results[i].Failed() {
			n++
		}
	}
	return n
}
