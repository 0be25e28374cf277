// Package controller turns a user prompt into a validated execution plan.
// It asks a planning model to choose a mode and decompose the request,
// repairs invalid output, and falls back to deterministic linguistic
// heuristics when the model path fails entirely.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/paramind/paramind/internal/graph"
	"github.com/paramind/paramind/internal/llm"
	"github.com/paramind/paramind/pkg/models"
)

// Overrides adjusts a generated plan before execution. Both fields apply
// to Mode A plans only; a Mode B graph is left untouched.
type Overrides struct {
	// Model replaces every model slot when non-empty.
	Model string
	// AgentCount resizes the model list when positive, repeating the
	// configured pool as needed.
	AgentCount int
}

// Config contains configuration for a Controller.
type Config struct {
	// PlannerModel is the model used to generate plans.
	PlannerModel string
	// Models is the worker pool offered to the planner and used by the
	// fallback heuristics. Must not be empty.
	Models []string
	// RepairAttempts bounds re-prompts after invalid planner output.
	RepairAttempts int
	// Timeout bounds each planning call.
	Timeout time.Duration
}

// Controller builds validated execution plans.
type Controller struct {
	invoker        llm.Invoker
	plannerModel   string
	models         []string
	repairAttempts int
	timeout        time.Duration
	logf           func(format string, args ...interface{})
}

// New creates a Controller. A nil invoker disables the model path
// entirely; every plan then comes from the semantic fallback.
func New(invoker llm.Invoker, cfg Config) (*Controller, error) {
	if len(cfg.Models) == 0 {
		return nil, fmt.Errorf("controller needs at least one worker model")
	}

	repairs := cfg.RepairAttempts
	if repairs <= 0 {
		repairs = 2
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	planner := cfg.PlannerModel
	if planner == "" {
		planner = cfg.Models[0]
	}

	return &Controller{
		invoker:        invoker,
		plannerModel:   planner,
		models:         cfg.Models,
		repairAttempts: repairs,
		timeout:        timeout,
		logf:           func(string, ...interface{}) {},
	}, nil
}

// SetLogf sets the debug logging function.
func (c *Controller) SetLogf(fn func(format string, args ...interface{})) {
	if fn != nil {
		c.logf = fn
	}
}

// BuildPlan turns a prompt into a validated plan. It never returns a plan
// that violates the plan invariants, and it never fails outright: when
// the model path is unavailable or keeps producing invalid output, the
// deterministic fallback supplies the plan.
func (c *Controller) BuildPlan(ctx context.Context, prompt string, ov Overrides) (*models.Plan, error) {
	plan := c.modelPlan(ctx, prompt)
	if plan == nil {
		c.logf("[controller] model path failed, using semantic fallback")
		plan = c.fallbackPlan(prompt)
	}

	c.applyOverrides(plan, ov)

	// The fallback and override paths construct plans directly, so the
	// combined result is checked once more before it leaves the package.
	if err := c.validate(plan); err != nil {
		return nil, fmt.Errorf("plan failed final validation: %w", err)
	}

	return plan, nil
}

// Revalidate checks an externally edited plan against the same invariants
// BuildPlan enforces. This is the human-review path: the caller may have
// replaced descriptions, models, or ordering, and the edited plan must be
// proven valid again before execution. Planning is not re-run.
func (c *Controller) Revalidate(plan *models.Plan) error {
	if plan == nil {
		return fmt.Errorf("no plan submitted")
	}
	return c.validate(plan)
}

// modelPlan runs the LLM planning path: generate, parse, repair, validate.
// Returns nil when the path fails and the fallback should take over.
func (c *Controller) modelPlan(ctx context.Context, prompt string) *models.Plan {
	if c.invoker == nil {
		return nil
	}

	raw, err := c.callPlanner(ctx, prompt)
	if err != nil {
		c.logf("[controller] planning call failed: %v", err)
		return nil
	}

	plan, parseErr := ParseResponse(raw)
	if parseErr == nil {
		if valErr := c.validate(plan); valErr == nil {
			c.logf("[controller] planner chose mode %s (%d agents)", plan.Mode, plan.AgentCount())
			return plan
		} else {
			plan, parseErr = nil, valErr
		}
	}

	// Bounded repair: hand the model its own invalid output and the
	// reason it was rejected.
	for attempt := 1; attempt <= c.repairAttempts; attempt++ {
		c.logf("[controller] repair attempt %d/%d: %v", attempt, c.repairAttempts, parseErr)

		problem := parseErr.Error()
		if errors.Is(parseErr, graph.ErrCycleDetected) {
			problem = cycleRepairNote
		}

		repaired, err := c.callRepair(ctx, problem, raw)
		if err != nil {
			c.logf("[controller] repair call failed: %v", err)
			return nil
		}
		raw = repaired

		plan, parseErr = ParseResponse(raw)
		if parseErr != nil {
			continue
		}
		if parseErr = c.validate(plan); parseErr == nil {
			c.logf("[controller] repair succeeded on attempt %d", attempt)
			return plan
		}
	}

	c.logf("[controller] plan invalid after %d repair attempts: %v", c.repairAttempts, parseErr)
	return nil
}

// callPlanner issues the planning call with the few-shot instruction.
func (c *Controller) callPlanner(ctx context.Context, prompt string) (string, error) {
	resp, err := c.invoker.Invoke(ctx, llm.Request{
		Model:   c.plannerModel,
		Prompt:  prompt,
		System:  c.systemPrompt(),
		Timeout: c.timeout,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// callRepair re-prompts the planner with its invalid output.
func (c *Controller) callRepair(ctx context.Context, problem, invalid string) (string, error) {
	resp, err := c.invoker.Invoke(ctx, llm.Request{
		Model:   c.plannerModel,
		Prompt:  fmt.Sprintf(repairPrompt, problem, invalid),
		System:  "You are a JSON fixer. Return ONLY valid JSON.",
		Timeout: c.timeout,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (c *Controller) systemPrompt() string {
	list := ""
	for _, m := range c.models {
		list += "- " + m + "\n"
	}
	second := c.models[0]
	if len(c.models) > 1 {
		second = c.models[1]
	}
	return fmt.Sprintf(planningPrompt, list, c.models[0], second)
}

// validate enforces the full plan invariants: structural checks plus
// acyclicity of the Mode B dependency relation.
func (c *Controller) validate(plan *models.Plan) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	if plan.Mode == models.ModeB {
		if _, err := graph.Build(plan.Graph.SubTasks); err != nil {
			return err
		}
	}
	return nil
}

// applyOverrides rewrites the Mode A model list in place. A Mode B graph
// is never touched: resizing or substituting models in a dependency graph
// would invalidate the planner's decomposition.
func (c *Controller) applyOverrides(plan *models.Plan, ov Overrides) {
	if plan.Mode != models.ModeA || plan.Parallel == nil {
		return
	}

	slots := plan.Parallel.Models

	if ov.AgentCount > 0 {
		resized := make([]string, ov.AgentCount)
		for i := range resized {
			if len(slots) > 0 {
				resized[i] = slots[i%len(slots)]
			} else {
				resized[i] = c.modelAt(i)
			}
		}
		slots = resized
	}

	if ov.Model != "" {
		for i := range slots {
			slots[i] = ov.Model
		}
	}

	plan.Parallel.Models = slots
}
