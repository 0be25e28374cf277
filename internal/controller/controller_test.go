package controller

import (
	"context"
	"testing"

	"github.com/paramind/paramind/internal/llm"
	"github.com/paramind/paramind/pkg/models"
)

// scriptedInvoker returns canned responses in order and records the
// requests it saw.
type scriptedInvoker struct {
	responses []string
	err       error
	requests  []llm.Request
}

func (s *scriptedInvoker) Invoke(ctx context.Context, req llm.Request) (*llm.Response, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	i := len(s.requests) - 1
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return &llm.Response{Text: s.responses[i], Tokens: 10}, nil
}

func testController(t *testing.T, inv llm.Invoker) *Controller {
	t.Helper()
	c, err := New(inv, Config{
		PlannerModel: "planner",
		Models:       []string{"m1", "m2"},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestNewRequiresModels(t *testing.T) {
	if _, err := New(nil, Config{}); err == nil {
		t.Error("New() with no models succeeded, want error")
	}
}

func TestBuildPlanFromModel(t *testing.T) {
	inv := &scriptedInvoker{responses: []string{
		`{"mode": "A", "reasoning": "broad", "plan": {"models": ["m1", "m2"]}}`,
	}}
	c := testController(t, inv)

	plan, err := c.BuildPlan(context.Background(), "What is Go?", Overrides{})
	if err != nil {
		t.Fatalf("BuildPlan() error: %v", err)
	}
	if plan.Mode != models.ModeA || len(plan.Parallel.Models) != 2 {
		t.Errorf("plan = %+v, want mode A with 2 models", plan)
	}
	if len(inv.requests) != 1 {
		t.Errorf("planner called %d times, want 1", len(inv.requests))
	}
}

func TestBuildPlanRepairsInvalidOutput(t *testing.T) {
	inv := &scriptedInvoker{responses: []string{
		`this is not json at all`,
		`{"mode": "A", "plan": {"models": ["m1", "m2"]}}`,
	}}
	c := testController(t, inv)

	plan, err := c.BuildPlan(context.Background(), "What is Go?", Overrides{})
	if err != nil {
		t.Fatalf("BuildPlan() error: %v", err)
	}
	if plan.Mode != models.ModeA {
		t.Errorf("Mode = %s, want A", plan.Mode)
	}
	if len(inv.requests) != 2 {
		t.Fatalf("invoker called %d times, want 2 (plan + repair)", len(inv.requests))
	}
}

func TestBuildPlanRepairsCyclicGraph(t *testing.T) {
	cyclic := `{"mode": "B", "plan": {"subtasks": [
		{"id": "a", "description": "first step", "model": "m1", "depends_on": ["b"]},
		{"id": "b", "description": "second step", "model": "m2", "depends_on": ["a"]}
	]}}`
	fixed := `{"mode": "B", "plan": {"subtasks": [
		{"id": "a", "description": "first step", "model": "m1"},
		{"id": "b", "description": "second step", "model": "m2", "depends_on": ["a"]}
	]}}`
	inv := &scriptedInvoker{responses: []string{cyclic, fixed}}
	c := testController(t, inv)

	plan, err := c.BuildPlan(context.Background(), "do a then b", Overrides{})
	if err != nil {
		t.Fatalf("BuildPlan() error: %v", err)
	}
	if plan.Mode != models.ModeB || len(plan.Graph.SubTasks) != 2 {
		t.Fatalf("plan = %+v, want repaired mode B plan", plan)
	}
}

func TestBuildPlanFallsBackAfterRepairBudget(t *testing.T) {
	// Every response is garbage; after the repair budget the fallback
	// must still deliver a valid plan.
	inv := &scriptedInvoker{responses: []string{"garbage", "garbage", "garbage"}}
	c := testController(t, inv)

	plan, err := c.BuildPlan(context.Background(), "Compare A and B", Overrides{})
	if err != nil {
		t.Fatalf("BuildPlan() error: %v", err)
	}
	if err := plan.Validate(); err != nil {
		t.Errorf("fallback plan invalid: %v", err)
	}
	if plan.Mode != models.ModeA {
		t.Errorf("comparison prompt fell back to mode %s, want A", plan.Mode)
	}
}

func TestBuildPlanFallsBackWhenPlannerErrors(t *testing.T) {
	inv := &scriptedInvoker{err: &llm.CallError{Kind: llm.FailureRateLimited, Model: "planner"}}
	c := testController(t, inv)

	plan, err := c.BuildPlan(context.Background(), "What is Go?", Overrides{})
	if err != nil {
		t.Fatalf("BuildPlan() error: %v", err)
	}
	if err := plan.Validate(); err != nil {
		t.Errorf("fallback plan invalid: %v", err)
	}
}

func TestBuildPlanWithoutInvoker(t *testing.T) {
	c := testController(t, nil)

	tests := []struct {
		name     string
		prompt   string
		wantMode models.Mode
	}{
		{"comparison prompt", "Compare X and Y for production use", models.ModeA},
		{"sequential prompt", "Research topic T, then summarize the findings", models.ModeB},
		{"plain question", "What is the capital of France?", models.ModeA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := c.BuildPlan(context.Background(), tt.prompt, Overrides{})
			if err != nil {
				t.Fatalf("BuildPlan() error: %v", err)
			}
			if plan.Mode != tt.wantMode {
				t.Errorf("Mode = %s, want %s", plan.Mode, tt.wantMode)
			}
			if err := plan.Validate(); err != nil {
				t.Errorf("plan invalid: %v", err)
			}
			if plan.AgentCount() < 2 {
				t.Errorf("AgentCount() = %d, want at least 2", plan.AgentCount())
			}
		})
	}
}

func TestFallbackChainShape(t *testing.T) {
	c := testController(t, nil)

	plan, err := c.BuildPlan(context.Background(), "Research the topic, then write a summary based on the findings", Overrides{})
	if err != nil {
		t.Fatalf("BuildPlan() error: %v", err)
	}
	if plan.Mode != models.ModeB {
		t.Fatalf("Mode = %s, want B", plan.Mode)
	}
	tasks := plan.Graph.SubTasks
	if len(tasks) != 2 {
		t.Fatalf("got %d subtasks, want 2", len(tasks))
	}
	if len(tasks[0].DependsOn) != 0 {
		t.Errorf("first task has dependencies: %v", tasks[0].DependsOn)
	}
	if len(tasks[1].DependsOn) != 1 || tasks[1].DependsOn[0] != tasks[0].ID {
		t.Errorf("second task depends on %v, want [%s]", tasks[1].DependsOn, tasks[0].ID)
	}
}

func TestFallbackSplitsIndependentComponents(t *testing.T) {
	c := testController(t, nil)

	plan, err := c.BuildPlan(context.Background(),
		"Write a haiku about autumn and draft a limerick about winter and compose a sonnet about spring", Overrides{})
	if err != nil {
		t.Fatalf("BuildPlan() error: %v", err)
	}
	if plan.Mode != models.ModeB {
		t.Fatalf("Mode = %s, want B", plan.Mode)
	}
	tasks := plan.Graph.SubTasks
	if len(tasks) != 3 {
		t.Fatalf("got %d subtasks, want 3", len(tasks))
	}
	for _, task := range tasks {
		if len(task.DependsOn) != 0 {
			t.Errorf("split task %s has dependencies: %v", task.ID, task.DependsOn)
		}
	}
	// Models rotate through the pool.
	if tasks[0].Model != "m1" || tasks[1].Model != "m2" || tasks[2].Model != "m1" {
		t.Errorf("model rotation = [%s %s %s], want [m1 m2 m1]",
			tasks[0].Model, tasks[1].Model, tasks[2].Model)
	}
}

func TestOverridesModeA(t *testing.T) {
	inv := &scriptedInvoker{responses: []string{
		`{"mode": "A", "plan": {"models": ["m1", "m2"]}}`,
	}}
	c := testController(t, inv)

	plan, err := c.BuildPlan(context.Background(), "What is Go?", Overrides{
		Model:      "forced-model",
		AgentCount: 4,
	})
	if err != nil {
		t.Fatalf("BuildPlan() error: %v", err)
	}
	if got := len(plan.Parallel.Models); got != 4 {
		t.Fatalf("agent count = %d, want 4", got)
	}
	for i, m := range plan.Parallel.Models {
		if m != "forced-model" {
			t.Errorf("slot %d = %q, want forced-model", i, m)
		}
	}
}

func TestOverridesIgnoredForModeB(t *testing.T) {
	inv := &scriptedInvoker{responses: []string{
		`{"mode": "B", "plan": {"subtasks": [
			{"id": "a", "description": "first step", "model": "m1"},
			{"id": "b", "description": "second step", "model": "m2", "depends_on": ["a"]}
		]}}`,
	}}
	c := testController(t, inv)

	plan, err := c.BuildPlan(context.Background(), "do a then b", Overrides{
		Model:      "forced-model",
		AgentCount: 5,
	})
	if err != nil {
		t.Fatalf("BuildPlan() error: %v", err)
	}
	if len(plan.Graph.SubTasks) != 2 {
		t.Errorf("graph resized to %d subtasks, want untouched 2", len(plan.Graph.SubTasks))
	}
	if plan.Graph.SubTasks[0].Model != "m1" {
		t.Errorf("graph model substituted: %s", plan.Graph.SubTasks[0].Model)
	}
}

func TestRevalidate(t *testing.T) {
	c := testController(t, nil)

	valid := &models.Plan{
		Mode:     models.ModeA,
		Parallel: &models.ParallelPayload{Models: []string{"m1", "m2"}},
	}
	if err := c.Revalidate(valid); err != nil {
		t.Errorf("Revalidate(valid) = %v, want nil", err)
	}

	cyclic := &models.Plan{
		Mode: models.ModeB,
		Graph: &models.GraphPayload{SubTasks: []models.SubTask{
			{ID: "a", Description: "x", Model: "m", DependsOn: []string{"b"}},
			{ID: "b", Description: "y", Model: "m", DependsOn: []string{"a"}},
		}},
	}
	if err := c.Revalidate(cyclic); err == nil {
		t.Error("Revalidate(cyclic) = nil, want error")
	}

	if err := c.Revalidate(nil); err == nil {
		t.Error("Revalidate(nil) = nil, want error")
	}
}

func TestAnalyzePrompt(t *testing.T) {
	tests := []struct {
		prompt     string
		comparison bool
		sequential bool
	}{
		{"Compare PostgreSQL and MySQL", true, false},
		{"Is Rust better than C++?", true, false},
		{"Research X, then summarize it", false, true},
		{"Summarize the report after reading it", false, true},
		{"What is the capital of France?", false, false},
	}

	for _, tt := range tests {
		shape := analyzePrompt(tt.prompt)
		if shape.isComparison != tt.comparison {
			t.Errorf("analyzePrompt(%q).isComparison = %v, want %v", tt.prompt, shape.isComparison, tt.comparison)
		}
		if shape.isSequential != tt.sequential {
			t.Errorf("analyzePrompt(%q).isSequential = %v, want %v", tt.prompt, shape.isSequential, tt.sequential)
		}
	}
}

func TestFallbackNeverReturnsInvalidPlan(t *testing.T) {
	c := testController(t, nil)

	prompts := []string{
		"",
		"x",
		"and and and",
		",,,,,",
		"then",
		"a, b, c, d, e, f, g",
	}
	for _, prompt := range prompts {
		plan, err := c.BuildPlan(context.Background(), prompt, Overrides{})
		if err != nil {
			t.Errorf("BuildPlan(%q) error: %v", prompt, err)
			continue
		}
		if err := plan.Validate(); err != nil {
			t.Errorf("BuildPlan(%q) produced invalid plan: %v", prompt, err)
		}
	}
}
