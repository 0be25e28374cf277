package controller

import (
	"strings"
	"testing"

	"github.com/paramind/paramind/pkg/models"
)

func TestParseResponseModeA(t *testing.T) {
	raw := `{"mode": "A", "reasoning": "broad question", "plan": {"models": ["m1", "m2", "m3"]}}`

	plan, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse() error: %v", err)
	}
	if plan.Mode != models.ModeA {
		t.Errorf("Mode = %s, want A", plan.Mode)
	}
	if plan.Parallel == nil || len(plan.Parallel.Models) != 3 {
		t.Fatalf("Parallel payload = %+v, want 3 models", plan.Parallel)
	}
	if plan.Reasoning != "broad question" {
		t.Errorf("Reasoning = %q", plan.Reasoning)
	}
}

func TestParseResponseModeB(t *testing.T) {
	raw := `{
		"mode": "B",
		"plan": {"subtasks": [
			{"id": "research", "description": "research the topic", "model": "m1"},
			{"id": "summary", "description": "summarize findings", "model": "m2", "depends_on": ["research"]}
		]}
	}`

	plan, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse() error: %v", err)
	}
	if plan.Mode != models.ModeB {
		t.Fatalf("Mode = %s, want B", plan.Mode)
	}
	if len(plan.Graph.SubTasks) != 2 {
		t.Fatalf("got %d subtasks, want 2", len(plan.Graph.SubTasks))
	}
	second := plan.Graph.SubTasks[1]
	if second.ID != "summary" || len(second.DependsOn) != 1 || second.DependsOn[0] != "research" {
		t.Errorf("second subtask = %+v", second)
	}
}

// Planning models emit numeric ids despite instructions to use strings.
func TestParseResponseNumericIDs(t *testing.T) {
	raw := `{"mode": "B", "plan": {"subtasks": [
		{"id": 1, "description": "first", "model": "m1"},
		{"id": 2, "description": "second", "model": "m1", "depends_on": [1]}
	]}}`

	plan, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse() error: %v", err)
	}
	if plan.Graph.SubTasks[0].ID != "1" {
		t.Errorf("first id = %q, want \"1\"", plan.Graph.SubTasks[0].ID)
	}
	if plan.Graph.SubTasks[1].DependsOn[0] != "1" {
		t.Errorf("dependency = %q, want \"1\"", plan.Graph.SubTasks[1].DependsOn[0])
	}
}

func TestParseResponseDecorated(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "markdown fence",
			raw:  "```json\n{\"mode\": \"A\", \"plan\": {\"models\": [\"m1\", \"m2\"]}}\n```",
		},
		{
			name: "fence without language",
			raw:  "```\n{\"mode\": \"A\", \"plan\": {\"models\": [\"m1\", \"m2\"]}}\n```",
		},
		{
			name: "surrounding prose",
			raw:  "Here is the plan you asked for:\n{\"mode\": \"A\", \"plan\": {\"models\": [\"m1\", \"m2\"]}}\nLet me know if you need changes.",
		},
		{
			name: "lowercase mode",
			raw:  `{"mode": "a", "plan": {"models": ["m1", "m2"]}}`,
		},
		{
			name: "config key instead of plan",
			raw:  `{"mode": "A", "config": {"models": ["m1", "m2"]}}`,
		},
		{
			name: "missing closing brackets",
			raw:  `{"mode": "A", "plan": {"models": ["m1", "m2"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := ParseResponse(tt.raw)
			if err != nil {
				t.Fatalf("ParseResponse() error: %v", err)
			}
			if plan.Mode != models.ModeA || len(plan.Parallel.Models) != 2 {
				t.Errorf("plan = %+v, want mode A with 2 models", plan)
			}
		})
	}
}

func TestParseResponseErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace only", "   \n\t  "},
		{"prose without JSON", "I cannot generate a plan for that."},
		{"unknown mode", `{"mode": "C", "plan": {}}`},
		{"garbage", "{{{]]]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseResponse(tt.raw); err == nil {
				t.Error("ParseResponse() succeeded, want error")
			}
		})
	}
}

func TestCleanResponseBalancesBrackets(t *testing.T) {
	got := cleanResponse(`{"mode": "B", "plan": {"subtasks": [{"id": "a"}`)
	if strings.Count(got, "{") != strings.Count(got, "}") {
		t.Errorf("braces unbalanced after clean: %q", got)
	}
	if strings.Count(got, "[") != strings.Count(got, "]") {
		t.Errorf("brackets unbalanced after clean: %q", got)
	}
}
