package models

import (
	"strings"
	"testing"
)

func TestModeValid(t *testing.T) {
	tests := []struct {
		mode Mode
		want bool
	}{
		{ModeA, true},
		{ModeB, true},
		{Mode(""), false},
		{Mode("C"), false},
		{Mode("a"), false},
	}

	for _, tt := range tests {
		if got := tt.mode.Valid(); got != tt.want {
			t.Errorf("Mode(%q).Valid() = %v, want %v", tt.mode, got, tt.want)
		}
	}
}

func TestPlanValidate(t *testing.T) {
	tests := []struct {
		name    string
		plan    Plan
		wantErr string
	}{
		{
			name: "valid mode A",
			plan: Plan{
				Mode:     ModeA,
				Parallel: &ParallelPayload{Models: []string{"m1", "m2"}},
			},
		},
		{
			name: "valid mode B chain",
			plan: Plan{
				Mode: ModeB,
				Graph: &GraphPayload{SubTasks: []SubTask{
					{ID: "a", Description: "first", Model: "m1"},
					{ID: "b", Description: "second", Model: "m1", DependsOn: []string{"a"}},
				}},
			},
		},
		{
			name:    "unknown mode",
			plan:    Plan{Mode: "X"},
			wantErr: "unknown mode",
		},
		{
			name:    "mode A missing payload",
			plan:    Plan{Mode: ModeA},
			wantErr: "payload",
		},
		{
			name: "mode A with graph payload",
			plan: Plan{
				Mode:     ModeA,
				Parallel: &ParallelPayload{Models: []string{"m1"}},
				Graph:    &GraphPayload{SubTasks: []SubTask{{ID: "a", Description: "x", Model: "m1"}}},
			},
			wantErr: "payload",
		},
		{
			name: "mode A empty model list",
			plan: Plan{
				Mode:     ModeA,
				Parallel: &ParallelPayload{Models: nil},
			},
			wantErr: "model",
		},
		{
			name: "mode B empty subtasks",
			plan: Plan{
				Mode:  ModeB,
				Graph: &GraphPayload{},
			},
			wantErr: "subtask",
		},
		{
			name: "duplicate subtask id",
			plan: Plan{
				Mode: ModeB,
				Graph: &GraphPayload{SubTasks: []SubTask{
					{ID: "a", Description: "one", Model: "m1"},
					{ID: "a", Description: "two", Model: "m1"},
				}},
			},
			wantErr: "duplicate",
		},
		{
			name: "unknown dependency",
			plan: Plan{
				Mode: ModeB,
				Graph: &GraphPayload{SubTasks: []SubTask{
					{ID: "a", Description: "one", Model: "m1", DependsOn: []string{"ghost"}},
				}},
			},
			wantErr: "ghost",
		},
		{
			name: "self dependency",
			plan: Plan{
				Mode: ModeB,
				Graph: &GraphPayload{SubTasks: []SubTask{
					{ID: "a", Description: "one", Model: "m1", DependsOn: []string{"a"}},
				}},
			},
			wantErr: "itself",
		},
		{
			name: "empty subtask id",
			plan: Plan{
				Mode: ModeB,
				Graph: &GraphPayload{SubTasks: []SubTask{
					{ID: "", Description: "one", Model: "m1"},
				}},
			},
			wantErr: "id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestPlanAgentCount(t *testing.T) {
	parallel := Plan{Mode: ModeA, Parallel: &ParallelPayload{Models: []string{"m1", "m2", "m3"}}}
	if got := parallel.AgentCount(); got != 3 {
		t.Errorf("AgentCount() = %d, want 3", got)
	}

	graph := Plan{Mode: ModeB, Graph: &GraphPayload{SubTasks: []SubTask{
		{ID: "a"}, {ID: "b"},
	}}}
	if got := graph.AgentCount(); got != 2 {
		t.Errorf("AgentCount() = %d, want 2", got)
	}

	empty := Plan{}
	if got := empty.AgentCount(); got != 0 {
		t.Errorf("AgentCount() on empty plan = %d, want 0", got)
	}
}

func TestAgentResultFailed(t *testing.T) {
	ok := AgentResult{Response: "fine"}
	if ok.Failed() {
		t.Error("result with response and no error reported as failed")
	}
	bad := AgentResult{Error: "timeout"}
	if !bad.Failed() {
		t.Error("result with error not reported as failed")
	}
}
