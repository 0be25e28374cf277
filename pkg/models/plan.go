package models

import "fmt"

// Mode selects how a prompt is distributed across agents.
type Mode string

const (
	// ModeA runs the unmodified prompt against several models at once.
	ModeA Mode = "A"
	// ModeB decomposes the prompt into a dependency graph of subtasks.
	ModeB Mode = "B"
)

// Valid returns true if the mode is a known value.
func (m Mode) Valid() bool {
	switch m {
	case ModeA, ModeB:
		return true
	default:
		return false
	}
}

// SubTask is one node in a Mode B execution graph.
type SubTask struct {
	// ID is the unique identifier for this subtask within its plan.
	ID string `json:"id"`
	// Description is the instruction given to the agent.
	Description string `json:"description"`
	// Model is the identifier of the model that runs this subtask.
	Model string `json:"model"`
	// DependsOn lists subtask IDs whose outputs this subtask needs.
	DependsOn []string `json:"depends_on,omitempty"`
}

// ParallelPayload holds the Mode A plan body: one model slot per agent,
// every slot receiving the original prompt unmodified.
type ParallelPayload struct {
	// Models is the ordered list of model identifiers, one per agent.
	Models []string `json:"models"`
}

// GraphPayload holds the Mode B plan body: a set of subtasks whose
// dependencies form a directed acyclic graph.
type GraphPayload struct {
	// SubTasks is the list of subtasks in declaration order.
	SubTasks []SubTask `json:"subtasks"`
}

// Plan is a validated execution plan. Exactly one of Parallel or Graph is
// populated, selected by Mode. Plans are immutable after validation; the
// human-review path replaces the whole plan and re-validates.
type Plan struct {
	// Mode selects which payload is active.
	Mode Mode `json:"mode"`
	// Reasoning is the planner's explanation for the chosen mode.
	Reasoning string `json:"reasoning,omitempty"`
	// Parallel is the Mode A payload. Nil unless Mode is ModeA.
	Parallel *ParallelPayload `json:"parallel,omitempty"`
	// Graph is the Mode B payload. Nil unless Mode is ModeB.
	Graph *GraphPayload `json:"graph,omitempty"`
}

// AgentCount returns how many agent invocations the plan requires.
func (p *Plan) AgentCount() int {
	switch p.Mode {
	case ModeA:
		if p.Parallel != nil {
			return len(p.Parallel.Models)
		}
	case ModeB:
		if p.Graph != nil {
			return len(p.Graph.SubTasks)
		}
	}
	return 0
}

// Validate checks the structural invariants that do not require graph
// traversal: the mode is known, the matching payload is present, subtask
// IDs are unique, and every dependency refers to a subtask in the plan.
// Acyclicity is checked separately by the graph package.
func (p *Plan) Validate() error {
	if !p.Mode.Valid() {
		return fmt.Errorf("unknown mode %q", p.Mode)
	}

	switch p.Mode {
	case ModeA:
		if p.Parallel == nil {
			return fmt.Errorf("mode A plan has no parallel payload")
		}
		if p.Graph != nil {
			return fmt.Errorf("mode A plan carries a graph payload")
		}
		if len(p.Parallel.Models) < 1 {
			return fmt.Errorf("mode A plan has no model slots")
		}
		for i, m := range p.Parallel.Models {
			if m == "" {
				return fmt.Errorf("mode A plan has empty model at slot %d", i)
			}
		}
	case ModeB:
		if p.Graph == nil {
			return fmt.Errorf("mode B plan has no graph payload")
		}
		if p.Parallel != nil {
			return fmt.Errorf("mode B plan carries a parallel payload")
		}
		if len(p.Graph.SubTasks) == 0 {
			return fmt.Errorf("mode B plan has no subtasks")
		}

		seen := make(map[string]bool, len(p.Graph.SubTasks))
		for _, st := range p.Graph.SubTasks {
			if st.ID == "" {
				return fmt.Errorf("subtask with empty id")
			}
			if seen[st.ID] {
				return fmt.Errorf("duplicate subtask id %q", st.ID)
			}
			seen[st.ID] = true
			if st.Description == "" {
				return fmt.Errorf("subtask %s has empty description", st.ID)
			}
			if st.Model == "" {
				return fmt.Errorf("subtask %s has no model", st.ID)
			}
		}
		for _, st := range p.Graph.SubTasks {
			for _, dep := range st.DependsOn {
				if !seen[dep] {
					return fmt.Errorf("subtask %s depends on unknown subtask %s", st.ID, dep)
				}
				if dep == st.ID {
					return fmt.Errorf("subtask %s depends on itself", st.ID)
				}
			}
		}
	}

	return nil
}
