// Package graph provides the dependency graph used to schedule subtasks.
package graph

import (
	"errors"
	"fmt"

	"github.com/paramind/paramind/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found in the plan.
var ErrCycleDetected = errors.New("circular dependency detected")

// DependencyGraph is a directed acyclic graph of subtask dependencies.
// Nodes are subtasks, edges point from a task to the tasks it depends on.
// The graph is built once from a plan and read-only afterwards.
type DependencyGraph struct {
	// nodes maps subtask ID to the subtask itself.
	nodes map[string]models.SubTask
	// edges maps subtask ID to the IDs it depends on.
	edges map[string][]string
	// order records subtask IDs in declaration order, used to keep
	// layering deterministic.
	order []string
}

// Build constructs a dependency graph from the subtasks of a plan.
// Returns an error if a dependency references an unknown task or the
// dependency relation contains a cycle.
func Build(subtasks []models.SubTask) (*DependencyGraph, error) {
	g := &DependencyGraph{
		nodes: make(map[string]models.SubTask, len(subtasks)),
		edges: make(map[string][]string, len(subtasks)),
		order: make([]string, 0, len(subtasks)),
	}

	for _, st := range subtasks {
		if _, dup := g.nodes[st.ID]; dup {
			return nil, fmt.Errorf("duplicate subtask id %q", st.ID)
		}
		g.nodes[st.ID] = st
		g.edges[st.ID] = nil
		g.order = append(g.order, st.ID)
	}

	for _, st := range subtasks {
		for _, depID := range st.DependsOn {
			if _, exists := g.nodes[depID]; !exists {
				return nil, fmt.Errorf("subtask %s depends on unknown subtask %s", st.ID, depID)
			}
			g.edges[st.ID] = append(g.edges[st.ID], depID)
		}
	}

	if g.hasCycle() {
		return nil, ErrCycleDetected
	}

	return g, nil
}

// hasCycle detects back edges with depth-first search and coloring.
func (g *DependencyGraph) hasCycle() bool {
	// Color states: 0 = unvisited, 1 = in progress, 2 = done.
	colors := make(map[string]int, len(g.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1

		for _, depID := range g.edges[id] {
			switch colors[depID] {
			case 1:
				return true
			case 0:
				if visit(depID) {
					return true
				}
			}
		}

		colors[id] = 2
		return false
	}

	for _, id := range g.order {
		if colors[id] == 0 && visit(id) {
			return true
		}
	}

	return false
}

// Layers partitions the subtask IDs into execution layers using Kahn's
// algorithm: layer 0 holds the tasks with no dependencies, and every task
// in layer i has all of its dependencies in layers 0..i-1. Tasks within a
// layer appear in declaration order.
//
// If a round places no new task while unplaced tasks remain, the relation
// is cyclic and ErrCycleDetected is returned. The remaining tasks are
// never dumped into a final layer: an undefined ordering would break
// context injection for their dependents.
func (g *DependencyGraph) Layers() ([][]string, error) {
	placed := make(map[string]bool, len(g.nodes))
	var layers [][]string

	for len(placed) < len(g.nodes) {
		var layer []string
		for _, id := range g.order {
			if placed[id] {
				continue
			}
			ready := true
			for _, depID := range g.edges[id] {
				if !placed[depID] {
					ready = false
					break
				}
			}
			if ready {
				layer = append(layer, id)
			}
		}

		if len(layer) == 0 {
			return nil, ErrCycleDetected
		}

		for _, id := range layer {
			placed[id] = true
		}
		layers = append(layers, layer)
	}

	return layers, nil
}

// Task returns the subtask for an ID. The second return is false if the
// ID is not in the graph.
func (g *DependencyGraph) Task(id string) (models.SubTask, bool) {
	st, ok := g.nodes[id]
	return st, ok
}

// Dependencies returns the IDs the given subtask depends on.
func (g *DependencyGraph) Dependencies(id string) []string {
	return g.edges[id]
}

// Dependents returns the IDs of subtasks that depend on the given one.
func (g *DependencyGraph) Dependents(id string) []string {
	var out []string
	for _, candidate := range g.order {
		for _, depID := range g.edges[candidate] {
			if depID == id {
				out = append(out, candidate)
				break
			}
		}
	}
	return out
}

// Size returns the number of subtasks in the graph.
func (g *DependencyGraph) Size() int {
	return len(g.nodes)
}

// CriticalPathSeconds returns the largest total latency along any
// dependency chain, given per-task latencies. Tasks missing from the map
// contribute zero. This is the parallel wall-clock lower bound the
// aggregator reports for Mode B runs.
func (g *DependencyGraph) CriticalPathSeconds(latencies map[string]float64) float64 {
	memo := make(map[string]float64, len(g.nodes))

	var chain func(id string) float64
	chain = func(id string) float64 {
		if v, ok := memo[id]; ok {
			return v
		}
		var longest float64
		for _, depID := range g.edges[id] {
			if v := chain(depID); v > longest {
				longest = v
			}
		}
		total := longest + latencies[id]
		memo[id] = total
		return total
	}

	var max float64
	for _, id := range g.order {
		if v := chain(id); v > max {
			max = v
		}
	}
	return max
}
