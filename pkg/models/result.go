package models

// AgentResult is the outcome of a single agent call. The executor owns a
// result until it hands the full slice to the aggregator; afterwards it is
// read-only.
type AgentResult struct {
	// TaskID is the subtask this result belongs to. Empty for Mode A slots.
	TaskID string `json:"task_id,omitempty"`
	// Description is the subtask description, carried for Mode B reporting.
	Description string `json:"description,omitempty"`
	// Model is the model identifier that produced the response.
	Model string `json:"model"`
	// Response is the model output. Empty when the call failed.
	Response string `json:"response"`
	// Tokens is the total token count reported by the provider.
	Tokens int `json:"tokens"`
	// LatencySeconds is the wall-clock duration of the call.
	LatencySeconds float64 `json:"latency_seconds"`
	// Error is the failure taxonomy tag, empty on success.
	Error string `json:"error,omitempty"`
	// Cached reports whether the response was served from the memo cache.
	Cached bool `json:"cached,omitempty"`
}

// Failed returns true if the call ended with a recorded error.
func (r *AgentResult) Failed() bool {
	return r.Error != ""
}

// RunMetrics summarizes the speedup achieved by a run.
type RunMetrics struct {
	// SequentialBaselineSeconds is the sum of all task latencies, the cost
	// if every call had run one after another.
	SequentialBaselineSeconds float64 `json:"sequential_baseline_seconds"`
	// ParallelSeconds is the latency of the longest dependency chain
	// actually executed (Mode B) or the slowest slot (Mode A).
	ParallelSeconds float64 `json:"parallel_seconds"`
	// Speedup is SequentialBaselineSeconds / ParallelSeconds, or 0 when
	// ParallelSeconds is 0.
	Speedup float64 `json:"speedup"`
}

// AggregatedResult is the final product of a run: the synthesized answer,
// the per-task results in execution order, and the speedup metrics.
type AggregatedResult struct {
	// FinalText is the combined answer shown to the user.
	FinalText string `json:"final_text"`
	// PerTask holds every agent result in layer order.
	PerTask []AgentResult `json:"per_task"`
	// Metrics holds the speedup measurements for this run.
	Metrics RunMetrics `json:"metrics"`
	// Synthesized reports whether FinalText came from the synthesis model
	// rather than the concatenation fallback.
	Synthesized bool `json:"synthesized"`
}
