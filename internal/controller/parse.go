package controller

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/paramind/paramind/pkg/models"
)

// flexID accepts both string and numeric task ids. Planning models
// frequently emit numeric ids even when asked for strings.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexID(n.String())
		return nil
	}
	return fmt.Errorf("task id must be a string or number, got %s", string(data))
}

// wireSubTask is the JSON shape of one subtask in the planner's output.
type wireSubTask struct {
	ID          flexID   `json:"id"`
	Description string   `json:"description"`
	Model       string   `json:"model"`
	DependsOn   []flexID `json:"depends_on"`
}

// wirePayload is the JSON shape of the plan body.
type wirePayload struct {
	Models   []string      `json:"models"`
	SubTasks []wireSubTask `json:"subtasks"`
}

// wirePlan is the JSON shape of the planner's full response.
type wirePlan struct {
	Mode      string      `json:"mode"`
	Reasoning string      `json:"reasoning"`
	Plan      wirePayload `json:"plan"`
}

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// cleanResponse strips the decoration planning models wrap around their
// JSON: markdown fences, leading prose, and trailing text. It also
// repairs the two malformations seen in practice - a "config" key where
// "plan" was requested, and unbalanced closing brackets.
func cleanResponse(raw string) string {
	text := strings.TrimSpace(raw)

	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		text = text[start : end+1]
	}

	text = strings.ReplaceAll(text, `"config":`, `"plan":`)

	if n := strings.Count(text, "[") - strings.Count(text, "]"); n > 0 {
		text = strings.TrimSpace(text) + strings.Repeat("]", n)
	}
	if n := strings.Count(text, "{") - strings.Count(text, "}"); n > 0 {
		text = strings.TrimSpace(text) + strings.Repeat("}", n)
	}

	return text
}

// ParseResponse parses a planning model response into a Plan. The result
// has not been validated; callers run Validate and the cycle check next.
func ParseResponse(raw string) (*models.Plan, error) {
	text := cleanResponse(raw)
	if text == "" {
		return nil, fmt.Errorf("empty planning response")
	}

	var wire wirePlan
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w", err)
	}

	mode := models.Mode(strings.ToUpper(strings.TrimSpace(wire.Mode)))

	plan := &models.Plan{
		Mode:      mode,
		Reasoning: wire.Reasoning,
	}

	switch mode {
	case models.ModeA:
		plan.Parallel = &models.ParallelPayload{Models: wire.Plan.Models}
	case models.ModeB:
		subtasks := make([]models.SubTask, 0, len(wire.Plan.SubTasks))
		for _, ws := range wire.Plan.SubTasks {
			st := models.SubTask{
				ID:          string(ws.ID),
				Description: ws.Description,
				Model:       ws.Model,
			}
			for _, dep := range ws.DependsOn {
				st.DependsOn = append(st.DependsOn, string(dep))
			}
			subtasks = append(subtasks, st)
		}
		plan.Graph = &models.GraphPayload{SubTasks: subtasks}
	default:
		return nil, fmt.Errorf("unknown mode %q in planning response", wire.Mode)
	}

	return plan, nil
}
