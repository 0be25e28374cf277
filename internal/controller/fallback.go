package controller

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/paramind/paramind/pkg/models"
)

// comparisonPatterns are cues that a request wants multiple independent
// perspectives on the same question.
var comparisonPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bcompare\b`),
	regexp.MustCompile(`\bversus\b`),
	regexp.MustCompile(`\bvs\.?\b`),
	regexp.MustCompile(`\bbetter\b`),
	regexp.MustCompile(`\bdifference\b`),
	regexp.MustCompile(`\bpros and cons\b`),
	regexp.MustCompile(`\badvantages?\b`),
}

// sequencingPatterns are cues that one part of the request depends on the
// output of another.
var sequencingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bthen\b`),
	regexp.MustCompile(`\bbased on\b`),
	regexp.MustCompile(`\bafter\b`),
	regexp.MustCompile(`\busing (?:that|the) (?:result|research|output)\b`),
}

var andSplit = regexp.MustCompile(`(?i)\band\b`)

// promptShape summarizes the linguistic structure of a prompt.
type promptShape struct {
	isComparison bool
	isSequential bool
	andCount     int
	commaCount   int
	components   int
}

// analyzePrompt detects coordination and sequencing cues in the prompt.
func analyzePrompt(prompt string) promptShape {
	lower := strings.ToLower(prompt)

	shape := promptShape{
		andCount:   len(andSplit.FindAllString(lower, -1)),
		commaCount: strings.Count(lower, ","),
	}

	for _, p := range comparisonPatterns {
		if p.MatchString(lower) {
			shape.isComparison = true
			break
		}
	}
	for _, p := range sequencingPatterns {
		if p.MatchString(lower) {
			shape.isSequential = true
			break
		}
	}

	switch {
	case shape.andCount >= 2:
		shape.components = shape.andCount + 1
	case shape.commaCount >= 2:
		shape.components = shape.commaCount + 1
	}

	return shape
}

// fallbackPlan builds a plan from deterministic heuristics alone. It is
// the last line of defense when the planning model is unavailable or keeps
// producing invalid output, so it always returns a valid plan.
func (c *Controller) fallbackPlan(prompt string) *models.Plan {
	shape := analyzePrompt(prompt)

	if shape.isSequential && !shape.isComparison {
		return c.fallbackChain(prompt)
	}

	if !shape.isComparison && shape.components >= 2 {
		if plan := c.fallbackSplit(prompt, shape); plan != nil {
			return plan
		}
	}

	reason := "default: multiple perspectives on a single task"
	if shape.isComparison {
		reason = "detected comparison request"
	}
	return c.fallbackParallel(reason)
}

// fallbackParallel builds a Mode A plan over the configured model pool.
func (c *Controller) fallbackParallel(reason string) *models.Plan {
	pool := c.models
	if len(pool) < 2 {
		// A single configured model still yields two slots: independent
		// samples of the same model are two opinions.
		pool = append(append([]string{}, pool...), pool...)
	}
	slots := make([]string, 0, 2)
	for i := 0; len(slots) < 2; i++ {
		slots = append(slots, pool[i%len(pool)])
	}

	return &models.Plan{
		Mode:      models.ModeA,
		Reasoning: reason,
		Parallel:  &models.ParallelPayload{Models: slots},
	}
}

// fallbackChain builds the simplest Mode B plan: the whole request as the
// first task and a consolidation step that depends on it.
func (c *Controller) fallbackChain(prompt string) *models.Plan {
	first := uuid.New().String()
	second := uuid.New().String()

	return &models.Plan{
		Mode:      models.ModeB,
		Reasoning: "detected sequencing cue, splitting into a two-step chain",
		Graph: &models.GraphPayload{
			SubTasks: []models.SubTask{
				{
					ID:          first,
					Description: "Work on the first part of this request: " + prompt,
					Model:       c.modelAt(0),
				},
				{
					ID:          second,
					Description: "Complete the remainder of this request using the earlier results: " + prompt,
					Model:       c.modelAt(1),
					DependsOn:   []string{first},
				},
			},
		},
	}
}

// fallbackSplit decomposes the prompt along "and" or comma boundaries
// into independent subtasks. Returns nil when the split yields fewer than
// two usable parts.
func (c *Controller) fallbackSplit(prompt string, shape promptShape) *models.Plan {
	var parts []string
	if shape.andCount >= 2 {
		parts = andSplit.Split(prompt, -1)
	} else {
		parts = strings.Split(prompt, ",")
	}

	var kept []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) > 10 {
			kept = append(kept, p)
		}
		if len(kept) == 5 {
			break
		}
	}
	if len(kept) < 2 {
		return nil
	}

	subtasks := make([]models.SubTask, len(kept))
	for i, part := range kept {
		subtasks[i] = models.SubTask{
			ID:          uuid.New().String(),
			Description: part,
			Model:       c.modelAt(i),
		}
	}

	return &models.Plan{
		Mode:      models.ModeB,
		Reasoning: "detected independent components, splitting into parallel subtasks",
		Graph:     &models.GraphPayload{SubTasks: subtasks},
	}
}

// modelAt rotates through the configured model pool by position.
func (c *Controller) modelAt(i int) string {
	return c.models[i%len(c.models)]
}
