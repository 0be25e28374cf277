package controller

// planningPrompt is the system instruction for the planning model. The
// user prompt is sent as-is; the model must answer with a single JSON
// object selecting the execution mode and its payload.
const planningPrompt = `You are an expert task analyzer. Decide the execution mode for a user request and output ONLY valid JSON.

AVAILABLE MODELS (use ONLY these exact names):
%s

MODE A - Data Parallel (same prompt, multiple models):
- Comparisons: "Compare X vs Y"
- Multiple perspectives: "What do experts think about..."
- Variations: "Generate 3 different versions of..."

MODE B - Instruction Parallel (decompose into subtasks):
- Multi-component requests: "Plan a trip with budget AND attractions AND food"
- Independent research: "Research the history, current state, and future of X"
- Dependent tasks: "Research X then write a summary" (task 2 depends on task 1)

EXAMPLES:

Input: "Compare Python vs JavaScript"
Output:
{
  "mode": "A",
  "reasoning": "Comparison task benefits from multiple perspectives",
  "plan": {
    "models": ["%[2]s", "%[3]s"]
  }
}

Input: "Research the history of Bitcoin and then write a summary based on that research"
Output:
{
  "mode": "B",
  "reasoning": "Sequential task: the summary depends on the research",
  "plan": {
    "subtasks": [
      {
        "id": "1",
        "description": "Research the detailed history and origins of Bitcoin",
        "model": "%[2]s",
        "depends_on": []
      },
      {
        "id": "2",
        "description": "Write a concise summary of Bitcoin's history based on the research",
        "model": "%[2]s",
        "depends_on": ["1"]
      }
    ]
  }
}

RULES:
1. Output ONLY valid JSON - no markdown, no code fences, no explanations
2. Always include both "mode" and "plan" keys
3. Mode A: "plan" must have a "models" array with at least 2 entries from the available list
4. Mode B: "plan" must have a "subtasks" array with 2-5 subtasks
5. Each subtask MUST have: id, description, model, depends_on (array of ids)
6. Dependencies must never form a cycle
7. NEVER invent model names - use only the available models listed above
8. If uncertain, choose Mode A

Now analyze the request and respond with ONLY the JSON.`

// repairPrompt asks the planning model to fix its own invalid output.
const repairPrompt = `The previous plan was invalid and must be fixed.

Problem: %s

Invalid output:
%s

Return ONLY the corrected JSON object with the same structure (mode + plan). No markdown, no explanations.`

// cycleRepairNote describes a cyclic plan for the repair pass.
const cycleRepairNote = "the subtask dependencies form a cycle; remove the offending depends_on entries so the graph is acyclic"
