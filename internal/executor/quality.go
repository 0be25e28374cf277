package executor

import (
	"regexp"
	"strings"
)

// refusalPatterns match the apology and refusal openers that signal a
// model dodged the task instead of answering it.
var refusalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*i('m| am) sorry`),
	regexp.MustCompile(`(?i)^\s*i apologi[sz]e`),
	regexp.MustCompile(`(?i)\bi can('t|not) (?:help|assist|answer|do that)\b`),
	regexp.MustCompile(`(?i)\bas an ai\b.{0,40}\b(?:can't|cannot|unable)\b`),
	regexp.MustCompile(`(?i)\bi(?:'m| am) (?:unable|not able) to\b`),
}

// QualityGate classifies responses as acceptable or low-quality and
// bounds the refinement retries spent on the latter.
type QualityGate struct {
	// MinChars is the minimum response length. Shorter responses are
	// low-quality regardless of content.
	MinChars int
	// MaxRefinements bounds extra attempts after a low-quality response.
	MaxRefinements int
}

// DefaultQualityGate returns the standard gate: 50-character floor with
// up to two refinement retries.
func DefaultQualityGate() QualityGate {
	return QualityGate{MinChars: 50, MaxRefinements: 2}
}

// Acceptable returns true if the response passes the gate.
func (g QualityGate) Acceptable(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < g.MinChars {
		return false
	}
	for _, p := range refusalPatterns {
		if p.MatchString(trimmed) {
			return false
		}
	}
	return true
}

// refusal returns true if the response matches a refusal pattern,
// independent of length. Used to rank candidates when no attempt passes
// the gate: a long refusal is still worse than a short answer.
func refusal(text string) bool {
	trimmed := strings.TrimSpace(text)
	for _, p := range refusalPatterns {
		if p.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// refineInstruction is appended to the prompt when re-issuing a call
// whose response failed the gate.
const refineInstruction = "\n\nIMPORTANT: Your previous answer was incomplete. Provide a direct, complete, and detailed answer to the task. Do not refuse, apologize, or ask clarifying questions."
