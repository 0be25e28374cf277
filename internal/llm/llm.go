// Package llm defines the agent call boundary: a single model invocation
// that returns text and usage, or a typed failure.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAgentUnavailable indicates the model backend cannot be reached at all.
// This is the only fatal error in the taxonomy: with no backend there is
// nothing to degrade to.
var ErrAgentUnavailable = errors.New("agent backend unavailable")

// FailureKind classifies a failed agent call.
type FailureKind string

const (
	// FailureRateLimited indicates the provider rejected the call for rate
	// limiting. Transient.
	FailureRateLimited FailureKind = "rate_limited"
	// FailureTimeout indicates the call exceeded its deadline. Transient.
	FailureTimeout FailureKind = "timeout"
	// FailureProvider indicates a provider-side error. Transient.
	FailureProvider FailureKind = "provider_error"
	// FailureInvalidResponse indicates the provider returned something the
	// client could not use.
	FailureInvalidResponse FailureKind = "invalid_response"
)

// CallError is a classified agent call failure.
type CallError struct {
	// Kind is the taxonomy tag for this failure.
	Kind FailureKind
	// Model is the model identifier the call targeted.
	Model string
	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *CallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("agent call to %s failed (%s): %v", e.Model, e.Kind, e.Err)
	}
	return fmt.Sprintf("agent call to %s failed (%s)", e.Model, e.Kind)
}

// Unwrap returns the underlying error.
func (e *CallError) Unwrap() error {
	return e.Err
}

// Transient returns true if the failure is worth retrying.
func (e *CallError) Transient() bool {
	switch e.Kind {
	case FailureRateLimited, FailureTimeout, FailureProvider:
		return true
	default:
		return false
	}
}

// KindOf returns the failure kind of an error, or empty if the error is
// not a CallError.
func KindOf(err error) FailureKind {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// Response is the successful outcome of one agent call.
type Response struct {
	// Text is the model output.
	Text string
	// Tokens is the total token usage reported by the provider.
	Tokens int
	// Latency is the wall-clock duration of the call.
	Latency time.Duration
	// Cached reports whether the response came from the memo cache.
	Cached bool
}

// Request describes one agent call.
type Request struct {
	// Model is the model identifier to invoke.
	Model string
	// Prompt is the user-facing prompt text.
	Prompt string
	// Context is optional upstream output injected ahead of the prompt.
	// It is part of the call's identity for memoization, as are System
	// and MaxTokens.
	Context string
	// System is an optional system instruction.
	System string
	// MaxTokens caps the response length. Zero means the client default.
	MaxTokens int
	// Timeout bounds the call. Zero means the client default.
	Timeout time.Duration
}

// Invoker performs one model invocation. Implementations must honor the
// request timeout and return a *CallError (or ErrAgentUnavailable) on
// failure so callers can apply the retry taxonomy uniformly.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
}
