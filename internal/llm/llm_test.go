package llm

import (
	"errors"
	"fmt"
	"testing"
)

func TestCallErrorTransient(t *testing.T) {
	tests := []struct {
		kind FailureKind
		want bool
	}{
		{FailureRateLimited, true},
		{FailureTimeout, true},
		{FailureProvider, true},
		{FailureInvalidResponse, false},
		{FailureKind("unknown"), false},
	}

	for _, tt := range tests {
		e := &CallError{Kind: tt.kind, Model: "m"}
		if got := e.Transient(); got != tt.want {
			t.Errorf("CallError{Kind: %s}.Transient() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	direct := &CallError{Kind: FailureTimeout, Model: "m"}
	if got := KindOf(direct); got != FailureTimeout {
		t.Errorf("KindOf(direct) = %q, want %q", got, FailureTimeout)
	}

	wrapped := fmt.Errorf("call failed: %w", &CallError{Kind: FailureRateLimited, Model: "m"})
	if got := KindOf(wrapped); got != FailureRateLimited {
		t.Errorf("KindOf(wrapped) = %q, want %q", got, FailureRateLimited)
	}

	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("KindOf(plain error) = %q, want empty", got)
	}
	if got := KindOf(ErrAgentUnavailable); got != "" {
		t.Errorf("KindOf(ErrAgentUnavailable) = %q, want empty", got)
	}
}

func TestCallErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	e := &CallError{Kind: FailureProvider, Model: "m", Err: inner}
	if !errors.Is(e, inner) {
		t.Error("errors.Is does not reach the wrapped error")
	}
}
