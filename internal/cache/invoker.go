package cache

import (
	"context"
	"time"

	"github.com/paramind/paramind/internal/llm"
)

// Invoker wraps an llm.Invoker with the memo store. Hits skip the
// underlying call entirely and report the stored latency so metrics stay
// comparable across cached and uncached runs.
type Invoker struct {
	store *Store
	inner llm.Invoker
}

// NewInvoker creates a caching decorator over the given invoker.
func NewInvoker(store *Store, inner llm.Invoker) *Invoker {
	return &Invoker{store: store, inner: inner}
}

// Invoke serves from the store when possible, otherwise delegates and
// memoizes the result. Failures are never stored: a failed call must be
// retryable on the next identical request.
func (c *Invoker) Invoke(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if entry, ok := c.store.Get(req); ok {
		return &llm.Response{
			Text:    entry.Response,
			Tokens:  entry.Tokens,
			Latency: time.Duration(entry.LatencySeconds * float64(time.Second)),
			Cached:  true,
		}, nil
	}

	resp, err := c.inner.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}

	// Best effort: a failed write only loses the memo, not the result.
	_ = c.store.Put(req, Entry{
		Model:          req.Model,
		Response:       resp.Text,
		Tokens:         resp.Tokens,
		LatencySeconds: resp.Latency.Seconds(),
	})

	return resp, nil
}
