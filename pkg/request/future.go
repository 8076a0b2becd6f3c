package request

import (
	"context"
	"sync"
)

// outcome is the single completion event produced per request.
type outcome struct {
	response *Response
	kind     ErrorKind // empty on success
}

// completer receives the outcome exactly once.
type completer interface {
	complete(outcome)
}

// callbackCompleter invokes Config.Success or Config.Error.
type callbackCompleter struct {
	success func(*Response)
	failure func(*Response)
}

func (c callbackCompleter) complete(o outcome) {
	if o.kind == "" {
		if c.success != nil {
			c.success(o.response)
		}
		return
	}
	if c.failure != nil {
		c.failure(o.response)
	}
}

// Future is the promise-style handle returned for IsPromise requests. It settles once.
type Future struct {
	once     sync.Once
	done     chan struct{}
	response *Response
	err      *ResponseError
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(o outcome) {
	f.once.Do(func() {
		f.response = o.response
		if o.kind != "" {
			f.err = &ResponseError{Kind: o.kind, Response: o.response}
		}
		close(f.done)
	})
}

// Done is closed when the future settles.
func (f *Future) Done() <-chan struct{} { return f.done }

// Await blocks until the future settles or ctx ends. A rejected future returns
// its Response together with a *ResponseError.
func (f *Future) Await(ctx context.Context) (*Response, error) {
	select {
	case <-f.done:
		if f.err != nil {
			return f.response, f.err
		}
		return f.response, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Settled reports whether the future has completed, without blocking.
func (f *Future) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
