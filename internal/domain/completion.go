package domain

import (
	"context"
	"sync"
)

// Completion is the caller-visible handle that eventually carries the result
// of one submitted request. It settles exactly once; later settlements are
// ignored.
type Completion[Resp any] struct {
	once sync.Once
	done chan struct{}
	resp Resp
	err  error
}

// NewCompletion creates an unsettled completion.
func NewCompletion[Resp any]() *Completion[Resp] {
	return &Completion[Resp]{done: make(chan struct{})}
}

// Resolve settles the completion with a successful response.
// Returns false if the completion was already settled.
func (c *Completion[Resp]) Resolve(resp Resp) bool {
	return c.settle(resp, nil)
}

// Fail settles the completion with an error.
// Returns false if the completion was already settled.
func (c *Completion[Resp]) Fail(err error) bool {
	var zero Resp
	return c.settle(zero, err)
}

func (c *Completion[Resp]) settle(resp Resp, err error) bool {
	settled := false
	c.once.Do(func() {
		c.resp = resp
		c.err = err
		settled = true
		close(c.done)
	})
	return settled
}

// Done returns a channel that is closed once the completion settles.
func (c *Completion[Resp]) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the completion settles or ctx is done.
func (c *Completion[Resp]) Wait(ctx context.Context) (Resp, error) {
	select {
	case <-c.done:
		return c.resp, c.err
	case <-ctx.Done():
		var zero Resp
		return zero, ctx.Err()
	}
}

// Result returns the settled response and error without blocking.
// ok is false while the completion is unsettled.
func (c *Completion[Resp]) Result() (resp Resp, err error, ok bool) {
	select {
	case <-c.done:
		return c.resp, c.err, true
	default:
		var zero Resp
		return zero, nil, false
	}
}
