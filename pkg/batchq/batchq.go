package batchq

import (
	"fmt"

	"github.com/bft-labs/batchq/internal/app"
	"github.com/bft-labs/batchq/pkg/sender"
)

// Manager batches requests per destination and hands each batch to a
// sender.Sender. Use New to create one; it is running on return.
// All methods are safe for concurrent use.
type Manager[Req, Resp any] struct {
	inner *app.Manager[Req, Resp]
}

// New creates a running Manager that sends batches through s.
// Returns an error wrapping ErrInvalidConfig if the configuration is invalid,
// s is nil or the flush predicate does not match Req.
func New[Req, Resp any](s sender.Sender[Req, Resp], opts ...Option) (*Manager[Req, Resp], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var predicate func(Req) bool
	if o.predicate != nil {
		p, ok := o.predicate.(func(Req) bool)
		if !ok {
			return nil, fmt.Errorf("%w: flush predicate is %T, want func(%T) bool",
				ErrInvalidConfig, o.predicate, *new(Req))
		}
		predicate = p
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	inner, err := app.NewManager[Req, Resp](app.ManagerConfig[Req]{
		Batching:        Resolve(o.override),
		FlushPredicate:  predicate,
		ShutdownTimeout: o.shutdownTimeout,
	}, s, o.logger, emitter, emitter)
	if err != nil {
		return nil, err
	}
	return &Manager[Req, Resp]{inner: inner}, nil
}

// Submit buffers req for destination and returns the completion that will
// carry its result. It never waits for the network.
//
// Submit fails with ErrClosed after Close, and with a *CapacityError when the
// destination already holds MaxBufferedEntries requests.
func (m *Manager[Req, Resp]) Submit(destination string, req Req) (*Completion[Resp], error) {
	return m.inner.Submit(destination, req)
}

// Close stops accepting submissions, fails buffered requests with
// ErrCancelled and waits for in-flight batches. It returns
// ErrShutdownTimeout if they outlive the shutdown timeout, and ErrClosed if
// called again.
func (m *Manager[Req, Resp]) Close() error {
	return m.inner.Close()
}

// Evict tears down one destination, failing its buffered requests with
// ErrCancelled. Returns ErrUnknownDestination if it has no buffer.
func (m *Manager[Req, Resp]) Evict(destination string) error {
	return m.inner.Evict(destination)
}

// Reconfigure applies a new configuration to the manager and every
// destination. MaxInflightBatches keeps its construction-time value.
func (m *Manager[Req, Resp]) Reconfigure(override *Override) error {
	return m.inner.Reconfigure(override)
}

// Config returns the active configuration.
func (m *Manager[Req, Resp]) Config() Configuration {
	return m.inner.Config()
}

// Status returns the current lifecycle state.
func (m *Manager[Req, Resp]) Status() State {
	return convertState(m.inner.State())
}

// Stats returns a snapshot of destinations and counters.
func (m *Manager[Req, Resp]) Stats() Stats {
	return m.inner.Stats()
}

// RecentBatches returns reports for the last MaxDoneBatches settled
// batches, oldest first.
func (m *Manager[Req, Resp]) RecentBatches() []BatchReport {
	return m.inner.RecentBatches()
}
