package app

import (
	"github.com/bft-labs/batchq/internal/buffer"
	"github.com/bft-labs/batchq/internal/domain"
	"github.com/bft-labs/batchq/internal/policy"
	"github.com/bft-labs/batchq/internal/ports"
	"github.com/bft-labs/batchq/internal/scheduler"
)

// destination pairs a buffer with the scheduler that flushes it.
type destination[Req, Resp any] struct {
	name    string
	manager *Manager[Req, Resp]
	buf     *buffer.Buffer[Req, Resp]
	sched   *scheduler.Scheduler
}

func (m *Manager[Req, Resp]) newDestination(name string, cfg domain.Configuration) *destination[Req, Resp] {
	d := &destination[Req, Resp]{
		name:    name,
		manager: m,
		buf:     buffer.New[Req, Resp](cfg.MaxBufferedEntries(), m.flushPolicy(cfg)),
	}
	d.sched = scheduler.New(d, policy.ForConfig(cfg), ports.WithFields(m.logger, ports.String("destination", name)))
	return d
}

// FlushScheduled implements scheduler.Target.
func (d *destination[Req, Resp]) FlushScheduled() {
	m := d.manager

	// Serializes against Close and Evict, which drain under the write lock.
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.lifecycle.IsRunning() {
		return
	}
	batch := d.buf.DrainScheduled(m.config().MaxBatchItems())
	m.dispatch(d, batch, domain.TriggerScheduled)
}

// Len implements scheduler.Target.
func (d *destination[Req, Resp]) Len() int {
	return d.buf.Len()
}

// teardown stops the scheduler and fails every resident entry with err.
// Returns how many completions it settled.
func (d *destination[Req, Resp]) teardown(err error) int {
	d.sched.Close()
	return d.buf.DrainAll().FailAll(err)
}

func (d *destination[Req, Resp]) stats() DestinationStats {
	return DestinationStats{
		Pending:     d.buf.Len(),
		Queued:      d.buf.Held(),
		Capacity:    d.buf.Capacity(),
		Scheduler:   d.sched.State().String(),
		ArrivalRate: d.sched.Rate(),
	}
}
