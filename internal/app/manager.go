package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/bft-labs/batchq/internal/domain"
	"github.com/bft-labs/batchq/internal/policy"
	"github.com/bft-labs/batchq/internal/ports"
)

// ManagerConfig contains configuration for a batch manager.
type ManagerConfig[Req any] struct {
	// Batching is the resolved engine configuration
	Batching domain.Configuration

	// FlushPredicate marks requests that must be sent without waiting for a
	// full batch. Nil honours policy.FlushNower.
	FlushPredicate func(Req) bool

	// ShutdownTimeout bounds how long Close waits for in-flight batches.
	// Zero means ShutdownTimeout.
	ShutdownTimeout time.Duration
}

// BatchEventEmitter is called after every dispatched batch settles.
type BatchEventEmitter interface {
	OnBatchSent(report BatchReport)
	OnBatchFailed(report BatchReport)
}

// Manager buffers submitted requests per destination and hands them to a
// BatchSender in batches, either when the flush policy fires on insert or
// when the destination's flush timer expires.
type Manager[Req, Resp any] struct {
	// mu is held shared by Submit and scheduled flushes and exclusively by
	// Close, Evict and Reconfigure.
	mu           sync.RWMutex
	destMu       sync.Mutex
	destinations map[string]*destination[Req, Resp]

	cfg       atomic.Pointer[domain.Configuration]
	predicate func(Req) bool
	sender    ports.BatchSender[Req, Resp]
	logger    ports.Logger
	emitter   BatchEventEmitter
	lifecycle *Lifecycle

	sem             *semaphore.Weighted
	sendCtx         context.Context
	shutdownTimeout time.Duration

	batchSeq atomic.Uint64
	reports  *reportRing
	counters counters
}

// NewManager creates a running manager.
// Returns an error wrapping ErrInvalidConfig if the configuration is invalid
// or sender is nil.
func NewManager[Req, Resp any](
	config ManagerConfig[Req],
	sender ports.BatchSender[Req, Resp],
	logger ports.Logger,
	stateEmitter EventEmitter,
	batchEmitter BatchEventEmitter,
) (*Manager[Req, Resp], error) {
	if err := config.Batching.Validate(); err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, fmt.Errorf("%w: nil batch sender", domain.ErrInvalidConfig)
	}
	if logger == nil {
		logger = ports.NoopLogger{}
	}
	timeout := config.ShutdownTimeout
	if timeout <= 0 {
		timeout = ShutdownTimeout
	}

	lifecycle := NewLifecycle(logger, stateEmitter)
	sendCtx, cancel := context.WithCancel(context.Background())
	lifecycle.SetCancel(cancel)

	m := &Manager[Req, Resp]{
		destinations:    make(map[string]*destination[Req, Resp]),
		predicate:       config.FlushPredicate,
		sender:          sender,
		logger:          logger,
		emitter:         batchEmitter,
		lifecycle:       lifecycle,
		sem:             semaphore.NewWeighted(int64(config.Batching.MaxInflightBatches())),
		sendCtx:         sendCtx,
		shutdownTimeout: timeout,
		reports:         newReportRing(config.Batching.MaxDoneBatches()),
	}
	cfg := config.Batching
	m.cfg.Store(&cfg)
	return m, nil
}

// Submit buffers req for destination and returns the completion that will
// carry its result. It returns before the batch is sent.
//
// Submit fails with ErrClosed once Close has been called, and with an error
// wrapping *domain.CapacityError when the destination's resident entries plus
// its batches still waiting for an in-flight slot reach the hard cap.
func (m *Manager[Req, Resp]) Submit(destination string, req Req) (*domain.Completion[Resp], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.lifecycle.IsRunning() {
		return nil, domain.ErrClosed
	}

	cfg := m.config()
	d := m.destinationFor(destination, cfg)

	c, err := d.buf.Insert(req)
	if err != nil {
		m.counters.rejected.Add(1)
		return nil, fmt.Errorf("submit to %q: %w", destination, err)
	}
	m.counters.submitted.Add(1)
	d.sched.Observe(1)

	batch := d.buf.DrainIfTriggered(req, cfg.MaxBatchItems())
	if batch.Empty() {
		d.sched.Arm()
		return c, nil
	}

	m.dispatch(d, batch, domain.TriggerEager)
	d.sched.Reset()
	return c, nil
}

// Close stops accepting submissions, fails every buffered entry with
// ErrCancelled and waits for in-flight batches. If they outlive the shutdown
// timeout the send context is cancelled and ErrShutdownTimeout is returned.
// A second call returns ErrClosed.
func (m *Manager[Req, Resp]) Close() error {
	m.mu.Lock()
	if err := m.lifecycle.TransitionTo(StateClosing, "Close() called"); err != nil {
		m.mu.Unlock()
		return err
	}

	m.destMu.Lock()
	dests := m.destinations
	m.destinations = make(map[string]*destination[Req, Resp])
	m.destMu.Unlock()

	cancelled := 0
	for _, d := range dests {
		cancelled += d.teardown(domain.ErrCancelled)
	}
	m.counters.cancelled.Add(uint64(cancelled))
	m.mu.Unlock()

	m.logger.Info("manager closing",
		ports.Int("destinations", len(dests)),
		ports.Int("cancelled", cancelled),
	)

	err := m.lifecycle.WaitWithTimeout(m.shutdownTimeout)
	m.lifecycle.Cancel()

	reason := "drained"
	if err != nil {
		reason = "shutdown timeout"
	}
	_ = m.lifecycle.TransitionTo(StateClosed, reason)
	return err
}

// Evict tears down one destination, failing its buffered entries with
// ErrCancelled. Batches already dispatched are unaffected. A later Submit to
// the same destination starts a fresh buffer.
func (m *Manager[Req, Resp]) Evict(destination string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.lifecycle.IsRunning() {
		return domain.ErrClosed
	}

	m.destMu.Lock()
	d, ok := m.destinations[destination]
	delete(m.destinations, destination)
	m.destMu.Unlock()

	if !ok {
		return fmt.Errorf("evict %q: %w", destination, domain.ErrUnknownDestination)
	}

	cancelled := d.teardown(domain.ErrCancelled)
	m.counters.cancelled.Add(uint64(cancelled))

	m.logger.Info("destination evicted",
		ports.String("destination", destination),
		ports.Int("cancelled", cancelled),
	)
	return nil
}

// Reconfigure resolves and validates o and applies it to the manager and
// every existing destination. Armed timers restart with the new interval.
// MaxInflightBatches keeps the value the manager was created with.
func (m *Manager[Req, Resp]) Reconfigure(o *domain.Override) error {
	cfg := domain.Resolve(o)
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.lifecycle.IsRunning() {
		return domain.ErrClosed
	}

	m.cfg.Store(&cfg)
	m.reports.resize(cfg.MaxDoneBatches())

	m.destMu.Lock()
	defer m.destMu.Unlock()
	for _, d := range m.destinations {
		d.buf.Reconfigure(cfg.MaxBufferedEntries(), m.flushPolicy(cfg))
		d.sched.SetInterval(policy.ForConfig(cfg))
	}

	m.logger.Info("configuration reloaded",
		ports.Int("max_batch_items", cfg.MaxBatchItems()),
		ports.Int("max_buffered_entries", cfg.MaxBufferedEntries()),
		ports.Duration("min_receive_wait", cfg.MinReceiveWaitTime()),
		ports.Bool("adaptive", cfg.AdaptivePrefetching()),
		ports.Int("destinations", len(m.destinations)),
	)
	return nil
}

// Config returns the active configuration.
func (m *Manager[Req, Resp]) Config() domain.Configuration {
	return m.config()
}

// State returns the manager's lifecycle state.
func (m *Manager[Req, Resp]) State() State {
	return m.lifecycle.State()
}

// Stats returns a snapshot of the manager's destinations and counters.
func (m *Manager[Req, Resp]) Stats() Stats {
	s := Stats{
		State:           m.lifecycle.State(),
		QueuedBatches:   int(m.counters.queued.Load()),
		InflightBatches: int(m.counters.inflight.Load()),
		Submitted:       m.counters.submitted.Load(),
		Rejected:        m.counters.rejected.Load(),
		Succeeded:       m.counters.succeeded.Load(),
		Failed:          m.counters.failed.Load(),
		Cancelled:       m.counters.cancelled.Load(),
		Batches:         m.counters.batches.Load(),
	}

	m.destMu.Lock()
	defer m.destMu.Unlock()
	s.Destinations = make(map[string]DestinationStats, len(m.destinations))
	for name, d := range m.destinations {
		s.Destinations[name] = d.stats()
	}
	return s
}

// RecentBatches returns reports for the most recently settled batches,
// oldest first.
func (m *Manager[Req, Resp]) RecentBatches() []BatchReport {
	return m.reports.snapshot()
}

func (m *Manager[Req, Resp]) config() domain.Configuration {
	return *m.cfg.Load()
}

func (m *Manager[Req, Resp]) flushPolicy(cfg domain.Configuration) policy.FlushPolicy[Req] {
	return policy.Eager[Req](cfg.MaxBatchItems(), m.predicate)
}

// destinationFor returns the destination's pair, creating it on first use.
func (m *Manager[Req, Resp]) destinationFor(name string, cfg domain.Configuration) *destination[Req, Resp] {
	m.destMu.Lock()
	defer m.destMu.Unlock()

	if d, ok := m.destinations[name]; ok {
		return d
	}
	d := m.newDestination(name, cfg)
	m.destinations[name] = d

	m.logger.Debug("destination created",
		ports.String("destination", name),
		ports.Int("capacity", cfg.MaxBufferedEntries()),
	)
	return d
}
