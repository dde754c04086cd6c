package app

import "sync/atomic"

// Stats is a point-in-time view of a manager.
type Stats struct {
	State        State
	Destinations map[string]DestinationStats

	// QueuedBatches have been drained but are waiting for an in-flight slot;
	// InflightBatches hold a slot and are being sent.
	QueuedBatches   int
	InflightBatches int

	// Entry totals since construction
	Submitted uint64
	Rejected  uint64
	Succeeded uint64
	Failed    uint64
	Cancelled uint64

	// Batches is the number of batches dispatched
	Batches uint64
}

// DestinationStats describes one destination's buffer and scheduler.
type DestinationStats struct {
	Pending int
	// Queued entries are drained but still count against Capacity
	Queued    int
	Capacity  int
	Scheduler string

	// ArrivalRate is the observed submissions per second
	ArrivalRate float64
}

type counters struct {
	submitted atomic.Uint64
	rejected  atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	cancelled atomic.Uint64
	batches   atomic.Uint64
	queued    atomic.Int64
	inflight  atomic.Int64
}
