package app

import (
	"sync"
	"time"

	"github.com/bft-labs/batchq/internal/domain"
)

// BatchReport summarizes one dispatched batch after its entries settled.
type BatchReport struct {
	Destination string
	BatchID     uint64
	Trigger     domain.Trigger
	Size        int
	Succeeded   int
	Failed      int
	Duration    time.Duration

	// Err is set when the batch failed as a whole
	Err error
}

// reportRing retains the most recent batch reports, oldest first.
type reportRing struct {
	mu      sync.Mutex
	limit   int
	reports []BatchReport
}

func newReportRing(limit int) *reportRing {
	return &reportRing{limit: limit}
}

func (r *reportRing) add(report BatchReport) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reports = append(r.reports, report)
	r.trimLocked()
}

func (r *reportRing) resize(limit int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.limit = limit
	r.trimLocked()
}

func (r *reportRing) trimLocked() {
	if over := len(r.reports) - r.limit; over > 0 {
		r.reports = append(r.reports[:0:0], r.reports[over:]...)
	}
}

func (r *reportRing) snapshot() []BatchReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]BatchReport(nil), r.reports...)
}
