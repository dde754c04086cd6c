package policy

import (
	"math"
	"sync"
	"time"

	"github.com/bft-labs/batchq/internal/domain"
)

// IntervalPolicy picks the delay before the next scheduled flush.
// ratePerSecond is the recently observed arrival rate of the buffer.
type IntervalPolicy interface {
	Next(ratePerSecond float64) time.Duration
}

// FixedInterval ignores the arrival rate.
type FixedInterval time.Duration

// Next implements IntervalPolicy.
func (f FixedInterval) Next(float64) time.Duration {
	return time.Duration(f)
}

// AdaptiveInterval waits roughly as long as it takes to fill a batch at the
// observed rate, clamped to [Floor, Ceiling]. Faster arrival never yields a
// longer interval. The floor bounds request amplification against the
// transport; the ceiling bounds latency.
type AdaptiveInterval struct {
	Floor       time.Duration
	Ceiling     time.Duration
	TargetItems int
}

// Next implements IntervalPolicy.
func (a AdaptiveInterval) Next(ratePerSecond float64) time.Duration {
	if ratePerSecond <= 0 || math.IsNaN(ratePerSecond) || a.TargetItems <= 0 {
		return a.Ceiling
	}
	fill := float64(a.TargetItems) / ratePerSecond * float64(time.Second)
	if fill >= float64(a.Ceiling) {
		return a.Ceiling
	}
	d := time.Duration(fill)
	if d < a.Floor {
		return a.Floor
	}
	return d
}

// ForConfig returns the interval policy the configuration selects.
func ForConfig(cfg domain.Configuration) IntervalPolicy {
	if !cfg.AdaptivePrefetching() {
		return FixedInterval(cfg.MinReceiveWaitTime())
	}
	return AdaptiveInterval{
		Floor:       cfg.MinReceiveWaitTime(),
		Ceiling:     cfg.MaxFlushInterval(),
		TargetItems: cfg.MaxBatchItems(),
	}
}

// RateEstimator keeps an exponentially weighted moving average of arrivals
// per second. It is safe for concurrent use.
type RateEstimator struct {
	mu     sync.Mutex
	alpha  float64
	window time.Duration
	rate   float64
	count  int
	start  time.Time
	now    func() time.Time
}

// NewRateEstimator creates an estimator that folds arrivals into the average
// once per window, weighting each new window by alpha.
func NewRateEstimator(window time.Duration, alpha float64) *RateEstimator {
	return NewRateEstimatorWithClock(window, alpha, time.Now)
}

// NewRateEstimatorWithClock is NewRateEstimator reading time from now.
func NewRateEstimatorWithClock(window time.Duration, alpha float64, now func() time.Time) *RateEstimator {
	if window <= 0 {
		window = time.Second
	}
	if alpha <= 0 || alpha > 1 {
		alpha = 0.5
	}
	if now == nil {
		now = time.Now
	}
	return &RateEstimator{alpha: alpha, window: window, now: now}
}

// Observe records n arrivals.
func (r *RateEstimator) Observe(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if r.start.IsZero() {
		r.start = now
	}
	r.roll(now)
	r.count += n
}

// Rate returns the current estimate in arrivals per second.
func (r *RateEstimator) Rate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.start.IsZero() {
		return 0
	}
	r.roll(r.now())
	return r.rate
}

// roll folds completed windows into the average. Idle windows decay it.
func (r *RateEstimator) roll(now time.Time) {
	elapsed := now.Sub(r.start)
	for elapsed >= r.window {
		sample := float64(r.count) / r.window.Seconds()
		r.rate = r.alpha*sample + (1-r.alpha)*r.rate
		r.count = 0
		r.start = r.start.Add(r.window)
		elapsed -= r.window
		if r.rate < 1e-9 && elapsed >= r.window {
			// fully decayed; skip the remaining idle windows
			r.rate = 0
			r.start = now
			return
		}
	}
}
