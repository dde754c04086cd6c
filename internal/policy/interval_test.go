package policy

import (
	"math"
	"testing"
	"time"

	"github.com/bft-labs/batchq/internal/domain"
)

func TestFixedInterval(t *testing.T) {
	f := FixedInterval(300 * time.Millisecond)
	for _, rate := range []float64{0, 1, 1000} {
		if got := f.Next(rate); got != 300*time.Millisecond {
			t.Errorf("Next(%v) = %v, want 300ms", rate, got)
		}
	}
}

func TestAdaptiveInterval_Bounds(t *testing.T) {
	a := AdaptiveInterval{
		Floor:       100 * time.Millisecond,
		Ceiling:     time.Second,
		TargetItems: 10,
	}

	tests := []struct {
		name string
		rate float64
		want time.Duration
	}{
		{"idle uses ceiling", 0, time.Second},
		{"NaN uses ceiling", math.NaN(), time.Second},
		{"slow traffic capped at ceiling", 1, time.Second},
		{"fill time within bounds", 20, 500 * time.Millisecond},
		{"fast traffic held at floor", 10000, 100 * time.Millisecond},
		{"huge rate held at floor", math.Inf(1), 100 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Next(tt.rate); got != tt.want {
				t.Errorf("Next(%v) = %v, want %v", tt.rate, got, tt.want)
			}
		})
	}
}

func TestAdaptiveInterval_Monotonic(t *testing.T) {
	a := AdaptiveInterval{Floor: 50 * time.Millisecond, Ceiling: 2 * time.Second, TargetItems: 10}

	prev := a.Next(0.1)
	for rate := 0.5; rate < 5000; rate *= 1.5 {
		got := a.Next(rate)
		if got > prev {
			t.Fatalf("Next(%v) = %v grew from %v", rate, got, prev)
		}
		if got < a.Floor || got > a.Ceiling {
			t.Fatalf("Next(%v) = %v outside [%v, %v]", rate, got, a.Floor, a.Ceiling)
		}
		prev = got
	}
}

func TestForConfig(t *testing.T) {
	fixed := ForConfig(domain.DefaultConfiguration())
	if _, ok := fixed.(FixedInterval); !ok {
		t.Fatalf("default configuration should select FixedInterval, got %T", fixed)
	}
	if fixed.Next(1000) != 300*time.Millisecond {
		t.Errorf("fixed interval = %v, want 300ms", fixed.Next(1000))
	}

	on := true
	adaptive := ForConfig(domain.Resolve(&domain.Override{AdaptivePrefetching: &on}))
	a, ok := adaptive.(AdaptiveInterval)
	if !ok {
		t.Fatalf("adaptive configuration should select AdaptiveInterval, got %T", adaptive)
	}
	if a.Floor != 300*time.Millisecond || a.Ceiling != time.Second || a.TargetItems != 10 {
		t.Errorf("AdaptiveInterval = %+v", a)
	}
}

func TestRateEstimator(t *testing.T) {
	now := time.Unix(1000, 0)
	r := NewRateEstimator(time.Second, 0.5)
	r.now = func() time.Time { return now }

	if r.Rate() != 0 {
		t.Errorf("Rate() before observations = %v, want 0", r.Rate())
	}

	r.Observe(10)
	now = now.Add(time.Second)
	if got := r.Rate(); got != 5 {
		t.Errorf("Rate() after one window of 10 = %v, want 5", got)
	}

	r.Observe(10)
	now = now.Add(time.Second)
	if got := r.Rate(); got != 7.5 {
		t.Errorf("Rate() after second window = %v, want 7.5", got)
	}

	// Idle windows decay the estimate
	now = now.Add(time.Second)
	if got := r.Rate(); got != 3.75 {
		t.Errorf("Rate() after idle window = %v, want 3.75", got)
	}

	now = now.Add(time.Hour)
	if got := r.Rate(); got != 0 {
		t.Errorf("Rate() after long idle = %v, want 0", got)
	}
}

func TestNewRateEstimator_Defaults(t *testing.T) {
	r := NewRateEstimator(0, 7)
	if r.window != time.Second || r.alpha != 0.5 {
		t.Errorf("defaults = (%v, %v), want (1s, 0.5)", r.window, r.alpha)
	}
}
