package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

func durationPtr(d time.Duration) *time.Duration { return &d }
func intPtr(i int) *int                          { return &i }
func boolPtr(b bool) *bool                       { return &b }

func TestResolve_Defaults(t *testing.T) {
	for _, o := range []*Override{nil, {}} {
		c := Resolve(o)

		if c.VisibilityTimeout() != nil {
			t.Errorf("VisibilityTimeout() = %v, want nil", c.VisibilityTimeout())
		}
		if c.LongPollWaitTimeout() != 20*time.Second {
			t.Errorf("LongPollWaitTimeout() = %v, want 20s", c.LongPollWaitTimeout())
		}
		if c.MinReceiveWaitTime() != 300*time.Millisecond {
			t.Errorf("MinReceiveWaitTime() = %v, want 300ms", c.MinReceiveWaitTime())
		}
		if c.MaxFlushInterval() != time.Second {
			t.Errorf("MaxFlushInterval() = %v, want 1s", c.MaxFlushInterval())
		}
		if len(c.MessageSystemAttributeNames()) != 0 || len(c.ReceiveMessageAttributeNames()) != 0 {
			t.Error("attribute name lists should default to empty")
		}
		if c.AdaptivePrefetching() {
			t.Error("AdaptivePrefetching() = true, want false")
		}
		if c.MaxBatchItems() != 10 || c.MaxInflightBatches() != 10 || c.MaxDoneBatches() != 10 {
			t.Errorf("batch limits = %d/%d/%d, want 10/10/10",
				c.MaxBatchItems(), c.MaxInflightBatches(), c.MaxDoneBatches())
		}
		if c.MaxBufferedEntries() != 10 {
			t.Errorf("MaxBufferedEntries() = %d, want 10", c.MaxBufferedEntries())
		}
		if err := c.Validate(); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	}
}

func TestResolve_FieldsFallBackIndependently(t *testing.T) {
	c := Resolve(&Override{
		VisibilityTimeout: durationPtr(30 * time.Second),
		MaxBatchItems:     intPtr(25),
		ReceiveMessageAttributeNames: []string{"trace"},
		MessageSystemAttributeNames:  []string{},
		AdaptivePrefetching:          boolPtr(true),
	})

	if v := c.VisibilityTimeout(); v == nil || *v != 30*time.Second {
		t.Errorf("VisibilityTimeout() = %v, want 30s", v)
	}
	if c.MaxBatchItems() != 25 {
		t.Errorf("MaxBatchItems() = %d, want 25", c.MaxBatchItems())
	}
	// Hard cap follows a larger batch size when not set explicitly
	if c.MaxBufferedEntries() != 25 {
		t.Errorf("MaxBufferedEntries() = %d, want 25", c.MaxBufferedEntries())
	}
	if c.MaxInflightBatches() != DefaultMaxInflightBatches {
		t.Errorf("MaxInflightBatches() = %d, want default", c.MaxInflightBatches())
	}
	if got := c.ReceiveMessageAttributeNames(); len(got) != 1 || got[0] != "trace" {
		t.Errorf("ReceiveMessageAttributeNames() = %v, want [trace]", got)
	}
	if got := c.MessageSystemAttributeNames(); len(got) != 0 {
		t.Errorf("empty override list should fall back to default, got %v", got)
	}
	if !c.AdaptivePrefetching() {
		t.Error("AdaptivePrefetching() = false, want true")
	}
}

func TestResolve_IsImmutable(t *testing.T) {
	names := []string{"a", "b"}
	timeout := 5 * time.Second
	o := &Override{ReceiveMessageAttributeNames: names, VisibilityTimeout: &timeout}
	c := Resolve(o)

	names[0] = "mutated"
	timeout = time.Hour
	c.ReceiveMessageAttributeNames()[1] = "mutated"
	*c.VisibilityTimeout() = time.Minute

	if got := c.ReceiveMessageAttributeNames(); got[0] != "a" || got[1] != "b" {
		t.Errorf("configuration changed through aliasing: %v", got)
	}
	if *c.VisibilityTimeout() != 5*time.Second {
		t.Errorf("VisibilityTimeout() = %v, want 5s", *c.VisibilityTimeout())
	}
}

func TestConfiguration_Validate(t *testing.T) {
	tests := []struct {
		name    string
		o       Override
		wantErr bool
	}{
		{"defaults", Override{}, false},
		{"zero batch items", Override{MaxBatchItems: intPtr(0)}, true},
		{"negative inflight", Override{MaxInflightBatches: intPtr(-1)}, true},
		{"zero done batches", Override{MaxDoneBatches: intPtr(0)}, true},
		{"cap below batch size", Override{MaxBatchItems: intPtr(10), MaxBufferedEntries: intPtr(5)}, true},
		{"cap above batch size", Override{MaxBatchItems: intPtr(10), MaxBufferedEntries: intPtr(50)}, false},
		{"cap reaches ID space", Override{MaxBufferedEntries: intPtr(math.MaxInt32)}, true},
		{"cap just below ID space", Override{MaxBufferedEntries: intPtr(math.MaxInt32 - 1)}, false},
		{"zero wait", Override{MinReceiveWaitTime: durationPtr(0)}, true},
		{"ceiling below floor", Override{MinReceiveWaitTime: durationPtr(time.Second), MaxFlushInterval: durationPtr(time.Millisecond)}, true},
		{"negative visibility", Override{VisibilityTimeout: durationPtr(-time.Second)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := tt.o
			err := Resolve(&o).Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want wrapping ErrInvalidConfig", err)
			}
		})
	}
}

func TestCapacityError(t *testing.T) {
	err := error(&CapacityError{Current: 10, Capacity: 10})
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Error("CapacityError should unwrap to ErrCapacityExceeded")
	}
	if err.Error() != "batchq: capacity exceeded: 10/10" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestBatchError(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(&BatchError{Destination: "orders", BatchID: 7, Err: cause})
	if !errors.Is(err, cause) {
		t.Error("BatchError should unwrap to its cause")
	}
}
