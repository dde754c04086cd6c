package domain

import (
	"math"
	"time"
)

// Default configuration values. Each one applies independently when the
// corresponding override is absent or empty.
const (
	DefaultLongPollWaitTimeout = 20 * time.Second
	DefaultMinReceiveWaitTime  = 300 * time.Millisecond
	DefaultMaxFlushInterval    = time.Second
	DefaultAdaptivePrefetching = false
	DefaultMaxBatchItems       = 10
	DefaultMaxInflightBatches  = 10
	DefaultMaxDoneBatches      = 10

	// DefaultMaxBufferedEntries is the hard per-buffer cap used when no
	// override is given. It is raised to MaxBatchItems when that is larger.
	DefaultMaxBufferedEntries = 10
)

// Override carries caller-supplied configuration. A nil pointer or an empty
// list means "use the default" for that field.
type Override struct {
	VisibilityTimeout            *time.Duration
	LongPollWaitTimeout          *time.Duration
	MinReceiveWaitTime           *time.Duration
	MaxFlushInterval             *time.Duration
	MessageSystemAttributeNames  []string
	ReceiveMessageAttributeNames []string
	AdaptivePrefetching          *bool
	MaxBatchItems                *int
	MaxInflightBatches           *int
	MaxDoneBatches               *int
	MaxBufferedEntries           *int
}

// Configuration is the resolved, immutable batching configuration.
// Construct it with Resolve; the zero value is not meaningful.
type Configuration struct {
	visibilityTimeout            *time.Duration
	longPollWaitTimeout          time.Duration
	minReceiveWaitTime           time.Duration
	maxFlushInterval             time.Duration
	messageSystemAttributeNames  []string
	receiveMessageAttributeNames []string
	adaptivePrefetching          bool
	maxBatchItems                int
	maxInflightBatches           int
	maxDoneBatches               int
	maxBufferedEntries           int
}

// DefaultConfiguration returns the configuration with every field defaulted.
func DefaultConfiguration() Configuration {
	return Resolve(nil)
}

// Resolve builds a Configuration from an optional override, falling back to
// the default for every field the override leaves absent or empty.
func Resolve(o *Override) Configuration {
	if o == nil {
		o = &Override{}
	}

	c := Configuration{
		longPollWaitTimeout: durationOr(o.LongPollWaitTimeout, DefaultLongPollWaitTimeout),
		minReceiveWaitTime:  durationOr(o.MinReceiveWaitTime, DefaultMinReceiveWaitTime),
		maxFlushInterval:    durationOr(o.MaxFlushInterval, DefaultMaxFlushInterval),
		adaptivePrefetching: DefaultAdaptivePrefetching,
		maxBatchItems:       intOr(o.MaxBatchItems, DefaultMaxBatchItems),
		maxInflightBatches:  intOr(o.MaxInflightBatches, DefaultMaxInflightBatches),
		maxDoneBatches:      intOr(o.MaxDoneBatches, DefaultMaxDoneBatches),
	}

	if o.VisibilityTimeout != nil {
		v := *o.VisibilityTimeout
		c.visibilityTimeout = &v
	}
	if o.AdaptivePrefetching != nil {
		c.adaptivePrefetching = *o.AdaptivePrefetching
	}
	if len(o.MessageSystemAttributeNames) > 0 {
		c.messageSystemAttributeNames = copyStrings(o.MessageSystemAttributeNames)
	}
	if len(o.ReceiveMessageAttributeNames) > 0 {
		c.receiveMessageAttributeNames = copyStrings(o.ReceiveMessageAttributeNames)
	}

	if o.MaxBufferedEntries != nil {
		c.maxBufferedEntries = *o.MaxBufferedEntries
	} else {
		c.maxBufferedEntries = DefaultMaxBufferedEntries
		if c.maxBatchItems > c.maxBufferedEntries {
			c.maxBufferedEntries = c.maxBatchItems
		}
	}

	return c
}

// Validate checks the resolved values for consistency.
// Returned errors wrap ErrInvalidConfig.
func (c Configuration) Validate() error {
	if c.maxBatchItems <= 0 {
		return validationError("max batch items must be positive, got %d", c.maxBatchItems)
	}
	if c.maxInflightBatches <= 0 {
		return validationError("max inflight batches must be positive, got %d", c.maxInflightBatches)
	}
	if c.maxDoneBatches <= 0 {
		return validationError("max done batches must be positive, got %d", c.maxDoneBatches)
	}
	if c.maxBufferedEntries < c.maxBatchItems {
		return validationError("max buffered entries (%d) must be at least max batch items (%d)",
			c.maxBufferedEntries, c.maxBatchItems)
	}
	// Sequence IDs wrap at MaxInt32, so every resident ID must stay distinct
	if c.maxBufferedEntries >= math.MaxInt32 {
		return validationError("max buffered entries must be below %d, got %d", math.MaxInt32, c.maxBufferedEntries)
	}
	if c.minReceiveWaitTime <= 0 {
		return validationError("min receive wait time must be positive, got %v", c.minReceiveWaitTime)
	}
	if c.maxFlushInterval < c.minReceiveWaitTime {
		return validationError("max flush interval (%v) must not be below min receive wait time (%v)",
			c.maxFlushInterval, c.minReceiveWaitTime)
	}
	if c.longPollWaitTimeout < 0 {
		return validationError("long poll wait timeout must not be negative, got %v", c.longPollWaitTimeout)
	}
	if c.visibilityTimeout != nil && *c.visibilityTimeout < 0 {
		return validationError("visibility timeout must not be negative, got %v", *c.visibilityTimeout)
	}
	return nil
}

// VisibilityTimeout returns the visibility timeout, or nil when unset.
func (c Configuration) VisibilityTimeout() *time.Duration {
	if c.visibilityTimeout == nil {
		return nil
	}
	v := *c.visibilityTimeout
	return &v
}

func (c Configuration) LongPollWaitTimeout() time.Duration { return c.longPollWaitTimeout }

// MinReceiveWaitTime is the fixed scheduled-flush interval and the adaptive floor.
func (c Configuration) MinReceiveWaitTime() time.Duration { return c.minReceiveWaitTime }

// MaxFlushInterval is the adaptive scheduled-flush ceiling.
func (c Configuration) MaxFlushInterval() time.Duration { return c.maxFlushInterval }

func (c Configuration) MessageSystemAttributeNames() []string {
	return copyStrings(c.messageSystemAttributeNames)
}

func (c Configuration) ReceiveMessageAttributeNames() []string {
	return copyStrings(c.receiveMessageAttributeNames)
}

func (c Configuration) AdaptivePrefetching() bool { return c.adaptivePrefetching }
func (c Configuration) MaxBatchItems() int        { return c.maxBatchItems }
func (c Configuration) MaxInflightBatches() int   { return c.maxInflightBatches }
func (c Configuration) MaxDoneBatches() int       { return c.maxDoneBatches }

// MaxBufferedEntries is the hard cap on resident entries per buffer.
func (c Configuration) MaxBufferedEntries() int { return c.maxBufferedEntries }

func durationOr(p *time.Duration, def time.Duration) time.Duration {
	if p == nil {
		return def
	}
	return *p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func copyStrings(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
