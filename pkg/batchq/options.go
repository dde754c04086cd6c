package batchq

import (
	"time"

	"github.com/bft-labs/batchq/pkg/log"
)

// Option configures optional behavior of a Manager.
type Option func(*options)

// options holds the optional configuration for a Manager.
type options struct {
	logger          log.Logger
	override        *Override
	eventHandler    EventHandler
	shutdownTimeout time.Duration

	// predicate is a func(Req) bool; its type is checked by New
	predicate any
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithOverride sets the batching configuration. Fields left nil take their
// defaults. If not provided, DefaultConfiguration is used.
func WithOverride(override *Override) Option {
	return func(o *options) {
		o.override = override
	}
}

// WithEventHandler sets a handler for manager events.
// Batch events are called from dispatcher goroutines; state changes from the
// goroutine calling Close. Implementations should return quickly and must not
// call back into the manager.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithShutdownTimeout bounds how long Close waits for in-flight batches.
// Default: 30 seconds.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.shutdownTimeout = timeout
	}
}

// WithFlushPredicate marks requests that must be sent immediately, together
// with everything buffered before them. Req must match the manager's request
// type or New fails with ErrInvalidConfig.
//
// Without a predicate, requests implementing FlushNow() bool are honoured.
func WithFlushPredicate[Req any](predicate func(Req) bool) Option {
	return func(o *options) {
		o.predicate = predicate
	}
}
