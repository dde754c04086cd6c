// Package log provides the structured logging abstraction used by batchq.
//
// The engine packages only depend on the [Logger] interface. A zerolog
// backed implementation and a no-op implementation are provided:
//
//	logger := log.NewZerologAdapter()              // console output on stderr
//	logger := log.NewZerologAdapterWithLogger(zl)  // wrap an existing zerolog.Logger
//	logger := log.NewNoopLogger()                  // discard everything
//
// Use [With] to attach fields that should appear on every message, for
// example the destination a batch buffer serves:
//
//	destLogger := log.With(logger, log.String("destination", "orders"))
//
// Any other logging library can be plugged in by implementing the four
// level methods of [Logger].
package log
