package ports

import "github.com/bft-labs/batchq/pkg/log"

// Logger provides structured logging capabilities.
type Logger = log.Logger

// Field represents a key-value pair for structured logging.
type Field = log.Field

// Field constructors, re-exported so internal packages depend only on ports.
var (
	String   = log.String
	Int      = log.Int
	Int64    = log.Int64
	Uint64   = log.Uint64
	Float64  = log.Float64
	Bool     = log.Bool
	Duration = log.Duration
	Err      = log.Err
	Any      = log.Any
)

// WithFields returns a logger that prepends fields to every message.
func WithFields(logger Logger, fields ...Field) Logger {
	return log.With(logger, fields...)
}

// NoopLogger discards all log messages.
type NoopLogger = log.NoopLogger
