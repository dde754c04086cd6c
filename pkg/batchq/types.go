package batchq

import (
	"github.com/bft-labs/batchq/internal/app"
	"github.com/bft-labs/batchq/internal/domain"
)

// Completion carries the eventual result of one submitted request.
// It settles exactly once.
type Completion[Resp any] = domain.Completion[Resp]

// Override selects configuration values; nil fields take their defaults.
type Override = domain.Override

// Configuration is a resolved, immutable engine configuration.
type Configuration = domain.Configuration

// Trigger records what released a batch.
type Trigger = domain.Trigger

const (
	TriggerEager     = domain.TriggerEager
	TriggerScheduled = domain.TriggerScheduled
)

// Errors returned by the manager and delivered to completions.
// Check them with errors.Is.
var (
	ErrCapacityExceeded   = domain.ErrCapacityExceeded
	ErrCancelled          = domain.ErrCancelled
	ErrClosed             = domain.ErrClosed
	ErrUnknownDestination = domain.ErrUnknownDestination
	ErrInvalidConfig      = domain.ErrInvalidConfig
	ErrShutdownTimeout    = domain.ErrShutdownTimeout
	ErrMissingResult      = domain.ErrMissingResult
)

// CapacityError describes a rejected submission.
type CapacityError = domain.CapacityError

// BatchError is delivered to every entry of a batch whose send failed as a whole.
type BatchError = domain.BatchError

// Stats is a point-in-time view of a manager.
type Stats = app.Stats

// DestinationStats describes one destination's buffer and scheduler.
type DestinationStats = app.DestinationStats

// BatchReport summarizes one dispatched batch after its entries settled.
type BatchReport = app.BatchReport

// Resolve fills every field absent from o with its default.
func Resolve(o *Override) Configuration {
	return domain.Resolve(o)
}

// DefaultConfiguration returns the configuration with every field defaulted.
func DefaultConfiguration() Configuration {
	return domain.DefaultConfiguration()
}

// State represents the lifecycle state of a Manager.
type State int

const (
	// StateRunning accepts submissions.
	StateRunning State = iota
	// StateClosing rejects submissions while in-flight batches finish.
	StateClosing
	// StateClosed is terminal.
	StateClosed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "Running"
	case StateClosing:
		return "Closing"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

func convertState(s app.State) State {
	switch s {
	case app.StateRunning:
		return StateRunning
	case app.StateClosing:
		return StateClosing
	case app.StateClosed:
		return StateClosed
	default:
		return StateClosed
	}
}
