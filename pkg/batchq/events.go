package batchq

import (
	"github.com/bft-labs/batchq/internal/app"
)

// EventHandler receives notifications about manager operations.
// Embed BaseEventHandler to implement only the methods you need.
type EventHandler interface {
	// OnStateChange is called on every lifecycle transition.
	OnStateChange(event StateChangeEvent)

	// OnBatchSent is called after a batch was sent and its entries settled.
	// Individual entries may still have failed; see BatchReport.Failed.
	OnBatchSent(event BatchEvent)

	// OnBatchFailed is called after a batch failed as a whole.
	OnBatchFailed(event BatchEvent)
}

// StateChangeEvent describes a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// BatchEvent describes a settled batch.
type BatchEvent struct {
	BatchReport
}

// BaseEventHandler provides no-op implementations of every EventHandler method.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnBatchSent(BatchEvent)         {}
func (BaseEventHandler) OnBatchFailed(BatchEvent)       {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnBatchSent(report app.BatchReport) {
	if e.handler == nil {
		return
	}
	e.handler.OnBatchSent(BatchEvent{BatchReport: report})
}

func (e *eventEmitterWrapper) OnBatchFailed(report app.BatchReport) {
	if e.handler == nil {
		return
	}
	e.handler.OnBatchFailed(BatchEvent{BatchReport: report})
}
