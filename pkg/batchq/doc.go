// Package batchq provides an embeddable request batching engine.
//
// Callers submit individual requests addressed to a destination (a queue,
// an endpoint). The engine buffers them per destination and hands them to a
// [sender.Sender] in batches, either as soon as a batch is full or a request
// asks to be flushed, or when the destination's flush timer expires. Each
// submission returns a [Completion] that settles with the request's own
// result.
//
// # Basic Usage
//
//	s := sender.NewHTTP[Order, Ack](sender.HTTPConfig{
//	    ServiceURL: "https://batches.example.com",
//	    AuthKey:    "api-key",
//	}, http.DefaultClient, nil)
//
//	m, err := batchq.New[Order, Ack](s)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Close()
//
//	c, err := m.Submit("orders", Order{ID: 7})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ack, err := c.Wait(ctx)
//
// # Configuration
//
// Pass an [Override] via [WithOverride]; nil fields take the defaults listed
// in [DefaultConfiguration]. A running manager can be reconfigured with
// [Manager.Reconfigure]; armed flush timers restart with the new interval.
//
// # Flushing
//
// A destination's buffer is drained eagerly when it holds MaxBatchItems
// requests, or when a request matches the flush predicate ([WithFlushPredicate],
// or a FlushNow() bool method on the request). Otherwise the destination's
// timer drains up to MaxBatchItems requests after MinReceiveWaitTime, or an
// interval adapted to the arrival rate when AdaptivePrefetching is set.
//
// # Event Handling
//
// Implement [EventHandler] (embedding [BaseEventHandler] for no-op defaults)
// and pass it via [WithEventHandler] to observe lifecycle transitions and
// settled batches.
//
// # Lifecycle States
//
// A Manager is [StateRunning] from creation until [Manager.Close], which moves
// it through [StateClosing] to [StateClosed].
package batchq
