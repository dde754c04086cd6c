// Package domain contains the core entities and value objects for batchq.
//
// This package represents the innermost layer of the engine. It has no
// dependencies on infrastructure concerns (transport, file system, logging)
// and contains only the data model and its invariants.
//
// # Entities
//
//   - [Entry]: A submitted request paired with the completion that receives its result
//   - [Completion]: A settle-once handle the submitter waits on
//   - [Batch]: An ordered group of entries drained together for one downstream call
//   - [Configuration]: The immutable, fully defaulted batching configuration
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Safe for concurrent use where they are shared between goroutines
//   - Testable without mocks or external systems
package domain
