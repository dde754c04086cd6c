// Package ports defines the interfaces (ports) that connect the batching
// engine to infrastructure adapters.
//
// # Port Interfaces
//
//   - [BatchSender]: Sends one drained batch to the remote service
//   - [Logger]: Structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with concrete
// transports and loggers, and tests substitute hand-written mocks.
package ports
