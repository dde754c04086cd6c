package ports

import (
	"context"
	"time"

	"github.com/bft-labs/batchq/internal/domain"
)

// BatchSender transmits one drained batch to the remote service.
// It is called once per drain; retries, if any, are the implementation's
// business.
type BatchSender[Req, Resp any] interface {
	// SendBatch sends entries and returns a result per entry ID.
	// A non-nil error fails the whole batch. Entries absent from the
	// returned map fail with domain.ErrMissingResult.
	SendBatch(ctx context.Context, meta BatchMetadata, entries []BatchEntry[Req]) (map[string]Result[Resp], error)
}

// SenderFunc adapts a function to BatchSender.
type SenderFunc[Req, Resp any] func(ctx context.Context, meta BatchMetadata, entries []BatchEntry[Req]) (map[string]Result[Resp], error)

// SendBatch calls f.
func (f SenderFunc[Req, Resp]) SendBatch(ctx context.Context, meta BatchMetadata, entries []BatchEntry[Req]) (map[string]Result[Resp], error) {
	return f(ctx, meta, entries)
}

// BatchEntry is one request of an outgoing batch.
type BatchEntry[Req any] struct {
	// ID is the entry's sequence ID, unique within the batch
	ID string

	Request Req
}

// Result is the outcome of one entry. A non-nil Err fails only that entry.
type Result[Resp any] struct {
	Response Resp
	Err      error
}

// BatchMetadata describes the batch being sent.
type BatchMetadata struct {
	// Destination is the queue or endpoint the batch belongs to
	Destination string

	// BatchID increases monotonically per manager
	BatchID uint64

	// Trigger records what released the batch
	Trigger domain.Trigger

	// Transport-facing settings from the active configuration
	VisibilityTimeout            *time.Duration
	LongPollWaitTimeout          time.Duration
	MessageSystemAttributeNames  []string
	ReceiveMessageAttributeNames []string
}
