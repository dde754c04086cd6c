package sender

import "github.com/bft-labs/batchq/internal/ports"

// Sender transmits one drained batch to the remote service and reports a
// result per entry. A returned error fails the whole batch.
type Sender[Req, Resp any] = ports.BatchSender[Req, Resp]

// Func adapts a plain function to Sender.
type Func[Req, Resp any] = ports.SenderFunc[Req, Resp]

// Entry is one request of an outgoing batch, keyed by its sequence ID.
type Entry[Req any] = ports.BatchEntry[Req]

// Result is the outcome of one entry.
type Result[Resp any] = ports.Result[Resp]

// Metadata describes the batch being sent: destination, batch ID, trigger
// and the transport-facing configuration.
type Metadata = ports.BatchMetadata
