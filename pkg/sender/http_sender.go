package sender

import (
	httpAdapter "github.com/bft-labs/batchq/internal/adapters/http"
	"github.com/bft-labs/batchq/pkg/log"
)

// HTTPConfig configures the HTTP sender.
type HTTPConfig = httpAdapter.Config

// StatusError is returned when the service answers with a non-2xx status.
type StatusError = httpAdapter.StatusError

// EntryError is delivered to an entry the service rejected individually.
type EntryError = httpAdapter.EntryError

// NewHTTP returns a Sender that POSTs each batch as JSON to
// {ServiceURL}/v1/batches/{destination} and decodes per-entry results.
// Server errors and throttling are retried with exponential backoff.
func NewHTTP[Req, Resp any](config HTTPConfig, client HTTPClient, logger log.Logger) Sender[Req, Resp] {
	return httpAdapter.NewBatchSender[Req, Resp](config, client, logger)
}
