package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/bft-labs/batchq/internal/ports"
)

const batchesEndpoint = "/v1/batches/"

// DefaultMaxRetries is the number of retries after the first attempt.
const DefaultMaxRetries = 3

// Config configures a BatchSender.
type Config struct {
	// ServiceURL is the base URL of the batch service
	ServiceURL string

	// AuthKey is sent as a bearer token when non-empty
	AuthKey string

	// MaxRetries bounds retries of transport errors and 5xx responses.
	// Negative disables retries; zero means DefaultMaxRetries.
	MaxRetries int

	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// BatchSender implements ports.BatchSender over HTTP with JSON bodies.
type BatchSender[Req, Resp any] struct {
	config   Config
	client   ports.HTTPClient
	logger   ports.Logger
	hostname string
}

// NewBatchSender creates a new HTTP batch sender.
func NewBatchSender[Req, Resp any](config Config, client ports.HTTPClient, logger ports.Logger) *BatchSender[Req, Resp] {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = ports.NoopLogger{}
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.BackoffInitial <= 0 {
		config.BackoffInitial = DefaultBackoffInitial
	}
	if config.BackoffMax <= 0 {
		config.BackoffMax = DefaultBackoffMax
	}
	return &BatchSender[Req, Resp]{
		config:   config,
		client:   client,
		logger:   logger,
		hostname: hostname(),
	}
}

// batchRequest is the wire form of an outgoing batch.
type batchRequest[Req any] struct {
	BatchID                      uint64           `json:"batch_id"`
	Trigger                      string           `json:"trigger"`
	VisibilityTimeoutMillis      *int64           `json:"visibility_timeout_ms,omitempty"`
	LongPollWaitMillis           int64            `json:"long_poll_wait_ms"`
	MessageSystemAttributeNames  []string         `json:"message_system_attribute_names"`
	ReceiveMessageAttributeNames []string         `json:"receive_message_attribute_names"`
	Entries                      []wireEntry[Req] `json:"entries"`
}

type wireEntry[Req any] struct {
	ID      string `json:"id"`
	Request Req    `json:"request"`
}

// batchResponse is the wire form of the service's reply.
type batchResponse[Resp any] struct {
	Results []wireResult[Resp] `json:"results"`
}

type wireResult[Resp any] struct {
	ID       string `json:"id"`
	Response Resp   `json:"response"`
	Error    string `json:"error,omitempty"`
}

// EntryError is the per-entry failure reported by the service.
type EntryError struct {
	ID      string
	Message string
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %s rejected: %s", e.ID, e.Message)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// acceptedError wraps a failure that happened after the service answered 2xx.
// The batch was accepted, so posting it again would deliver it twice.
type acceptedError struct {
	err error
}

func (e *acceptedError) Error() string { return e.err.Error() }
func (e *acceptedError) Unwrap() error { return e.err }

// SendBatch implements ports.BatchSender.
func (s *BatchSender[Req, Resp]) SendBatch(ctx context.Context, meta ports.BatchMetadata, entries []ports.BatchEntry[Req]) (map[string]ports.Result[Resp], error) {
	body, err := json.Marshal(encodeBatch(meta, entries))
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}

	b := newBackoff(s.config.BackoffInitial, s.config.BackoffMax)
	for attempt := 0; ; attempt++ {
		results, err := s.post(ctx, meta, body)
		if err == nil || !retryable(ctx, err) || attempt >= s.config.MaxRetries {
			return results, err
		}

		s.logger.Warn("batch send failed, retrying",
			ports.String("destination", meta.Destination),
			ports.Uint64("batch_id", meta.BatchID),
			ports.Int("attempt", attempt+1),
			ports.Duration("backoff", b.Current()),
			ports.Err(err),
		)
		if sleepErr := b.Sleep(ctx); sleepErr != nil {
			return nil, err
		}
	}
}

func (s *BatchSender[Req, Resp]) post(ctx context.Context, meta ports.BatchMetadata, body []byte) (map[string]ports.Result[Resp], error) {
	endpoint := s.config.ServiceURL + batchesEndpoint + url.PathEscape(meta.Destination)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Set headers
	if s.config.AuthKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.AuthKey)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Agent-Hostname", s.hostname)
	req.Header.Set("X-Agent-OSArch", runtime.GOOS+"/"+runtime.GOARCH)
	req.Header.Set("X-Batchq-Batch-Id", strconv.FormatUint(meta.BatchID, 10))
	req.Header.Set("X-Batchq-Trigger", meta.Trigger.String())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var decoded batchResponse[Resp]
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &acceptedError{err: fmt.Errorf("decode response: %w", err)}
	}

	results := make(map[string]ports.Result[Resp], len(decoded.Results))
	for _, r := range decoded.Results {
		if r.Error != "" {
			results[r.ID] = ports.Result[Resp]{Err: &EntryError{ID: r.ID, Message: r.Error}}
			continue
		}
		results[r.ID] = ports.Result[Resp]{Response: r.Response}
	}
	return results, nil
}

func encodeBatch[Req any](meta ports.BatchMetadata, entries []ports.BatchEntry[Req]) batchRequest[Req] {
	out := batchRequest[Req]{
		BatchID:                      meta.BatchID,
		Trigger:                      meta.Trigger.String(),
		LongPollWaitMillis:           meta.LongPollWaitTimeout.Milliseconds(),
		MessageSystemAttributeNames:  nonNil(meta.MessageSystemAttributeNames),
		ReceiveMessageAttributeNames: nonNil(meta.ReceiveMessageAttributeNames),
		Entries:                      make([]wireEntry[Req], len(entries)),
	}
	if meta.VisibilityTimeout != nil {
		ms := meta.VisibilityTimeout.Milliseconds()
		out.VisibilityTimeoutMillis = &ms
	}
	for i, e := range entries {
		out.Entries[i] = wireEntry[Req]{ID: e.ID, Request: e.Request}
	}
	return out
}

// retryable reports whether err is worth another attempt.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var acceptedErr *acceptedError
	if errors.As(err, &acceptedErr) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	// Anything else failed before a response arrived
	return true
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// hostname returns the current hostname.
func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}
