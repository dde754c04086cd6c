package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/batchq/internal/domain"
	"github.com/bft-labs/batchq/internal/ports"
)

// dispatch hands a batch drained from d to its own sender goroutine. The
// batch's entries stay held by d's buffer until the goroutine gets an
// in-flight slot, so batches queued behind MaxInflightBatches still count
// against the destination's hard cap. Callers must hold mu (shared or
// exclusive) so the worker is registered before Close waits.
func (m *Manager[Req, Resp]) dispatch(d *destination[Req, Resp], batch domain.Batch[Req, Resp], trigger domain.Trigger) {
	if batch.Empty() {
		return
	}

	id := m.batchSeq.Add(1)
	m.counters.batches.Add(1)
	m.counters.queued.Add(1)
	m.lifecycle.AddWorker()

	go func() {
		defer m.lifecycle.WorkerDone()
		m.send(d, id, trigger, batch)
	}()
}

// acquire waits for an in-flight slot and then releases the batch's hold on
// d's buffer, whether or not a slot was granted.
func (m *Manager[Req, Resp]) acquire(d *destination[Req, Resp], size int) error {
	err := m.sem.Acquire(m.sendCtx, 1)
	d.buf.Release(size)
	m.counters.queued.Add(-1)
	if err == nil {
		m.counters.inflight.Add(1)
	}
	return err
}

// send waits for an in-flight slot, sends the batch and settles every entry.
func (m *Manager[Req, Resp]) send(d *destination[Req, Resp], id uint64, trigger domain.Trigger, batch domain.Batch[Req, Resp]) {
	destination := d.name
	report := BatchReport{
		Destination: destination,
		BatchID:     id,
		Trigger:     trigger,
		Size:        batch.Size(),
	}

	if err := m.acquire(d, batch.Size()); err != nil {
		// Close gave up on us before a slot freed
		report.Failed = batch.FailAll(domain.ErrCancelled)
		report.Err = domain.ErrCancelled
		m.counters.cancelled.Add(uint64(report.Failed))
		m.finish(report)
		return
	}
	defer m.sem.Release(1)
	defer m.counters.inflight.Add(-1)

	cfg := m.config()
	meta := ports.BatchMetadata{
		Destination:                  destination,
		BatchID:                      id,
		Trigger:                      trigger,
		VisibilityTimeout:            cfg.VisibilityTimeout(),
		LongPollWaitTimeout:          cfg.LongPollWaitTimeout(),
		MessageSystemAttributeNames:  cfg.MessageSystemAttributeNames(),
		ReceiveMessageAttributeNames: cfg.ReceiveMessageAttributeNames(),
	}
	entries := make([]ports.BatchEntry[Req], len(batch.Entries))
	for i, e := range batch.Entries {
		entries[i] = ports.BatchEntry[Req]{ID: e.ID, Request: e.Request}
	}

	start := time.Now()
	results, err := m.callSender(m.sendCtx, meta, entries)
	report.Duration = time.Since(start)

	if err != nil {
		batchErr := &domain.BatchError{Destination: destination, BatchID: id, Err: err}
		report.Failed = batch.FailAll(batchErr)
		report.Err = batchErr
		m.counters.failed.Add(uint64(report.Failed))
		m.finish(report)
		return
	}

	for _, e := range batch.Entries {
		r, ok := results[e.ID]
		switch {
		case !ok:
			if e.Completion.Fail(domain.ErrMissingResult) {
				report.Failed++
			}
		case r.Err != nil:
			if e.Completion.Fail(r.Err) {
				report.Failed++
			}
		default:
			if e.Completion.Resolve(r.Response) {
				report.Succeeded++
			}
		}
	}
	m.counters.succeeded.Add(uint64(report.Succeeded))
	m.counters.failed.Add(uint64(report.Failed))
	m.finish(report)
}

// callSender invokes the sender, turning a panic into a batch error so the
// batch's completions still settle.
func (m *Manager[Req, Resp]) callSender(ctx context.Context, meta ports.BatchMetadata, entries []ports.BatchEntry[Req]) (results map[string]ports.Result[Resp], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("batch sender panicked: %v", r)
		}
	}()
	return m.sender.SendBatch(ctx, meta, entries)
}

func (m *Manager[Req, Resp]) finish(report BatchReport) {
	m.reports.add(report)

	fields := []ports.Field{
		ports.String("destination", report.Destination),
		ports.Uint64("batch_id", report.BatchID),
		ports.String("trigger", report.Trigger.String()),
		ports.Int("size", report.Size),
		ports.Int("succeeded", report.Succeeded),
		ports.Int("failed", report.Failed),
		ports.Duration("duration", report.Duration),
	}

	if report.Err != nil {
		m.logger.Error("batch failed", append(fields, ports.Err(report.Err))...)
		if m.emitter != nil {
			m.emitter.OnBatchFailed(report)
		}
		return
	}

	m.logger.Debug("batch sent", fields...)
	if m.emitter != nil {
		m.emitter.OnBatchSent(report)
	}
}
