// Package buffer implements the per-destination holding area for pending
// requests.
//
// A Buffer assigns every inserted request a sequence ID and releases entries
// strictly oldest first. Insert, every drain variant, Clear and the snapshot
// methods share a single mutex, so an eager drain and a scheduled drain
// racing on the same buffer never both remove an entry.
//
// Entries taken by DrainIfTriggered or DrainScheduled are held: they keep
// counting against the cap until the caller hands them off and calls
// Release. DrainAll does not hold.
package buffer

import (
	"sync"

	"github.com/bft-labs/batchq/internal/domain"
	"github.com/bft-labs/batchq/internal/policy"
)

// Buffer holds pending entries for one destination.
type Buffer[Req, Resp any] struct {
	mu       sync.Mutex
	entries  map[int32]domain.Entry[Req, Resp]
	capacity int
	policy   policy.FlushPolicy[Req]

	// held counts drained entries not yet released
	held int

	// nextInsert is the counter for the next sequence ID to issue; nextDrain
	// is the counter for the oldest entry that has not been drained.
	nextInsert int32
	nextDrain  int32
}

// New creates a buffer holding at most capacity entries that consults
// flushPolicy on DrainIfTriggered.
func New[Req, Resp any](capacity int, flushPolicy policy.FlushPolicy[Req]) *Buffer[Req, Resp] {
	return &Buffer[Req, Resp]{
		entries:  make(map[int32]domain.Entry[Req, Resp]),
		capacity: capacity,
		policy:   flushPolicy,
	}
}

// Insert stores req under the next sequence ID and returns the completion
// that will receive its result. It fails with a *domain.CapacityError when
// resident plus held entries already reach capacity; the buffer is left
// unchanged.
func (b *Buffer[Req, Resp]) Insert(req Req) (*domain.Completion[Resp], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n := len(b.entries) + b.held; n >= b.capacity {
		return nil, &domain.CapacityError{Current: n, Capacity: b.capacity}
	}

	id, next := domain.NextSequence(b.nextInsert)
	b.nextInsert = next

	c := domain.NewCompletion[Resp]()
	b.entries[id] = domain.Entry[Req, Resp]{
		ID:         domain.FormatSequence(id),
		Request:    req,
		Completion: c,
	}
	return c, nil
}

// DrainIfTriggered evaluates the flush policy against the resident entries
// and the just-inserted req. If it fires, up to maxItems oldest entries are
// removed, held and returned; otherwise the batch is empty.
func (b *Buffer[Req, Resp]) DrainIfTriggered(req Req, maxItems int) domain.Batch[Req, Resp] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.policy == nil || !b.policy.ShouldFlush(len(b.entries), req) {
		return domain.Batch[Req, Resp]{}
	}
	return b.hold(b.extract(maxItems))
}

// DrainScheduled removes, holds and returns up to maxItems oldest entries if
// the buffer is non-empty.
func (b *Buffer[Req, Resp]) DrainScheduled(maxItems int) domain.Batch[Req, Resp] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !policy.Scheduled(len(b.entries)) {
		return domain.Batch[Req, Resp]{}
	}
	return b.hold(b.extract(maxItems))
}

// Release stops counting n held entries against the cap.
func (b *Buffer[Req, Resp]) Release(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.held -= n
	if b.held < 0 {
		b.held = 0
	}
}

// Held returns the number of drained entries not yet released.
func (b *Buffer[Req, Resp]) Held() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.held
}

// hold must be called with mu held.
func (b *Buffer[Req, Resp]) hold(batch domain.Batch[Req, Resp]) domain.Batch[Req, Resp] {
	b.held += batch.Size()
	return batch
}

// DrainAll removes and returns every resident entry, oldest first.
func (b *Buffer[Req, Resp]) DrainAll() domain.Batch[Req, Resp] {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.extract(len(b.entries))
}

// extract must be called with mu held.
func (b *Buffer[Req, Resp]) extract(maxItems int) domain.Batch[Req, Resp] {
	n := maxItems
	if n > len(b.entries) {
		n = len(b.entries)
	}
	if n <= 0 {
		return domain.Batch[Req, Resp]{}
	}

	out := make([]domain.Entry[Req, Resp], 0, n)
	for len(out) < n {
		id, next := domain.NextSequence(b.nextDrain)
		e, ok := b.entries[id]
		if !ok {
			// IDs are dense, so a miss means nothing older is resident
			break
		}
		delete(b.entries, id)
		b.nextDrain = next
		out = append(out, e)
	}
	return domain.Batch[Req, Resp]{Entries: out}
}

// PendingCompletions returns the completions of all resident entries, oldest
// first. The entries stay resident.
func (b *Buffer[Req, Resp]) PendingCompletions() []*domain.Completion[Resp] {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*domain.Completion[Resp], 0, len(b.entries))
	cursor := b.nextDrain
	for len(out) < len(b.entries) {
		id, next := domain.NextSequence(cursor)
		e, ok := b.entries[id]
		if !ok {
			break
		}
		out = append(out, e.Completion)
		cursor = next
	}
	return out
}

// Clear removes every entry without settling its completion. Callers must
// settle the completions themselves.
func (b *Buffer[Req, Resp]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	clear(b.entries)
	b.nextDrain = b.nextInsert
}

// Len returns the number of resident entries.
func (b *Buffer[Req, Resp]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Capacity returns the hard cap on resident plus held entries.
func (b *Buffer[Req, Resp]) Capacity() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity
}

// Reconfigure swaps the flush policy and hard cap. Entries already resident
// or held are kept even if they exceed the new cap; further inserts fail until
// the count falls below it.
func (b *Buffer[Req, Resp]) Reconfigure(capacity int, flushPolicy policy.FlushPolicy[Req]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.capacity = capacity
	b.policy = flushPolicy
}
