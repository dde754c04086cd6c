package buffer

import (
	"errors"
	"math"
	"strconv"
	"sync"
	"testing"

	"github.com/bft-labs/batchq/internal/domain"
	"github.com/bft-labs/batchq/internal/policy"
)

func newTestBuffer(capacity, maxItems int) *Buffer[int, string] {
	return New[int, string](capacity, policy.Eager[int](maxItems, nil))
}

func requests(b domain.Batch[int, string]) []int {
	out := make([]int, len(b.Entries))
	for i, e := range b.Entries {
		out[i] = e.Request
	}
	return out
}

func TestBuffer_InsertAssignsDenseIDs(t *testing.T) {
	b := newTestBuffer(10, 10)

	for i := 0; i < 5; i++ {
		if _, err := b.Insert(i); err != nil {
			t.Fatalf("Insert(%d) error = %v", i, err)
		}
	}

	batch := b.DrainScheduled(10)
	want := []string{"0", "1", "2", "3", "4"}
	got := batch.IDs()
	if len(got) != len(want) {
		t.Fatalf("drained %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ID[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestBuffer_DrainIsFIFO(t *testing.T) {
	b := newTestBuffer(100, 100)
	for i := 0; i < 25; i++ {
		if _, err := b.Insert(i); err != nil {
			t.Fatalf("Insert(%d) error = %v", i, err)
		}
	}

	var released []int
	for _, size := range []int{7, 3, 10, 10} {
		batch := b.DrainScheduled(size)
		if batch.Size() > size {
			t.Fatalf("batch of %d exceeds maxItems %d", batch.Size(), size)
		}
		released = append(released, requests(batch)...)
	}

	if len(released) != 25 {
		t.Fatalf("released %d entries, want 25", len(released))
	}
	for i, r := range released {
		if r != i {
			t.Fatalf("released[%d] = %d, want %d (FIFO violated)", i, r, i)
		}
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d after full drain, want 0", b.Len())
	}
}

func TestBuffer_InterleavedInsertAndDrainStaysFIFO(t *testing.T) {
	// Each round leaves one more entry resident, so the last round peaks at 22
	b := newTestBuffer(32, 10)
	next := 0
	var released []int

	for round := 0; round < 20; round++ {
		for i := 0; i < 3; i++ {
			if _, err := b.Insert(next); err != nil {
				t.Fatalf("Insert(%d) error = %v", next, err)
			}
			next++
		}
		batch := b.DrainScheduled(2)
		b.Release(batch.Size())
		released = append(released, requests(batch)...)
	}
	released = append(released, requests(b.DrainAll())...)

	if len(released) != next {
		t.Fatalf("released %d entries, want %d", len(released), next)
	}
	for i, r := range released {
		if r != i {
			t.Fatalf("released[%d] = %d, want %d", i, r, i)
		}
	}
}

func TestBuffer_CapacityExceeded(t *testing.T) {
	b := newTestBuffer(3, 10)
	for i := 0; i < 3; i++ {
		if _, err := b.Insert(i); err != nil {
			t.Fatalf("Insert(%d) error = %v", i, err)
		}
	}

	c, err := b.Insert(99)
	if !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("Insert() over cap error = %v, want ErrCapacityExceeded", err)
	}
	if c != nil {
		t.Error("Insert() over cap returned a completion")
	}
	var capErr *domain.CapacityError
	if !errors.As(err, &capErr) || capErr.Current != 3 || capErr.Capacity != 3 {
		t.Errorf("CapacityError = %+v, want 3/3", capErr)
	}

	// Existing contents are untouched
	if got := requests(b.DrainAll()); len(got) != 3 || got[0] != 0 || got[2] != 2 {
		t.Errorf("contents after rejected insert = %v, want [0 1 2]", got)
	}
}

func TestBuffer_HeldEntriesCountAgainstCap(t *testing.T) {
	b := newTestBuffer(4, 2)
	for i := 0; i < 4; i++ {
		if _, err := b.Insert(i); err != nil {
			t.Fatalf("Insert(%d) error = %v", i, err)
		}
	}

	if batch := b.DrainScheduled(2); batch.Size() != 2 {
		t.Fatalf("DrainScheduled() drained %d, want 2", batch.Size())
	}
	if b.Len() != 2 || b.Held() != 2 {
		t.Fatalf("Len() = %d Held() = %d, want 2 and 2", b.Len(), b.Held())
	}

	_, err := b.Insert(4)
	var capErr *domain.CapacityError
	if !errors.As(err, &capErr) || capErr.Current != 4 || capErr.Capacity != 4 {
		t.Fatalf("Insert() with held entries error = %v, want CapacityError 4/4", err)
	}

	b.Release(2)
	if _, err := b.Insert(4); err != nil {
		t.Errorf("Insert() after Release() error = %v", err)
	}

	// DrainAll settles entries itself and does not hold them
	b.DrainAll()
	b.Release(10)
	if b.Held() != 0 {
		t.Errorf("Held() = %d after over-release, want 0", b.Held())
	}
}

func TestBuffer_IDWraparound(t *testing.T) {
	b := newTestBuffer(10, 10)
	b.nextInsert = math.MaxInt32 - 3
	b.nextDrain = math.MaxInt32 - 3

	const n = 8
	for i := 0; i < n; i++ {
		if _, err := b.Insert(i); err != nil {
			t.Fatalf("Insert(%d) error = %v", i, err)
		}
	}

	var ids []string
	var released []int
	for b.Len() > 0 {
		batch := b.DrainScheduled(3)
		ids = append(ids, batch.IDs()...)
		released = append(released, requests(batch)...)
	}

	want := []string{
		strconv.Itoa(math.MaxInt32 - 3),
		strconv.Itoa(math.MaxInt32 - 2),
		strconv.Itoa(math.MaxInt32 - 1),
		"0", "1", "2", "3", "4",
	}
	if len(ids) != n {
		t.Fatalf("drained %d entries, want %d", len(ids), n)
	}
	seen := map[string]bool{}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ID[%d] = %s, want %s", i, ids[i], want[i])
		}
		if seen[ids[i]] {
			t.Errorf("duplicate ID %s", ids[i])
		}
		seen[ids[i]] = true
		if released[i] != i {
			t.Errorf("released[%d] = %d, want %d", i, released[i], i)
		}
	}
}

func TestBuffer_DrainIfTriggered(t *testing.T) {
	b := newTestBuffer(10, 3)

	for i := 0; i < 2; i++ {
		if _, err := b.Insert(i); err != nil {
			t.Fatal(err)
		}
		if batch := b.DrainIfTriggered(i, 3); !batch.Empty() {
			t.Fatalf("insert %d drained %d entries before the count was reached", i, batch.Size())
		}
	}

	b.Insert(2)
	batch := b.DrainIfTriggered(2, 3)
	if got := requests(batch); len(got) != 3 || got[0] != 0 || got[2] != 2 {
		t.Errorf("triggered drain = %v, want [0 1 2]", got)
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
}

func TestBuffer_DrainIfTriggered_Immediate(t *testing.T) {
	b := New[int, string](10, policy.Eager[int](10, func(r int) bool { return r < 0 }))

	b.Insert(1)
	b.Insert(2)
	b.Insert(-1)

	batch := b.DrainIfTriggered(-1, 10)
	if got := requests(batch); len(got) != 3 || got[2] != -1 {
		t.Errorf("immediate drain = %v, want [1 2 -1]", got)
	}
}

func TestBuffer_DrainEmpty(t *testing.T) {
	b := newTestBuffer(10, 1)
	if batch := b.DrainScheduled(10); !batch.Empty() {
		t.Error("DrainScheduled() on empty buffer returned entries")
	}
	if batch := b.DrainAll(); !batch.Empty() {
		t.Error("DrainAll() on empty buffer returned entries")
	}
	b.Insert(1)
	if batch := b.DrainScheduled(0); !batch.Empty() {
		t.Error("DrainScheduled(0) returned entries")
	}
}

// Insert 10 requests rapidly with maxBatchItems=10 and hard cap 10: exactly
// one eager drain fires and it carries all 10.
func TestBuffer_CountTriggerDrainsFullBatchOnce(t *testing.T) {
	b := newTestBuffer(10, 10)

	drains := 0
	var batch domain.Batch[int, string]
	for i := 0; i < 10; i++ {
		if _, err := b.Insert(i); err != nil {
			t.Fatalf("Insert(%d) error = %v", i, err)
		}
		if got := b.DrainIfTriggered(i, 10); !got.Empty() {
			drains++
			batch = got
		}
	}

	if drains != 1 {
		t.Fatalf("eager drains = %d, want 1", drains)
	}
	if batch.Size() != 10 {
		t.Errorf("batch size = %d, want 10", batch.Size())
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d after drain, want 0", b.Len())
	}
}

func TestBuffer_PendingCompletions(t *testing.T) {
	b := newTestBuffer(10, 10)
	var want []*domain.Completion[string]
	for i := 0; i < 4; i++ {
		c, _ := b.Insert(i)
		want = append(want, c)
	}
	b.DrainScheduled(1)

	got := b.PendingCompletions()
	if len(got) != 3 {
		t.Fatalf("PendingCompletions() returned %d, want 3", len(got))
	}
	for i := range got {
		if got[i] != want[i+1] {
			t.Errorf("PendingCompletions()[%d] is not the completion of entry %d", i, i+1)
		}
	}
	if b.Len() != 3 {
		t.Errorf("PendingCompletions() changed Len() to %d", b.Len())
	}
}

func TestBuffer_ClearDoesNotSettleAndDoesNotStall(t *testing.T) {
	b := newTestBuffer(10, 10)
	c, _ := b.Insert(1)
	b.Insert(2)

	b.Clear()

	if b.Len() != 0 {
		t.Errorf("Len() = %d after Clear(), want 0", b.Len())
	}
	if _, _, ok := c.Result(); ok {
		t.Error("Clear() settled a completion")
	}

	b.Insert(3)
	if got := requests(b.DrainScheduled(10)); len(got) != 1 || got[0] != 3 {
		t.Errorf("drain after Clear() = %v, want [3]", got)
	}
}

func TestBuffer_Reconfigure(t *testing.T) {
	b := newTestBuffer(5, 5)
	for i := 0; i < 4; i++ {
		b.Insert(i)
	}

	b.Reconfigure(3, policy.Eager[int](2, nil))

	if b.Capacity() != 3 {
		t.Errorf("Capacity() = %d, want 3", b.Capacity())
	}
	if _, err := b.Insert(9); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Errorf("Insert() above new cap error = %v, want ErrCapacityExceeded", err)
	}
	if batch := b.DrainIfTriggered(0, 2); batch.Size() != 2 {
		t.Errorf("new policy drained %d, want 2", batch.Size())
	}
}

func TestBuffer_ConcurrentInsertAndDrain(t *testing.T) {
	const (
		writers   = 8
		perWriter = 500
	)
	b := newTestBuffer(writers*perWriter, 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]int)
	record := func(batch domain.Batch[int, string]) {
		if batch.Size() > 10 {
			t.Errorf("batch of %d exceeds max items", batch.Size())
		}
		mu.Lock()
		for _, id := range batch.IDs() {
			seen[id]++
		}
		mu.Unlock()
	}

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				req := w*perWriter + i
				if _, err := b.Insert(req); err != nil {
					t.Errorf("Insert(%d) error = %v", req, err)
					return
				}
				record(b.DrainIfTriggered(req, 10))
			}
		}(w)
	}

	stop := make(chan struct{})
	drainerDone := make(chan struct{})
	go func() {
		defer close(drainerDone)
		for {
			select {
			case <-stop:
				return
			default:
				record(b.DrainScheduled(10))
			}
		}
	}()

	wg.Wait()
	close(stop)
	<-drainerDone
	for b.Len() > 0 {
		record(b.DrainScheduled(10))
	}

	if len(seen) != writers*perWriter {
		t.Fatalf("drained %d distinct entries, want %d", len(seen), writers*perWriter)
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("entry %s drained %d times", id, n)
		}
	}
}
