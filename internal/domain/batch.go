package domain

// Entry is a submitted request paired with the completion that will receive
// its result. The buffer owns an entry until it is drained; afterwards the
// batch consumer owns it and must settle Completion exactly once.
type Entry[Req, Resp any] struct {
	// ID is the sequence ID assigned on insert, unique among resident entries
	ID string

	// Request is the caller's request, passed through untouched
	Request Req

	// Completion receives the result for Request
	Completion *Completion[Resp]
}

// Batch is an ordered group of entries drained together, oldest first.
type Batch[Req, Resp any] struct {
	Entries []Entry[Req, Resp]
}

// Size returns the number of entries in the batch.
func (b Batch[Req, Resp]) Size() int {
	return len(b.Entries)
}

// Empty returns true if the batch has no entries.
func (b Batch[Req, Resp]) Empty() bool {
	return len(b.Entries) == 0
}

// IDs returns the sequence IDs of the batch in drain order.
func (b Batch[Req, Resp]) IDs() []string {
	ids := make([]string, len(b.Entries))
	for i, e := range b.Entries {
		ids[i] = e.ID
	}
	return ids
}

// FailAll fails every entry that has not settled yet and returns how many
// completions this call settled.
func (b Batch[Req, Resp]) FailAll(err error) int {
	n := 0
	for _, e := range b.Entries {
		if e.Completion.Fail(err) {
			n++
		}
	}
	return n
}

// Trigger records what released a batch from its buffer.
type Trigger int

const (
	// TriggerEager means an insert satisfied the flush policy.
	TriggerEager Trigger = iota

	// TriggerScheduled means the destination's flush timer fired.
	TriggerScheduled
)

// String returns a human-readable representation of the trigger.
func (t Trigger) String() string {
	switch t {
	case TriggerEager:
		return "eager"
	case TriggerScheduled:
		return "scheduled"
	default:
		return "unknown"
	}
}
