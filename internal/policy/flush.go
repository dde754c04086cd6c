package policy

// FlushPolicy decides whether an insert should trigger an immediate drain.
// resident is the number of entries in the buffer including req.
type FlushPolicy[Req any] interface {
	ShouldFlush(resident int, req Req) bool
}

// FlushNower is an optional interface for requests that can ask to be sent
// without waiting for a full batch.
type FlushNower interface {
	FlushNow() bool
}

// CountPolicy fires once the buffer holds at least MaxItems entries.
type CountPolicy[Req any] struct {
	MaxItems int
}

// ShouldFlush implements FlushPolicy.
func (p CountPolicy[Req]) ShouldFlush(resident int, _ Req) bool {
	return p.MaxItems > 0 && resident >= p.MaxItems
}

// ImmediatePolicy fires when Predicate holds for the inserted request.
// A nil Predicate falls back to RequestsFlushNow.
type ImmediatePolicy[Req any] struct {
	Predicate func(Req) bool
}

// ShouldFlush implements FlushPolicy.
func (p ImmediatePolicy[Req]) ShouldFlush(_ int, req Req) bool {
	if p.Predicate != nil {
		return p.Predicate(req)
	}
	return RequestsFlushNow(req)
}

// RequestsFlushNow reports whether req implements FlushNower and asks to flush.
func RequestsFlushNow[Req any](req Req) bool {
	f, ok := any(req).(FlushNower)
	return ok && f.FlushNow()
}

// AnyOf fires when any of its policies fires.
type AnyOf[Req any] []FlushPolicy[Req]

// ShouldFlush implements FlushPolicy.
func (a AnyOf[Req]) ShouldFlush(resident int, req Req) bool {
	for _, p := range a {
		if p != nil && p.ShouldFlush(resident, req) {
			return true
		}
	}
	return false
}

// Eager returns the default insert-time policy: flush on a full batch, or
// when predicate (RequestsFlushNow if nil) holds for the inserted request.
func Eager[Req any](maxItems int, predicate func(Req) bool) FlushPolicy[Req] {
	return AnyOf[Req]{
		CountPolicy[Req]{MaxItems: maxItems},
		ImmediatePolicy[Req]{Predicate: predicate},
	}
}

// Scheduled is the time-based flush condition: anything waiting is flushed.
func Scheduled(resident int) bool {
	return resident > 0
}
