package domain

import (
	"math"
	"strconv"
)

// NextSequence returns the sequence ID to issue for counter n and the
// counter value that follows it. The counter wraps to zero when it reaches
// math.MaxInt32, so MaxInt32 itself is never issued.
func NextSequence(n int32) (id int32, next int32) {
	if n == math.MaxInt32 || n < 0 {
		n = 0
	}
	return n, n + 1
}

// FormatSequence encodes a sequence ID the way it appears in Entry.ID.
func FormatSequence(id int32) string {
	return strconv.FormatInt(int64(id), 10)
}
