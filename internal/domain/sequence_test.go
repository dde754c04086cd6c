package domain

import (
	"math"
	"testing"
)

func TestNextSequence(t *testing.T) {
	tests := []struct {
		name     string
		in       int32
		wantID   int32
		wantNext int32
	}{
		{"start", 0, 0, 1},
		{"middle", 41, 41, 42},
		{"last before wrap", math.MaxInt32 - 1, math.MaxInt32 - 1, math.MaxInt32},
		{"wraps at max", math.MaxInt32, 0, 1},
		{"negative resets", -5, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, next := NextSequence(tt.in)
			if id != tt.wantID || next != tt.wantNext {
				t.Errorf("NextSequence(%d) = (%d, %d), want (%d, %d)",
					tt.in, id, next, tt.wantID, tt.wantNext)
			}
		})
	}
}

func TestFormatSequence(t *testing.T) {
	if got := FormatSequence(2147483646); got != "2147483646" {
		t.Errorf("FormatSequence() = %q", got)
	}
	if got := FormatSequence(0); got != "0" {
		t.Errorf("FormatSequence(0) = %q", got)
	}
}
