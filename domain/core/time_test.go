package core

import (
	"math"
	"testing"
)

func TestMinutesBetween(t *testing.T) {
	tests := []struct {
		name       string
		start, end int64
		want       int64
	}{
		{"same instant", 0, 0, 0},
		{"partial minute", 0, 59_999, 0},
		{"forward", 0, 3 * MinuteMs, 3},
		{"backward", 3 * MinuteMs, 0, -3},
		{"wide window", -5e18, 5e18, 10_000_000_000_000_000_000 / 60_000},
		{"full range", math.MinInt64, math.MaxInt64, int64(uint64(math.MaxUint64) / uint64(MinuteMs))},
		{"full range reversed", math.MaxInt64, math.MinInt64, -int64(uint64(math.MaxUint64) / uint64(MinuteMs))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MinutesBetween(tt.start, tt.end); got != tt.want {
				t.Errorf("MinutesBetween(%d, %d) = %d, want %d", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestTruncateMinute(t *testing.T) {
	if got := Millis(-1).TruncateMinute(); got != Millis(-MinuteMs) {
		t.Errorf("TruncateMinute(-1) = %d", got)
	}
	if got := Millis(125_000).TruncateMinute(); got != Millis(120_000) {
		t.Errorf("TruncateMinute(125000) = %d", got)
	}
}
