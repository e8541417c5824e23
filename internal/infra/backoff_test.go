package infra

import (
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	cases := []struct {
		retryCount int
		expected   time.Duration
	}{
		{-1, 1 * time.Second},
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{5, 32 * time.Second},
		{6, 60 * time.Second}, // 64s capped
		{10, 60 * time.Second},
		{31, 60 * time.Second}, // shift overflow guard
		{100, 60 * time.Second},
	}

	for _, tc := range cases {
		if got := CalculateBackoff(tc.retryCount); got != tc.expected {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", tc.retryCount, got, tc.expected)
		}
	}
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for retry := 0; retry < 8; retry++ {
		base := CalculateBackoff(retry)
		for i := 0; i < 50; i++ {
			got := BackoffWithJitter(retry)
			if got < base || got > base+base/4 {
				t.Fatalf("retry %d: jittered delay %v outside [%v, %v]", retry, got, base, base+base/4)
			}
		}
	}
}
