package clock

import (
	"testing"
	"time"
)

func TestMockClock(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mc := NewMockClock(start)

	if !mc.Now().Equal(start) {
		t.Errorf("expected %v, got %v", start, mc.Now())
	}

	mc.Advance(90 * time.Second)
	if got := mc.Since(start); got != 90*time.Second {
		t.Errorf("expected 90s elapsed, got %v", got)
	}

	later := start.Add(time.Hour)
	mc.Set(later)
	if !mc.Now().Equal(later) {
		t.Errorf("expected %v, got %v", later, mc.Now())
	}
}

func TestDefaultClockSwap(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mc := NewMockClock(start)

	SetDefault(mc)
	defer SetDefault(&RealClock{})

	if !Now().Equal(start) {
		t.Errorf("expected package clock to return mock time")
	}
	mc.Advance(time.Minute)
	if got := Since(start); got != time.Minute {
		t.Errorf("expected 1m elapsed, got %v", got)
	}
}
