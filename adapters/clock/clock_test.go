package clock_test

import (
	"testing"
	"time"

	"github.com/fieldforge/fieldforge/adapters/clock"
)

func TestReal_UTC(t *testing.T) {
	now := clock.Real{}.Now()
	if now.Location() != time.UTC {
		t.Errorf("Real clock should report UTC, got %v", now.Location())
	}
}

func TestFake(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := clock.NewFake(start)

	if !f.Now().Equal(start) {
		t.Errorf("Now = %v, want %v", f.Now(), start)
	}

	f.Advance(2 * time.Hour)
	if !f.Now().Equal(start.Add(2 * time.Hour)) {
		t.Errorf("Now after Advance = %v", f.Now())
	}

	reset := time.Date(2027, 6, 1, 12, 0, 0, 0, time.UTC)
	f.Set(reset)
	if !f.Now().Equal(reset) {
		t.Errorf("Now after Set = %v", f.Now())
	}
}
