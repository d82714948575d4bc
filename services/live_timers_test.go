package services

import (
	"testing"
	"time"
)

func TestLiveTimersLifecycle(t *testing.T) {
	timers := NewLiveTimers(time.Hour)
	type expiry struct{ id, period int }
	var expired []expiry
	timers.bind(nil, func(id, period int) { expired = append(expired, expiry{id, period}) })

	first := timers.Arm(1, 1, 10*time.Second, 0)
	first.Start()
	first.Advance(4 * time.Second)
	if got := first.Elapsed(); got != 4*time.Second {
		t.Fatalf("elapsed = %v", got)
	}

	again := timers.Arm(1, 1, 10*time.Second, 7*time.Second)
	if again != first || again.Running() || again.Elapsed() != 7*time.Second {
		t.Fatalf("Arm for the same period must reposition the existing timer and leave it stopped")
	}

	second := timers.Arm(1, 2, 20*time.Second, 0)
	if second == first || timers.Period(1) != 2 {
		t.Fatalf("Arm for a new period must replace the timer")
	}
	if first.Advance(time.Minute) {
		t.Fatalf("replaced timer must stay stopped")
	}

	second.Start()
	second.Advance(20 * time.Second)
	if len(expired) != 1 || expired[0] != (expiry{1, 2}) {
		t.Fatalf("expired = %v", expired)
	}

	timers.Arm(2, 1, time.Minute, 0).Start()
	if timers.Len() != 2 {
		t.Fatalf("len = %d", timers.Len())
	}
	timers.Drop(1)
	if _, ok := timers.Get(1); ok || timers.Period(1) != 0 {
		t.Fatalf("dropped timer still registered")
	}
	other, _ := timers.Get(2)
	timers.StopAll()
	if timers.Len() != 0 || other.Running() {
		t.Fatalf("StopAll left timers running")
	}
}
