package animation

import (
	"testing"
	"time"
)

func TestManualClock(t *testing.T) {
	start := time.Unix(1000, 0)

	t.Run("runs due callbacks in deadline order", func(t *testing.T) {
		clock := NewManualClock(start)
		var order []string

		clock.AfterFunc(30*time.Millisecond, func() { order = append(order, "c") })
		clock.AfterFunc(10*time.Millisecond, func() { order = append(order, "a") })
		clock.AfterFunc(10*time.Millisecond, func() { order = append(order, "b") })

		clock.Advance(20 * time.Millisecond)
		if got := len(order); got != 2 || order[0] != "a" || order[1] != "b" {
			t.Fatalf("Expected [a b], got %v", order)
		}
		if clock.Pending() != 1 {
			t.Errorf("Expected 1 pending timer, got %d", clock.Pending())
		}
		if got := clock.Now().Sub(start); got != 20*time.Millisecond {
			t.Errorf("Expected clock at +20ms, got %v", got)
		}

		clock.Advance(10 * time.Millisecond)
		if len(order) != 3 {
			t.Errorf("Expected c to run, got %v", order)
		}
	})

	t.Run("callbacks can schedule within the window", func(t *testing.T) {
		clock := NewManualClock(start)
		ran := 0
		clock.AfterFunc(10*time.Millisecond, func() {
			ran++
			clock.AfterFunc(5*time.Millisecond, func() { ran++ })
		})

		clock.Advance(15 * time.Millisecond)
		if ran != 2 {
			t.Errorf("Expected both callbacks, got %d", ran)
		}
	})

	t.Run("stop", func(t *testing.T) {
		clock := NewManualClock(start)
		ran := false
		timer := clock.AfterFunc(time.Millisecond, func() { ran = true })

		if !timer.Stop() {
			t.Error("First Stop should report true")
		}
		if timer.Stop() {
			t.Error("Second Stop should report false")
		}
		clock.Advance(time.Second)
		if ran {
			t.Error("Stopped timer ran")
		}
	})

	t.Run("drain", func(t *testing.T) {
		clock := NewManualClock(start)
		clock.AfterFunc(100*time.Millisecond, func() {
			clock.AfterFunc(50*time.Millisecond, func() {})
		})

		if got := clock.Drain(); got != 150*time.Millisecond {
			t.Errorf("Expected 150ms drained, got %v", got)
		}
		if clock.Pending() != 0 {
			t.Errorf("Expected no pending timers, got %d", clock.Pending())
		}
	})
}
