package animation

import (
	"errors"
	"testing"
	"time"
)

func TestChain(t *testing.T) {
	steps := []ChainStep{
		{Transform: Translation(0, -50), Duration: 50 * time.Millisecond},
		{Transform: Rotation(180, &Point{X: 32, Y: 10}), Duration: 75 * time.Millisecond},
		{Transform: Translation(0, -50), Duration: 50 * time.Millisecond},
	}

	t.Run("runs steps in order", func(t *testing.T) {
		var started []int
		var completions []func()
		finished := 0

		chain := NewChain(steps, func(step ChainStep, done func()) error {
			started = append(started, len(started))
			completions = append(completions, done)
			return nil
		}, func() { finished++ })

		if chain.Total() != 175*time.Millisecond {
			t.Errorf("Expected total 175ms, got %v", chain.Total())
		}
		if err := chain.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if err := chain.Start(); !errors.Is(err, ErrChainStarted) {
			t.Errorf("Expected ErrChainStarted, got %v", err)
		}

		for i := 0; i < len(steps); i++ {
			if len(started) != i+1 {
				t.Fatalf("Expected %d started steps, got %d", i+1, len(started))
			}
			if chain.Current() != i {
				t.Errorf("Expected current step %d, got %d", i, chain.Current())
			}
			completions[i]()
			// Repeated completion of the same step is ignored.
			completions[i]()
		}

		if !chain.Done() {
			t.Error("Chain should be done")
		}
		if finished != 1 {
			t.Errorf("Expected onFinish once, got %d", finished)
		}
		if len(started) != len(steps) {
			t.Errorf("Expected %d steps started, got %d", len(steps), len(started))
		}
	})

	t.Run("stop abandons remaining steps", func(t *testing.T) {
		var completions []func()
		finished := false
		chain := NewChain(steps, func(step ChainStep, done func()) error {
			completions = append(completions, done)
			return nil
		}, func() { finished = true })

		if err := chain.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		chain.Stop()
		completions[0]()

		if len(completions) != 1 {
			t.Errorf("Stopped chain started %d steps", len(completions))
		}
		if finished || chain.Done() {
			t.Error("Stopped chain should not finish")
		}
	})

	t.Run("synchronous completion", func(t *testing.T) {
		count := 0
		finished := false
		chain := NewChain(steps, func(step ChainStep, done func()) error {
			count++
			done()
			return nil
		}, func() { finished = true })

		if err := chain.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if count != 3 || !finished {
			t.Errorf("Expected all 3 steps and finish, got %d steps, finished=%v", count, finished)
		}
	})

	t.Run("step error ends the chain", func(t *testing.T) {
		boom := errors.New("boom")
		tests := []struct {
			name       string
			failAt     int
			wantStart  error
			wantFinish int
		}{
			{"first step", 1, boom, 0},
			{"later step", 2, nil, 1},
			{"last step", 3, nil, 1},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				var completions []func()
				finished := 0
				chain := NewChain(steps, func(step ChainStep, done func()) error {
					completions = append(completions, done)
					if len(completions) == tt.failAt {
						return boom
					}
					return nil
				}, func() { finished++ })

				if err := chain.Start(); !errors.Is(err, tt.wantStart) {
					t.Fatalf("Start: expected %v, got %v", tt.wantStart, err)
				}
				for i := 0; i < len(completions); i++ {
					completions[i]()
				}

				if !errors.Is(chain.Err(), boom) {
					t.Errorf("Expected boom, got %v", chain.Err())
				}
				if len(completions) != tt.failAt {
					t.Errorf("Failed chain kept going: %d steps started, want %d", len(completions), tt.failAt)
				}
				if finished != tt.wantFinish {
					t.Errorf("Expected onFinish %d times, got %d", tt.wantFinish, finished)
				}
				if chain.Done() {
					t.Error("Failed chain should not report done")
				}
				// A late completion of the failed step changes nothing.
				completions[len(completions)-1]()
				if finished != tt.wantFinish {
					t.Errorf("Late completion fired onFinish again: %d", finished)
				}
			})
		}
	})

	t.Run("empty chain finishes on start", func(t *testing.T) {
		finished := false
		chain := NewChain(nil, func(ChainStep, func()) error { return nil }, func() { finished = true })
		if err := chain.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if !finished {
			t.Error("Empty chain should finish immediately")
		}
	})
}
