package animation

import (
	"errors"
	"sync"
	"time"
)

var ErrChainStarted = errors.New("chain already started")

// ChainStep is one animation of a compound maneuver.
type ChainStep struct {
	Transform TransformStep `json:"transform"`
	Duration  time.Duration `json:"duration"`
}

// StepRunner starts step and arranges for done to be called when it completes.
type StepRunner func(step ChainStep, done func()) error

type chainState int

const (
	chainIdle chainState = iota
	chainRunning
	chainDone
	chainStopped
	chainFailed
)

// Chain runs its steps strictly one after another. Step i+1 is started only
// from step i's completion signal; a completion for any step other than the
// current one is ignored.
type Chain struct {
	mu       sync.Mutex
	steps    []ChainStep
	current  int
	state    chainState
	run      StepRunner
	onFinish func()
	err      error
}

// NewChain prepares a chain; nothing runs until Start.
func NewChain(steps []ChainStep, run StepRunner, onFinish func()) *Chain {
	return &Chain{
		steps:    steps,
		run:      run,
		onFinish: onFinish,
	}
}

// Start begins the first step. An empty chain finishes immediately. When the
// first step cannot start the chain fails and its error is returned.
func (c *Chain) Start() error {
	c.mu.Lock()
	if c.state != chainIdle {
		c.mu.Unlock()
		return ErrChainStarted
	}
	c.state = chainRunning
	c.current = 0
	c.mu.Unlock()

	if err := c.begin(0); err != nil {
		c.fail(err)
		return err
	}
	return nil
}

// Advance signals that step index completed. A later step that cannot start
// fails the chain; onFinish still fires so the caller is not left waiting.
func (c *Chain) Advance(index int) {
	c.mu.Lock()
	if c.state != chainRunning || index != c.current {
		c.mu.Unlock()
		return
	}
	c.current++
	next := c.current
	c.mu.Unlock()

	if err := c.begin(next); err != nil {
		if c.fail(err) && c.onFinish != nil {
			c.onFinish()
		}
	}
}

// fail ends a running chain with err. It reports whether the chain was still
// running.
func (c *Chain) fail(err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
	if c.state != chainRunning {
		return false
	}
	c.state = chainFailed
	return true
}

// Stop abandons the remaining steps. The step in flight keeps animating but
// its completion no longer advances the chain.
func (c *Chain) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == chainIdle || c.state == chainRunning {
		c.state = chainStopped
	}
}

// Current returns the index of the step in flight.
func (c *Chain) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Done reports whether every step completed. A failed chain is never done.
func (c *Chain) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == chainDone
}

// Err returns the error of the last step that failed to start.
func (c *Chain) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Total is the sum of the step durations.
func (c *Chain) Total() time.Duration {
	var total time.Duration
	for _, s := range c.steps {
		total += s.Duration
	}
	return total
}

func (c *Chain) begin(index int) error {
	if index >= len(c.steps) {
		c.mu.Lock()
		if c.state != chainRunning {
			c.mu.Unlock()
			return nil
		}
		c.state = chainDone
		finish := c.onFinish
		c.mu.Unlock()

		if finish != nil {
			finish()
		}
		return nil
	}

	return c.run(c.steps[index], func() { c.Advance(index) })
}
