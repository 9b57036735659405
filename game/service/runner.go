package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/vanroute/game/animation"
)

// programRun plays a program's maneuvers on the van one after another. Each
// maneuver is dispatched once the duration returned by the previous one has
// elapsed on the clock.
type programRun struct {
	sessionID string
	clock     animation.Clock
	van       *animation.Character
	maneuvers []animation.Maneuver
	onDone    func()

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	next  int
	timer animation.Timer
	done  bool
}

func newProgramRun(sessionID string, clock animation.Clock, van *animation.Character, maneuvers []animation.Maneuver, onDone func()) *programRun {
	ctx, cancel := context.WithCancel(context.Background())
	r := &programRun{
		sessionID: sessionID,
		clock:     clock,
		van:       van,
		maneuvers: maneuvers,
		onDone:    onDone,
		ctx:       ctx,
		cancel:    cancel,
	}
	return r
}

// start dispatches the first maneuver.
func (r *programRun) start() {
	r.step()
}

// step dispatches the next maneuver. The lock is held through Dispatch so a
// concurrent stop either prevents the dispatch or waits for it to land.
func (r *programRun) step() {
	r.mu.Lock()
	if r.ctx.Err() != nil || r.done {
		r.mu.Unlock()
		return
	}
	if r.next >= len(r.maneuvers) {
		r.done = true
		r.mu.Unlock()
		r.cancel()
		if r.onDone != nil {
			r.onDone()
		}
		return
	}
	defer r.mu.Unlock()

	m := r.maneuvers[r.next]
	r.next++
	d, err := r.van.Dispatch(m, nil)
	if err != nil {
		log.Printf("[RUN] session=%s maneuver %s failed: %v", r.sessionID, m, err)
		d = 0
	}
	r.timer = r.clock.AfterFunc(d, r.step)
}

// stop cancels the maneuvers not yet dispatched. It reports whether the run
// was still playing.
func (r *programRun) stop() bool {
	r.mu.Lock()
	playing := !r.done
	r.cancel()
	r.mu.Unlock()
	r.halt()
	return playing
}

func (r *programRun) halt() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = true
	if r.timer != nil {
		r.timer.Stop()
	}
}

func (r *programRun) finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
