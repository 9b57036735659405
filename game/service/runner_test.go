package service

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/vanroute/game/animation"
	"github.com/wricardo/mcp-training/vanroute/game/scene"
)

// gatedCanvas holds every Animate call until release is closed once gated is set.
type gatedCanvas struct {
	*scene.Scene
	gated   atomic.Bool
	entered chan struct{}
	release chan struct{}

	mu       sync.Mutex
	animated int
}

func (g *gatedCanvas) Animate(id animation.SpriteID, anim animation.Animation, onComplete func()) error {
	g.mu.Lock()
	g.animated++
	g.mu.Unlock()
	if g.gated.Load() {
		g.entered <- struct{}{}
		<-g.release
	}
	return g.Scene.Animate(id, anim, onComplete)
}

func (g *gatedCanvas) animations() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.animated
}

func newRunnerVan(t *testing.T) (*animation.Character, *gatedCanvas, *animation.ManualClock) {
	t.Helper()
	clock := animation.NewManualClock(time.Unix(0, 0))
	canvas := &gatedCanvas{
		Scene:   scene.New(scene.WithClock(clock)),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	van, err := animation.NewCharacter(canvas, animation.Options{
		Geometry:   animation.DefaultGeometry(),
		ImageURL:   "van.svg",
		Width:      20,
		Height:     40,
		Start:      animation.Position{Previous: animation.Node{X: 0, Y: 0}, Current: animation.Node{X: 1, Y: 0}},
		GridHeight: 3,
		Speed:      1,
		Clock:      clock,
	})
	if err != nil {
		t.Fatalf("NewCharacter failed: %v", err)
	}
	if err := van.Render(); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	return van, canvas, clock
}

var threeForward = []animation.Maneuver{
	{Kind: animation.KindMoveForward},
	{Kind: animation.KindMoveForward},
	{Kind: animation.KindMoveForward},
}

func TestProgramRun(t *testing.T) {
	t.Run("plays every maneuver", func(t *testing.T) {
		van, canvas, clock := newRunnerVan(t)
		finished := false
		run := newProgramRun("s1", clock, van, threeForward, func() { finished = true })

		run.start()
		clock.Drain()

		if got := canvas.animations(); got != 3 {
			t.Errorf("Expected 3 animations, got %d", got)
		}
		if !finished || !run.finished() {
			t.Error("Run should finish after its last maneuver")
		}
		if run.stop() {
			t.Error("stop should report a finished run as not playing")
		}
	})

	t.Run("stop between maneuvers", func(t *testing.T) {
		van, canvas, clock := newRunnerVan(t)
		finished := false
		run := newProgramRun("s1", clock, van, threeForward, func() { finished = true })

		run.start()
		if !run.stop() {
			t.Error("stop should report a playing run")
		}
		clock.Drain()

		if got := canvas.animations(); got != 1 {
			t.Errorf("Expected only the first maneuver, got %d animations", got)
		}
		if finished {
			t.Error("A stopped run should not report completion")
		}
	})

	t.Run("stop during dispatch", func(t *testing.T) {
		van, canvas, clock := newRunnerVan(t)
		run := newProgramRun("s1", clock, van, threeForward, nil)

		canvas.gated.Store(true)
		go run.start()
		<-canvas.entered

		stopped := make(chan bool, 1)
		go func() { stopped <- run.stop() }()
		select {
		case <-stopped:
			t.Fatal("stop returned while a maneuver was still being dispatched")
		case <-time.After(20 * time.Millisecond):
		}

		canvas.gated.Store(false)
		close(canvas.release)
		if !<-stopped {
			t.Error("stop should report a playing run")
		}
		clock.Drain()

		if got := canvas.animations(); got != 1 {
			t.Errorf("No maneuver should be dispatched after stop, got %d animations", got)
		}
		if !run.finished() {
			t.Error("Stopped run should be finished")
		}
	})
}
