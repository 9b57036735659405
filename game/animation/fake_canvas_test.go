package animation

import (
	"fmt"
	"sync"
)

// animateCall records one Animate invocation.
type animateCall struct {
	id   SpriteID
	anim Animation
	done func()
}

// fakeCanvas records every call and holds animation completions until the
// test fires them.
type fakeCanvas struct {
	mu         sync.Mutex
	next       int
	loaded     map[SpriteID]string
	removed    []SpriteID
	transforms map[SpriteID][]TransformStep
	opacity    map[SpriteID]float64
	animations []animateCall
	pending    map[SpriteID][]func()
	collapsed  int
	matched    [][2]SpriteID
	box        Rect

	viewport Viewport
	scrolled []Viewport
}

func newFakeCanvas() *fakeCanvas {
	return &fakeCanvas{
		loaded:     make(map[SpriteID]string),
		transforms: make(map[SpriteID][]TransformStep),
		opacity:    make(map[SpriteID]float64),
		pending:    make(map[SpriteID][]func()),
		box:        Rect{X: 100, Y: 100, Width: 20, Height: 40},
	}
}

func (f *fakeCanvas) LoadImage(url string, bounds Rect) (SpriteID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := SpriteID(fmt.Sprintf("sprite-%d", f.next))
	f.loaded[id] = url
	f.opacity[id] = 1
	return id, nil
}

func (f *fakeCanvas) RemoveSprite(id SpriteID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.loaded[id]; !ok {
		return fmt.Errorf("unknown sprite %s", id)
	}
	delete(f.loaded, id)
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeCanvas) SetTransform(id SpriteID, steps ...TransformStep) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transforms[id] = append([]TransformStep(nil), steps...)
	return nil
}

func (f *fakeCanvas) ApplyTransform(id SpriteID, step TransformStep) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transforms[id] = append(f.transforms[id], step)
	return nil
}

func (f *fakeCanvas) CollapseTransform(id SpriteID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collapsed++
	return nil
}

func (f *fakeCanvas) MatchTransform(dst, src SpriteID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matched = append(f.matched, [2]SpriteID{dst, src})
	f.transforms[dst] = append([]TransformStep(nil), f.transforms[src]...)
	return nil
}

func (f *fakeCanvas) Animate(id SpriteID, anim Animation, onComplete func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.animations = append(f.animations, animateCall{id: id, anim: anim, done: onComplete})
	if onComplete != nil {
		f.pending[id] = append(f.pending[id], onComplete)
	}
	if anim.Opacity != nil {
		f.opacity[id] = *anim.Opacity
	}
	return nil
}

// FinishAnimations fires held completions synchronously, outside the lock.
func (f *fakeCanvas) FinishAnimations(id SpriteID) error {
	f.mu.Lock()
	callbacks := f.pending[id]
	delete(f.pending, id)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
	return nil
}

func (f *fakeCanvas) SetOpacity(id SpriteID, opacity float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opacity[id] = opacity
	return nil
}

func (f *fakeCanvas) BoundingBox(id SpriteID) (Rect, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.box, nil
}

// complete fires the oldest held completion of id.
func (f *fakeCanvas) complete(id SpriteID) bool {
	f.mu.Lock()
	callbacks := f.pending[id]
	if len(callbacks) == 0 {
		f.mu.Unlock()
		return false
	}
	cb := callbacks[0]
	f.pending[id] = callbacks[1:]
	f.mu.Unlock()

	cb()
	return true
}

func (f *fakeCanvas) calls() []animateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]animateCall(nil), f.animations...)
}

func (f *fakeCanvas) callsFor(id SpriteID) []animateCall {
	var out []animateCall
	for _, c := range f.calls() {
		if c.id == id {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeCanvas) opacityOf(id SpriteID) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opacity[id]
}

func (f *fakeCanvas) loadedURLs() map[SpriteID]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[SpriteID]string, len(f.loaded))
	for k, v := range f.loaded {
		out[k] = v
	}
	return out
}

// scrollingCanvas adds a viewport to fakeCanvas.
type scrollingCanvas struct {
	*fakeCanvas
}

func (s scrollingCanvas) Viewport() Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

func (s scrollingCanvas) ScrollTo(left, top float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport.Left, s.viewport.Top = left, top
	s.scrolled = append(s.scrolled, s.viewport)
}
