package scene

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/mcp-training/vanroute/game/animation"
)

var (
	ErrSpriteNotFound = errors.New("sprite not found")
	ErrInvalidOpacity = errors.New("opacity must be between 0 and 1")
)

// Command ops published to a Sink.
const (
	OpLoad      = "load"
	OpRemove    = "remove"
	OpTransform = "transform"
	OpAnimate   = "animate"
	OpFinish    = "finish"
	OpOpacity   = "opacity"
	OpScroll    = "scroll"
)

// Command is one drawing instruction, in the order the scene applied it.
type Command struct {
	Seq        uint64          `json:"seq"`
	Op         string          `json:"op"`
	Sprite     string          `json:"sprite,omitempty"`
	URL        string          `json:"url,omitempty"`
	Rect       *animation.Rect `json:"rect,omitempty"`
	Transform  string          `json:"transform,omitempty"`
	Opacity    *float64        `json:"opacity,omitempty"`
	DurationMs float64         `json:"duration_ms,omitempty"`
	Easing     string          `json:"easing,omitempty"`
	AtMs       float64         `json:"at_ms"`
	Left       float64         `json:"left,omitempty"`
	Top        float64         `json:"top,omitempty"`
}

// Sink receives drawing commands. Publish is called with the scene lock held
// and must not call back into the scene.
type Sink interface {
	Publish(cmd Command)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(cmd Command)

func (f SinkFunc) Publish(cmd Command) { f(cmd) }

// SpriteState is a point-in-time view of a sprite.
type SpriteState struct {
	ID          animation.SpriteID `json:"id"`
	URL         string             `json:"url"`
	Rect        animation.Rect     `json:"rect"`
	Transform   string             `json:"transform"`
	Opacity     float64            `json:"opacity"`
	Animating   bool               `json:"animating"`
	BoundingBox animation.Rect     `json:"bounding_box"`
}

type sprite struct {
	id      animation.SpriteID
	url     string
	rect    animation.Rect
	order   uint64
	base    Matrix
	steps   []animation.TransformStep
	opacity float64
	anim    *running
}

type running struct {
	seq         uint64
	anim        animation.Animation
	start       time.Time
	fromOpacity float64
	done        func()
	timer       animation.Timer
}

// committed is the sprite's transform without any in-flight animation.
func (s *sprite) committed() Matrix {
	m := s.base
	for _, step := range s.steps {
		m = m.Mul(stepMatrix(step, s.rect, 1))
	}
	return m
}

func (s *sprite) progress(now time.Time) float64 {
	if s.anim == nil {
		return 1
	}
	if s.anim.anim.Duration <= 0 {
		return 1
	}
	p := float64(now.Sub(s.anim.start)) / float64(s.anim.anim.Duration)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

func (s *sprite) matrixAt(now time.Time) Matrix {
	m := s.committed()
	if s.anim != nil && s.anim.anim.Transform != nil {
		m = m.Mul(stepMatrix(*s.anim.anim.Transform, s.rect, s.progress(now)))
	}
	return m
}

func (s *sprite) opacityAt(now time.Time) float64 {
	if s.anim == nil || s.anim.anim.Opacity == nil {
		return s.opacity
	}
	p := s.progress(now)
	return s.anim.fromOpacity + (*s.anim.anim.Opacity-s.anim.fromOpacity)*p
}

// commit folds the in-flight animation into the sprite's final state and
// returns its completion callback.
func (s *sprite) commit() func() {
	a := s.anim
	if a == nil {
		return nil
	}
	if a.anim.Transform != nil {
		s.steps = append(s.steps, *a.anim.Transform)
	}
	if a.anim.Opacity != nil {
		s.opacity = *a.anim.Opacity
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	s.anim = nil
	return a.done
}

// Scene is an in-memory animation.Canvas. Animations complete on the scene's
// clock; every change is published to the sink as a Command.
type Scene struct {
	mu       sync.Mutex
	clock    animation.Clock
	sink     Sink
	created  time.Time
	seq      uint64
	animSeq  uint64
	order    uint64
	sprites  map[animation.SpriteID]*sprite
	viewport animation.Viewport
}

// Option configures a Scene.
type Option func(*Scene)

// WithClock drives animations from clock instead of the system clock.
func WithClock(clock animation.Clock) Option {
	return func(s *Scene) { s.clock = clock }
}

// WithSink publishes drawing commands to sink.
func WithSink(sink Sink) Option {
	return func(s *Scene) { s.sink = sink }
}

// WithViewport sets the initial visible window.
func WithViewport(vp animation.Viewport) Option {
	return func(s *Scene) { s.viewport = vp }
}

// New creates an empty scene.
func New(opts ...Option) *Scene {
	s := &Scene{
		clock:    animation.SystemClock{},
		sprites:  make(map[animation.SpriteID]*sprite),
		viewport: animation.Viewport{Width: 1000, Height: 800},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.created = s.clock.Now()
	return s
}

var _ animation.Canvas = (*Scene)(nil)
var _ animation.Scroller = (*Scene)(nil)

func (s *Scene) publishLocked(cmd Command) {
	if s.sink == nil {
		return
	}
	s.seq++
	cmd.Seq = s.seq
	cmd.AtMs = ms(s.clock.Now().Sub(s.created))
	s.sink.Publish(cmd)
}

func (s *Scene) get(id animation.SpriteID) (*sprite, error) {
	sp, ok := s.sprites[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSpriteNotFound, id)
	}
	return sp, nil
}

func (s *Scene) LoadImage(url string, bounds animation.Rect) (animation.SpriteID, error) {
	if url == "" {
		return "", errors.New("image URL cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := animation.SpriteID(uuid.NewString())
	s.order++
	s.sprites[id] = &sprite{
		id:      id,
		url:     url,
		rect:    bounds,
		order:   s.order,
		base:    Identity(),
		opacity: 1,
	}
	r := bounds
	s.publishLocked(Command{Op: OpLoad, Sprite: string(id), URL: url, Rect: &r})
	return id, nil
}

// RemoveSprite deletes the sprite. An in-flight animation is dropped without
// calling its completion.
func (s *Scene) RemoveSprite(id animation.SpriteID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, err := s.get(id)
	if err != nil {
		return err
	}
	if sp.anim != nil && sp.anim.timer != nil {
		sp.anim.timer.Stop()
	}
	delete(s.sprites, id)
	s.publishLocked(Command{Op: OpRemove, Sprite: string(id)})
	return nil
}

func (s *Scene) SetTransform(id animation.SpriteID, steps ...animation.TransformStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, err := s.get(id)
	if err != nil {
		return err
	}
	sp.base = Identity()
	sp.steps = append([]animation.TransformStep(nil), steps...)
	s.publishTransformLocked(sp)
	return nil
}

func (s *Scene) ApplyTransform(id animation.SpriteID, step animation.TransformStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, err := s.get(id)
	if err != nil {
		return err
	}
	sp.steps = append(sp.steps, step)
	s.publishTransformLocked(sp)
	return nil
}

func (s *Scene) CollapseTransform(id animation.SpriteID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, err := s.get(id)
	if err != nil {
		return err
	}
	sp.base = sp.committed()
	sp.steps = nil
	return nil
}

func (s *Scene) MatchTransform(dst, src animation.SpriteID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, err := s.get(src)
	if err != nil {
		return err
	}
	to, err := s.get(dst)
	if err != nil {
		return err
	}
	to.base = from.matrixAt(s.clock.Now())
	to.steps = nil
	s.publishTransformLocked(to)
	return nil
}

func (s *Scene) publishTransformLocked(sp *sprite) {
	s.publishLocked(Command{Op: OpTransform, Sprite: string(sp.id), Transform: sp.committed().String()})
}

// Animate starts anim on the sprite. An animation already running on the
// sprite is finished first, and its completion fires before anim starts.
func (s *Scene) Animate(id animation.SpriteID, anim animation.Animation, onComplete func()) error {
	if anim.Duration < 0 {
		return fmt.Errorf("animation duration cannot be negative: %v", anim.Duration)
	}
	if anim.Opacity != nil && (*anim.Opacity < 0 || *anim.Opacity > 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidOpacity, *anim.Opacity)
	}

	for {
		s.mu.Lock()
		sp, err := s.get(id)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		if sp.anim == nil {
			break
		}
		done := sp.commit()
		s.mu.Unlock()
		if done != nil {
			done()
		}
	}
	defer s.mu.Unlock()

	sp := s.sprites[id]
	if anim.Easing == "" {
		anim.Easing = animation.EaseLinear
	}
	s.animSeq++
	seq := s.animSeq
	sp.anim = &running{
		seq:         seq,
		anim:        anim,
		start:       s.clock.Now(),
		fromOpacity: sp.opacity,
		done:        onComplete,
	}
	sp.anim.timer = s.clock.AfterFunc(anim.Duration, func() { s.complete(id, seq) })

	cmd := Command{
		Op:         OpAnimate,
		Sprite:     string(id),
		DurationMs: ms(anim.Duration),
		Easing:     string(anim.Easing),
		Opacity:    anim.Opacity,
	}
	if anim.Transform != nil {
		cmd.Transform = anim.Transform.Relative()
	}
	s.publishLocked(cmd)
	return nil
}

// complete runs when animation seq reaches its end. Superseded animations are ignored.
func (s *Scene) complete(id animation.SpriteID, seq uint64) {
	s.mu.Lock()
	sp, ok := s.sprites[id]
	if !ok || sp.anim == nil || sp.anim.seq != seq {
		s.mu.Unlock()
		return
	}
	sp.anim.timer = nil
	done := sp.commit()
	s.mu.Unlock()

	if done != nil {
		done()
	}
}

// FinishAnimations jumps the sprite's running animation to its final frame
// and fires its completion synchronously.
func (s *Scene) FinishAnimations(id animation.SpriteID) error {
	s.mu.Lock()
	sp, err := s.get(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if sp.anim == nil {
		s.mu.Unlock()
		return nil
	}
	done := sp.commit()
	s.publishLocked(Command{Op: OpFinish, Sprite: string(id)})
	s.mu.Unlock()

	if done != nil {
		done()
	}
	return nil
}

// SetOpacity sets the sprite's opacity. A running fade is finished first so
// it cannot override the new value; its completion fires after the change.
func (s *Scene) SetOpacity(id animation.SpriteID, opacity float64) error {
	if opacity < 0 || opacity > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidOpacity, opacity)
	}
	s.mu.Lock()
	sp, err := s.get(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	var done func()
	if sp.anim != nil && sp.anim.anim.Opacity != nil {
		done = sp.commit()
		s.publishLocked(Command{Op: OpFinish, Sprite: string(id)})
	}
	sp.opacity = opacity
	s.publishLocked(Command{Op: OpOpacity, Sprite: string(id), Opacity: &opacity})
	s.mu.Unlock()

	if done != nil {
		done()
	}
	return nil
}

// BoundingBox returns the sprite's on-canvas box at the current clock time,
// including any animation in flight.
func (s *Scene) BoundingBox(id animation.SpriteID) (animation.Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, err := s.get(id)
	if err != nil {
		return animation.Rect{}, err
	}
	return boundingBox(sp.matrixAt(s.clock.Now()), sp.rect), nil
}

func (s *Scene) Viewport() animation.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

func (s *Scene) ScrollTo(left, top float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport.Left, s.viewport.Top = left, top
	s.publishLocked(Command{Op: OpScroll, Left: left, Top: top})
}

// Resize changes the viewport size, e.g. when a browser window resizes.
func (s *Scene) Resize(width, height float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport.Width, s.viewport.Height = width, height
}

// Sprite returns the state of one sprite.
func (s *Scene) Sprite(id animation.SpriteID) (SpriteState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, err := s.get(id)
	if err != nil {
		return SpriteState{}, err
	}
	return s.stateLocked(sp, s.clock.Now()), nil
}

// Snapshot returns every sprite in load order.
func (s *Scene) Snapshot() []SpriteState {
	return s.SnapshotWith(nil)
}

// SnapshotWith is Snapshot with mark called while the scene is locked, so
// mark observes exactly the commands the snapshot reflects.
func (s *Scene) SnapshotWith(mark func()) []SpriteState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mark != nil {
		mark()
	}
	now := s.clock.Now()
	sprites := make([]*sprite, 0, len(s.sprites))
	for _, sp := range s.sprites {
		sprites = append(sprites, sp)
	}
	sort.Slice(sprites, func(i, j int) bool { return sprites[i].order < sprites[j].order })

	states := make([]SpriteState, len(sprites))
	for i, sp := range sprites {
		states[i] = s.stateLocked(sp, now)
	}
	return states
}

func (s *Scene) stateLocked(sp *sprite, now time.Time) SpriteState {
	m := sp.matrixAt(now)
	return SpriteState{
		ID:          sp.id,
		URL:         sp.url,
		Rect:        sp.rect,
		Transform:   m.String(),
		Opacity:     sp.opacityAt(now),
		Animating:   sp.anim != nil,
		BoundingBox: boundingBox(m, sp.rect),
	}
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
