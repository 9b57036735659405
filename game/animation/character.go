package animation

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	DefaultVeilImageURL  = "characters/top_view/VeilOfNight.svg"
	DefaultVeilWidth     = 4240
	DefaultVeilHeight    = 3440
	DefaultSmokeImageURL = "smoke.svg"
	DefaultFireImageURL  = "fire.svg"
)

// Node is a junction of the road grid in puzzle coordinates (y grows upwards).
type Node struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Position is where a sprite stands and the node it arrived from, which
// determines the direction it faces.
type Position struct {
	Previous Node `json:"previous"`
	Current  Node `json:"current"`
}

// Options configures a Character.
type Options struct {
	Geometry Geometry

	ImageURL         string
	WreckageImageURL string
	// Width is the sprite's extent across the lane, Height its length.
	Width  float64
	Height float64

	Start      Position
	GridHeight int
	Speed      float64

	// NightMode adds a veil sprite that mirrors every maneuver.
	NightMode    bool
	VeilImageURL string
	VeilWidth    float64
	VeilHeight   float64

	// EnableWreckageEffects plays particle bursts and the wreckage swap on collisions.
	EnableWreckageEffects bool
	SmokeImageURL         string
	FireImageURL          string

	Clock Clock
	Rand  *rand.Rand
}

// target is one sprite a maneuver is drawn on.
type target struct {
	canvas      Canvas
	url         string
	wreckageURL string
	width       float64
	height      float64
	veil        bool

	image    SpriteID
	wreckage SpriteID
	chain    *Chain
}

func (t *target) name() string {
	if t.veil {
		return "veil"
	}
	return "character"
}

// pivotX returns the x coordinate, in the sprite's local space, of a rotation
// centre radius away from the sprite's centre axis.
func (t *target) pivotX(radius, scale float64) float64 {
	return t.height/2 + radius/scale
}

func (t *target) pivotY() float64 {
	return t.width / 2
}

// Character is the animation sequencer of one van sprite and its optional veil.
type Character struct {
	canvas Canvas
	geo    Geometry
	opts   Options
	clock  Clock

	mu       sync.Mutex
	rng      *rand.Rand
	scale    float64
	speed    float64
	start    Position
	targets  []*target
	effects  []Timer
	rendered bool
	// gen is bumped by Reset; effects scheduled under an older value are dropped.
	gen      uint64
}

// NewCharacter validates opts and prepares the sprites; nothing is drawn until Render.
func NewCharacter(canvas Canvas, opts Options) (*Character, error) {
	if canvas == nil {
		return nil, errors.New("canvas cannot be nil")
	}
	if err := opts.Geometry.Validate(); err != nil {
		return nil, err
	}
	if opts.ImageURL == "" {
		return nil, errors.New("character image URL is required")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("character size must be positive, got %vx%v", opts.Width, opts.Height)
	}
	if opts.GridHeight <= 0 {
		return nil, fmt.Errorf("grid height must be positive, got %d", opts.GridHeight)
	}
	if opts.Speed <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidSpeed, opts.Speed)
	}

	if opts.VeilImageURL == "" {
		opts.VeilImageURL = DefaultVeilImageURL
	}
	if opts.VeilWidth <= 0 || opts.VeilHeight <= 0 {
		opts.VeilWidth, opts.VeilHeight = DefaultVeilWidth, DefaultVeilHeight
	}
	if opts.SmokeImageURL == "" {
		opts.SmokeImageURL = DefaultSmokeImageURL
	}
	if opts.FireImageURL == "" {
		opts.FireImageURL = DefaultFireImageURL
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	c := &Character{
		canvas: canvas,
		geo:    opts.Geometry,
		opts:   opts,
		clock:  opts.Clock,
		rng:    rng,
		scale:  1,
		speed:  opts.Speed,
		start:  opts.Start,
	}

	c.targets = append(c.targets, &target{
		canvas:      canvas,
		url:         opts.ImageURL,
		wreckageURL: opts.WreckageImageURL,
		width:       opts.Width,
		height:      opts.Height,
	})
	if opts.NightMode {
		c.targets = append(c.targets, &target{
			canvas: canvas,
			url:    opts.VeilImageURL,
			width:  opts.VeilWidth,
			height: opts.VeilHeight,
			veil:   true,
		})
	}

	return c, nil
}

// Geometry returns the constants the character was built with.
func (c *Character) Geometry() Geometry { return c.geo }

// Speed returns the current speed in distance units per millisecond.
func (c *Character) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// SetSpeed changes the speed used for every maneuver started afterwards.
func (c *Character) SetSpeed(speed float64) error {
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidSpeed, speed)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speed = speed
	return nil
}

// CurrentScale returns the cumulative scale factor.
func (c *Character) CurrentScale() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scale
}

// Sprite returns the primary image handle.
func (c *Character) Sprite() SpriteID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.targets[0].image
}

// WreckageSprite returns the wreckage image handle, empty when none was loaded.
func (c *Character) WreckageSprite() SpriteID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.targets[0].wreckage
}

// VeilSprite returns the veil image handle, empty outside night mode.
func (c *Character) VeilSprite() SpriteID {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.targets) < 2 {
		return ""
	}
	return c.targets[1].image
}

// Render loads the sprites and places them at the start position.
func (c *Character) Render() error {
	c.mu.Lock()
	if c.rendered {
		c.mu.Unlock()
		return nil
	}
	targets := append([]*target(nil), c.targets...)
	start := c.start
	c.mu.Unlock()

	for _, t := range targets {
		bounds := Rect{Width: t.height, Height: t.width}
		image, err := t.canvas.LoadImage(t.url, bounds)
		if err != nil {
			return fmt.Errorf("failed to load %s image: %w", t.name(), err)
		}

		var wreckage SpriteID
		if !t.veil && t.wreckageURL != "" {
			wreckage, err = t.canvas.LoadImage(t.wreckageURL, bounds)
			if err != nil {
				return fmt.Errorf("failed to load wreckage image: %w", err)
			}
			if err := t.canvas.SetOpacity(wreckage, 0); err != nil {
				return err
			}
		}

		c.mu.Lock()
		t.image = image
		t.wreckage = wreckage
		c.mu.Unlock()

		if err := c.place(t, start); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.rendered = true
	c.mu.Unlock()

	return c.ScrollToShow()
}

// Place snaps every sprite to pos without changing the start position.
func (c *Character) Place(pos Position) error {
	targets, err := c.renderedTargets()
	if err != nil {
		return err
	}
	c.SkipOutstandingAnimations()

	var errs []error
	for _, t := range targets {
		errs = append(errs, c.place(t, pos))
	}
	return errors.Join(errs...)
}

// place puts t on pos: translated to the lane, rotated about the grid space
// centre to face away from the previous node, then turned to face up.
func (c *Character) place(t *target, pos Position) error {
	g := c.geo
	row := float64(c.opts.GridHeight - 1 - pos.Current.Y)
	col := float64(pos.Current.X)

	initial := Point{
		X: col*g.GridSpaceSize - t.height/2 + g.PaperPadding,
		Y: row*g.GridSpaceSize + g.LaneOffset - t.width/2 + g.PaperPadding,
	}
	centre := Point{
		X: col*g.GridSpaceSize + g.GridSpaceSize/2 + g.PaperPadding,
		Y: row*g.GridSpaceSize + g.GridSpaceSize/2 + g.PaperPadding,
	}
	// Rotation pivots are local to the translated sprite.
	pivot := Point{X: centre.X - initial.X, Y: centre.Y - initial.Y}

	steps := []TransformStep{
		Translation(initial.X, initial.Y),
		Rotation(initialRotation(pos), &pivot),
		Rotation(90, nil),
	}
	if err := t.canvas.SetTransform(t.image, steps...); err != nil {
		return err
	}
	return t.canvas.SetOpacity(t.image, 1)
}

// initialRotation converts the counterclockwise heading angle into a
// clockwise transform rotation.
func initialRotation(pos Position) float64 {
	dx := float64(pos.Current.X - pos.Previous.X)
	dy := float64(pos.Current.Y - pos.Previous.Y)
	if dx == 0 && dy == 0 {
		return 0
	}
	degrees := math.Atan2(dy, dx) * 180 / math.Pi
	if degrees == 0 {
		return 0
	}
	return -degrees
}

// ScrollToShow scrolls a scrollable canvas so the sprite stays clear of the
// viewport edges.
func (c *Character) ScrollToShow() error {
	targets, err := c.renderedTargets()
	if err != nil {
		return err
	}
	primary := targets[0]
	scroller, ok := primary.canvas.(Scroller)
	if !ok {
		return nil
	}

	c.SkipOutstandingAnimations()

	box, err := primary.canvas.BoundingBox(primary.image)
	if err != nil {
		return err
	}

	vp := scroller.Viewport()
	left, top := vp.Left, vp.Top
	margin := c.geo.ScrollMargin

	scrollHorizontally := func(dx float64) bool {
		if !(box.X+dx <= vp.Left+vp.Width && box.X-dx >= vp.Left) {
			left = box.X - vp.Width/2
			return true
		}
		return false
	}
	scrollVertically := func(dy float64) bool {
		if !(box.Y+dy <= vp.Top+vp.Height && box.Y-dy >= vp.Top) {
			top = box.Y - vp.Height/2
			return true
		}
		return false
	}

	if scrollHorizontally(margin) {
		scrollVertically(margin * 3)
	}
	if scrollVertically(margin) {
		scrollHorizontally(margin * 3)
	}

	if left != vp.Left || top != vp.Top {
		scroller.ScrollTo(left, top)
	}
	return nil
}

// SkipOutstandingAnimations forces every in-flight sprite animation, the
// wreckage fade included, to its final frame.
func (c *Character) SkipOutstandingAnimations() {
	type handle struct {
		canvas Canvas
		id     SpriteID
		name   string
	}
	var handles []handle
	c.mu.Lock()
	for _, t := range c.targets {
		if t.image != "" {
			handles = append(handles, handle{t.canvas, t.image, t.name()})
		}
		if t.wreckage != "" {
			handles = append(handles, handle{t.canvas, t.wreckage, "wreckage"})
		}
	}
	c.mu.Unlock()

	for _, h := range handles {
		if err := h.canvas.FinishAnimations(h.id); err != nil {
			logf("failed to finish %s animations: %v", h.name, err)
		}
	}
}

// Reset abandons running chains and effects, returns the sprites to the
// start position and clears the wreckage. Calling it twice is the same as
// calling it once.
func (c *Character) Reset() error {
	c.mu.Lock()
	if !c.rendered {
		c.mu.Unlock()
		return ErrNotRendered
	}
	var chains []*Chain
	for _, t := range c.targets {
		if t.chain != nil {
			chains = append(chains, t.chain)
			t.chain = nil
		}
	}
	c.gen++
	effects := c.effects
	c.effects = nil
	c.scale = 1
	targets := append([]*target(nil), c.targets...)
	start := c.start
	c.mu.Unlock()

	for _, ch := range chains {
		ch.Stop()
	}
	for _, e := range effects {
		e.Stop()
	}

	c.SkipOutstandingAnimations()

	var errs []error
	for _, t := range targets {
		errs = append(errs, c.place(t, start))
		if t.wreckage != "" {
			errs = append(errs, t.canvas.SetOpacity(t.wreckage, 0))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	return c.ScrollToShow()
}

// MoveForward drives one grid space along the sprite's forward axis. A
// positive scale is applied after the move and multiplied into the
// cumulative scale.
func (c *Character) MoveForward(onComplete func(), scale float64) (time.Duration, error) {
	if scale < 0 {
		return 0, fmt.Errorf("%w: negative scale %v", ErrInvalidManeuverKind, scale)
	}
	targets, current, speed, err := c.begin(scale)
	if err != nil {
		return 0, err
	}

	distance := c.geo.MoveDistance()
	d := travelTime(distance, speed)
	step := TransformStep{Translate: &Point{X: 0, Y: -distance / current}, Scale: scale}

	return d, c.animateAll(targets, d, onComplete, func(*target) TransformStep { return step })
}

// TurnLeft drives a quarter circle to the left about the left-turn pivot.
func (c *Character) TurnLeft(onComplete func(), scale float64) (time.Duration, error) {
	if scale < 0 {
		return 0, fmt.Errorf("%w: negative scale %v", ErrInvalidManeuverKind, scale)
	}
	targets, current, speed, err := c.begin(scale)
	if err != nil {
		return 0, err
	}

	d := travelTime(c.geo.TurnLeftDistance(), speed)
	return d, c.animateAll(targets, d, onComplete, func(t *target) TransformStep {
		return c.turnLeftStep(t, 90, current, scale)
	})
}

// TurnRight drives a quarter circle to the right about the right-turn pivot.
func (c *Character) TurnRight(onComplete func(), scale float64) (time.Duration, error) {
	if scale < 0 {
		return 0, fmt.Errorf("%w: negative scale %v", ErrInvalidManeuverKind, scale)
	}
	targets, current, speed, err := c.begin(scale)
	if err != nil {
		return 0, err
	}

	d := travelTime(c.geo.TurnRightDistance(), speed)
	return d, c.animateAll(targets, d, onComplete, func(t *target) TransformStep {
		return c.turnRightStep(t, 90, current, scale)
	})
}

// TurnAround runs the three-step turn-around chain on every sprite.
// onComplete fires when the primary sprite's chain has finished. The returned
// duration is the sum of the steps plus the settle time.
func (c *Character) TurnAround(direction Direction, onComplete func()) (time.Duration, error) {
	if !direction.valid() {
		return 0, fmt.Errorf("%w: turn-around direction %q", ErrInvalidManeuverKind, direction)
	}
	targets, current, speed, err := c.begin(0)
	if err != nil {
		return 0, err
	}

	var total time.Duration
	var errs []error
	for i, t := range targets {
		steps := c.turnAroundSteps(t, direction, current, speed)

		var finish func()
		if i == 0 {
			finish = onComplete
			for _, s := range steps {
				total += s.Duration
			}
		}

		t := t
		chain := NewChain(steps, func(step ChainStep, done func()) error {
			return c.moveImage(t, step.Transform, step.Duration, done)
		}, finish)

		c.mu.Lock()
		previous := t.chain
		t.chain = chain
		c.mu.Unlock()
		if previous != nil {
			previous.Stop()
		}

		if err := chain.Start(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.name(), err))
		}
	}

	return total + c.geo.TurnAroundSettle(), errors.Join(errs...)
}

// TurnAroundSteps returns the primary sprite's chain for direction at the
// current scale and speed, without animating anything.
func (c *Character) TurnAroundSteps(direction Direction) ([]ChainStep, error) {
	if !direction.valid() {
		return nil, fmt.Errorf("%w: turn-around direction %q", ErrInvalidManeuverKind, direction)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turnAroundSteps(c.targets[0], direction, c.scale, c.speed), nil
}

func (c *Character) turnAroundSteps(t *target, direction Direction, current, speed float64) []ChainStep {
	g := c.geo

	rotate := ChainStep{
		Transform: c.turnAroundStep(t, current),
		// The 180° pivot runs at half the pace of the turn segments.
		Duration: travelTime(g.TurnAroundDistance(), speed) * 2,
	}

	switch direction {
	case DirectionRight:
		return []ChainStep{
			{Transform: c.turnRightStep(t, 45, current, 0), Duration: travelTime(g.TurnRightDistance()/2, speed)},
			rotate,
			{Transform: c.turnLeftStep(t, 45, current, 0), Duration: travelTime(g.TurnLeftDistance()/2, speed)},
		}
	case DirectionLeft:
		return []ChainStep{
			{Transform: c.turnLeftStep(t, 45, current, 0), Duration: travelTime(g.TurnLeftDistance()/2, speed)},
			rotate,
			{Transform: c.turnRightStep(t, 45, current, 0), Duration: travelTime(g.TurnRightDistance()/2, speed)},
		}
	default:
		half := g.MoveDistance() / 2
		move := ChainStep{Transform: Translation(0, -half/current), Duration: travelTime(half, speed)}
		return []ChainStep{move, rotate, move}
	}
}

// Wait holds the sprites in place for d; a non-positive d waits for one
// forward move.
func (c *Character) Wait(d time.Duration, onComplete func()) (time.Duration, error) {
	targets, _, speed, err := c.begin(0)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		d = travelTime(c.geo.MoveDistance(), speed)
	}
	step := Translation(0, 0)
	return d, c.animateAll(targets, d, onComplete, func(*target) TransformStep { return step })
}

// Crash plays the first part of attempted and then the fire-and-smoke burst
// with the wreckage swap. A non-positive d uses the full duration of attempted.
func (c *Character) Crash(d time.Duration, attempted Action, onComplete func()) (time.Duration, error) {
	if !attempted.valid() {
		return 0, fmt.Errorf("%w: attempted action %q", ErrInvalidManeuverKind, attempted)
	}
	targets, current, speed, err := c.begin(0)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		d = c.nominalDuration(attempted, speed)
	}

	g := c.geo
	gen := c.generation()
	after := func() {
		if onComplete != nil {
			onComplete()
		}
		c.playCollisionEffect(gen, true, true)
	}
	return d, c.animateAll(targets, d, after, func(t *target) TransformStep {
		switch attempted {
		case ActionTurnLeft:
			return c.turnLeftStep(t, g.CrashTurnDegrees, current, 0)
		case ActionTurnRight:
			return c.turnRightStep(t, g.CrashTurnDegrees, current, 0)
		default:
			return Translation(0, -g.CrashForwardFraction*g.GridSpaceSize/current)
		}
	})
}

// CollisionWithObstacle stops the van at the near edge of an obstacle and
// plays a smoke burst. The returned duration is d shortened by the
// geometry's collision factor.
func (c *Character) CollisionWithObstacle(d time.Duration, attempted Action, onComplete func()) (time.Duration, error) {
	if !attempted.valid() {
		return 0, fmt.Errorf("%w: attempted action %q", ErrInvalidManeuverKind, attempted)
	}
	targets, current, speed, err := c.begin(0)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		d = c.nominalDuration(attempted, speed)
	}

	g := c.geo
	shortened := time.Duration(float64(d) * g.CollisionFactor())
	gen := c.generation()
	after := func() {
		if onComplete != nil {
			onComplete()
		}
		c.playCollisionEffect(gen, false, false)
	}
	return shortened, c.animateAll(targets, shortened, after, func(t *target) TransformStep {
		switch attempted {
		case ActionTurnLeft:
			return c.turnLeftStep(t, g.CollisionTurnDegrees, current, 0)
		case ActionTurnRight:
			return c.turnRightStep(t, g.CollisionTurnDegrees, current, 0)
		default:
			return Translation(0, -(g.GridSpaceSize/2-g.RoadWidth/2)/current)
		}
	})
}

// Dispatch runs m and returns its duration.
func (c *Character) Dispatch(m Maneuver, onComplete func()) (time.Duration, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	switch m.Kind {
	case KindMoveForward:
		return c.MoveForward(onComplete, m.Scale)
	case KindTurnLeft:
		return c.TurnLeft(onComplete, m.Scale)
	case KindTurnRight:
		return c.TurnRight(onComplete, m.Scale)
	case KindTurnAround:
		return c.TurnAround(m.Direction, onComplete)
	case KindWait:
		return c.Wait(m.Duration, onComplete)
	case KindCrash:
		return c.Crash(m.Duration, m.Attempted, onComplete)
	case KindCollideWithObstacle:
		return c.CollisionWithObstacle(m.Duration, m.Attempted, onComplete)
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidManeuverKind, m.Kind)
}

// Duration computes how long m would take at the current speed without
// animating it.
func (c *Character) Duration(m Maneuver) (time.Duration, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	speed := c.Speed()
	g := c.geo

	switch m.Kind {
	case KindMoveForward:
		return travelTime(g.MoveDistance(), speed), nil
	case KindTurnLeft:
		return travelTime(g.TurnLeftDistance(), speed), nil
	case KindTurnRight:
		return travelTime(g.TurnRightDistance(), speed), nil
	case KindTurnAround:
		steps, err := c.TurnAroundSteps(m.Direction)
		if err != nil {
			return 0, err
		}
		var total time.Duration
		for _, s := range steps {
			total += s.Duration
		}
		return total + g.TurnAroundSettle(), nil
	case KindWait:
		if m.Duration > 0 {
			return m.Duration, nil
		}
		return travelTime(g.MoveDistance(), speed), nil
	case KindCrash:
		if m.Duration > 0 {
			return m.Duration, nil
		}
		return c.nominalDuration(m.Attempted, speed), nil
	case KindCollideWithObstacle:
		d := m.Duration
		if d <= 0 {
			d = c.nominalDuration(m.Attempted, speed)
		}
		return time.Duration(float64(d) * g.CollisionFactor()), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidManeuverKind, m.Kind)
}

// begin snapshots the state a maneuver is computed from and applies scale to
// the cumulative scale.
func (c *Character) begin(scale float64) ([]*target, float64, float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.rendered {
		return nil, 0, 0, ErrNotRendered
	}
	current := c.scale
	if scale > 0 {
		c.scale *= scale
	}
	return append([]*target(nil), c.targets...), current, c.speed, nil
}

func (c *Character) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *Character) renderedTargets() ([]*target, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.rendered {
		return nil, ErrNotRendered
	}
	return append([]*target(nil), c.targets...), nil
}

func (c *Character) nominalDuration(attempted Action, speed float64) time.Duration {
	switch attempted {
	case ActionTurnLeft:
		return travelTime(c.geo.TurnLeftDistance(), speed)
	case ActionTurnRight:
		return travelTime(c.geo.TurnRightDistance(), speed)
	default:
		return travelTime(c.geo.MoveDistance(), speed)
	}
}

func (c *Character) turnLeftStep(t *target, degrees, current, scale float64) TransformStep {
	pivot := Point{X: t.pivotX(-c.geo.TurnLeftRadius, current), Y: t.pivotY()}
	return TransformStep{Rotation: -degrees, Pivot: &pivot, Scale: scale}
}

func (c *Character) turnRightStep(t *target, degrees, current, scale float64) TransformStep {
	pivot := Point{X: t.pivotX(c.geo.TurnRightRadius, current), Y: t.pivotY()}
	return TransformStep{Rotation: degrees, Pivot: &pivot, Scale: scale}
}

func (c *Character) turnAroundStep(t *target, current float64) TransformStep {
	pivot := Point{X: t.pivotX(c.geo.TurnAroundRadius, current), Y: t.pivotY()}
	return TransformStep{Rotation: 180, Pivot: &pivot}
}

// animateAll fans one maneuver out to every sprite. Only the primary sprite
// carries onComplete.
func (c *Character) animateAll(targets []*target, d time.Duration, onComplete func(), stepFor func(*target) TransformStep) error {
	var errs []error
	for i, t := range targets {
		var done func()
		if i == 0 {
			done = onComplete
		}
		if err := c.moveImage(t, stepFor(t), d, done); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.name(), err))
		}
	}
	return errors.Join(errs...)
}

// moveImage collapses the sprite's transform stack before animating so
// repeated relative transforms do not pile up.
func (c *Character) moveImage(t *target, step TransformStep, d time.Duration, onComplete func()) error {
	if err := t.canvas.CollapseTransform(t.image); err != nil {
		return err
	}
	return t.canvas.Animate(t.image, Animation{
		Transform: &step,
		Duration:  d,
		Easing:    EaseLinear,
	}, onComplete)
}
