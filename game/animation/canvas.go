package animation

import "time"

// SpriteID is the canvas handle of a loaded image.
type SpriteID string

// Easing names the interpolation curve of an animation.
type Easing string

const EaseLinear Easing = "linear"

// Animation describes a timed change of a sprite's transform and/or opacity.
// Transform is appended to the sprite's current transform.
type Animation struct {
	Transform *TransformStep `json:"transform,omitempty"`
	Opacity   *float64       `json:"opacity,omitempty"`
	Duration  time.Duration  `json:"duration"`
	Easing    Easing         `json:"easing,omitempty"`
}

// Canvas is the drawing surface the character animates on.
//
// onComplete callbacks may be invoked from any goroutine, and synchronously
// from FinishAnimations. Implementations must not hold internal locks while
// calling them.
type Canvas interface {
	LoadImage(url string, bounds Rect) (SpriteID, error)
	RemoveSprite(id SpriteID) error

	// SetTransform replaces the sprite's transform with steps applied in order.
	SetTransform(id SpriteID, steps ...TransformStep) error
	// ApplyTransform appends step to the sprite's transform immediately.
	ApplyTransform(id SpriteID, step TransformStep) error
	// CollapseTransform folds the sprite's transform stack into one matrix.
	CollapseTransform(id SpriteID) error
	// MatchTransform gives dst the transform src currently has.
	MatchTransform(dst, src SpriteID) error

	Animate(id SpriteID, anim Animation, onComplete func()) error
	// FinishAnimations jumps in-flight animations to their final frame.
	FinishAnimations(id SpriteID) error

	SetOpacity(id SpriteID, opacity float64) error
	BoundingBox(id SpriteID) (Rect, error)
}

// Viewport is the visible window onto the canvas.
type Viewport struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Scroller is implemented by canvases shown through a scrollable viewport.
type Scroller interface {
	Viewport() Viewport
	ScrollTo(left, top float64)
}
