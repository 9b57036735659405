package animation

import (
	"strconv"
	"strings"
)

// Point is a 2D coordinate in sprite or canvas space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of the box.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// TransformStep is one composed transform: an optional translation, then an
// optional rotation (about Pivot, or the sprite centre when Pivot is nil),
// then an optional scale about the sprite centre.
//
// Steps are expressed in the sprite's local coordinates and are appended to
// whatever transform the sprite already carries.
type TransformStep struct {
	Translate *Point  `json:"translate,omitempty"`
	Rotation  float64 `json:"rotation,omitempty"`
	Pivot     *Point  `json:"pivot,omitempty"`
	Scale     float64 `json:"scale,omitempty"` // 0 means no scaling
}

// Translation builds a pure translation step.
func Translation(x, y float64) TransformStep {
	return TransformStep{Translate: &Point{X: x, Y: y}}
}

// Rotation builds a rotation step about pivot; a nil pivot rotates about the sprite centre.
func Rotation(degrees float64, pivot *Point) TransformStep {
	return TransformStep{Rotation: degrees, Pivot: pivot}
}

// Scaling builds a scale step about the sprite centre.
func Scaling(factor float64) TransformStep {
	return TransformStep{Scale: factor}
}

// HasRotation reports whether the step rotates.
func (t TransformStep) HasRotation() bool {
	return t.Rotation != 0 || t.Pivot != nil
}

// IsIdentity reports whether the step leaves the sprite where it is.
func (t TransformStep) IsIdentity() bool {
	if t.Translate != nil && (t.Translate.X != 0 || t.Translate.Y != 0) {
		return false
	}
	return t.Rotation == 0 && (t.Scale == 0 || t.Scale == 1)
}

// String renders the step in SVG transform-string shorthand, e.g. "t0,-100s2"
// or "r-90,-19,15".
func (t TransformStep) String() string {
	var b strings.Builder
	if t.Translate != nil {
		b.WriteString("t")
		b.WriteString(formatNumber(t.Translate.X))
		b.WriteString(",")
		b.WriteString(formatNumber(t.Translate.Y))
	}
	if t.HasRotation() {
		b.WriteString("r")
		b.WriteString(formatNumber(t.Rotation))
		if t.Pivot != nil {
			b.WriteString(",")
			b.WriteString(formatNumber(t.Pivot.X))
			b.WriteString(",")
			b.WriteString(formatNumber(t.Pivot.Y))
		}
	}
	if t.Scale != 0 {
		b.WriteString("s")
		b.WriteString(formatNumber(t.Scale))
	}
	return b.String()
}

// Relative renders the step as an append to the current transform.
func (t TransformStep) Relative() string {
	return "..." + t.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
