package scene

import (
	"fmt"
	"math"

	"github.com/wricardo/mcp-training/vanroute/game/animation"
)

// Matrix is a 2D affine transform in SVG order: a point (x, y) maps to
// (A*x + C*y + E, B*x + D*y + F).
type Matrix struct {
	A, B, C, D, E, F float64
}

// Identity returns the transform that leaves points unchanged.
func Identity() Matrix {
	return Matrix{A: 1, D: 1}
}

// Mul returns m·n, i.e. n applied first in m's local space.
func (m Matrix) Mul(n Matrix) Matrix {
	return Matrix{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

func translate(x, y float64) Matrix {
	return Matrix{A: 1, D: 1, E: x, F: y}
}

// rotateAbout rotates clockwise on screen (y grows downwards) about (cx, cy).
func rotateAbout(degrees, cx, cy float64) Matrix {
	rad := degrees * math.Pi / 180
	sin, cos := math.Sincos(rad)
	r := Matrix{A: cos, B: sin, C: -sin, D: cos}
	return translate(cx, cy).Mul(r).Mul(translate(-cx, -cy))
}

func scaleAbout(s, cx, cy float64) Matrix {
	return translate(cx, cy).Mul(Matrix{A: s, D: s}).Mul(translate(-cx, -cy))
}

// Apply maps p through the transform.
func (m Matrix) Apply(p animation.Point) animation.Point {
	return animation.Point{
		X: m.A*p.X + m.C*p.Y + m.E,
		Y: m.B*p.X + m.D*p.Y + m.F,
	}
}

func (m Matrix) String() string {
	return fmt.Sprintf("matrix(%s,%s,%s,%s,%s,%s)",
		num(m.A), num(m.B), num(m.C), num(m.D), num(m.E), num(m.F))
}

// stepMatrix builds the matrix of step at progress p in [0, 1]. Rotations
// without a pivot and scales use the centre of the untransformed bounds.
func stepMatrix(step animation.TransformStep, bounds animation.Rect, p float64) Matrix {
	m := Identity()
	centre := bounds.Center()

	if step.Translate != nil {
		m = m.Mul(translate(step.Translate.X*p, step.Translate.Y*p))
	}
	if step.HasRotation() {
		pivot := centre
		if step.Pivot != nil {
			pivot = *step.Pivot
		}
		m = m.Mul(rotateAbout(step.Rotation*p, pivot.X, pivot.Y))
	}
	if step.Scale != 0 {
		s := 1 + (step.Scale-1)*p
		m = m.Mul(scaleAbout(s, centre.X, centre.Y))
	}
	return m
}

// boundingBox returns the axis-aligned box around r transformed by m.
func boundingBox(m Matrix, r animation.Rect) animation.Rect {
	corners := []animation.Point{
		{X: r.X, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y},
		{X: r.X, Y: r.Y + r.Height},
		{X: r.X + r.Width, Y: r.Y + r.Height},
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		p := m.Apply(c)
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return animation.Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// num rounds away float noise such as 6.123e-17 before printing.
func num(v float64) string {
	r := math.Round(v*1e6) / 1e6
	if r == 0 {
		r = 0 // drop the sign of -0
	}
	return fmt.Sprintf("%g", r)
}
