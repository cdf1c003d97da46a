// Package geom holds the screen-space primitives textures are drawn with.
package geom

import "github.com/go-gl/mathgl/mgl32"

// Quad is an arbitrary quadrilateral given by its four corners.
type Quad struct {
	TopLeft, TopRight, BottomLeft, BottomRight mgl32.Vec2
}

// QuadFromRect returns the axis-aligned quad covering r.
func QuadFromRect(r RectF) Quad {
	return Quad{
		TopLeft:     mgl32.Vec2{r.Left(), r.Top()},
		TopRight:    mgl32.Vec2{r.Right(), r.Top()},
		BottomLeft:  mgl32.Vec2{r.Left(), r.Bottom()},
		BottomRight: mgl32.Vec2{r.Right(), r.Bottom()},
	}
}

// Transform applies m to every corner of q.
func (q Quad) Transform(m mgl32.Mat3) Quad {
	f := func(v mgl32.Vec2) mgl32.Vec2 { return m.Mul3x1(v.Vec3(1)).Vec2() }
	return Quad{f(q.TopLeft), f(q.TopRight), f(q.BottomLeft), f(q.BottomRight)}
}

// RectF is a rectangle with Y growing downwards, so Top < Bottom.
type RectF struct {
	X, Y, W, H float32
}

func (r RectF) Left() float32   { return r.X }
func (r RectF) Top() float32    { return r.Y }
func (r RectF) Right() float32  { return r.X + r.W }
func (r RectF) Bottom() float32 { return r.Y + r.H }

// Scale divides r by sx and sy, mapping pixel coordinates to
// normalized texture coordinates when given the texture size.
func (r RectF) Scale(sx, sy float32) RectF {
	return RectF{r.X / sx, r.Y / sy, r.W / sx, r.H / sy}
}
