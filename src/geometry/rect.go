package geometry

import (
	"fmt"
	"image"
	"math"
)

// Rect is an axis-aligned rectangle in screen units. A Rect with a negative
// width is empty; Empty is the canonical "no rectangle" value.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

var (
	// Zero is the zero-sized rectangle at the origin.
	Zero = Rect{}
	// Empty represents the absence of a rectangle.
	Empty = Rect{X: math.Inf(1), Y: math.Inf(1), Width: math.Inf(-1), Height: math.Inf(-1)}
)

// NewRect builds a rectangle from its origin and size.
func NewRect(x, y, width, height float64) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// FromImage converts an image.Rectangle (pixel space) into a Rect.
func FromImage(r image.Rectangle) Rect {
	r = r.Canon()
	return Rect{X: float64(r.Min.X), Y: float64(r.Min.Y), Width: float64(r.Dx()), Height: float64(r.Dy())}
}

// IsEmpty reports whether r is the empty rectangle.
func (r Rect) IsEmpty() bool { return r.Width < 0 }

// IsFinite reports whether every field of r is a finite number.
func (r Rect) IsFinite() bool {
	for _, v := range [...]float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// IsZeroArea reports whether r has no usable area. Empty and non-finite
// rectangles have no area either.
func (r Rect) IsZeroArea() bool {
	return r.IsEmpty() || !r.IsFinite() || r.Width == 0 || r.Height == 0
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Area returns width*height, or 0 for empty rectangles.
func (r Rect) Area() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.Width * r.Height
}

// Contains reports whether the point lies inside r. Edges are inclusive.
func (r Rect) Contains(x, y float64) bool {
	if r.IsEmpty() {
		return false
	}
	return r.X <= x && r.Y <= y && x <= r.Right() && y <= r.Bottom()
}

// IntersectsWith reports whether r and o overlap or touch.
func (r Rect) IntersectsWith(o Rect) bool {
	return !r.IsEmpty() && !o.IsEmpty() &&
		o.X <= r.Right() &&
		o.Right() >= r.X &&
		o.Y <= r.Bottom() &&
		o.Bottom() >= r.Y
}

// Intersect returns the overlap of r and o, or Empty when they do not meet.
func (r Rect) Intersect(o Rect) Rect {
	if !r.IntersectsWith(o) {
		return Empty
	}
	x := math.Max(r.X, o.X)
	y := math.Max(r.Y, o.Y)
	return Rect{
		X:      x,
		Y:      y,
		Width:  math.Max(math.Min(r.Right(), o.Right())-x, 0),
		Height: math.Max(math.Min(r.Bottom(), o.Bottom())-y, 0),
	}
}

// Union returns the smallest rectangle containing both r and o.
// The union with an empty rectangle is the other operand.
func (r Rect) Union(o Rect) Rect {
	switch {
	case r.IsEmpty():
		return o
	case o.IsEmpty():
		return r
	}
	x := math.Min(r.X, o.X)
	y := math.Min(r.Y, o.Y)
	return Rect{
		X:      x,
		Y:      y,
		Width:  math.Max(math.Max(r.Right(), o.Right())-x, 0),
		Height: math.Max(math.Max(r.Bottom(), o.Bottom())-y, 0),
	}
}

// UnionPoint grows r so that it contains the point.
func (r Rect) UnionPoint(x, y float64) Rect {
	return r.Union(Rect{X: x, Y: y})
}

// Offset moves r by (dx, dy).
func (r Rect) Offset(dx, dy float64) Rect {
	if r.IsEmpty() {
		return Empty
	}
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

// Scale multiplies origin and size by the per-axis factors.
func (r Rect) Scale(sx, sy float64) Rect {
	if r.IsEmpty() {
		return Empty
	}
	return Rect{X: r.X * sx, Y: r.Y * sy, Width: r.Width * sx, Height: r.Height * sy}
}

// ToImage rounds r to whole pixels. Empty rectangles map to image.Rectangle{}.
func (r Rect) ToImage() image.Rectangle {
	if r.IsEmpty() {
		return image.Rectangle{}
	}
	return image.Rect(
		int(math.Round(r.X)),
		int(math.Round(r.Y)),
		int(math.Round(r.Right())),
		int(math.Round(r.Bottom())),
	)
}

func (r Rect) String() string {
	if r.IsEmpty() {
		return "(empty)"
	}
	return fmt.Sprintf("(%g, %g) [%g, %g]", r.X, r.Y, r.Width, r.Height)
}

// RectFromTwoPoints builds the rectangle spanned by two corner points.
// Extents are never negative.
func RectFromTwoPoints(x1, y1, x2, y2 float64) Rect {
	x := math.Min(x1, x2)
	y := math.Min(y1, y2)
	return Rect{
		X:      x,
		Y:      y,
		Width:  math.Max(math.Max(x1, x2)-x, 0),
		Height: math.Max(math.Max(y1, y2)-y, 0),
	}
}
