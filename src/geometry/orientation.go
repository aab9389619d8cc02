package geometry

import "strings"

// Orientation classifies a point relative to a rectangle. Horizontal and
// vertical components are set independently and OR-ed together.
type Orientation uint8

const (
	None   Orientation = 0
	Left   Orientation = 1 << 0
	Top    Orientation = 1 << 1
	Right  Orientation = 1 << 2
	Bottom Orientation = 1 << 3
	Center Orientation = 1 << 4
)

// Has reports whether every flag in f is set in o.
func (o Orientation) Has(f Orientation) bool { return f != None && o&f == f }

// IsVertex reports whether o names one of the four corners.
func (o Orientation) IsVertex() bool {
	switch o {
	case Left | Top, Right | Top, Left | Bottom, Right | Bottom:
		return true
	}
	return false
}

// IsEdge reports whether o names exactly one edge.
func (o Orientation) IsEdge() bool {
	switch o.withoutCenter() {
	case Left, Top, Right, Bottom:
		return true
	}
	return false
}

// IsInterior reports whether o is centered on both axes.
func (o Orientation) IsInterior() bool { return o == Center }

func (o Orientation) withoutCenter() Orientation { return o &^ Center }

func (o Orientation) String() string {
	if o == None {
		return "none"
	}
	var parts []string
	for _, f := range []struct {
		flag Orientation
		name string
	}{{Left, "left"}, {Top, "top"}, {Right, "right"}, {Bottom, "bottom"}, {Center, "center"}} {
		if o&f.flag != 0 {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

// Classify reports where (x, y) lies relative to r. A coordinate on or before
// the near edge is Left/Top, on or past the far edge is Right/Bottom, and
// anything between is Center.
func Classify(x, y float64, r Rect) Orientation {
	var horizontal, vertical Orientation
	switch {
	case x <= r.X:
		horizontal = Left
	case x < r.Right():
		horizontal = Center
	default:
		horizontal = Right
	}
	switch {
	case y <= r.Y:
		vertical = Top
	case y < r.Bottom():
		vertical = Center
	default:
		vertical = Bottom
	}
	return horizontal | vertical
}
