package geometry

// Converter maps physical screen pixels (capture space, as reported by the OS
// and the accessibility API) to display units of one monitor's overlay window
// and back. Every value crossing that boundary goes through exactly one of
// these methods.
type Converter struct {
	OriginX float64
	OriginY float64
	ScaleX  float64
	ScaleY  float64
}

// NewConverter builds a converter for a monitor whose physical bounds start at
// (originX, originY). Non-positive scale factors are treated as 1.
func NewConverter(originX, originY, scaleX, scaleY float64) Converter {
	if scaleX <= 0 {
		scaleX = 1
	}
	if scaleY <= 0 {
		scaleY = 1
	}
	return Converter{OriginX: originX, OriginY: originY, ScaleX: scaleX, ScaleY: scaleY}
}

// ToDisplay converts a physical point to display units.
func (c Converter) ToDisplay(physicalX, physicalY float64) (float64, float64) {
	return (physicalX - c.OriginX) * c.ScaleX, (physicalY - c.OriginY) * c.ScaleY
}

// ToDisplayRect converts a physical rectangle to display units.
func (c Converter) ToDisplayRect(r Rect) Rect {
	return r.Offset(-c.OriginX, -c.OriginY).Scale(c.ScaleX, c.ScaleY)
}

// ToPhysicalX converts a display x coordinate to physical pixels.
func (c Converter) ToPhysicalX(displayX float64) float64 {
	return displayX/c.ScaleX + c.OriginX
}

// ToPhysicalY converts a display y coordinate to physical pixels.
func (c Converter) ToPhysicalY(displayY float64) float64 {
	return displayY/c.ScaleY + c.OriginY
}

// ToPhysical converts a display point to physical pixels.
func (c Converter) ToPhysical(displayX, displayY float64) (float64, float64) {
	return c.ToPhysicalX(displayX), c.ToPhysicalY(displayY)
}

// ToPhysicalRect converts a display rectangle to physical pixels.
func (c Converter) ToPhysicalRect(r Rect) Rect {
	return r.Scale(1/c.ScaleX, 1/c.ScaleY).Offset(c.OriginX, c.OriginY)
}
