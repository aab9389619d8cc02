package screenshot

import (
	"fmt"
	"image"
	"image/color"

	"screen-select/src/geometry"

	"github.com/kbinani/screenshot"
)

// VirtualBounds returns the union of all active display bounds in physical
// pixels.
func VirtualBounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	return union, nil
}

// Capture captures the entire virtual screen across all active displays
func Capture() (*image.RGBA, error) {
	union, err := VirtualBounds()
	if err != nil {
		return nil, err
	}
	return screenshot.CaptureRect(union)
}

// CaptureRect captures a physical region, rounded to whole pixels.
func CaptureRect(region geometry.Rect) (*image.RGBA, error) {
	bounds := region.ToImage()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("invalid region dimensions: %s", region)
	}

	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to capture region: %w", err)
	}
	return img, nil
}

// Sampler answers pixel color queries from a single capture. Coordinates are
// physical screen pixels.
type Sampler struct {
	img    *image.RGBA
	origin image.Point
}

// NewSampler wraps an existing capture whose top-left pixel sits at the
// physical screen position origin. Captures are zero-based images.
func NewSampler(img *image.RGBA, origin image.Point) *Sampler {
	return &Sampler{img: img, origin: origin}
}

// CaptureSampler captures the virtual screen for sampling.
func CaptureSampler() (*Sampler, error) {
	union, err := VirtualBounds()
	if err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(union)
	if err != nil {
		return nil, fmt.Errorf("failed to capture screen: %w", err)
	}
	return NewSampler(img, union.Min), nil
}

// Origin returns the screen position of the capture's top-left pixel.
func (s *Sampler) Origin() image.Point { return s.origin }

// Image returns the underlying capture.
func (s *Sampler) Image() *image.RGBA { return s.img }

// ColorAt returns the color at (x, y), or false outside the capture.
func (s *Sampler) ColorAt(x, y int) (color.Color, bool) {
	if s == nil || s.img == nil {
		return nil, false
	}
	p := image.Pt(x, y).Sub(s.origin).Add(s.img.Bounds().Min)
	if !p.In(s.img.Bounds()) {
		return nil, false
	}
	return s.img.RGBAAt(p.X, p.Y), true
}
