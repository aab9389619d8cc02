// Package monitor enumerates displays and their DPI scale factors.
package monitor

import (
	"errors"
	"fmt"

	"screen-select/src/geometry"
)

// ErrNoMonitors is returned when enumeration finds no active display.
var ErrNoMonitors = errors.New("no monitors detected")

// Info describes one active display. PhysicalBounds is in raw screen pixels;
// ScaleX/ScaleY map physical pixels to the display units the overlay draws in.
type Info struct {
	Index          int
	PhysicalBounds geometry.Rect
	ScaleX         float64
	ScaleY         float64
	Primary        bool
}

// Converter returns the physical/display converter for the monitor.
func (m Info) Converter() geometry.Converter {
	return geometry.NewConverter(m.PhysicalBounds.X, m.PhysicalBounds.Y, m.ScaleX, m.ScaleY)
}

// DisplayBounds is the monitor rectangle in its own display units, with the
// origin at the monitor's top-left corner.
func (m Info) DisplayBounds() geometry.Rect {
	return m.Converter().ToDisplayRect(m.PhysicalBounds)
}

func (m Info) String() string {
	primary := ""
	if m.Primary {
		primary = " primary"
	}
	return fmt.Sprintf("#%d %s scale=%.3gx%.3g%s", m.Index, m.PhysicalBounds, m.ScaleX, m.ScaleY, primary)
}

// List returns all active monitors in enumeration order.
func List() ([]Info, error) {
	monitors, err := list()
	if err != nil {
		return nil, err
	}
	if len(monitors) == 0 {
		return nil, ErrNoMonitors
	}
	return monitors, nil
}

// VirtualBounds returns the union of all monitors' physical bounds.
func VirtualBounds(monitors []Info) geometry.Rect {
	r := geometry.Empty
	for _, m := range monitors {
		r = r.Union(m.PhysicalBounds)
	}
	return r
}

// Find returns the index into monitors of the display containing the
// physical point, or -1.
func Find(monitors []Info, x, y float64) int {
	for i, m := range monitors {
		b := m.PhysicalBounds
		// Right and bottom edges belong to the neighbouring monitor.
		if x >= b.X && y >= b.Y && x < b.Right() && y < b.Bottom() {
			return i
		}
	}
	return -1
}

// Primary returns the index of the primary monitor, or 0.
func Primary(monitors []Info) int {
	for i, m := range monitors {
		if m.Primary {
			return i
		}
	}
	return 0
}
