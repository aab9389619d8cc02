//go:build !windows

package monitor

import (
	"screen-select/src/geometry"

	"github.com/kbinani/screenshot"
)

// list reads display bounds from the capture backend. No per-monitor DPI is
// available here, so scale factors are 1 and the display at the origin is
// treated as primary.
func list() ([]Info, error) {
	n := screenshot.NumActiveDisplays()
	monitors := make([]Info, 0, n)
	for i := 0; i < n; i++ {
		b := screenshot.GetDisplayBounds(i)
		monitors = append(monitors, Info{
			Index:          i,
			PhysicalBounds: geometry.FromImage(b),
			ScaleX:         1,
			ScaleY:         1,
			Primary:        b.Min.X == 0 && b.Min.Y == 0,
		})
	}
	if len(monitors) > 0 && !monitors[Primary(monitors)].Primary {
		monitors[0].Primary = true
	}
	return monitors, nil
}
